package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vburojevic/journalq/internal/domain"
	"github.com/vburojevic/journalq/internal/journal"
)

// StopHeader reports why the journal walk ended
const StopHeader = "X-Journal-Stop"

// logsResponse is the JSON body of GET /logs
type logsResponse struct {
	Entries    []domain.LogEntry `json:"entries"`
	LastCursor string            `json:"last_cursor"`
}

type logsHandler struct {
	querier      Querier
	defaultLimit int
	timeout      time.Duration
	logger       *zap.Logger
}

// ServeHTTP handles GET /logs?n=&severity=&last_secs=&cursor=
func (h *logsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	params := h.parseParams(r.URL.Query(), loggerFrom(r.Context(), h.logger))

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	res, err := h.querier.Query(ctx, params)
	if err != nil {
		if errors.Is(err, journal.ErrCursorNotFound) {
			w.Header().Set(StopHeader, "invalid_cursor")
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries := res.Entries
	if entries == nil {
		entries = []domain.LogEntry{}
	}
	if res.Stop != "" {
		w.Header().Set(StopHeader, string(res.Stop))
	}
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(logsResponse{Entries: entries, LastCursor: res.LastCursor}); err != nil {
		loggerFrom(r.Context(), h.logger).Debug("write response failed", zap.Error(err))
	}
}

// parseParams reads the query string. Malformed numbers are ignored so the
// query runs with defaults instead of failing.
func (h *logsHandler) parseParams(q url.Values, logger *zap.Logger) domain.QueryParameters {
	limit := h.defaultLimit
	params := domain.QueryParameters{
		Limit:       &limit,
		MinSeverity: q.Get("severity"),
		Cursor:      q.Get("cursor"),
	}

	if raw := q.Get("n"); raw != "" {
		if n, err := strconv.ParseUint(raw, 10, 63); err == nil {
			// the engine clamps to max_limit
			limit = int(min(n, uint64(math.MaxInt)))
		} else {
			logger.Debug("ignoring malformed n", zap.String("n", raw))
		}
	}
	if raw := q.Get("last_secs"); raw != "" {
		if s, err := strconv.ParseUint(raw, 10, 63); err == nil {
			secs := int64(s)
			params.SinceSeconds = &secs
		} else {
			logger.Debug("ignoring malformed last_secs", zap.String("last_secs", raw))
		}
	}
	if params.MinSeverity != "" {
		if _, ok := domain.ParseSeverityName(params.MinSeverity); !ok {
			logger.Debug("unknown severity, not filtering", zap.String("severity", params.MinSeverity))
		}
	}
	return params
}
