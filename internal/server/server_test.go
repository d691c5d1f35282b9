package server

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vburojevic/journalq/internal/domain"
	"github.com/vburojevic/journalq/internal/journal/journaltest"
	"github.com/vburojevic/journalq/internal/metrics"
	"github.com/vburojevic/journalq/internal/query"
)

func scenarioJournal() *journaltest.Journal {
	return journaltest.New(
		journaltest.NewRecord("c100", "6", 100, "started").WithUnit("boot.service"),
		journaltest.NewRecord("c200", "2", 200, "crashed"),
		journaltest.NewRecord("c300", "4", 300, "degraded"),
		journaltest.NewRecord("c400", "2", 400, "crashed again").WithUnit("app.service"),
	)
}

type wireEntry struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Origin   string `json:"origin"`
	Date     int64  `json:"date"`
}

type wireResponse struct {
	Entries    []wireEntry `json:"entries"`
	LastCursor string      `json:"last_cursor"`
}

func newTestHandler(t *testing.T, j *journaltest.Journal, opts Options) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	return New(query.NewEngine(j, query.WithLogger(logger)), opts, logger)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) wireResponse {
	t.Helper()
	var resp wireResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLogsEndpoint(t *testing.T) {
	h := newTestHandler(t, scenarioJournal(), Options{})

	t.Run("severity filter", func(t *testing.T) {
		rec := get(t, h, "/logs?n=10&severity=warning")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, "exhausted", rec.Header().Get(StopHeader))

		resp := decode(t, rec)
		require.Len(t, resp.Entries, 3)
		assert.Equal(t, wireEntry{Message: "crashed again", Severity: "Error", Origin: "app.service", Date: 400}, resp.Entries[0])
		assert.Equal(t, "Warning", resp.Entries[1].Severity)
		assert.Equal(t, int64(200), resp.Entries[2].Date)
		assert.Equal(t, "c200", resp.LastCursor)
	})

	t.Run("paging with cursor", func(t *testing.T) {
		first := decode(t, get(t, h, "/logs?n=2"))
		require.Len(t, first.Entries, 2)
		assert.Equal(t, "c300", first.LastCursor)

		second := decode(t, get(t, h, "/logs?n=10&cursor="+first.LastCursor))
		require.Len(t, second.Entries, 2)
		assert.Equal(t, int64(200), second.Entries[0].Date)
		assert.Equal(t, int64(100), second.Entries[1].Date)
		assert.Equal(t, "boot.service", second.Entries[1].Origin)
	})

	t.Run("invalid cursor is a 400", func(t *testing.T) {
		rec := get(t, h, "/logs?cursor=rotated")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
		assert.Contains(t, rec.Body.String(), "cursor not found")
		assert.Equal(t, "invalid_cursor", rec.Header().Get(StopHeader))
	})

	t.Run("malformed parameters fall back to defaults", func(t *testing.T) {
		rec := get(t, h, "/logs?n=lots&severity=loud&last_secs=-5")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode(t, rec).Entries, 4)
	})

	t.Run("n beyond 32 bits is honoured", func(t *testing.T) {
		for _, n := range []string{"4294967296", "9223372036854775807"} {
			rec := get(t, h, "/logs?n="+n)
			require.Equal(t, http.StatusOK, rec.Code)
			resp := decode(t, rec)
			assert.Len(t, resp.Entries, 4, "n=%s", n)
			assert.Equal(t, "c100", resp.LastCursor)
		}
	})

	t.Run("n=0 returns an empty list", func(t *testing.T) {
		rec := get(t, h, "/logs?n=0")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"entries":[],"last_cursor":""}`, rec.Body.String())
	})

	t.Run("last_secs excludes old entries", func(t *testing.T) {
		// The sample timestamps are in 1970, far outside one hour.
		rec := get(t, h, "/logs?last_secs=3600")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode(t, rec).Entries)
		assert.Equal(t, "time_bound", rec.Header().Get(StopHeader))
	})

	t.Run("request id is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/logs?n=1", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

		rec = get(t, h, "/logs?n=1")
		assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
	})

	t.Run("only GET is routed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/logs", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestLogsOpenFailure(t *testing.T) {
	j := scenarioJournal()
	j.OpenErr = errors.New("permission denied")
	rec := get(t, newTestHandler(t, j, Options{}), "/logs")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "permission denied")
}

func TestLogsDefaultLimitOption(t *testing.T) {
	rec := get(t, newTestHandler(t, scenarioJournal(), Options{DefaultLimit: 1}), "/logs")
	resp := decode(t, rec)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "c400", resp.LastCursor)
}

func TestLogsLargeNClampedByMaxLimit(t *testing.T) {
	logger := zaptest.NewLogger(t)
	h := New(query.NewEngine(scenarioJournal(), query.WithLogger(logger), query.WithMaxLimit(2)), Options{}, logger)

	rec := get(t, h, "/logs?n=4294967296")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "c300", resp.LastCursor)
	assert.Equal(t, "limit", rec.Header().Get(StopHeader))
}

func TestLogsGzip(t *testing.T) {
	h := newTestHandler(t, scenarioJournal(), Options{Gzip: true})

	req := httptest.NewRequest(http.MethodGet, "/logs?n=10", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body io.Reader = rec.Body
	if rec.Header().Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(rec.Body)
		require.NoError(t, err)
		body = zr
	}
	var resp wireResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	assert.Len(t, resp.Entries, 4)
}

func TestRateLimit(t *testing.T) {
	m := metrics.NewQueryMetrics(prometheus.NewRegistry())
	h := newTestHandler(t, scenarioJournal(), Options{RateLimit: 0.001, RateBurst: 2, Metrics: m})

	assert.Equal(t, http.StatusOK, get(t, h, "/logs").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/logs").Code)
	rec := get(t, h, "/logs")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited))

	// health checks are not limited
	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewQueryMetrics(reg)
	logger := zaptest.NewLogger(t)
	h := New(query.NewEngine(scenarioJournal(), query.WithMetrics(m)), Options{Gatherer: reg, Metrics: m}, logger)

	require.Equal(t, http.StatusOK, get(t, h, "/logs?n=2").Code)

	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `journalq_query_queries_total{status="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "journalq_query_entries_total 2")
}

func TestMetricsEndpointDisabled(t *testing.T) {
	h := newTestHandler(t, scenarioJournal(), Options{})
	assert.Equal(t, http.StatusNotFound, get(t, h, "/metrics").Code)
}

type slowQuerier struct{}

func (slowQuerier) Query(ctx context.Context, _ domain.QueryParameters) (domain.QueryResult, error) {
	<-ctx.Done()
	return domain.QueryResult{
		Entries:    []domain.LogEntry{{Message: "partial", Severity: domain.SeverityInfo, Timestamp: 1, Position: "p1"}},
		LastCursor: "p1",
		Stop:       domain.StopCancelled,
	}, nil
}

func TestRequestTimeoutReturnsPartialResult(t *testing.T) {
	h := New(slowQuerier{}, Options{RequestTimeout: 20 * time.Millisecond}, zaptest.NewLogger(t))
	rec := get(t, h, "/logs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", rec.Header().Get(StopHeader))

	resp := decode(t, rec)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "p1", resp.LastCursor)
}

func TestServerServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(ln.Addr().String(), newTestHandler(t, scenarioJournal(), Options{}), zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", strings.TrimSpace(string(body)))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
