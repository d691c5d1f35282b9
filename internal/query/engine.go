// Package query runs journal queries: a backward walk bounded by a limit and
// a time window, with severity filtering and a resume cursor.
package query

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vburojevic/journalq/internal/domain"
	"github.com/vburojevic/journalq/internal/filter"
	"github.com/vburojevic/journalq/internal/journal"
	"github.com/vburojevic/journalq/internal/metrics"
)

// Engine answers journal queries. It holds no per-query state and is safe
// for concurrent use; every Query opens its own reader.
type Engine struct {
	opener   journal.Opener
	clock    clock.Clock
	logger   *zap.Logger
	metrics  *metrics.QueryMetrics
	maxLimit int
}

// Option configures an Engine
type Option func(*Engine)

// WithClock sets the time source used to resolve SinceSeconds
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.QueryMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithMaxLimit clamps the per-query limit; zero or negative disables the clamp
func WithMaxLimit(n int) Option {
	return func(e *Engine) { e.maxLimit = n }
}

// NewEngine creates an engine over opener
func NewEngine(opener journal.Opener, opts ...Option) *Engine {
	e := &Engine{
		opener: opener,
		clock:  clock.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query walks the journal from params.Cursor (or the tail) towards the past.
//
// Only a failure to open or position the journal is returned as an error
// (*journal.OpenError). A read failure or a cancelled ctx ends the walk early
// and the entries gathered so far are returned with a valid LastCursor; the
// reason is reported in QueryResult.Stop.
func (e *Engine) Query(ctx context.Context, params domain.QueryParameters) (domain.QueryResult, error) {
	start := e.clock.Now()
	limit := params.EffectiveLimit()
	if e.maxLimit > 0 && limit > e.maxLimit {
		limit = e.maxLimit
	}
	skip := filter.NewChain()
	if threshold := params.Threshold(); threshold < domain.MaxCardinality {
		skip.Add(filter.NewSeverityFilter(threshold))
	}
	cutoff := filter.NewCutoff(params.LowerBound(start))

	log := e.logger.With(
		zap.Int("limit", limit),
		zap.String("min_severity", params.MinSeverity),
		zap.Int64("lower_bound_us", cutoff.LowerBound()),
		zap.Bool("resume", params.Cursor != ""),
	)

	cur, err := journal.OpenCursor(ctx, e.opener, params.Cursor)
	if err != nil {
		log.Warn("journal open failed", zap.Error(err))
		e.observe("open_error", start, domain.QueryResult{})
		return domain.QueryResult{}, err
	}
	defer func() {
		if cerr := cur.Close(); cerr != nil {
			log.Debug("journal close failed", zap.Error(cerr))
		}
	}()

	res := domain.QueryResult{Entries: make([]domain.LogEntry, 0, min(limit, domain.DefaultLimit))}
	res.Stop = e.walk(ctx, cur, limit, skip, cutoff, &res)

	res.LastCursor = params.Cursor
	if n := len(res.Entries); n > 0 {
		res.LastCursor = res.Entries[n-1].Position
	}

	status := "ok"
	switch res.Stop {
	case domain.StopReadError:
		status = "read_error"
		log.Warn("journal read failed, returning partial result",
			zap.Error(res.ReadErr), zap.Int("entries", len(res.Entries)))
	case domain.StopCancelled:
		status = "cancelled"
		log.Info("query cancelled, returning partial result",
			zap.Error(ctx.Err()), zap.Int("entries", len(res.Entries)))
	}
	e.observe(status, start, res)

	log.Debug("query finished",
		zap.Int("entries", len(res.Entries)),
		zap.Int("skipped", res.Skipped),
		zap.String("stop", string(res.Stop)),
	)
	return res, nil
}

func (e *Engine) walk(ctx context.Context, cur *journal.Cursor, limit int, skip filter.Filter, cutoff *filter.Cutoff, res *domain.QueryResult) domain.StopReason {
	for len(res.Entries) < limit {
		if ctx.Err() != nil {
			return domain.StopCancelled
		}

		entry, err := cur.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return domain.StopExhausted
			}
			// Reader killed because the request ended
			if ctx.Err() != nil {
				return domain.StopCancelled
			}
			res.ReadErr = err
			return domain.StopReadError
		}

		// Entries arrive newest first, so the first too-old entry ends the walk.
		if cutoff.Reached(&entry) {
			return domain.StopTimeBound
		}
		if !skip.Match(&entry) {
			res.Skipped++
			continue
		}
		res.Entries = append(res.Entries, entry)
	}
	return domain.StopLimit
}

func (e *Engine) observe(status string, start time.Time, res domain.QueryResult) {
	if e.metrics == nil {
		return
	}
	e.metrics.QueriesTotal.WithLabelValues(status).Inc()
	e.metrics.Duration.Observe(e.clock.Since(start).Seconds())
	e.metrics.EntriesTotal.Add(float64(len(res.Entries)))
	e.metrics.SkippedTotal.Add(float64(res.Skipped))
	if res.Stop == domain.StopReadError {
		e.metrics.ReadErrorsTotal.Inc()
	}
}
