package cli

import (
	"context"
	"errors"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vburojevic/journalq/internal/journal"
	"github.com/vburojevic/journalq/internal/metrics"
	"github.com/vburojevic/journalq/internal/query"
	"github.com/vburojevic/journalq/internal/server"
)

// ServeCmd serves GET /logs until interrupted
type ServeCmd struct {
	Listen string `short:"l" help:"Listen address (default: server.listen)"`
}

// Run executes the serve command
func (c *ServeCmd) Run(globals *Globals) error {
	cfg := globals.Config
	logger, err := globals.Logger()
	if err != nil {
		return outputErrorCommon(globals, "INVALID_CONFIG", err.Error())
	}
	defer func() { _ = logger.Sync() }()

	addr := cfg.Server.Listen
	if c.Listen != "" {
		addr = c.Listen
	}

	opener := globals.Opener()
	engineOpts := []query.Option{
		query.WithLogger(logger.Named("query")),
		query.WithMaxLimit(cfg.Query.MaxLimit),
	}
	serverOpts := server.Options{
		DefaultLimit:   cfg.Query.DefaultLimit,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		Gzip:           cfg.Server.Gzip,
	}
	if cfg.Server.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := metrics.NewQueryMetrics(reg)
		engineOpts = append(engineOpts, query.WithMetrics(m))
		serverOpts.Gatherer = reg
		serverOpts.Metrics = m
	}

	engine := query.NewEngine(opener, engineOpts...)
	srv := server.NewServer(addr, server.New(engine, serverOpts, logger.Named("http")), logger)

	signalCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	group, ctx := errgroup.WithContext(signalCtx)

	group.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	group.Go(func() error {
		probeJournal(ctx, opener, logger)
		return nil
	})

	if err := group.Wait(); err != nil {
		return outputErrorCommon(globals, "SERVE_FAILED", err.Error(), hintForQueryError(err))
	}
	return nil
}

// probeJournal reads the newest entry once at startup so misconfiguration
// shows up in the log before the first request.
func probeJournal(ctx context.Context, opener journal.Opener, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cur, err := journal.OpenCursor(ctx, opener, "")
	if err != nil {
		logger.Warn("journal not readable", zap.Error(err), zap.String("hint", hintForQueryError(err)))
		return
	}
	defer cur.Close()

	entry, err := cur.Next()
	switch {
	case errors.Is(err, io.EOF):
		logger.Warn("journal is empty")
	case err != nil:
		logger.Warn("journal read failed", zap.Error(err))
	default:
		logger.Info("journal readable",
			zap.String("newest_cursor", entry.Position),
			zap.Time("newest_entry", entry.Time()),
		)
	}
}
