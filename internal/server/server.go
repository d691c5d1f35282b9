// Package server exposes journal queries over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vburojevic/journalq/internal/domain"
	"github.com/vburojevic/journalq/internal/metrics"
)

// Querier runs a journal query
type Querier interface {
	Query(ctx context.Context, params domain.QueryParameters) (domain.QueryResult, error)
}

// Options configures the HTTP surface
type Options struct {
	DefaultLimit   int           // limit used when the request has no n
	RequestTimeout time.Duration // per-request deadline for the journal walk, 0 = none
	RateLimit      float64       // requests per second on /logs, 0 = unlimited
	RateBurst      int
	Gzip           bool
	// Gatherer serves /metrics when set
	Gatherer prometheus.Gatherer
	Metrics  *metrics.QueryMetrics
}

// New builds the router
func New(q Querier, opts Options, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = domain.DefaultLimit
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	var logs http.Handler = &logsHandler{
		querier:      q,
		defaultLimit: opts.DefaultLimit,
		timeout:      opts.RequestTimeout,
		logger:       logger,
	}
	if opts.Gzip {
		logs = gzhttp.GzipHandler(logs)
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		logs = rateLimit(rate.NewLimiter(rate.Limit(opts.RateLimit), burst), opts.Metrics)(logs)
	}
	r.Method(http.MethodGet, "/logs", logs)

	return r
}

// Server runs the HTTP listener with graceful shutdown
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewServer wraps handler in an http.Server listening on addr
func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully, giving in-flight queries up to five seconds.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", ln.Addr().String()))
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on the configured address and calls Serve
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
