// Package blocklistserver implements the public, unauthenticated, read-only
// HTTP projection of the classification store: GET /blocklist, /health, and
// /metrics.
package blocklistserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LoganBarnett/dns-smart-block/internal/storage"
)

// Store is the eventstore surface blocklist-server depends on.
type Store interface {
	DomainLister
	SnapshotSource
}

// Server is the blocklist HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	refresher  *metricsRefresher
	logger     *slog.Logger
}

// Config holds the dependencies and settings needed to construct a Server.
type Config struct {
	Store        Store
	DB           *storage.DB // used to LISTEN for classification-committed notifications
	Logger       *slog.Logger
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// New builds the HTTP server with its route table and trimmed middleware
// chain: request ID → recovery → logging → Prometheus instrumentation → mux.
func New(cfg Config) *Server {
	reg := prometheus.NewRegistry()
	h := newHandlers(cfg.Store, reg)
	refresher := newMetricsRefresher(cfg.Store, cfg.Logger, reg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /blocklist", h.handleBlocklist)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	var handler http.Handler = mux
	handler = metricsMiddleware(handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  2 * cfg.ReadTimeout,
		},
		handler:   handler,
		refresher: refresher,
		logger:    cfg.Logger,
	}
}

// Handler returns the root HTTP handler, for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving HTTP requests. Blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// RunMetricsRefreshLoop refreshes the cached metrics snapshot on a fixed
// interval (a fallback for scrapes that land between notifications) until
// ctx is canceled. Run it in its own goroutine.
func (s *Server) RunMetricsRefreshLoop(ctx context.Context, interval time.Duration) {
	s.refresher.RunLoop(ctx, interval)
}

// RunNotifyListener blocks on db's LISTEN/NOTIFY channel for
// classification-committed events and eagerly refreshes the metrics
// snapshot on each one, so /metrics doesn't wait out a full scrape interval
// after a commit. Run it in its own goroutine; returns when ctx is
// canceled or the listen connection is unavailable.
func (s *Server) RunNotifyListener(ctx context.Context, db *storage.DB) {
	if !db.HasNotifyConn() {
		s.logger.Warn("notify connection not configured, relying on periodic metrics refresh only")
		return
	}
	if err := db.Listen(ctx, storage.ChannelClassificationCommitted); err != nil {
		s.logger.Error("failed to listen for classification-committed notifications", "error", err)
		return
	}
	for {
		if ctx.Err() != nil {
			return
		}
		if _, _, err := db.WaitForNotification(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("notification wait failed", "error", err)
			if !db.HasNotifyConn() {
				s.logger.Warn("notify connection lost, relying on periodic metrics refresh only")
				return
			}
			continue
		}
		s.refresher.Refresh(ctx)
	}
}
