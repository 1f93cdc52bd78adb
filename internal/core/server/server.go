package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/wms-gateway/internal/core/config"
	"github.com/mohammed-shakir/wms-gateway/internal/core/health"
	middleware "github.com/mohammed-shakir/wms-gateway/internal/core/middleware"
)

// Handlers are the request paths wired by cmd.
type Handlers struct {
	Layers http.Handler
	WMS    http.Handler
	DB     health.Pinger
}

func NewRouter(cfg config.Config, logger *slog.Logger, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Instrument())

	r.Get("/", health.Root(cfg.ServiceName))
	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(h.DB))
	if cfg.MetricsEnabled {
		r.Get("/metrics", promhttp.Handler().ServeHTTP)
	}
	r.Method(http.MethodGet, "/layers", h.Layers)
	r.Method(http.MethodGet, "/wms", h.WMS)
	return r
}

// sets up http and starts serving
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, h Handlers) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(cfg, logger, h),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// must stay above httpclient.UpstreamTimeout
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "err", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
