package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"nova-payments/internal/config"
)

// HealthCheck reports a dependency failure; nil means healthy.
type HealthCheck func(ctx context.Context) error

// NewRouter returns a chi router with the common middleware stack plus
// /health and /metrics. Service routes are mounted by the caller.
func NewRouter(cfg config.HTTPConfig, logger *zerolog.Logger, checks map[string]HealthCheck) chi.Router {
	r := chi.NewRouter()
	r.Use(CorrelationID(), Recover(logger), RequestLog(logger))
	if cfg.RequestTimeout > 0 {
		r.Use(Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := map[string]string{}, http.StatusOK
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status[name], code = "down", http.StatusServiceUnavailable
				continue
			}
			status[name] = "up"
		}
		WriteJSON(w, code, map[string]interface{}{"ok": code == http.StatusOK, "checks": status})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Server owns the listening http.Server.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

func NewServer(cfg config.HTTPConfig, handler http.Handler, logger *zerolog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.srv.Addr).Msg("HTTP server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(shCtx)
}
