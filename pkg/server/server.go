package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aigoflow/scoring-service/internal/handlers"
	"github.com/aigoflow/scoring-service/internal/metrics"
	"github.com/aigoflow/scoring-service/internal/services"
)

type Server struct {
	httpAddr       string
	scoringService *services.ScoringService
	metrics        *metrics.Registry
}

// NewServer builds the HTTP front end. registry may be nil when the metrics
// sink is disabled.
func NewServer(httpAddr string, scoringService *services.ScoringService, registry *metrics.Registry) *Server {
	return &Server{
		httpAddr:       httpAddr,
		scoringService: scoringService,
		metrics:        registry,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	handlers.NewScoringHandler(s.scoringService, s.metrics).RegisterRoutes(mux)
	return mux
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.httpAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	endpoints := []string{"/v1/score", "/v1/models", "/healthz", "/model-runs"}
	if s.metrics != nil {
		endpoints = append(endpoints, "/metrics")
	}
	slog.Info("HTTP server starting",
		"addr", s.httpAddr,
		"endpoints", endpoints,
		"models", s.scoringService.Models())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("HTTP server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
