// Package httpapi serves the diagnostics engine as a local JSON API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"routedash/internal/config"
	"routedash/internal/diagnostics"
	"routedash/internal/metrics"
)

// Server is the HTTP front of the engine.
type Server struct {
	router  *mux.Router
	server  *http.Server
	engine  *diagnostics.Engine
	metrics *metrics.Registry
	limiter *Limiter
	cfg     config.HTTPConfig
}

func NewServer(engine *diagnostics.Engine, m *metrics.Registry, cfg config.HTTPConfig) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		engine:  engine,
		metrics: m,
		limiter: NewLimiter(cfg.RateLimit, cfg.Burst),
		cfg:     cfg,
	}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.rateLimitMiddleware)

	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(jsonContentTypeMiddleware)
	api.HandleFunc("/model", s.handleModel).Methods(http.MethodGet)
	api.HandleFunc("/model/reload", s.handleReload).Methods(http.MethodPost)
	api.HandleFunc("/residuals", s.handleResiduals).Methods(http.MethodGet)
	api.HandleFunc("/compare/{date}", s.handleCompare).Methods(http.MethodGet)
	api.HandleFunc("/baselines", s.handleBaselines).Methods(http.MethodGet)
	api.HandleFunc("/context", s.handleContext).Methods(http.MethodGet)
	api.HandleFunc("/dismissals/{date}", s.handleDismiss).Methods(http.MethodPost)
	api.HandleFunc("/dismissals/{date}", s.handleReinstate).Methods(http.MethodDelete)
	api.HandleFunc("/preferences/holiday-downweight", s.handleHolidayDownweight).Methods(http.MethodPut)
	api.HandleFunc("/preferences/model-scope", s.handleModelScope).Methods(http.MethodPut)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("HTTP API listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
