// Package httpapi serves the extractor over HTTP: a health probe and a
// multipart PDF upload endpoint returning the extraction as JSON.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/a3tai/pci-dss-extractor/internal/config"
	"github.com/a3tai/pci-dss-extractor/internal/logging"
	"github.com/a3tai/pci-dss-extractor/internal/pdf"
)

// uploadOverhead is the room left for multipart framing above the PDF size limit
const uploadOverhead = 1 << 20

// Server is the HTTP server for the extraction API
type Server struct {
	config   *config.Config
	service  *pdf.Service
	logger   *zap.Logger
	limiters *clientLimiters
	sem      *semaphore.Weighted
	server   *http.Server
	now      func() time.Time
}

// NewServer creates a server with the given dependencies
func NewServer(cfg *config.Config, service *pdf.Service, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("pdf service cannot be nil")
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	return &Server{
		config:   cfg,
		service:  service,
		logger:   logging.OrNop(logger),
		limiters: newClientLimiters(cfg.RateLimit, cfg.RateBurst),
		sem:      semaphore.NewWeighted(int64(workers)),
		now:      time.Now,
	}, nil
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
	}

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Use(s.withRateLimit)
		r.With(s.withConcurrencyLimit).Post("/extract", s.handleExtract)
		r.Post("/detect", s.handleDetect)
	})

	return r
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.server = s.newHTTPServer()
	return s.serve()
}

// Run starts the server and shuts it down gracefully when ctx ends
func (s *Server) Run(ctx context.Context) error {
	s.server = s.newHTTPServer()

	if s.limiters != nil {
		cleanupCtx, stopCleanup := context.WithCancel(ctx)
		defer stopCleanup()
		go s.limiters.cleanup(cleanupCtx, limiterCleanupInterval, limiterIdleTTL, s.logger)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.serve()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) newHTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) serve() error {
	s.logger.Info("starting server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}
