// Package api serves water balance calculations and the run history over
// HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbanhydro/abimo/internal/input"
	"github.com/urbanhydro/abimo/internal/model"
	"github.com/urbanhydro/abimo/internal/pipeline"
	"github.com/urbanhydro/abimo/internal/store"
)

// Calculator is the part of pipeline.Pipeline the server uses.
type Calculator interface {
	Evaluate(ctx context.Context, recs []model.InputRecord) (*pipeline.Evaluation, error)
	Start(ctx context.Context, req pipeline.Request) (*model.Run, error)
	Execute(ctx context.Context, run *model.Run, req pipeline.Request) (*model.RunResult, error)
}

// Metrics exposes and records HTTP metrics.
type Metrics interface {
	Handler() http.Handler
	ObserveHTTP(method, route string, status int, d time.Duration)
}

// Config tunes the server.
type Config struct {
	AllowedOrigins []string
	MaxUploadMB    int64

	// WorkDir holds uploads and resolves relative run sources and outputs.
	WorkDir string

	// Export stores per-parcel results of batch runs.
	Export bool

	Input input.Options
}

// Server routes API requests. Batch runs started through it run in the
// background until they finish or the base context passed to New is
// cancelled.
type Server struct {
	calc    Calculator
	runs    store.Store
	metrics Metrics
	cfg     Config
	log     *zap.Logger

	base context.Context
	wg   sync.WaitGroup
}

// New returns a Server. runs and metrics may be nil; without runs the batch
// endpoints answer 503.
func New(base context.Context, calc Calculator, runs store.Store, metrics Metrics, cfg Config) *Server {
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 64
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	return &Server{
		calc:    calc,
		runs:    runs,
		metrics: metrics,
		cfg:     cfg,
		log:     zap.L().With(zap.String("component", "api")),
		base:    base,
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/balance", s.handleBalance)
		r.Post("/runs", s.handleStartRun)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down and
// waits for background runs.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http listen", zap.String("addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.Wait()
		return eris.Wrap(err, "api: shutdown")
	case err := <-errCh:
		return eris.Wrap(err, "api: listen")
	}
}

// Wait blocks until every background run has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// observe logs requests and records their metrics by route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		elapsed := time.Since(start)

		s.log.Debug("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", elapsed),
		)
		if s.metrics != nil {
			s.metrics.ObserveHTTP(r.Method, route, status, elapsed)
		}
	})
}
