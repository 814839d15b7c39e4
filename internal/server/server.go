// Package server exposes template rendering over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/leapstack-labs/stache/internal/config"
	"github.com/leapstack-labs/stache/internal/loader"
	"github.com/leapstack-labs/stache/internal/registry"
	"github.com/leapstack-labs/stache/internal/template"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds how long in-flight requests get to finish.
const shutdownTimeout = 5 * time.Second

// Server renders registered templates and ad-hoc template bodies.
type Server struct {
	registry          *registry.TemplateRegistry
	vars              template.Map
	opts              []template.Option
	addr              string
	readHeaderTimeout time.Duration
	templatesDir      string
	watch             bool
	corsOrigins       []string
	rateLimit         int
	logger            *slog.Logger
	events            *broadcaster
	metrics           *metrics
}

// Config holds configuration for the render server.
type Config struct {
	Registry *registry.TemplateRegistry

	// Vars are global variables every render sees beneath request vars.
	Vars template.Map

	// CompileOptions apply to registered templates and ad-hoc bodies.
	CompileOptions []template.Option

	Addr              string
	ReadHeaderTimeout time.Duration

	// TemplatesDir is reloaded into Registry on change when Watch is set.
	TemplatesDir string
	Watch        bool

	// CORSOrigins enables CORS for the listed origins ("*" for any).
	CORSOrigins []string

	// RateLimit caps requests per minute per client IP. Zero disables it.
	RateLimit int

	Logger *slog.Logger
}

// NewServer creates a new render server.
func NewServer(cfg Config) *Server {
	if cfg.Registry == nil {
		cfg.Registry = registry.NewTemplateRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Addr == "" {
		cfg.Addr = config.DefaultAddr
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = config.DefaultReadHeaderTimeout
	}

	return &Server{
		registry:          cfg.Registry,
		vars:              cfg.Vars,
		opts:              cfg.CompileOptions,
		addr:              cfg.Addr,
		readHeaderTimeout: cfg.ReadHeaderTimeout,
		templatesDir:      cfg.TemplatesDir,
		watch:             cfg.Watch,
		corsOrigins:       cfg.CORSOrigins,
		rateLimit:         cfg.RateLimit,
		logger:            cfg.Logger,
		events:            newBroadcaster(),
		metrics:           newMetrics(cfg.Registry),
	}
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		requestLogger(s.logger),
		s.metrics.middleware,
		middleware.Recoverer,
	)
	if len(s.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			ExposedHeaders: []string{"X-Trace-Id"},
			MaxAge:         300,
		}))
	}
	if s.rateLimit > 0 {
		r.Use(httprate.LimitByIP(s.rateLimit, time.Minute))
	}

	h := &handlers{
		registry: s.registry,
		vars:     s.vars,
		opts:     s.opts,
		events:   s.events,
		metrics:  s.metrics,
		logger:   s.logger,
	}
	h.routes(r)
	r.Handle("/metrics", s.metrics.handler())
	return r
}

// Serve listens on the configured address and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down
// gracefully. The listener is closed on return.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting render server",
		"addr", "http://"+ln.Addr().String(),
		"templates", s.registry.Count())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: s.readHeaderTimeout,
	}

	if s.watch && s.templatesDir != "" {
		eg.Go(func() error {
			return s.watchTemplates(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down render server...")
		s.events.close()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// watchTemplates reloads the registry when files under the templates
// directory change and notifies event subscribers.
func (s *Server) watchTemplates(ctx context.Context) error {
	w := loader.NewWatcher([]string{s.templatesDir}, s.logger)
	return w.Run(ctx, func(path string) {
		s.reload(path)
	})
}

func (s *Server) reload(path string) {
	if err := s.registry.Reload(s.templatesDir, s.opts...); err != nil {
		s.metrics.reload(resultError)
		s.logger.Error("reload failed, keeping previous templates", "file", path, "error", err)
		s.events.publish(Event{Kind: EventError, File: path, Error: err.Error()})
		return
	}
	s.metrics.reload(resultOK)
	s.logger.Info("templates reloaded", "file", path, "templates", s.registry.Count())
	s.events.publish(Event{Kind: EventReload, File: path, Templates: s.registry.Count()})
}
