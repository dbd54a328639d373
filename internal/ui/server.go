// Package ui serves the Moose web front end: the Grist proxy endpoints plus
// the full-page and widget builders.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/jlllyfish/Moose-railway/internal/pipeline"
	"github.com/jlllyfish/Moose-railway/internal/proxy"
	"github.com/jlllyfish/Moose-railway/internal/ui/features/builder"
	"github.com/jlllyfish/Moose-railway/internal/ui/notifier"
	"github.com/jlllyfish/Moose-railway/internal/ui/resources"
	"github.com/jlllyfish/Moose-railway/internal/ui/router"
)

// DefaultSessionTTL is how long an idle builder session is kept.
const DefaultSessionTTL = 30 * time.Minute

// Server is the main UI server.
type Server struct {
	proxy        *proxy.Handlers
	limits       *proxy.Limits
	registry     *builder.Registry
	sessionStore *sessions.CookieStore
	port         int
	watch        bool
	dev          bool
	ttl          time.Duration
	logger       *slog.Logger
	reload       *notifier.Notifier
}

// Config holds configuration for the UI server.
type Config struct {
	// API is what builder sessions call; usually a proxy.Local answering
	// in-process over the same Grist as Proxy.
	API pipeline.API
	// Proxy serves the Grist-backed JSON endpoints.
	Proxy *proxy.Handlers
	// Limits enables per-IP rate limiting of the proxy routes and builder
	// actions when non-nil.
	Limits *proxy.Limits
	// OnGenerate runs after each successful generation (history recording).
	OnGenerate pipeline.GenerationHook

	Port          int
	Watch         bool
	Dev           bool
	SessionSecret string
	SessionTTL    time.Duration
	Logger        *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(int(ttl.Seconds()))
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	var opts []pipeline.Option
	if cfg.OnGenerate != nil {
		opts = append(opts, pipeline.WithGenerationHook(cfg.OnGenerate))
	}

	return &Server{
		proxy:        cfg.Proxy,
		limits:       cfg.Limits,
		registry:     builder.NewRegistry(sessionStore, cfg.API, ttl, logger, opts...),
		sessionStore: sessionStore,
		port:         cfg.Port,
		watch:        cfg.Watch,
		dev:          cfg.Dev,
		ttl:          ttl,
		logger:       logger,
		reload:       notifier.New(),
	}
}

// Handler builds the complete router.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	if err := router.SetupRoutes(r, s.proxy, s.limits, s.registry, s.reload, s.logger, s.IsDev()); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting UI server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchFiles(egctx)
		})
	}

	eg.Go(func() error {
		s.sweepSessions(egctx)
		return nil
	})

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// IsDev reports whether the hot-reload endpoints are mounted.
func (s *Server) IsDev() bool {
	return s.dev || s.watch
}

// Registry returns the builder session registry.
func (s *Server) Registry() *builder.Registry {
	return s.registry
}

// sweepSessions drops idle builder sessions until ctx is done.
func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.registry.Sweep(); n > 0 {
				s.logger.Debug("expired builder sessions", "count", n, "live", s.registry.Len())
			}
		}
	}
}

// watchFiles reloads connected browsers when a static asset changes.
func (s *Server) watchFiles(ctx context.Context) error {
	dir := resources.Dir()
	if dir == "" {
		s.logger.Warn("static assets are embedded, file watching disabled")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDirRecursive(watcher, dir); err != nil {
		s.logger.Error("failed to watch static directory", "error", err)
	}

	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			switch filepath.Ext(event.Name) {
			case ".css", ".js", ".svg":
			default:
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				n := s.reload.Broadcast()
				s.logger.Debug("asset changed, reloading browsers", "file", event.Name, "browsers", n)
			})

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
