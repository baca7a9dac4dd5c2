// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/petpad/internal/api"
	"github.com/starford/petpad/internal/editor"
	"github.com/starford/petpad/internal/filter"
	"github.com/starford/petpad/internal/index"
	"github.com/starford/petpad/internal/mcpserver"
	"github.com/starford/petpad/internal/palette"
	"github.com/starford/petpad/internal/session"
	"github.com/starford/petpad/internal/sse"
	"github.com/starford/petpad/internal/storage"
	"github.com/starford/petpad/internal/vars"
)

// core holds the components shared by the HTTP and MCP front ends.
type core struct {
	store   storage.Provider
	db      *index.DB
	palette *palette.Store
	svc     *editor.Service
}

func (a *application) config() (*Config, error) {
	if a.cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	return a.cfg, nil
}

// openCore opens storage, the index and the palette, runs the initial sync
// and builds the editor. notify may be nil.
func openCore(cfg *Config, logger *slog.Logger, notify editor.Notifier) (*core, error) {
	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	pal, err := palette.NewStore(cfg.Palette.File, cfg.Palette.Colors)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init palette: %w", err)
	}

	parser := vars.NewParser(pal)
	if cfg.Palette.Fallback != "" {
		parser = parser.WithFallback(cfg.Palette.Fallback)
	}

	svc := editor.NewService(store, db, editor.Options{
		Parser:  parser,
		Engine:  filter.NewEngine(filter.Fuzzy(cfg.Search.Threshold)),
		Session: session.NewPersister(db, logger),
		Notify:  notify,
		Logger:  logger,
	})

	return &core{store: store, db: db, palette: pal, svc: svc}, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	cfg, err := app.config()
	if err != nil {
		return err
	}

	// Initialize structured JSON logger.
	logger := newLogger(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("palette_file", cfg.Palette.File),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	c, err := openCore(cfg, logger, func(ch editor.Change) {
		broker.Publish(sse.Event{Type: string(ch.Type), Data: ch})
	})
	if err != nil {
		return err
	}
	defer c.db.Close()

	if n := c.svc.Restore(ctx); n > 0 {
		logger.Info("Session restored", slog.Int("documents", n))
	}

	publishPalette := func(colors []string) {
		broker.Publish(sse.Event{Type: sse.TypePaletteChanged, Data: map[string]any{"colors": colors}})
	}

	apiRouter := api.NewRouter(c.svc, api.Options{
		AuthEnabled:  cfg.Auth.AuthEnabled(),
		Token:        cfg.Auth.Token,
		Events:       broker,
		Palette:      c.palette,
		OnPaletteSet: publishPalette,
		SearchLimit:  cfg.Search.Limit,
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api. /api/events is served by the broker
	// inside the authenticated router.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start vault watcher with SSE callback.
	g.Go(func() error {
		if err := index.Watch(gCtx, c.db, c.store, cfg.Vault.Path, logger, broker.PublishVaultEvent); err != nil {
			logger.Error("vault watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start palette watcher. Without a palette file it returns at once.
	g.Go(func() error {
		if err := c.palette.Watch(gCtx, logger, publishPalette); err != nil {
			logger.Error("palette watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watchers return after a signal.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they
// never interleave with the protocol stream.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	cfg, err := app.config()
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg.App.LogLevel)
	slog.SetDefault(logger)

	c, err := openCore(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer c.db.Close()

	logger.Info("MCP server starting", slog.String("vault_path", cfg.Vault.Path))
	return mcpserver.New(c.svc).ServeStdio()
}
