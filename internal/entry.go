// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/nborup/skribent/internal/api"
	"github.com/nborup/skribent/internal/autosave"
	"github.com/nborup/skribent/internal/editor"
	"github.com/nborup/skribent/internal/generate"
	"github.com/nborup/skribent/internal/index"
	"github.com/nborup/skribent/internal/mcpserver"
	"github.com/nborup/skribent/internal/profile"
	"github.com/nborup/skribent/internal/shopify"
	"github.com/nborup/skribent/internal/sse"
	"github.com/nborup/skribent/internal/storage"
	"github.com/nborup/skribent/internal/textservice"
	"github.com/nborup/skribent/internal/translator"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Library layout: texts/ holds the indexed documents; profiles.json,
	// uploads/ and image-cache/ live beside it.
	textsDir := filepath.Join(cfg.Library.Path, "texts")
	if err := os.MkdirAll(textsDir, 0o755); err != nil {
		return fmt.Errorf("create library dir: %w", err)
	}

	store, err := storage.NewFS(textsDir)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// Run initial sync.
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	profiles, err := profile.NewStore(filepath.Join(cfg.Library.Path, "profiles.json"))
	if err != nil {
		return fmt.Errorf("init profiles: %w", err)
	}

	texts := textservice.NewService(store, db)

	client := generate.NewClient(cfg.AI.BaseURL, cfg.AI.Model, cfg.AI.Key,
		time.Duration(cfg.AI.TimeoutSeconds)*time.Second, logger)
	gen := generate.NewService(client, logger)

	if app.mcp {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(texts, profiles, gen).ServeStdio()
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Debounced auto-save, persisting through the text service.
	saver := autosave.New(func(ctx context.Context, key string, snap autosave.Snapshot) error {
		profileName, name, ok := strings.Cut(key, "/")
		if !ok {
			return fmt.Errorf("autosave: malformed key %q", key)
		}
		detail, err := texts.AutoSave(ctx, profileName, name, snap.Title, snap.Content)
		if err != nil {
			return err
		}
		broker.PublishTextEvent("text.saved", detail.Path)
		return nil
	}, autosave.WithLogger(logger))
	defer saver.Close()

	shopifyClient := shopify.NewClient(filepath.Join(cfg.Library.Path, "image-cache"), 20*time.Second, logger)

	apiRouter := api.NewRouter(api.Deps{
		Texts:       texts,
		Profiles:    profiles,
		Generator:   gen,
		Translator:  translator.NewSession(),
		Histories:   editor.NewRegistry(),
		AutoSave:    saver,
		Shopify:     shopifyClient,
		Broker:      broker,
		LibraryRoot: cfg.Library.Path,
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
		Logger:      logger,
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

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		return index.Watch(gCtx, db, store, textsDir, logger, func(kind, path string) {
			broker.PublishTextEvent(kind, path)
		})
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

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Stop the watcher goroutine.
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
