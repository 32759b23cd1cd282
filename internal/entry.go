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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/collection"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/storage"
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

	// Structured JSON logger. In MCP mode stdout is the transport, so
	// logs go to stderr.
	logOut := os.Stdout
	if app.mcp {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("collection_path", cfg.Collection.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Search index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// Last-opened collection preferences.
	prefs := collection.NewPrefs(cfg.Collection.PrefsPath)

	// SSE broker publishing engine view notifications.
	broker := sse.NewBroker()
	defer broker.Close()
	viewPub := sse.NewViewPublisher(broker)

	// The engine itself.
	ctrl := collection.New(viewPub, prefs, db, logger)

	// Open the startup collection: explicit config path wins, then the
	// last-opened one from prefs. Neither is fatal when missing.
	startRoot := cfg.Collection.Path
	if startRoot == "" {
		last, err := prefs.LastCollection()
		if err != nil {
			logger.Warn("read prefs failed", slog.String("error", err.Error()))
		}
		startRoot = last
	}
	if startRoot != "" {
		if err := ctrl.Open(startRoot); err != nil {
			logger.Warn("open startup collection failed",
				slog.String("path", startRoot),
				slog.String("error", err.Error()))
		} else {
			logger.Info("Collection opened", slog.String("root", ctrl.Root()))
		}
	}

	if app.mcp {
		return runMCP(ctx, ctrl, db, logger)
	}

	// Watcher retargeting: the index watcher follows the open collection.
	// The channel holds only the latest root; "" stops watching.
	watchRoots := make(chan string, 1)
	setWatchRoot := func(root string) {
		select {
		case <-watchRoots:
		default:
		}
		watchRoots <- root
	}

	handler := api.NewHandler(ctrl, db)
	handler.OnCollectionChange = setWatchRoot
	apiRouter := api.NewRouter(handler, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watcher supervisor: one watcher per open collection, replaced when
	// the collection changes.
	g.Go(func() error {
		var cancel context.CancelFunc
		var done chan struct{}
		stop := func() {
			if cancel != nil {
				cancel()
				<-done
				cancel = nil
			}
		}
		defer stop()

		if ctrl.IsOpen() {
			setWatchRoot(ctrl.Root())
		}

		for {
			select {
			case <-gCtx.Done():
				return nil
			case root := <-watchRoots:
				stop()
				if root == "" {
					continue
				}
				store, err := storage.NewFS(root)
				if err != nil {
					logger.Warn("watcher storage init failed",
						slog.String("root", root),
						slog.String("error", err.Error()))
					continue
				}
				var wCtx context.Context
				wCtx, cancel = context.WithCancel(gCtx)
				done = make(chan struct{})
				go func() {
					defer close(done)
					if err := index.Watch(wCtx, db, store, root, logger, func(kind, path string) {
						viewPub.PublishIndexEvent(kind, path)
					}); err != nil {
						logger.Warn("index watcher stopped", slog.String("error", err.Error()))
					}
				}()
			}
		}
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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// runMCP serves the engine over MCP stdio until the client disconnects.
func runMCP(_ context.Context, ctrl *collection.Controller, db *index.DB, logger *slog.Logger) error {
	logger.Info("Starting MCP server on stdio")
	srv := mcpserver.New(ctrl, db)
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}
