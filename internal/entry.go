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

	"github.com/starford/diagreplay/internal/api"
	"github.com/starford/diagreplay/internal/mcpserver"
	"github.com/starford/diagreplay/internal/metrics"
	"github.com/starford/diagreplay/internal/replay"
	"github.com/starford/diagreplay/internal/sse"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// Run loads the configured bundle and serves it over HTTP until ctx is
// cancelled or the process receives SIGINT/SIGTERM.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, app.logOutput)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("source_mode", cfg.Source.Mode),
		slog.String("source_dir", cfg.Source.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// The index is built once and never changes while serving.
	snap, err := replay.Load(cfg.Source.Options(), logger)
	if err != nil {
		return fmt.Errorf("load routes: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		m.Loaded(snap.Index.Len(), snap.Dropped)
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := replay.NewService(snap)
	apiRouter := api.NewRouter(svc, api.Options{
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
		RateLimit:   cfg.App.HTTP.RateLimit.Requests,
		RateWindow:  cfg.App.HTTP.RateLimit.Window,
		Broker:      broker,
		Metrics:     m,
	})

	handler := chi.Chain(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	).Handler(apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: handler,
	}

	logger.Info("Server starting...",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("version", snap.Version.String()),
		slog.Int("routes", snap.Index.Len()))

	g, gCtx := errgroup.WithContext(ctx)

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
		defer signal.Stop(quit)

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

// RunMCP loads the configured bundle and serves it to an MCP client over
// stdio. Logs go to stderr unless WithLogOutput says otherwise, since stdout
// carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := newLogger(app.config, app.logOutput)

	snap, err := replay.Load(app.config.Source.Options(), logger)
	if err != nil {
		return fmt.Errorf("load routes: %w", err)
	}

	logger.Info("MCP server starting", slog.Int("routes", snap.Index.Len()))
	return mcpserver.New(replay.NewService(snap), app.version).ServeStdio()
}
