// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/cache"
	"github.com/starford/raido/internal/library"
	"github.com/starford/raido/internal/rules"
)

// NewLogger builds the structured JSON logger used across the app.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

// OpenManager wires the rule table, probe cache and load orchestrator
// from configuration. The returned close func releases the cache.
func OpenManager(cfg *Config, logger *slog.Logger) (*library.Manager, func() error, error) {
	table, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init rules: %w", err)
	}

	db, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init cache: %w", err)
	}

	m, err := library.New(library.Options{
		OrderFile: cfg.Library.OrderFile,
		Root:      cfg.Library.Root,
		Table:     table,
		Cache:     db,
		Workers:   cfg.Scan.Workers,
		Backups:   cfg.Library.Backups,
		Logger:    logger,
	})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("init library: %w", err)
	}
	return m, db.Close, nil
}

// Run starts the long-running watch mode: an initial two-phase load,
// then reloads whenever the order file changes on disk, until a shutdown
// signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = NewLogger(cfg.App.LogLevel)
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("order_file", cfg.Library.OrderFile),
		slog.String("root", cfg.Library.Root),
		slog.String("cache_path", cfg.Cache.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	m, closeCache, err := OpenManager(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	reload := func(ctx context.Context) {
		done, err := m.LoadWithProgress(ctx, func(d, t int) {
			logger.Info("scan: progress", slog.Int("done", d), slog.Int("total", t))
		})
		if err != nil {
			logger.Error("load failed", slog.String("error", err.Error()))
			return
		}
		go func() {
			if err := <-done; err != nil && !errors.Is(err, apperr.ErrStale) {
				logger.Error("deep scan failed", slog.String("error", err.Error()))
			}
		}()
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		reload(gCtx)
		return m.Watch(gCtx, func() { reload(gCtx) })
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
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Stopped successfully")
	return nil
}
