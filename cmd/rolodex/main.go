package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/Makepad-fr/rolodex/internal/api"
	"github.com/Makepad-fr/rolodex/internal/auth"
	"github.com/Makepad-fr/rolodex/internal/cli"
	"github.com/Makepad-fr/rolodex/internal/config"
	"github.com/Makepad-fr/rolodex/internal/contacts"
	"github.com/Makepad-fr/rolodex/internal/live"
	"github.com/Makepad-fr/rolodex/internal/metrics"
	"github.com/Makepad-fr/rolodex/internal/store/jsonstore"
	"github.com/Makepad-fr/rolodex/internal/store/sqlitestore"
	"github.com/Makepad-fr/rolodex/internal/tracing"
	"github.com/Makepad-fr/rolodex/internal/ui"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Root flags (apply to every subcommand) come before the subcommand.
	cfg, args, err := config.Load(os.Args[1:], nil, os.Stderr)
	if errors.Is(err, config.ErrHelp) {
		cli.PrintHelp(os.Stdout)
		return 0
	}
	if err != nil {
		ui.Fail(os.Stderr, err.Error())
		return 2
	}
	ui.SetTheme(cfg.Theme)
	ui.SetColorForcing(false, cfg.NoColor)

	log, closeLog, err := newLogger(cfg, interactive(args))
	if err != nil {
		ui.Fail(os.Stderr, err.Error())
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.OtelEndpoint)
	if err != nil {
		log.Warn("tracing disabled", "endpoint", cfg.OtelEndpoint, "err", err)
	} else {
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(sctx); err != nil {
				log.Warn("flush traces", "err", err)
			}
		}()
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, log); err != nil {
				log.Error("metrics server stopped", "err", err)
			}
		}()
	}

	authStore, err := auth.DefaultStore()
	if err != nil {
		ui.Fail(os.Stderr, err.Error())
		return 1
	}

	client := api.New(cfg.ServerURL, api.WithToken(authStore.Token), api.WithLogger(log))
	opts := []contacts.Option{
		contacts.WithLogger(log),
		contacts.WithBulkConcurrency(cfg.BulkConcurrency),
	}
	persister, closeCache, err := openCache(cfg)
	if err != nil {
		// A broken cache only costs the offline copy.
		log.Warn("cache unavailable", "cache", cfg.Cache, "path", cfg.CachePath, "err", err)
	} else if persister != nil {
		defer closeCache()
		opts = append(opts, contacts.WithPersister(persister))
	}
	store := contacts.New(client, opts...)
	if err := store.Hydrate(ctx); err != nil {
		log.Warn("cache not loaded", "path", cfg.CachePath, "err", err)
	}

	deps := cli.Deps{
		Store: store,
		Auth:  authStore,
		Subscribe: func(ctx context.Context) (*live.Subscription, error) {
			return live.Subscribe(ctx, live.Config{
				URL:        cfg.StreamURL,
				Token:      authStore.Token,
				MaxBackoff: cfg.ReconnectMax,
				GiveUp:     cfg.ReconnectGiveUp,
				Logger:     log,
			})
		},
		Log:    log,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	code := cli.Run(ctx, args, deps, cli.Options{Group: cfg.Group, UndoWindow: cfg.UndoWindow})
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	return code
}

// interactive reports whether args start the TUI, which owns the terminal.
func interactive(args []string) bool {
	return len(args) > 0 && args[0] == "ls" && !slices.Contains(args[1:], "-plain")
}

// newLogger writes JSON to the log file when one is configured. Otherwise
// plain commands log warnings and errors as text to stderr, and the TUI
// logs nothing.
func newLogger(cfg config.Config, tui bool) (*slog.Logger, func(), error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	hopts := &slog.HandlerOptions{Level: level}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return slog.New(slog.NewJSONHandler(f, hopts)), func() { _ = f.Close() }, nil
	}
	if tui {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	hopts.Level = max(level, slog.LevelWarn)
	return slog.New(slog.NewTextHandler(os.Stderr, hopts)), func() {}, nil
}

func openCache(cfg config.Config) (contacts.Persister, func(), error) {
	switch cfg.Cache {
	case config.CacheJSON:
		return jsonstore.New(cfg.CachePath), func() {}, nil
	case config.CacheSQLite:
		s, err := sqlitestore.Open(cfg.CachePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
	return nil, func() {}, nil
}
