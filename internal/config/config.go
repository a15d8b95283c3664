// Package config resolves runtime settings from the environment and the
// root command-line flags. Flags win over the environment.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Cache backends.
const (
	CacheJSON   = "json"
	CacheSQLite = "sqlite"
	CacheNone   = "none"
)

// ErrHelp is returned by Load when -h or -help was given.
var ErrHelp = flag.ErrHelp

// Config holds every setting the binary reads.
type Config struct {
	ServerURL string `env:"ROLODEX_SERVER_URL" envDefault:"http://localhost:8080/api"`
	StreamURL string `env:"ROLODEX_STREAM_URL"`

	Cache     string `env:"ROLODEX_CACHE" envDefault:"json"`
	CachePath string `env:"ROLODEX_CACHE_PATH"`

	LogFile  string `env:"ROLODEX_LOG_FILE"`
	LogLevel string `env:"ROLODEX_LOG_LEVEL" envDefault:"info"`

	MetricsAddr  string `env:"ROLODEX_METRICS_ADDR"`
	OtelEndpoint string `env:"ROLODEX_OTEL_ENDPOINT"`

	BulkConcurrency int           `env:"ROLODEX_BULK_CONCURRENCY" envDefault:"8"`
	ReconnectMax    time.Duration `env:"ROLODEX_RECONNECT_MAX" envDefault:"30s"`
	ReconnectGiveUp time.Duration `env:"ROLODEX_RECONNECT_GIVE_UP" envDefault:"10m"`

	Theme      string        `env:"ROLODEX_THEME" envDefault:"classic"`
	UndoWindow time.Duration `env:"ROLODEX_UNDO_WINDOW" envDefault:"5s"`

	Group   bool // ls -plain groups by company
	NoColor bool
}

// Load parses the environment, then the root flags in args. It returns the
// arguments left for the subcommand. When environ is nil the process
// environment is used.
func Load(args []string, environ map[string]string, stderr io.Writer) (Config, []string, error) {
	var cfg Config
	var err error
	if environ == nil {
		err = env.Parse(&cfg)
	} else {
		err = env.ParseWithOptions(&cfg, env.Options{Environment: environ})
	}
	if err != nil {
		return Config{}, nil, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("rolodex", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "contacts API base URL")
	fs.StringVar(&cfg.StreamURL, "stream", cfg.StreamURL, "push stream websocket URL (derived from -server when empty)")
	fs.StringVar(&cfg.Cache, "cache", cfg.Cache, "snapshot cache: json, sqlite or none")
	fs.StringVar(&cfg.CachePath, "cache-path", cfg.CachePath, "snapshot cache file")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write JSON logs to this file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	fs.StringVar(&cfg.OtelEndpoint, "otel", cfg.OtelEndpoint, "export traces to this OTLP/HTTP endpoint URL")
	fs.StringVar(&cfg.Theme, "theme", cfg.Theme, "classic, neon or mono")
	fs.DurationVar(&cfg.UndoWindow, "undo", cfg.UndoWindow, "how long a delete stays undoable")
	fs.IntVar(&cfg.BulkConcurrency, "bulk", cfg.BulkConcurrency, "max concurrent requests per bulk delete (0 = unlimited)")
	fs.BoolVar(&cfg.Group, "group", false, "group plain listings by company")
	fs.BoolVar(&cfg.NoColor, "no-color", false, "disable colors")
	if err := fs.Parse(args); err != nil {
		return Config{}, nil, err
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, nil, err
	}
	return cfg, fs.Args(), nil
}

func (c *Config) normalize() error {
	c.ServerURL = strings.TrimRight(strings.TrimSpace(c.ServerURL), "/")
	if c.ServerURL == "" {
		return errors.New("server url is required")
	}
	if c.StreamURL == "" {
		c.StreamURL = DeriveStreamURL(c.ServerURL)
	}

	c.Cache = strings.ToLower(c.Cache)
	switch c.Cache {
	case CacheJSON, CacheSQLite, CacheNone:
	default:
		return fmt.Errorf("unknown cache %q (want json, sqlite or none)", c.Cache)
	}
	if c.CachePath == "" && c.Cache != CacheNone {
		dir, err := DefaultDir()
		if err != nil {
			return err
		}
		name := "contacts.json"
		if c.Cache == CacheSQLite {
			name = "contacts.db"
		}
		c.CachePath = filepath.Join(dir, name)
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.UndoWindow < 0 {
		return fmt.Errorf("undo window must not be negative, got %s", c.UndoWindow)
	}
	return nil
}

// DefaultDir is ~/.rolodex, home of the cache and credentials.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".rolodex"), nil
}

// DeriveStreamURL maps http(s)://host/base to ws(s)://host/base/events.
func DeriveStreamURL(server string) string {
	u := server
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/events"
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}
