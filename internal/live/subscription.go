// Package live keeps a push subscription to the contacts event stream open
// and turns its frames into model events.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/net/websocket"

	"github.com/Makepad-fr/rolodex/internal/metrics"
	"github.com/Makepad-fr/rolodex/internal/model"
)

// ErrRejected is reported by Err when the server refused the handshake,
// usually because the credential is no longer valid.
var ErrRejected = errors.New("stream handshake rejected")

// Config describes how to reach the stream.
type Config struct {
	URL    string
	Origin string        // defaults to http://localhost
	Token  func() string // bearer credential, read on every dial

	InitialBackoff time.Duration // first reconnect delay, defaults to 500ms
	MaxBackoff     time.Duration // cap on a single delay, defaults to 30s
	GiveUp         time.Duration // stop reconnecting after this long; 0 retries forever
	Buffer         int           // event channel capacity, defaults to 64

	Logger *slog.Logger
}

// Subscription delivers events until Close is called, the context ends or
// reconnecting is abandoned. It cannot be restarted.
type Subscription struct {
	cfg    Config
	log    *slog.Logger
	events chan model.Event
	done   chan struct{}
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

// Subscribe validates cfg and starts the receive loop.
func Subscribe(ctx context.Context, cfg Config) (*Subscription, error) {
	if cfg.URL == "" {
		return nil, errors.New("live: stream url is required")
	}
	if cfg.Origin == "" {
		cfg.Origin = "http://localhost"
	}
	if _, err := websocket.NewConfig(cfg.URL, cfg.Origin); err != nil {
		return nil, fmt.Errorf("live: %w", err)
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		cfg:    cfg,
		log:    log.With("component", "live"),
		events: make(chan model.Event, cfg.Buffer),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go s.run(ctx)
	return s, nil
}

// Events is closed when the subscription ends.
func (s *Subscription) Events() <-chan model.Event { return s.events }

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close stops the subscription and waits for the loop to exit.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

// Err returns why the subscription ended. It is nil while running and after
// a plain Close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.events)

	for {
		conn, err := s.connect(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.fail(err)
			}
			return
		}
		s.log.Info("stream connected", "url", s.cfg.URL)
		s.pump(ctx, conn)
		if ctx.Err() != nil {
			return
		}
		metrics.StreamReconnect()
		s.log.Warn("stream dropped, reconnecting")
	}
}

// connect dials with exponential backoff. A rejected handshake is not
// retried.
func (s *Subscription) connect(ctx context.Context) (*websocket.Conn, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.cfg.InitialBackoff
	exp.MaxInterval = s.cfg.MaxBackoff

	// A zero max elapsed time disables the library's 15 minute default.
	return backoff.Retry(ctx, func() (*websocket.Conn, error) {
		return s.dial(ctx)
	},
		backoff.WithBackOff(exp),
		backoff.WithMaxElapsedTime(s.cfg.GiveUp),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.log.Warn("stream dial failed", "err", err, "retry_in", next)
		}),
	)
}

func (s *Subscription) dial(ctx context.Context) (*websocket.Conn, error) {
	wsCfg, err := websocket.NewConfig(s.cfg.URL, s.cfg.Origin)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	wsCfg.Header = make(http.Header)
	if s.cfg.Token != nil {
		if tok := s.cfg.Token(); tok != "" {
			wsCfg.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	conn, err := wsCfg.DialContext(ctx)
	if err != nil {
		var dialErr *websocket.DialError
		if errors.As(err, &dialErr) && errors.Is(dialErr.Err, websocket.ErrBadStatus) {
			return nil, backoff.Permanent(fmt.Errorf("%w: %v", ErrRejected, err))
		}
		return nil, err
	}
	return conn, nil
}

// pump forwards frames until the connection drops or ctx ends. Frames that
// do not decode are logged and skipped.
func (s *Subscription) pump(ctx context.Context, conn *websocket.Conn) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		var frame []byte
		if err := websocket.Message.Receive(conn, &frame); err != nil {
			if ctx.Err() == nil {
				s.log.Debug("stream receive ended", "err", err)
			}
			return
		}
		var ev model.Event
		if err := json.Unmarshal(frame, &ev); err != nil {
			s.log.Warn("skipping malformed frame", "err", err)
			continue
		}
		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Subscription) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.log.Error("stream closed", "err", err)
}
