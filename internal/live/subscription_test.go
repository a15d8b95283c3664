package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/net/websocket"

	"github.com/Makepad-fr/rolodex/internal/model"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
}

func frame(kind model.EventType, id int64, first string) string {
	return fmt.Sprintf(`{"type":%q,"data":{"id":%d,"firstName":%q}}`, kind, id, first)
}

func next(t *testing.T, sub *Subscription) model.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatalf("events closed early, err=%v", sub.Err())
		}
		return ev
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return model.Event{}
}

func TestSubscribeDeliversFrames(t *testing.T) {
	var auth atomic.Value
	srv := httptest.NewServer(websocket.Handler(func(conn *websocket.Conn) {
		auth.Store(conn.Request().Header.Get("Authorization"))
		_ = websocket.Message.Send(conn, frame(model.EventAdd, 1, "Alice"))
		_ = websocket.Message.Send(conn, "not json")
		_ = websocket.Message.Send(conn, frame(model.EventDelete, 1, ""))
		_, _ = io.Copy(io.Discard, conn)
	}))
	defer srv.Close()

	sub, err := Subscribe(context.Background(), Config{
		URL:   wsURL(srv),
		Token: func() string { return "tok" },
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	first := next(t, sub)
	if first.Type != model.EventAdd || first.Data.ID != 1 || first.Data.FirstName != "Alice" {
		t.Fatalf("unexpected first event %+v", first)
	}
	// The malformed frame in between is skipped.
	if second := next(t, sub); second.Type != model.EventDelete {
		t.Fatalf("unexpected second event %+v", second)
	}
	if got := auth.Load(); got != "Bearer tok" {
		t.Fatalf("authorization = %v", got)
	}
}

func TestSubscribeReconnectsAfterDrop(t *testing.T) {
	var dials atomic.Int32
	srv := httptest.NewServer(websocket.Handler(func(conn *websocket.Conn) {
		n := dials.Add(1)
		_ = websocket.Message.Send(conn, frame(model.EventAdd, int64(n), "x"))
		if n == 1 {
			return
		}
		_, _ = io.Copy(io.Discard, conn)
	}))
	defer srv.Close()

	sub, err := Subscribe(context.Background(), Config{URL: wsURL(srv), InitialBackoff: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	if ev := next(t, sub); ev.Data.ID != 1 {
		t.Fatalf("first = %+v", ev)
	}
	if ev := next(t, sub); ev.Data.ID != 2 {
		t.Fatalf("second = %+v", ev)
	}
	if dials.Load() < 2 {
		t.Fatalf("expected a reconnect")
	}
}

func TestSubscribeStopsWhenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "authentication required", http.StatusUnauthorized)
	}))
	defer srv.Close()

	sub, err := Subscribe(context.Background(), Config{URL: wsURL(srv), InitialBackoff: time.Millisecond})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	select {
	case <-sub.Done():
	case <-time.After(3 * time.Second):
		t.Fatalf("rejected subscription kept retrying")
	}
	if !errors.Is(sub.Err(), ErrRejected) {
		t.Fatalf("err = %v", sub.Err())
	}
	if _, ok := <-sub.Events(); ok {
		t.Fatalf("events should be closed")
	}
}

func TestSubscribeGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := wsURL(srv)
	srv.Close()

	sub, err := Subscribe(context.Background(), Config{
		URL:            addr,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		GiveUp:         50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	select {
	case <-sub.Done():
	case <-time.After(3 * time.Second):
		t.Fatalf("subscription never gave up")
	}
	if sub.Err() == nil || errors.Is(sub.Err(), ErrRejected) {
		t.Fatalf("err = %v", sub.Err())
	}
}

func TestCloseEndsCleanly(t *testing.T) {
	srv := httptest.NewServer(websocket.Handler(func(conn *websocket.Conn) {
		_, _ = io.Copy(io.Discard, conn)
	}))
	defer srv.Close()

	sub, err := Subscribe(context.Background(), Config{URL: wsURL(srv)})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	sub.Close()
	if sub.Err() != nil {
		t.Fatalf("close should not record an error: %v", sub.Err())
	}
}

func TestSubscribeValidatesConfig(t *testing.T) {
	if _, err := Subscribe(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for missing url")
	}
	if _, err := Subscribe(context.Background(), Config{URL: "::bad"}); err == nil {
		t.Fatalf("expected error for bad url")
	}
}
