package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/OscarSR27/ESDML-Lab2/pkg/kws"
)

// server collects messages and counts handshakes.
type server struct {
	mu       sync.Mutex
	messages []Message
	conns    int
	auth     string
	got      chan Message
}

func newServer(t *testing.T, dropFirst bool) (*server, *httptest.Server) {
	t.Helper()
	s := &server{got: make(chan Message, 16)}
	up := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		s.mu.Lock()
		s.conns++
		n := s.conns
		s.auth = r.Header.Get("Authorization")
		s.mu.Unlock()
		if dropFirst && n == 1 {
			return
		}
		for {
			var m Message
			if err := conn.ReadJSON(&m); err != nil {
				return
			}
			s.mu.Lock()
			s.messages = append(s.messages, m)
			s.mu.Unlock()
			s.got <- m
		}
	}))
	t.Cleanup(ts.Close)
	return s, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func receive(t *testing.T, s *server) Message {
	t.Helper()
	select {
	case m := <-s.got:
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestWebSocketDispatch(t *testing.T) {
	s, ts := newServer(t, false)
	h := http.Header{}
	h.Set("Authorization", "Bearer token")
	w := NewWebSocket(wsURL(ts), WithHeader(h), WithLogger(quiet()))
	defer w.Close()

	ctx := context.Background()
	for _, label := range []string{"yes", "no"} {
		if err := w.Dispatch(ctx, kws.Event{ID: label + "-id", Label: label, Score: 1020}); err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
	}
	first, second := receive(t, s), receive(t, s)
	if first.Type != MessageType || first.Event.Label != "yes" || first.Event.Score != 1020 {
		t.Errorf("first = %+v", first)
	}
	if second.Event.ID != "no-id" {
		t.Errorf("second = %+v", second)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns != 1 {
		t.Errorf("conns = %d, want 1", s.conns)
	}
	if s.auth != "Bearer token" {
		t.Errorf("Authorization = %q", s.auth)
	}
}

func TestWebSocketExtra(t *testing.T) {
	s, ts := newServer(t, false)
	extra := map[string]string{"device": "board-7"}
	w := NewWebSocket(wsURL(ts), WithExtra(extra), WithLogger(quiet()))
	defer w.Close()
	extra["device"] = "changed"

	if err := w.Dispatch(context.Background(), kws.Event{ID: "e1", Label: "yes"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if m := receive(t, s); m.Extra["device"] != "board-7" {
		t.Errorf("extra = %v", m.Extra)
	}
}

func TestWebSocketRedial(t *testing.T) {
	s, ts := newServer(t, true)
	w := NewWebSocket(wsURL(ts), WithLogger(quiet()))
	defer w.Close()

	ctx := context.Background()
	// The server drops the first connection; the write may still succeed
	// locally, so keep sending until a message lands on the second one.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := w.Dispatch(ctx, kws.Event{ID: "x", Label: "go"}); err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
		select {
		case m := <-s.got:
			if m.Event.ID != "x" {
				t.Errorf("got %+v", m)
			}
			return
		case <-time.After(50 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			t.Fatal("no message after redial")
		}
	}
}

func TestWebSocketDialError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()
	w := NewWebSocket(wsURL(ts), WithLogger(quiet()), WithHandshakeTimeout(time.Second))
	defer w.Close()

	err := w.Dispatch(context.Background(), kws.Event{ID: "x"})
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Errorf("err = %v, want dial status error", err)
	}
}

func TestWebSocketClose(t *testing.T) {
	_, ts := newServer(t, false)
	w := NewWebSocket(wsURL(ts), WithLogger(quiet()))
	if err := w.Dispatch(context.Background(), kws.Event{ID: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := w.Dispatch(context.Background(), kws.Event{ID: "y"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Dispatch after Close: err = %v", err)
	}
}
