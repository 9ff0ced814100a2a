// Package notify forwards keyword detections to remote listeners.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/OscarSR27/ESDML-Lab2/pkg/kws"
)

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("notify: closed")

// Message is the JSON text frame sent for every detection.
type Message struct {
	Type  string            `json:"type"`
	Event kws.Event         `json:"event"`
	Extra map[string]string `json:"extra,omitempty"`
}

// MessageType is the Type of detection messages.
const MessageType = "kws.detection"

// WebSocket is a kws.Dispatcher that writes detections to a WebSocket
// server. The connection is dialed on the first Dispatch.
type WebSocket struct {
	url    string
	header http.Header
	extra  map[string]string
	dialer websocket.Dialer
	logger *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// Option configures a WebSocket.
type Option func(*WebSocket)

// WithHeader sets extra handshake headers, e.g. Authorization.
func WithHeader(h http.Header) Option {
	return func(w *WebSocket) { w.header = h.Clone() }
}

// WithExtra attaches tags to every message.
func WithExtra(extra map[string]string) Option {
	return func(w *WebSocket) { w.extra = maps.Clone(extra) }
}

// WithHandshakeTimeout bounds the dial handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(w *WebSocket) { w.dialer.HandshakeTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *WebSocket) { w.logger = l }
}

// NewWebSocket creates a dispatcher for url (ws:// or wss://).
func NewWebSocket(url string, opts ...Option) *WebSocket {
	w := &WebSocket{
		url:    url,
		dialer: websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dispatch implements kws.Dispatcher. A failed write drops the connection
// and retries once on a fresh one.
func (w *WebSocket) Dispatch(ctx context.Context, ev kws.Event) error {
	msg := Message{Type: MessageType, Event: ev, Extra: w.extra}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	var err error
	for attempt := range 2 {
		if w.conn == nil {
			if err = w.dial(ctx); err != nil {
				return err
			}
		}
		if deadline, ok := ctx.Deadline(); ok {
			w.conn.SetWriteDeadline(deadline)
		} else {
			w.conn.SetWriteDeadline(time.Time{})
		}
		if err = w.conn.WriteJSON(msg); err == nil {
			return nil
		}
		w.logger.Warn("notify: write failed", "url", w.url, "attempt", attempt+1, "error", err)
		w.conn.Close()
		w.conn = nil
	}
	return fmt.Errorf("notify: send %s: %w", ev.ID, err)
}

func (w *WebSocket) dial(ctx context.Context) error {
	conn, resp, err := w.dialer.DialContext(ctx, w.url, w.header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("notify: dial %s: status %d: %w", w.url, resp.StatusCode, err)
		}
		return fmt.Errorf("notify: dial %s: %w", w.url, err)
	}
	w.logger.Debug("notify: connected", "url", w.url)
	w.conn = conn
	return nil
}

// Close sends a close frame and closes the connection. Safe to call more
// than once.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	err := w.conn.Close()
	w.conn = nil
	return err
}

var _ kws.Dispatcher = (*WebSocket)(nil)
