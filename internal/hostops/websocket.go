package hostops

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// maxWSMessageBytes mirrors the teacher's websocket.go comment ("maxWSMessageBytes
// is defined in engine.go") — the same per-connection read-size ceiling, here
// owned by hostops itself since internal/hostops has no engine.go of its own.
const maxWSMessageBytes = 1 << 20

// Conn wraps a *websocket.Conn with the mutex-guarded send/close pattern
// the teacher's WebSocketHandler.Bridge uses (state.wsMu guarding
// state.wsConn.Write/Close against concurrent callers), so this type can
// be driven directly from a native op without each op re-implementing the
// locking.
type Conn struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// Upgrade accepts an incoming HTTP request as a WebSocket connection
// (spec.md §4.6 "WebSocket host service... upgrade").
func Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("hostops: websocket accept: %w", err)
	}
	c.SetReadLimit(maxWSMessageBytes)
	return &Conn{conn: c}, nil
}

// Dial connects out to a WebSocket server. Dial does no capability check
// itself: the otter op installer gates the call on CanNet before Dial is
// ever called (unlike the fs functions, which re-check at the point of
// access).
func Dial(ctx context.Context, url string) (*Conn, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("hostops: websocket dial %q: %w", url, err)
	}
	c.SetReadLimit(maxWSMessageBytes)
	return &Conn{conn: c}, nil
}

// Send writes a text or binary message, matching the teacher's __wsSend
// backing: a 5-second write deadline and a held lock for the duration of
// the write (websocket.go's state.wsMu.Lock / writeCtx).
func (c *Conn) Send(ctx context.Context, data []byte, binary bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("hostops: send on closed websocket connection")
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	typ := websocket.MessageText
	if binary {
		typ = websocket.MessageBinary
	}
	if err := c.conn.Write(writeCtx, typ, data); err != nil {
		return fmt.Errorf("hostops: websocket write: %w", err)
	}
	return nil
}

// Receive blocks for the next message, reporting whether it was binary.
func (c *Conn) Receive(ctx context.Context) (data []byte, binary bool, err error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("hostops: websocket read: %w", err)
	}
	return data, typ == websocket.MessageBinary, nil
}

// Close closes the connection with a close code/reason, idempotent the
// way the teacher's __wsClose guards on state.wsClosed.
func (c *Conn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	// 1013 ("try again later") is spec.md §4.6's backpressure close code;
	// any other value passes through as a normal application close code.
	return c.conn.Close(websocket.StatusCode(code), reason)
}
