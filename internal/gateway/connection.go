package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection wraps one websocket with a single-writer goroutine. All writes
// go through writeCh so concurrent fan-out never races on the underlying
// socket. The socket ID is transient; the participant ID bound after a join
// is the stable identity.
type Connection struct {
	id      string
	conn    *websocket.Conn
	writeCh chan []byte

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	writeTimeout time.Duration

	mu            sync.RWMutex
	sessionCode   string
	participantID string
}

// NewConnection wraps an upgraded websocket and starts its write loop.
func NewConnection(conn *websocket.Conn, sendBuffer int, writeTimeout time.Duration) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		id:           uuid.New().String(),
		conn:         conn,
		writeCh:      make(chan []byte, sendBuffer),
		ctx:          ctx,
		cancel:       cancel,
		writeTimeout: writeTimeout,
	}
	go c.writeLoop()
	return c
}

// ID returns the transient socket identifier.
func (c *Connection) ID() string { return c.id }

// writeLoop is the single writer for the underlying socket.
func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// WriteJSON marshals v and queues it for the write loop.
func (c *Connection) WriteJSON(v interface{}) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return ErrInvalidJSON
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(c.writeTimeout):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// Close shuts the connection down exactly once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// BindSession records which session and participant this socket represents.
func (c *Connection) BindSession(code, participantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionCode = code
	c.participantID = participantID
}

// Session returns the bound session code and participant ID, empty before a
// join or create has happened on this socket.
func (c *Connection) Session() (code, participantID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionCode, c.participantID
}
