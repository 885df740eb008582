package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"classhub/internal/room"
	"classhub/internal/session"
	"classhub/pkg/interfaces"
	"classhub/pkg/protocol"
)

// Config carries the transport tunables for the gateway.
type Config struct {
	PingInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Session codes are the access control; the HTTP origin is not.
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// Handler is the connection gateway: it is the only component that touches
// transport-level state, and it routes inbound events to sessions and rooms.
type Handler struct {
	registry *connRegistry
	sessions *session.Registry
	store    interfaces.SnapshotStore
	limiter  *frameLimiter
	cfg      Config
}

// NewHandler creates a gateway over the given session registry and store.
func NewHandler(sessions *session.Registry, store interfaces.SnapshotStore, cfg Config) *Handler {
	return &Handler{
		registry: newConnRegistry(),
		sessions: sessions,
		store:    store,
		limiter:  newFrameLimiter(),
		cfg:      cfg,
	}
}

// HandleWebSocket upgrades the request and starts the connection lifecycle.
// A fresh socket carries no state; nothing happens until a session-scoped
// event arrives.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn := NewConnection(ws, h.cfg.SendBuffer, h.cfg.WriteTimeout)
	if err := h.registry.register(conn); err != nil {
		log.Printf("Failed to register connection: %v", err)
		_ = conn.Close()
		return
	}

	go h.handleConnection(conn)
}

// handleConnection owns the read side of one socket: heartbeat monitoring,
// frame parsing, and event dispatch. Transport-level failures end the
// connection; business-logic failures are acked and the loop continues.
func (h *Handler) handleConnection(conn *Connection) {
	defer func() {
		h.detachFromSession(conn)
		h.registry.unregister(conn)
		h.limiter.forget(conn.ID())
		_ = conn.Close()
	}()

	if err := conn.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout)); err != nil {
		log.Printf("Failed to set read deadline: %v", err)
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ticker.C:
				deadline := time.Now().Add(h.cfg.WriteTimeout)
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, deadline); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: socket=%s err=%v", conn.ID(), err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		if !h.limiter.allow(conn.ID()) {
			log.Printf("Rate limit exceeded, disconnecting: socket=%s", conn.ID())
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			// Protocol violation: this peer cannot be trusted to frame
			// events, so the connection is dropped rather than acked.
			log.Printf("Unparseable frame, disconnecting: socket=%s err=%v", conn.ID(), err)
			return
		}
		h.dispatch(conn, &env)
	}
}

// detachFromSession removes a disconnecting socket from its session. Voting
// and submission history keyed by participant ID is untouched.
func (h *Handler) detachFromSession(conn *Connection) {
	code, _ := conn.Session()
	if code == "" {
		return
	}
	sess, err := h.sessions.GetSession(code)
	if err != nil {
		return
	}
	if pid, ok := sess.RemoveParticipant(conn.ID()); ok {
		log.Printf("Participant disconnected: session=%s participant=%s", code, pid)
	}
}

// CloseSessionSockets force-disconnects every socket joined to a session.
// Invoked by the registry teardown hook on expiry or explicit close.
func (h *Handler) CloseSessionSockets(sess *session.Session) {
	for _, socketID := range sess.SocketIDs() {
		if conn, ok := h.registry.get(socketID); ok {
			_ = conn.Close()
		}
	}
}

// ConnectionCount reports live sockets for the stats endpoint.
func (h *Handler) ConnectionCount() int {
	return h.registry.count()
}

// persistSnapshot writes a room snapshot to the store off the mutation path.
// The snapshot is taken synchronously so it reflects the mutation just
// applied; only the write happens in the background. Persistence is
// audit-only; failures are logged, never surfaced to clients.
func (h *Handler) persistSnapshot(code string, r room.Room) {
	snap, err := json.Marshal(r.Snapshot())
	if err != nil {
		log.Printf("Failed to marshal room snapshot: %v", err)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.store.SaveRoomSnapshot(ctx, code, string(r.Kind()), r.WidgetID(), snap); err != nil {
			log.Printf("Failed to persist room snapshot: session=%s err=%v", code, err)
		}
	}()
}
