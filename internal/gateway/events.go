package gateway

import (
	"context"
	"errors"
	"log"
	"time"

	"classhub/internal/room"
	"classhub/internal/session"
	"classhub/pkg/protocol"
)

// dispatch routes one inbound envelope. Every handler runs behind a recover
// barrier: a panic in domain logic becomes a structured ack, never an
// uncaught exception taking down the read loop that serves this socket.
func (h *Handler) dispatch(conn *Connection, env *protocol.Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Event handler panicked: event=%s socket=%s err=%v", env.Event, conn.ID(), rec)
			h.ack(conn, env, protocol.Ack{
				Success: false,
				Code:    protocol.CodeInternalError,
				Error:   "internal error",
			})
		}
	}()

	switch env.Event {
	case protocol.EventSessionCreate:
		h.handleSessionCreate(conn, env)
	case protocol.EventSessionJoin:
		h.handleSessionJoin(conn, env)
	case protocol.EventSessionCreateRoom:
		h.handleCreateRoom(conn, env)
	case eventSessionClose:
		h.handleSessionClose(conn, env)
	default:
		addr, ok := protocol.ParseRoomEvent(env.Event)
		if !ok {
			h.ackError(conn, env, protocol.CodeValidationError, "unknown event "+env.Event)
			return
		}
		h.handleRoomEvent(conn, env, addr)
	}
}

// eventSessionClose tears down the whole session; only sent by teacher
// clients when the workspace is closed.
const eventSessionClose = "session:close"

// hostParticipantID is the stable participant identity of the session
// creator, so a reloading teacher client replaces its socket like any
// rejoining student.
const hostParticipantID = "host"

func (h *Handler) ack(conn *Connection, env *protocol.Envelope, ack protocol.Ack) {
	if env.ID == "" {
		return // sender did not request an ack
	}
	ack.ID = env.ID
	if err := conn.WriteJSON(protocol.Envelope{
		Event:     protocol.EventAck,
		Data:      mustMarshal(ack),
		Timestamp: time.Now(),
	}); err != nil {
		log.Printf("Failed to send ack: socket=%s err=%v", conn.ID(), err)
	}
}

func (h *Handler) ackError(conn *Connection, env *protocol.Envelope, code, msg string) {
	h.ack(conn, env, protocol.Ack{Success: false, Code: code, Error: msg})
}

func (h *Handler) ackSuccess(conn *Connection, env *protocol.Envelope, data interface{}) {
	h.ack(conn, env, protocol.Ack{Success: true, Data: data})
}

// handleSessionCreate creates a session and binds the creating socket to it
// as the host, so it receives all fan-out for its own session.
func (h *Handler) handleSessionCreate(conn *Connection, env *protocol.Envelope) {
	sess, err := h.sessions.CreateSession()
	if err != nil {
		// Code exhaustion is alarmable, not a user mistake.
		log.Printf("ALERT: session creation failed: %v", err)
		h.ackError(conn, env, protocol.CodeInternalError, "could not allocate session code")
		return
	}

	if _, err := sess.AddParticipant(hostParticipantID, conn.ID(), "teacher"); err != nil {
		h.ackError(conn, env, protocol.CodeInternalError, err.Error())
		return
	}
	conn.BindSession(sess.Code(), hostParticipantID)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.store.RecordSessionCreated(ctx, sess.Code(), sess.CreatedAt()); err != nil {
			log.Printf("Failed to record session creation: %v", err)
		}
	}()

	h.ackSuccess(conn, env, map[string]string{"code": sess.Code()})
}

type joinRequest struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	StudentID string `json:"studentId"`
}

// handleSessionJoin attaches a participant socket to an existing session.
// Rejoining with the same studentId replaces the stale socket.
func (h *Handler) handleSessionJoin(conn *Connection, env *protocol.Envelope) {
	var req joinRequest
	if err := unmarshalData(env.Data, &req); err != nil {
		h.ackError(conn, env, protocol.CodeValidationError, "invalid join payload")
		return
	}
	if req.Code == "" || req.StudentID == "" {
		h.ackError(conn, env, protocol.CodeValidationError, "join requires code and studentId")
		return
	}

	sess, err := h.sessions.GetSession(req.Code)
	if err != nil {
		h.ackError(conn, env, protocol.CodeNotFound, "session not found")
		return
	}

	replaced, err := sess.AddParticipant(req.StudentID, conn.ID(), req.Name)
	if err != nil {
		h.ackError(conn, env, protocol.CodeValidationError, err.Error())
		return
	}
	if replaced != "" {
		// Stale socket from a previous page load; close it asynchronously so
		// its cleanup cannot block this join.
		if stale, ok := h.registry.get(replaced); ok {
			go func() { _ = stale.Close() }()
		}
	}

	conn.BindSession(sess.Code(), req.StudentID)
	sess.Touch()
	log.Printf("Participant joined: session=%s participant=%s socket=%s", sess.Code(), req.StudentID, conn.ID())
	h.ackSuccess(conn, env, nil)
}

type createRoomRequest struct {
	SessionCode string `json:"sessionCode"`
	RoomType    string `json:"roomType"`
	WidgetID    string `json:"widgetId"`
}

func (h *Handler) handleCreateRoom(conn *Connection, env *protocol.Envelope) {
	var req createRoomRequest
	if err := unmarshalData(env.Data, &req); err != nil {
		h.ackError(conn, env, protocol.CodeValidationError, "invalid createRoom payload")
		return
	}
	if !room.IsValidKind(req.RoomType) {
		h.ackError(conn, env, protocol.CodeValidationError, "unknown room type "+req.RoomType)
		return
	}

	sess, err := h.resolveSession(conn, req.SessionCode)
	if err != nil {
		h.ackError(conn, env, protocol.CodeNotFound, "session not found")
		return
	}

	if _, err := sess.CreateRoom(room.Kind(req.RoomType), req.WidgetID); err != nil {
		if errors.Is(err, session.ErrDuplicateRoom) {
			h.ackError(conn, env, protocol.CodeConflict, "room already exists")
			return
		}
		h.ackError(conn, env, protocol.CodeValidationError, err.Error())
		return
	}
	sess.Touch()
	h.ackSuccess(conn, env, nil)
}

func (h *Handler) handleSessionClose(conn *Connection, env *protocol.Envelope) {
	code, _ := conn.Session()
	if code == "" {
		h.ackError(conn, env, protocol.CodeValidationError, "socket is not in a session")
		return
	}
	// Ack before teardown: RemoveSession will close this very socket.
	h.ackSuccess(conn, env, nil)
	h.sessions.RemoveSession(code)
}

type requestStateData struct {
	SessionCode string `json:"sessionCode"`
}

// handleRoomEvent routes a room-addressed verb. NotFound and business-rule
// rejections become acks; only transport errors disconnect.
func (h *Handler) handleRoomEvent(conn *Connection, env *protocol.Envelope, addr protocol.Address) {
	if !room.IsValidKind(addr.RoomType) {
		h.ackError(conn, env, protocol.CodeValidationError, "unknown room type "+addr.RoomType)
		return
	}

	// requestState may carry an explicit session code; every other verb uses
	// the socket's bound session.
	explicitCode := ""
	if addr.Verb == protocol.VerbRequestState {
		var rs requestStateData
		_ = unmarshalData(env.Data, &rs)
		explicitCode = rs.SessionCode
	}
	sess, err := h.resolveSession(conn, explicitCode)
	if err != nil {
		h.ackError(conn, env, protocol.CodeNotFound, "session not found")
		return
	}

	kind := room.Kind(addr.RoomType)
	rm, err := sess.GetRoom(kind, addr.WidgetID)
	if err != nil {
		h.ackError(conn, env, protocol.CodeNotFound, "room not found")
		return
	}

	switch addr.Verb {
	case protocol.VerbStart:
		if rm.Start() {
			h.broadcastRoomEvent(sess, rm, protocol.SuffixStarted, nil)
		}
		h.afterMutation(sess, rm)
		h.ackSuccess(conn, env, nil)

	case protocol.VerbStop:
		if rm.Stop() {
			h.broadcastRoomEvent(sess, rm, protocol.SuffixStopped, nil)
		}
		h.afterMutation(sess, rm)
		h.ackSuccess(conn, env, nil)

	case protocol.VerbUpdate:
		if err := rm.Update(env.Data); err != nil {
			h.ackError(conn, env, protocol.CodeValidationError, err.Error())
			return
		}
		h.broadcastRoomEvent(sess, rm, protocol.SuffixUpdated, rm.Snapshot())
		h.afterMutation(sess, rm)
		h.ackSuccess(conn, env, nil)

	case protocol.VerbReset:
		rm.Reset()
		h.broadcastRoomEvent(sess, rm, protocol.SuffixUpdated, rm.Snapshot())
		h.afterMutation(sess, rm)
		h.ackSuccess(conn, env, nil)

	case protocol.VerbDelete:
		sess.DeleteRoom(kind, addr.WidgetID)
		sess.Touch()
		h.broadcast(sess, protocol.RoomEventName(addr.RoomType, addr.WidgetID, "deleted"), nil)
		h.ackSuccess(conn, env, nil)

	case protocol.VerbSubmit:
		_, pid := conn.Session()
		if pid == "" {
			h.ackError(conn, env, protocol.CodeValidationError, "socket has not joined the session")
			return
		}
		ok, err := rm.Submit(pid, env.Data)
		if err != nil {
			h.ackError(conn, env, protocol.CodeValidationError, err.Error())
			return
		}
		if !ok {
			// Expected, frequent outcome (duplicate vote, inactive room);
			// surfaced inline, never as a disconnect.
			h.ackError(conn, env, protocol.CodeConflict, "submission rejected")
			return
		}
		rm.Join(pid)
		h.broadcastRoomEvent(sess, rm, protocol.SuffixUpdated, rm.Snapshot())
		h.afterMutation(sess, rm)
		h.ackSuccess(conn, env, nil)

	case protocol.VerbRequestState:
		// Resync path for sockets that missed incremental updates.
		_, pid := conn.Session()
		if pid != "" {
			rm.Join(pid)
		}
		h.emitTo(conn, protocol.RoomEventName(addr.RoomType, addr.WidgetID, protocol.SuffixStateUpdate), rm.Snapshot())
		h.ackSuccess(conn, env, nil)
	}
}

// resolveSession prefers the socket's bound session and falls back to an
// explicitly supplied code.
func (h *Handler) resolveSession(conn *Connection, explicitCode string) (*session.Session, error) {
	if code, _ := conn.Session(); code != "" {
		return h.sessions.GetSession(code)
	}
	if explicitCode != "" {
		return h.sessions.GetSession(explicitCode)
	}
	return nil, session.ErrSessionNotFound
}

// afterMutation is the common tail of every successful room mutation:
// refresh session activity and persist the room snapshot off-path.
func (h *Handler) afterMutation(sess *session.Session, rm room.Room) {
	sess.Touch()
	h.persistSnapshot(sess.Code(), rm)
}
