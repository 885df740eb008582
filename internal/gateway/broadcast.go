package gateway

import (
	"encoding/json"
	"log"
	"time"

	"classhub/internal/room"
	"classhub/internal/session"
	"classhub/pkg/protocol"
)

// broadcast fans an event out to every socket currently joined to the
// session. A slow or dead socket only costs a failed queue attempt; it never
// blocks delivery to the rest of the class.
func (h *Handler) broadcast(sess *session.Session, event string, payload interface{}) {
	env := protocol.Envelope{
		Event:     event,
		Timestamp: time.Now(),
	}
	if payload != nil {
		env.Data = mustMarshal(payload)
	}

	for _, socketID := range sess.SocketIDs() {
		conn, ok := h.registry.get(socketID)
		if !ok {
			continue
		}
		if err := conn.WriteJSON(env); err != nil {
			log.Printf("Broadcast delivery failed: session=%s socket=%s err=%v", sess.Code(), socketID, err)
		}
	}
}

// broadcastRoomEvent emits a room-scoped notification carrying the widget ID
// in the event name so multi-instance clients can disambiguate.
func (h *Handler) broadcastRoomEvent(sess *session.Session, rm room.Room, suffix string, payload interface{}) {
	h.broadcast(sess, protocol.RoomEventName(string(rm.Kind()), rm.WidgetID(), suffix), payload)
}

// emitTo sends an event to a single socket, used for requestState replies.
func (h *Handler) emitTo(conn *Connection, event string, payload interface{}) {
	env := protocol.Envelope{
		Event:     event,
		Timestamp: time.Now(),
	}
	if payload != nil {
		env.Data = mustMarshal(payload)
	}
	if err := conn.WriteJSON(env); err != nil {
		log.Printf("State reply failed: socket=%s err=%v", conn.ID(), err)
	}
}

// mustMarshal marshals payloads the server itself constructed; a failure is
// a programming error.
func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("gateway: marshaling server payload: " + err.Error())
	}
	return data
}

// unmarshalData decodes an event payload, treating an absent payload as an
// empty object.
func unmarshalData(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
