package protocol

import (
	"encoding/json"
	"strings"
	"time"
)

// Verbs a client may apply to a room. Teacher-issued verbs mutate room state,
// submit carries participant input, requestState asks for a resync snapshot.
const (
	VerbStart        = "start"
	VerbStop         = "stop"
	VerbUpdate       = "update"
	VerbReset        = "reset"
	VerbDelete       = "delete"
	VerbSubmit       = "submit"
	VerbRequestState = "requestState"
)

// Session-scoped events that are not addressed to a single room.
const (
	EventSessionCreate     = "session:create"
	EventSessionJoin       = "session:join"
	EventSessionCreateRoom = "session:createRoom"
	EventAck               = "ack"
)

// Suffixes of server→client room notifications.
const (
	SuffixStarted     = "started"
	SuffixStopped     = "stopped"
	SuffixUpdated     = "updated"
	SuffixStateUpdate = "stateUpdate"
)

// Ack error codes rendered to clients. Business-rule rejections reuse
// CodeConflict so clients can show them inline rather than disconnecting.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeInternalError   = "INTERNAL_ERROR"
)

// Envelope is the single wire frame for both directions. A non-empty ID on a
// client frame requests an acknowledgement; the server answers with an "ack"
// envelope carrying the same ID.
type Envelope struct {
	ID        string          `json:"id,omitempty"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitzero"`
}

// Ack is the payload of an "ack" envelope.
type Ack struct {
	ID      string      `json:"id"`
	Success bool        `json:"success"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Address identifies the room an event is aimed at. Events travel on the wire
// as delimited strings ("session:poll:w1:start"); internally routing always
// works on the structured form.
type Address struct {
	RoomType string
	WidgetID string
	Verb     string
}

// roomVerbs are the verbs accepted inside a session:<type>[:<widget>]:<verb> event.
var roomVerbs = map[string]bool{
	VerbStart:  true,
	VerbStop:   true,
	VerbUpdate: true,
	VerbReset:  true,
	VerbDelete: true,
	VerbSubmit: true,
}

// ParseRoomEvent parses a room-addressed client event name. Supported shapes:
//
//	session:<type>:<verb>
//	session:<type>:<widgetId>:<verb>
//	<type>:requestState
//	<type>:<widgetId>:requestState
//
// The requestState forms also accept a leading "session:" segment.
//
// Returns false for session-scoped events (session:create, session:join,
// session:createRoom) and anything else that does not match.
func ParseRoomEvent(event string) (Address, bool) {
	parts := strings.Split(event, ":")

	if parts[len(parts)-1] == VerbRequestState {
		body := parts[:len(parts)-1]
		if len(body) > 0 && body[0] == "session" {
			body = body[1:]
		}
		switch len(body) {
		case 1:
			return Address{RoomType: body[0], Verb: VerbRequestState}, body[0] != ""
		case 2:
			return Address{RoomType: body[0], WidgetID: body[1], Verb: VerbRequestState},
				body[0] != "" && body[1] != ""
		}
		return Address{}, false
	}

	if parts[0] != "session" {
		return Address{}, false
	}
	switch len(parts) {
	case 3:
		addr := Address{RoomType: parts[1], Verb: parts[2]}
		return addr, addr.RoomType != "" && roomVerbs[addr.Verb]
	case 4:
		addr := Address{RoomType: parts[1], WidgetID: parts[2], Verb: parts[3]}
		return addr, addr.RoomType != "" && addr.WidgetID != "" && roomVerbs[addr.Verb]
	}
	return Address{}, false
}

// RoomEventName builds a server→client notification name for a room,
// e.g. "poll:started" or "poll:w1:stateUpdate".
func RoomEventName(roomType, widgetID, suffix string) string {
	if widgetID == "" {
		return roomType + ":" + suffix
	}
	return roomType + ":" + widgetID + ":" + suffix
}
