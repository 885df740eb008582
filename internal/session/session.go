package session

import (
	"sync"
	"time"

	"classhub/internal/room"
)

// Session is one teacher-created instance: it owns rooms keyed by
// (kind, widgetId) and tracks which participant is connected on which socket.
// A participant's stable ID outlives its socket, so rejoining after a page
// reload replaces the socket mapping without touching the rooms' per-
// participant state (a reconnecting student is still "already voted").
type Session struct {
	code      string
	createdAt time.Time

	mu                   sync.RWMutex
	lastActivity         time.Time
	rooms                map[room.Key]room.Room
	socketsByParticipant map[string]string // participantID -> socketID
	participantsBySocket map[string]string // socketID -> participantID
	names                map[string]string // participantID -> display name
}

// NewSession creates a session for an already-reserved code.
func NewSession(code string) *Session {
	now := time.Now()
	return &Session{
		code:                 code,
		createdAt:            now,
		lastActivity:         now,
		rooms:                make(map[room.Key]room.Room),
		socketsByParticipant: make(map[string]string),
		participantsBySocket: make(map[string]string),
		names:                make(map[string]string),
	}
}

func (s *Session) Code() string         { return s.code }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Touch refreshes the activity timestamp. Every mutating call that flows
// through this session is expected to call it.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// AddParticipant joins a participant on a socket. Rejoining with the same
// participant ID replaces the stale socket mapping instead of duplicating the
// participant; the replaced socket ID is returned so the caller can drop it.
func (s *Session) AddParticipant(participantID, socketID, name string) (replacedSocket string, err error) {
	if participantID == "" || len(participantID) > 64 {
		return "", ErrInvalidParticipant
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.socketsByParticipant[participantID]; ok && old != socketID {
		delete(s.participantsBySocket, old)
		replacedSocket = old
	}
	s.socketsByParticipant[participantID] = socketID
	s.participantsBySocket[socketID] = participantID
	if name != "" {
		s.names[participantID] = name
	}
	s.lastActivity = time.Now()
	return replacedSocket, nil
}

// RemoveParticipant detaches a socket, typically on disconnect. Only the
// socket mapping is removed; room-level history tied to the participant ID
// stays, so a later reconnect is recognized.
func (s *Session) RemoveParticipant(socketID string) (participantID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participantID, ok = s.participantsBySocket[socketID]
	if !ok {
		return "", false
	}
	delete(s.participantsBySocket, socketID)
	// Drop the reverse mapping only if it still points at this socket.
	if s.socketsByParticipant[participantID] == socketID {
		delete(s.socketsByParticipant, participantID)
	}
	return participantID, true
}

// ParticipantID resolves the participant connected on a socket.
func (s *Session) ParticipantID(socketID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pid, ok := s.participantsBySocket[socketID]
	return pid, ok
}

// ParticipantName returns the display name a participant joined with.
func (s *Session) ParticipantName(participantID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.names[participantID]
}

// ParticipantCount returns the number of currently connected participants.
func (s *Session) ParticipantCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.participantsBySocket)
}

// SocketIDs returns the sockets currently joined to this session, the
// fan-out target set for broadcasts.
func (s *Session) SocketIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.participantsBySocket))
	for id := range s.participantsBySocket {
		ids = append(ids, id)
	}
	return ids
}

// CreateRoom instantiates a room variant under the (kind, widgetId) key.
func (s *Session) CreateRoom(kind room.Kind, widgetID string) (room.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := room.Key{Kind: kind, WidgetID: widgetID}
	if _, exists := s.rooms[key]; exists {
		return nil, ErrDuplicateRoom
	}
	r, err := room.New(kind, widgetID)
	if err != nil {
		return nil, err
	}
	s.rooms[key] = r
	s.lastActivity = time.Now()
	return r, nil
}

// GetRoom returns the room under the (kind, widgetId) key.
func (s *Session) GetRoom(kind room.Kind, widgetID string) (room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[room.Key{Kind: kind, WidgetID: widgetID}]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// DeleteRoom removes a room; idempotent.
func (s *Session) DeleteRoom(kind room.Kind, widgetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := room.Key{Kind: kind, WidgetID: widgetID}
	if _, ok := s.rooms[key]; !ok {
		return false
	}
	delete(s.rooms, key)
	s.lastActivity = time.Now()
	return true
}

// Rooms returns all rooms currently hosted by this session.
func (s *Session) Rooms() []room.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]room.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	return out
}

// RoomCount returns the number of rooms in this session.
func (s *Session) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// PruneIdleRooms deletes rooms whose own activity timestamp is older than
// cutoff and returns how many were removed. Room idle cleanup is independent
// of session-level expiry.
func (s *Session) PruneIdleRooms(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, r := range s.rooms {
		if r.LastActivity().Before(cutoff) {
			delete(s.rooms, key)
			removed++
		}
	}
	return removed
}
