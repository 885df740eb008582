package room

import (
	"encoding/json"
	"sync"
	"time"
)

// Kind discriminates room variants. The wire protocol uses the same strings
// as event name segments ("session:poll:start").
type Kind string

const (
	KindPoll      Kind = "poll"
	KindLinkShare Kind = "linkshare"
	KindFeedback  Kind = "feedback"
)

// IsValidKind reports whether s names a supported room kind.
func IsValidKind(s string) bool {
	switch Kind(s) {
	case KindPoll, KindLinkShare, KindFeedback:
		return true
	}
	return false
}

// Key identifies one room inside a session. A session may host several rooms
// of the same kind as long as their widget IDs differ.
type Key struct {
	Kind     Kind
	WidgetID string
}

// Room is the behavior shared by every variant. All methods are safe for
// concurrent use; each room serializes its own mutations behind one mutex so
// a vote's count increment and voter registration are applied together.
type Room interface {
	Kind() Kind
	WidgetID() string
	IsActive() bool

	// Start and Stop toggle the active flag and report whether the state
	// actually changed. Calling either in the current state is a no-op, not
	// an error.
	Start() bool
	Stop() bool

	// Update applies teacher-issued variant data (poll question/options,
	// link-share accept mode, ...).
	Update(data json.RawMessage) error

	// Reset clears participant input while preserving configuration.
	Reset()

	// Submit applies participant input. It returns (false, nil) for expected
	// business-rule rejections (duplicate vote, inactive room) and a non-nil
	// error only for malformed payloads.
	Submit(participantID string, data json.RawMessage) (bool, error)

	// Snapshot returns a serializable state a client can resync from after
	// missing any number of incremental updates.
	Snapshot() map[string]interface{}

	Join(participantID string)
	Leave(participantID string)
	LastActivity() time.Time
}

// New constructs the variant for kind. Rooms start inactive so students never
// see content before the teacher starts the activity.
func New(kind Kind, widgetID string) (Room, error) {
	switch kind {
	case KindPoll:
		return newPoll(widgetID), nil
	case KindLinkShare:
		return newLinkShare(widgetID), nil
	case KindFeedback:
		return newFeedback(widgetID), nil
	}
	return nil, ErrUnknownKind
}

// base holds the bookkeeping shared by all variants. Variants embed it and
// guard their own fields with the same mutex.
type base struct {
	mu           sync.Mutex
	kind         Kind
	widgetID     string
	active       bool
	participants map[string]struct{}
	lastActivity time.Time
}

func newBase(kind Kind, widgetID string) base {
	return base{
		kind:         kind,
		widgetID:     widgetID,
		participants: make(map[string]struct{}),
		lastActivity: time.Now(),
	}
}

func (b *base) Kind() Kind       { return b.kind }
func (b *base) WidgetID() string { return b.widgetID }

func (b *base) IsActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

func (b *base) Start() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active {
		return false
	}
	b.active = true
	b.lastActivity = time.Now()
	return true
}

func (b *base) Stop() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return false
	}
	b.active = false
	b.lastActivity = time.Now()
	return true
}

func (b *base) Join(participantID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.participants[participantID] = struct{}{}
}

func (b *base) Leave(participantID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.participants, participantID)
}

func (b *base) LastActivity() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastActivity
}

// touchLocked must be called with b.mu held.
func (b *base) touchLocked() {
	b.lastActivity = time.Now()
}

// snapshotLocked returns the fields common to every variant. Must be called
// with b.mu held.
func (b *base) snapshotLocked() map[string]interface{} {
	return map[string]interface{}{
		"kind":             string(b.kind),
		"widgetId":         b.widgetID,
		"isActive":         b.active,
		"participantCount": len(b.participants),
		"lastActivityAt":   b.lastActivity,
	}
}
