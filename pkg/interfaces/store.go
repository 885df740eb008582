package interfaces

import (
	"context"
	"time"
)

// SessionRecord is the persisted lifecycle row for a session. Sessions are
// ephemeral in memory; the store only records that they happened.
type SessionRecord struct {
	Code      string     `json:"code"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// SnapshotStore persists session lifecycle events and room snapshots for
// audit and stats. Nothing in the live request path reads from it, so every
// implementation is free to apply writes asynchronously.
type SnapshotStore interface {
	// RecordSessionCreated inserts a lifecycle row for a newly created session.
	RecordSessionCreated(ctx context.Context, code string, createdAt time.Time) error

	// RecordSessionClosed marks a session row closed with a reason
	// ("closed" for explicit teardown, "expired" for sweep teardown).
	RecordSessionClosed(ctx context.Context, code string, closedAt time.Time, reason string) error

	// SaveRoomSnapshot upserts the latest serialized snapshot of one room.
	SaveRoomSnapshot(ctx context.Context, code, roomType, widgetID string, snapshot []byte) error

	// CountSessions returns lifetime created and expired session counts.
	CountSessions(ctx context.Context) (created int, expired int, err error)

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error

	// Close flushes pending writes and releases resources.
	Close() error
}
