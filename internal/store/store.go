package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"classhub/pkg/interfaces"
)

// schema holds the audit tables. Sessions are ephemeral in memory; these rows
// only record that they happened and what their rooms last looked like.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	code       TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL,
	closed_at  DATETIME,
	reason     TEXT
);

CREATE TABLE IF NOT EXISTS room_snapshots (
	session_code TEXT NOT NULL,
	room_type    TEXT NOT NULL,
	widget_id    TEXT NOT NULL DEFAULT '',
	snapshot     TEXT NOT NULL,
	taken_at     DATETIME NOT NULL,
	PRIMARY KEY (session_code, room_type, widget_id)
);
`

// Store is the SQLite-backed SnapshotStore. All writes funnel through a
// single goroutine; SQLite handles concurrent reads fine but write contention
// degrades it badly under WAL.
type Store struct {
	db           *sql.DB
	writeChannel chan writeOperation
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex // protects closed
}

type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

var _ interfaces.SnapshotStore = (*Store)(nil)

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply snapshot schema: %w", err)
	}

	s := &Store{
		db:           db,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.writeLoop()
	return s, nil
}

// writeLoop processes all write operations in a single goroutine.
func (s *Store) writeLoop() {
	defer s.wg.Done()
	for {
		select {
		case op := <-s.writeChannel:
			err := op.operation(s.db)
			if err != nil {
				log.Printf("Snapshot store write failed: %v", err)
			}
			op.result <- err
		case <-s.shutdown:
			// Drain queued writes before exiting so Close flushes.
			for {
				select {
				case op := <-s.writeChannel:
					op.result <- op.operation(s.db)
				default:
					return
				}
			}
		}
	}
}

func (s *Store) executeWrite(operation func(*sql.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return interfaces.ErrStoreClosed
	}
	s.mu.RUnlock()

	result := make(chan error, 1)
	select {
	case s.writeChannel <- writeOperation{operation: operation, result: result}:
		return <-result
	case <-time.After(10 * time.Second):
		return fmt.Errorf("snapshot store write timeout")
	case <-s.shutdown:
		return interfaces.ErrStoreClosed
	}
}

// RecordSessionCreated inserts the lifecycle row for a new session.
func (s *Store) RecordSessionCreated(ctx context.Context, code string, createdAt time.Time) error {
	return s.executeWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT OR REPLACE INTO sessions (code, created_at) VALUES (?, ?)`,
			code, createdAt)
		if err != nil {
			return fmt.Errorf("failed to insert session row: %w", err)
		}
		return nil
	})
}

// RecordSessionClosed marks a session row closed.
func (s *Store) RecordSessionClosed(ctx context.Context, code string, closedAt time.Time, reason string) error {
	return s.executeWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`UPDATE sessions SET closed_at = ?, reason = ? WHERE code = ?`,
			closedAt, reason, code)
		if err != nil {
			return fmt.Errorf("failed to close session row: %w", err)
		}
		return nil
	})
}

// SaveRoomSnapshot upserts the latest snapshot of one room.
func (s *Store) SaveRoomSnapshot(ctx context.Context, code, roomType, widgetID string, snapshot []byte) error {
	return s.executeWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT OR REPLACE INTO room_snapshots (session_code, room_type, widget_id, snapshot, taken_at)
			 VALUES (?, ?, ?, ?, ?)`,
			code, roomType, widgetID, string(snapshot), time.Now())
		if err != nil {
			return fmt.Errorf("failed to save room snapshot: %w", err)
		}
		return nil
	})
}

// CountSessions returns lifetime created and expired counts for stats.
func (s *Store) CountSessions(ctx context.Context) (created int, expired int, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN reason = 'expired' THEN 1 ELSE 0 END), 0)
		FROM sessions`)
	if err := row.Scan(&created, &expired); err != nil {
		return 0, 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return created, expired, nil
}

// HealthCheck verifies connectivity.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close flushes pending writes and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdown)
	s.wg.Wait()
	return s.db.Close()
}
