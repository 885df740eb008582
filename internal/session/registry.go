package session

import (
	"context"
	"log"
	"sync"
	"time"

	"classhub/pkg/protocol"
)

// codeRetryBudget bounds collision retries during code generation. With a
// 26^5 code space this budget is only ever spent when nearly every code is
// in use, which is an operational alarm, not a user-facing condition.
const codeRetryBudget = 100

// RemoveFunc is invoked after a session has been unlinked from the registry,
// with reason "closed" (explicit) or "expired" (sweep). The gateway uses it
// to disconnect the session's sockets, the store to record the teardown.
type RemoveFunc func(s *Session, reason string)

// Registry is the single source of truth mapping codes to live sessions.
// It owns code generation and the expiry sweep; it is the only process-wide
// mutable structure in the system.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	ttl           time.Duration
	roomTTL       time.Duration
	sweepInterval time.Duration

	onRemove RemoveFunc

	sweepCancel context.CancelFunc
	wg          sync.WaitGroup
}

// NewRegistry creates a registry. ttl is the session inactivity window,
// roomTTL the per-room idle window, sweepInterval how often the sweep runs.
func NewRegistry(ttl, roomTTL, sweepInterval time.Duration) *Registry {
	return &Registry{
		sessions:      make(map[string]*Session),
		ttl:           ttl,
		roomTTL:       roomTTL,
		sweepInterval: sweepInterval,
	}
}

// OnRemove installs the teardown hook. Must be set during wiring, before
// StartSweep and before any session can be removed.
func (r *Registry) OnRemove(fn RemoveFunc) {
	r.onRemove = fn
}

// CreateSession generates a unique code and registers a new session under it.
func (r *Registry) CreateSession() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < codeRetryBudget; attempt++ {
		code := protocol.GenerateCode()
		if _, taken := r.sessions[code]; taken {
			continue
		}
		s := NewSession(code)
		r.sessions[code] = s
		log.Printf("Created session: code=%s active=%d", code, len(r.sessions))
		return s, nil
	}
	return nil, ErrCodeSpaceExhausted
}

// GetSession looks up a session by code, case-insensitively.
func (r *Registry) GetSession(code string) (*Session, error) {
	code = protocol.NormalizeCode(code)
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[code]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Exists reports whether a session code is currently live.
func (r *Registry) Exists(code string) bool {
	_, err := r.GetSession(code)
	return err == nil
}

// Codes returns the codes of all live sessions.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.sessions))
	for code := range r.sessions {
		codes = append(codes, code)
	}
	return codes
}

// RemoveSession tears down a session explicitly. Idempotent: removing an
// absent code is a no-op.
func (r *Registry) RemoveSession(code string) {
	r.remove(protocol.NormalizeCode(code), "closed")
}

func (r *Registry) remove(code, reason string) {
	r.mu.Lock()
	s, ok := r.sessions[code]
	if ok {
		delete(r.sessions, code)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	log.Printf("Removed session: code=%s reason=%s", code, reason)
	if r.onRemove != nil {
		r.onRemove(s, reason)
	}
}

// StartSweep launches the background expiry sweep. The sweep is the only
// unsupervised background task in the system; StopSweep shuts it down.
func (r *Registry) StartSweep(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.sweepCancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.sweepOnce()
			case <-ctx.Done():
				log.Println("Session sweep stopped")
				return
			}
		}
	}()
}

// StopSweep stops the background sweep and waits for it to exit.
func (r *Registry) StopSweep() {
	if r.sweepCancel != nil {
		r.sweepCancel()
		r.wg.Wait()
	}
}

// sweepOnce expires idle sessions and prunes idle rooms inside live ones.
// Teardown of one session must not abort the sweep of the others, so each
// removal runs behind a recover barrier.
func (r *Registry) sweepOnce() {
	now := time.Now()
	sessionCutoff := now.Add(-r.ttl)
	roomCutoff := now.Add(-r.roomTTL)

	r.mu.RLock()
	var expired []string
	var live []*Session
	for code, s := range r.sessions {
		if s.LastActivity().Before(sessionCutoff) {
			expired = append(expired, code)
		} else {
			live = append(live, s)
		}
	}
	r.mu.RUnlock()

	for _, code := range expired {
		r.removeGuarded(code)
	}
	for _, s := range live {
		if n := s.PruneIdleRooms(roomCutoff); n > 0 {
			log.Printf("Pruned idle rooms: code=%s removed=%d", s.Code(), n)
		}
	}
	if len(expired) > 0 {
		log.Printf("Session sweep expired %d session(s)", len(expired))
	}
}

func (r *Registry) removeGuarded(code string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Session teardown panicked: code=%s err=%v", code, rec)
		}
	}()
	r.remove(code, "expired")
}

// Stats returns live registry counters for the stats endpoint.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := 0
	participants := 0
	for _, s := range r.sessions {
		rooms += s.RoomCount()
		participants += s.ParticipantCount()
	}
	return map[string]int{
		"active_sessions": len(r.sessions),
		"active_rooms":    rooms,
		"participants":    participants,
	}
}
