package gateway

import "sync"

// connRegistry tracks live connections by socket ID. Session membership is
// owned by the session layer; this map only resolves socket IDs back to
// writable connections during fan-out.
type connRegistry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

func newConnRegistry() *connRegistry {
	return &connRegistry{conns: make(map[string]*Connection)}
}

func (r *connRegistry) register(conn *Connection) error {
	if conn == nil {
		return ErrNilConnection
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.ID()] = conn
	return nil
}

// unregister is idempotent and only removes the exact instance registered,
// so a replaced connection's late cleanup never evicts its successor.
func (r *connRegistry) unregister(conn *Connection) {
	if conn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if registered, ok := r.conns[conn.ID()]; ok && registered == conn {
		delete(r.conns, conn.ID())
	}
}

func (r *connRegistry) get(socketID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[socketID]
	return conn, ok
}

func (r *connRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
