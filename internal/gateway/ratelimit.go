package gateway

import (
	"sync"
	"time"
)

const (
	frameLimitPerWindow = 120
	frameLimitWindow    = time.Minute
)

// frameLimiter caps inbound frames per socket with a fixed window. One
// misbehaving client page must not be able to flood the dispatch path for a
// whole classroom.
type frameLimiter struct {
	mu      sync.Mutex
	windows map[string]*frameWindow
}

type frameWindow struct {
	count int
	start time.Time
}

func newFrameLimiter() *frameLimiter {
	return &frameLimiter{windows: make(map[string]*frameWindow)}
}

// allow counts one frame against the socket's window.
func (l *frameLimiter) allow(socketID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[socketID]
	if !ok || now.Sub(w.start) >= frameLimitWindow {
		l.windows[socketID] = &frameWindow{count: 1, start: now}
		return true
	}
	if w.count >= frameLimitPerWindow {
		return false
	}
	w.count++
	return true
}

// forget drops a socket's window on disconnect.
func (l *frameLimiter) forget(socketID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, socketID)
}
