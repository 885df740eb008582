package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"classhub/internal/room"
	"classhub/pkg/interfaces"
	"classhub/pkg/protocol"
)

// SessionRegistry is the slice of the session layer the HTTP surface needs.
type SessionRegistry interface {
	Exists(code string) bool
	Stats() map[string]int
}

// ConnectionCounter reports live socket counts, implemented by the gateway.
type ConnectionCounter interface {
	ConnectionCount() int
}

// Server is the read-only HTTP surface next to the websocket gateway. No
// business logic lives here, only JSON serialization over the registry,
// gateway, and store.
type Server struct {
	sessions SessionRegistry
	gateway  ConnectionCounter
	store    interfaces.SnapshotStore
	router   *mux.Router
	started  time.Time
}

// NewServer wires the HTTP routes.
func NewServer(sessions SessionRegistry, gateway ConnectionCounter, store interfaces.SnapshotStore) *Server {
	s := &Server{
		sessions: sessions,
		gateway:  gateway,
		store:    store,
		router:   mux.NewRouter(),
		started:  time.Now(),
	}
	s.router.HandleFunc("/health", s.healthCheck).Methods(http.MethodGet)
	s.router.HandleFunc("/api/stats", s.stats).Methods(http.MethodGet)
	s.router.HandleFunc("/api/sessions/{code}/exists", s.sessionExists).Methods(http.MethodGet)
	s.router.HandleFunc("/api/widgets", s.widgets).Methods(http.MethodGet)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
	Uptime    string    `json:"uptime"`
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, dbStatus := "healthy", "healthy"
	if err := s.store.HealthCheck(ctx); err != nil {
		status = "unhealthy"
		dbStatus = err.Error()
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, healthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Database:  dbStatus,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	})
}

type statsResponse struct {
	ActiveSessions  int `json:"active_sessions"`
	ActiveRooms     int `json:"active_rooms"`
	Participants    int `json:"participants"`
	Connections     int `json:"connections"`
	LifetimeCreated int `json:"lifetime_sessions"`
	LifetimeExpired int `json:"lifetime_expired"`
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	live := s.sessions.Stats()
	resp := statsResponse{
		ActiveSessions: live["active_sessions"],
		ActiveRooms:    live["active_rooms"],
		Participants:   live["participants"],
		Connections:    s.gateway.ConnectionCount(),
	}
	// Lifetime counters are best-effort; a store hiccup must not break stats.
	if created, expired, err := s.store.CountSessions(r.Context()); err == nil {
		resp.LifetimeCreated = created
		resp.LifetimeExpired = expired
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type existsResponse struct {
	Code   string `json:"code"`
	Exists bool   `json:"exists"`
}

// sessionExists lets the student client pre-validate a typed code before
// opening a websocket.
func (s *Server) sessionExists(w http.ResponseWriter, r *http.Request) {
	code := protocol.NormalizeCode(mux.Vars(r)["code"])
	if !protocol.IsValidCode(code) {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "code must be 5 characters from the session alphabet",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, existsResponse{Code: code, Exists: s.sessions.Exists(code)})
}

type widgetInfo struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// widgets is the static capability catalog teacher clients discover room
// kinds from.
func (s *Server) widgets(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, []widgetInfo{
		{Type: string(room.KindPoll), Name: "Poll", Description: "Single-question poll with live results"},
		{Type: string(room.KindLinkShare), Name: "Link Share", Description: "Ordered student submissions, links or free text"},
		{Type: string(room.KindFeedback), Name: "Feedback", Description: "Lesson rating 1-5 with optional comments"},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
