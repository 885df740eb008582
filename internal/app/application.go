package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/rs/cors"

	"classhub/internal/api"
	"classhub/internal/config"
	"classhub/internal/gateway"
	"classhub/internal/session"
	"classhub/internal/store"
	"classhub/pkg/interfaces"
)

// Application owns every component and their lifecycle. Construction order
// matters: store first, then the session registry, then the gateway that
// serves both, then the HTTP surface on top.
type Application struct {
	config   *config.Config
	store    interfaces.SnapshotStore
	sessions *session.Registry
	gateway  *gateway.Handler
	server   *http.Server

	sweepCancel context.CancelFunc
}

// New builds a fully wired Application from validated config.
func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	registry := session.NewRegistry(cfg.Session.TTL, cfg.Session.RoomTTL, cfg.Session.SweepInterval)

	gw := gateway.NewHandler(registry, st, gateway.Config{
		PingInterval: cfg.WebSocket.PingInterval,
		ReadTimeout:  cfg.WebSocket.ReadTimeout,
		WriteTimeout: cfg.WebSocket.WriteTimeout,
		SendBuffer:   cfg.WebSocket.SendBuffer,
	})

	// When a session goes away, for whatever reason, its sockets get closed
	// and the lifecycle row lands in the store.
	registry.OnRemove(func(s *session.Session, reason string) {
		gw.CloseSessionSockets(s)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.RecordSessionClosed(ctx, s.Code(), time.Now(), reason); err != nil {
			log.Printf("Failed to record close of session %s: %v", s.Code(), err)
		}
	})

	apiServer := api.NewServer(registry, gw, st)

	root := http.NewServeMux()
	root.HandleFunc("/ws", gw.HandleWebSocket)
	root.Handle("/", apiServer)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(root)

	app := &Application{
		config:   cfg,
		store:    st,
		sessions: registry,
		gateway:  gw,
		server: &http.Server{
			Addr:         cfg.HTTP.Addr(),
			Handler:      corsHandler,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		},
	}
	return app, nil
}

// Start launches the expiry sweeper and the HTTP listener. It blocks until
// the server stops.
func (a *Application) Start() error {
	sweepCtx, cancel := context.WithCancel(context.Background())
	a.sweepCancel = cancel
	a.sessions.StartSweep(sweepCtx)

	log.Printf("classhub listening on %s", a.config.HTTP.Addr())
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Stop shuts components down in reverse order of construction.
func (a *Application) Stop(ctx context.Context) error {
	log.Printf("shutting down")

	if err := a.server.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	if a.sweepCancel != nil {
		a.sweepCancel()
	}
	a.sessions.StopSweep()

	// Tear down remaining sessions so close records are written before the
	// store goes away.
	for _, code := range a.sessions.Codes() {
		a.sessions.RemoveSession(code)
	}

	if err := a.store.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot store: %w", err)
	}
	log.Printf("shutdown complete")
	return nil
}
