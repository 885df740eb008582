package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the system-wide settings tree, one section per subsystem.
type Config struct {
	HTTP      *HTTPConfig      `json:"http"`
	WebSocket *WebSocketConfig `json:"websocket"`
	Session   *SessionConfig   `json:"session"`
	Database  *DatabaseConfig  `json:"database"`
}

type HTTPConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// Addr returns the host:port the HTTP server binds to.
func (c *HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type WebSocketConfig struct {
	PingInterval time.Duration `json:"ping_interval"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	SendBuffer   int           `json:"send_buffer"`
}

// SessionConfig drives the registry lifecycle: TTL is the session inactivity
// window, RoomTTL the per-room idle window, SweepInterval the cleanup cadence.
type SessionConfig struct {
	TTL           time.Duration `json:"ttl"`
	RoomTTL       time.Duration `json:"room_ttl"`
	SweepInterval time.Duration `json:"sweep_interval"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

// DefaultConfig returns production defaults sized for classroom scale:
// tens of sessions, each with a handful of rooms and 20-40 students.
func DefaultConfig() *Config {
	return &Config{
		HTTP: &HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		WebSocket: &WebSocketConfig{
			PingInterval: 30 * time.Second,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 10 * time.Second,
			SendBuffer:   100,
		},
		Session: &SessionConfig{
			TTL:           2 * time.Hour,
			RoomTTL:       4 * time.Hour,
			SweepInterval: time.Minute,
		},
		Database: &DatabaseConfig{
			Path: "./classhub.db",
		},
	}
}

// Validate rejects configurations that would fail at runtime.
func (c *Config) Validate() error {
	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP timeouts must be positive")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}

	if c.WebSocket == nil {
		return fmt.Errorf("WebSocket configuration is required")
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("WebSocket ping interval must be positive")
	}
	if c.WebSocket.ReadTimeout <= c.WebSocket.PingInterval {
		return fmt.Errorf("WebSocket read timeout must exceed the ping interval")
	}
	if c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("WebSocket write timeout must be positive")
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("WebSocket send buffer must be positive")
	}

	if c.Session == nil {
		return fmt.Errorf("session configuration is required")
	}
	if c.Session.TTL <= 0 || c.Session.RoomTTL <= 0 {
		return fmt.Errorf("session and room TTLs must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session sweep interval must be positive")
	}

	if c.Database == nil || c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	return nil
}

// LoadFromEnv returns defaults overridden by CLASSHUB_* environment
// variables. Unparseable values fall back silently to the default.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	if host := os.Getenv("CLASSHUB_HTTP_HOST"); host != "" {
		cfg.HTTP.Host = host
	}
	if port := os.Getenv("CLASSHUB_HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.HTTP.Port = p
		}
	}
	envDuration("CLASSHUB_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout)
	envDuration("CLASSHUB_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout)

	envDuration("CLASSHUB_WEBSOCKET_PING_INTERVAL", &cfg.WebSocket.PingInterval)
	envDuration("CLASSHUB_WEBSOCKET_READ_TIMEOUT", &cfg.WebSocket.ReadTimeout)
	envDuration("CLASSHUB_WEBSOCKET_WRITE_TIMEOUT", &cfg.WebSocket.WriteTimeout)
	if size := os.Getenv("CLASSHUB_WEBSOCKET_SEND_BUFFER"); size != "" {
		if n, err := strconv.Atoi(size); err == nil {
			cfg.WebSocket.SendBuffer = n
		}
	}

	envDuration("CLASSHUB_SESSION_TTL", &cfg.Session.TTL)
	envDuration("CLASSHUB_SESSION_ROOM_TTL", &cfg.Session.RoomTTL)
	envDuration("CLASSHUB_SESSION_SWEEP_INTERVAL", &cfg.Session.SweepInterval)

	if path := os.Getenv("CLASSHUB_DATABASE_PATH"); path != "" {
		cfg.Database.Path = path
	}
	return cfg
}

func envDuration(name string, target *time.Duration) {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*target = d
		}
	}
}
