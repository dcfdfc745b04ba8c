// Package server implements the GoRelay chat relay server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/NicolasHaas/gorelay/pkg/protocol"
	"github.com/NicolasHaas/gorelay/pkg/store"
)

// Config holds server configuration.
type Config struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	HTTPAddr   string `yaml:"http_addr"`   // admin HTTP and WebSocket gateway (empty = disabled)
	DBPath     string `yaml:"db_path"`     // SQLite room catalog (empty = rooms are not persisted)
	RoomsFile  string `yaml:"rooms_file"`  // YAML file of rooms to create on startup
	WatchRooms bool   `yaml:"watch_rooms"` // re-import RoomsFile when it changes

	HandshakeTimeout time.Duration `yaml:"handshake_timeout"` // 0 = wait forever for a nickname
	WriteTimeout     time.Duration `yaml:"write_timeout"`     // 0 = no write deadline
	MaxLineLength    int           `yaml:"max_line_length"`
	ListenerRetries  int           `yaml:"listener_retries"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
	MetricsInterval  time.Duration `yaml:"metrics_interval"` // periodic metrics log (0 = disabled)

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:             "127.0.0.1",
		Port:             44444,
		HandshakeTimeout: 30 * time.Second,
		WriteTimeout:     10 * time.Second,
		MaxLineLength:    protocol.DefaultMaxLineLength,
		ListenerRetries:  5,
		ShutdownTimeout:  5 * time.Second,
		MetricsInterval:  60 * time.Second,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Address returns the host:port the chat listener binds to.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.MaxLineLength < protocol.MinLineLength {
		errs = append(errs, fmt.Errorf("max_line_length must be at least %d", protocol.MinLineLength))
	}
	if c.HandshakeTimeout < 0 || c.WriteTimeout < 0 || c.ShutdownTimeout < 0 || c.MetricsInterval < 0 {
		errs = append(errs, errors.New("timeouts and intervals must not be negative"))
	}
	if c.ListenerRetries < 0 {
		errs = append(errs, errors.New("listener_retries must not be negative"))
	}
	if c.WatchRooms && c.RoomsFile == "" {
		errs = append(errs, errors.New("watch_rooms requires rooms_file"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("server: invalid config: %w", err)
	}
	return nil
}

// ListenFunc opens the chat listener. net.Listen satisfies it.
type ListenFunc func(network, address string) (net.Listener, error)

// Dependencies holds external dependencies for the server.
// All fields are optional.
type Dependencies struct {
	Catalog store.RoomCatalog // persists created rooms; nil keeps rooms in memory only
	Listen  ListenFunc        // default net.Listen
	Clock   func() time.Time  // default time.Now; stamps message envelopes
}

// Server is the main GoRelay server.
type Server struct {
	cfg      Config
	sessions *SessionManager
	rooms    *RoomRegistry
	presence *Presence
	metrics  *Metrics
	catalog  store.RoomCatalog
	listen   ListenFunc
	now      func() time.Time

	mu       sync.Mutex // guards listener, closing, conns
	listener net.Listener
	closing  bool
	conns    map[net.Conn]struct{} // accepted and not yet released
	wg       sync.WaitGroup        // one per tracked connection

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Server instance.
func New(cfg Config, deps Dependencies) *Server {
	if deps.Listen == nil {
		deps.Listen = net.Listen
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if cfg.MaxLineLength <= 0 {
		cfg.MaxLineLength = protocol.DefaultMaxLineLength
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      cfg,
		sessions: NewSessionManager(),
		rooms:    NewRoomRegistry(deps.Clock),
		presence: NewPresence(),
		metrics:  NewMetrics(),
		catalog:  deps.Catalog,
		listen:   deps.Listen,
		now:      deps.Clock,
		conns:    make(map[net.Conn]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Rooms returns the room registry.
func (s *Server) Rooms() *RoomRegistry {
	return s.rooms
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Presence returns the presence list.
func (s *Server) Presence() *Presence {
	return s.presence
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Addr returns the bound chat listener address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
