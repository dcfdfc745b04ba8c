package server

import (
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/NicolasHaas/gorelay/pkg/model"
	"github.com/NicolasHaas/gorelay/pkg/protocol"
)

// Session is the server-side record of one connected client: its connection,
// nickname, visibility and joined rooms.
type Session struct {
	id           string
	conn         net.Conn
	remoteAddr   string
	connectedAt  time.Time
	writeTimeout time.Duration

	// set once by the handshake, before the session is registered
	nickname string

	writeMu sync.Mutex // serializes writes so replies never interleave
	closed  atomic.Bool

	mu      sync.RWMutex
	state   model.SessionState
	visible bool
	rooms   map[string]struct{} // mutated only by RoomRegistry, under its lock
}

func newSession(conn net.Conn, writeTimeout time.Duration) *Session {
	remote := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	return &Session{
		id:           uuid.NewString(),
		conn:         conn,
		remoteAddr:   remote,
		connectedAt:  time.Now(),
		writeTimeout: writeTimeout,
		state:        model.StateAwaitingNickname,
		visible:      true,
		rooms:        make(map[string]struct{}),
	}
}

// ID returns the opaque session key.
func (s *Session) ID() string { return s.id }

// Nickname returns the display name chosen at handshake.
func (s *Session) Nickname() string { return s.nickname }

// activate completes the handshake.
func (s *Session) activate(nickname string) {
	s.nickname = nickname
	s.setState(model.StateActive)
}

// Send writes one line to the client. It fails with ErrSessionClosed once the
// session has been closed, so nothing is written after teardown.
func (s *Session) Send(text string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Load() {
		return ErrSessionClosed
	}
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	return protocol.WriteLine(s.conn, text)
}

// Close marks the session closed and closes its connection, which unblocks
// the session's reader. Safe to call more than once.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.setState(model.StateClosed)
	return s.conn.Close()
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool { return s.closed.Load() }

func (s *Session) State() model.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(state model.SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Visible reports whether the session's nickname is currently advertised.
func (s *Session) Visible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visible
}

func (s *Session) setVisible(v bool) {
	s.mu.Lock()
	s.visible = v
	s.mu.Unlock()
}

// Rooms returns the names of joined rooms, sorted.
func (s *Session) Rooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.rooms))
	for name := range s.rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InRoom reports whether the session has joined the named room.
func (s *Session) InRoom(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[name]
	return ok
}

func (s *Session) addRoom(name string) {
	s.mu.Lock()
	s.rooms[name] = struct{}{}
	s.mu.Unlock()
}

func (s *Session) removeRoom(name string) {
	s.mu.Lock()
	delete(s.rooms, name)
	s.mu.Unlock()
}

// Info returns a snapshot of the session.
func (s *Session) Info() model.SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]string, 0, len(s.rooms))
	for name := range s.rooms {
		rooms = append(rooms, name)
	}
	sort.Strings(rooms)
	return model.SessionInfo{
		ID:          s.id,
		Nickname:    s.nickname,
		RemoteAddr:  s.remoteAddr,
		Visible:     s.visible,
		Rooms:       rooms,
		State:       s.state,
		ConnectedAt: s.connectedAt,
	}
}

// SessionManager is the global registry of active sessions, keyed by ID.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionManager creates an empty registry.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
	}
}

// Add registers a session. It returns false if the ID is already present.
func (sm *SessionManager) Add(s *Session) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, exists := sm.sessions[s.id]; exists {
		return false
	}
	sm.sessions[s.id] = s
	return true
}

// Remove unregisters a session. Only the first call for an ID returns true,
// which is what makes teardown run exactly once.
func (sm *SessionManager) Remove(id string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, ok := sm.sessions[id]; !ok {
		return false
	}
	delete(sm.sessions, id)
	return true
}

// Get retrieves a session by ID.
func (sm *SessionManager) Get(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// Count returns the number of active sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// CountNickname returns how many active sessions use nickname.
func (sm *SessionManager) CountNickname(nickname string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	n := 0
	for _, s := range sm.sessions {
		if s.nickname == nickname {
			n++
		}
	}
	return n
}

// SetVisible updates the visibility flag of every session using nickname.
func (sm *SessionManager) SetVisible(nickname string, visible bool) {
	for _, s := range sm.All() {
		if s.nickname == nickname {
			s.setVisible(visible)
		}
	}
}

// All returns all active sessions (snapshot).
func (sm *SessionManager) All() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	result := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		result = append(result, s)
	}
	return result
}

// Infos returns snapshots of all sessions ordered by connect time.
func (sm *SessionManager) Infos() []model.SessionInfo {
	sessions := sm.All()
	infos := make([]model.SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ConnectedAt.Before(infos[j].ConnectedAt)
	})
	return infos
}
