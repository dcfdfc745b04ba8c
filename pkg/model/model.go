// Package model defines the core domain types for GoRelay.
package model

import "time"

// SessionState is the lifecycle state of a client session.
type SessionState int

const (
	StateAwaitingNickname SessionState = iota // connected, nickname not yet received
	StateActive                               // handshake done, reading commands
	StateClosed                               // torn down
)

func (s SessionState) String() string {
	switch s {
	case StateAwaitingNickname:
		return "awaiting_nickname"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText lets SessionState appear by name in JSON and YAML output.
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SessionInfo is a point-in-time copy of a live session, safe to hand out
// without holding any registry lock.
type SessionInfo struct {
	ID          string       `json:"id"`
	Nickname    string       `json:"nickname"`
	RemoteAddr  string       `json:"remote_addr"`
	Visible     bool         `json:"visible"`
	Rooms       []string     `json:"rooms"`
	State       SessionState `json:"state"`
	ConnectedAt time.Time    `json:"connected_at"`
}

// Member is one entry of the presence listing.
type Member struct {
	Index    int    `json:"index"` // 1-based
	Nickname string `json:"nickname"`
}
