package server

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"
)

// Metrics tracks server runtime statistics.
// All counters use atomic operations for lock-free concurrent access.
type Metrics struct {
	startTime time.Time

	// Connection counters
	TotalConnections  atomic.Int64 // lifetime connections accepted (TCP and WebSocket)
	ActiveConnections atomic.Int64 // current connections, including those still in handshake
	HandshakeFailures atomic.Int64 // connections that closed before sending a nickname
	TotalDisconnects  atomic.Int64 // registered sessions torn down

	// Message counters
	BroadcastsSent   atomic.Int64 // /broadcast messages relayed
	RoomMessagesSent atomic.Int64 // /room messages relayed
	DeliveryFailures atomic.Int64 // writes to a recipient that failed

	// Room counters
	RoomsCreated atomic.Int64 // rooms created during this run

	// Fault counters
	MalformedCommands atomic.Int64 // commands rejected for missing arguments
	HandlerFaults     atomic.Int64 // panics recovered from session goroutines
	ListenerRestarts  atomic.Int64 // times the chat listener was recreated
}

// NewMetrics creates a new Metrics instance with the start time set to now.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	ActiveConnections int64 `json:"active_connections"`
	TotalConnections  int64 `json:"total_connections"`
	HandshakeFailures int64 `json:"handshake_failures"`
	TotalDisconnects  int64 `json:"total_disconnects"`

	BroadcastsSent   int64 `json:"broadcasts_sent"`
	RoomMessagesSent int64 `json:"room_messages_sent"`
	DeliveryFailures int64 `json:"delivery_failures"`

	RoomsCreated int64 `json:"rooms_created"`

	MalformedCommands int64 `json:"malformed_commands"`
	HandlerFaults     int64 `json:"handler_faults"`
	ListenerRestarts  int64 `json:"listener_restarts"`
}

// Snapshot returns a read-consistent snapshot of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	uptime := time.Since(m.startTime)
	return MetricsSnapshot{
		Uptime:            uptime.Truncate(time.Second).String(),
		UptimeSeconds:     int64(uptime.Seconds()),
		ActiveConnections: m.ActiveConnections.Load(),
		TotalConnections:  m.TotalConnections.Load(),
		HandshakeFailures: m.HandshakeFailures.Load(),
		TotalDisconnects:  m.TotalDisconnects.Load(),
		BroadcastsSent:    m.BroadcastsSent.Load(),
		RoomMessagesSent:  m.RoomMessagesSent.Load(),
		DeliveryFailures:  m.DeliveryFailures.Load(),
		RoomsCreated:      m.RoomsCreated.Load(),
		MalformedCommands: m.MalformedCommands.Load(),
		HandlerFaults:     m.HandlerFaults.Load(),
		ListenerRestarts:  m.ListenerRestarts.Load(),
	}
}

// JSON returns the metrics snapshot as a JSON string.
func (m *Metrics) JSON() string {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// LogSummary writes a metrics summary to the logger.
func (m *Metrics) LogSummary() {
	s := m.Snapshot()
	slog.Info("metrics",
		"uptime", s.Uptime,
		"connections", s.ActiveConnections,
		"total_connections", s.TotalConnections,
		"broadcasts", s.BroadcastsSent,
		"room_msgs", s.RoomMessagesSent,
		"delivery_failures", s.DeliveryFailures,
		"handler_faults", s.HandlerFaults,
	)
}

// LogPeriodically logs a summary every interval until done is closed.
func (m *Metrics) LogPeriodically(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			m.LogSummary()
		}
	}
}
