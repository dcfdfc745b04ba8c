package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// handleMetrics writes all metrics in Prometheus text exposition format.
func (s *Server) handleMetrics(c *gin.Context) {
	m := s.metrics
	w := c.Writer
	uptime := time.Since(m.startTime).Seconds()

	c.Header("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	c.Status(http.StatusOK)

	// Write errors to the response are non-actionable.
	write := func(name, help, mtype string, value int64) {
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		_, _ = fmt.Fprintf(w, "%s %d\n", name, value)
	}
	writeFloat := func(name, help, mtype string, value float64) {
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		_, _ = fmt.Fprintf(w, "%s %f\n", name, value)
	}

	writeFloat("gorelay_uptime_seconds", "Server uptime in seconds.", "gauge", uptime)

	write("gorelay_connections_active", "Current client connections.", "gauge",
		m.ActiveConnections.Load())
	write("gorelay_connections_total", "Lifetime client connections accepted.", "counter",
		m.TotalConnections.Load())
	write("gorelay_handshake_failures_total", "Connections closed before a nickname was received.", "counter",
		m.HandshakeFailures.Load())
	write("gorelay_disconnects_total", "Sessions torn down.", "counter",
		m.TotalDisconnects.Load())
	write("gorelay_sessions", "Registered sessions.", "gauge",
		int64(s.sessions.Count()))

	write("gorelay_broadcasts_total", "Broadcast messages relayed.", "counter",
		m.BroadcastsSent.Load())
	write("gorelay_room_messages_total", "Room messages relayed.", "counter",
		m.RoomMessagesSent.Load())
	write("gorelay_delivery_failures_total", "Failed writes to recipients.", "counter",
		m.DeliveryFailures.Load())

	write("gorelay_rooms", "Rooms in the registry.", "gauge",
		int64(len(s.rooms.ListRooms())))
	write("gorelay_rooms_created_total", "Rooms created.", "counter",
		m.RoomsCreated.Load())

	write("gorelay_malformed_commands_total", "Commands rejected for missing arguments.", "counter",
		m.MalformedCommands.Load())
	write("gorelay_handler_faults_total", "Recovered session handler panics.", "counter",
		m.HandlerFaults.Load())
	write("gorelay_listener_restarts_total", "Chat listener restarts.", "counter",
		m.ListenerRestarts.Load())
}
