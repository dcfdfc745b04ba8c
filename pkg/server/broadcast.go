package server

import (
	"errors"
	"log/slog"

	"github.com/NicolasHaas/gorelay/pkg/model"
	"github.com/NicolasHaas/gorelay/pkg/protocol"
)

// Broadcast writes text to every registered session except exclude and
// returns the number of successful deliveries. A failed recipient is closed;
// its own goroutine then tears it down.
func (s *Server) Broadcast(text string, exclude *Session) int {
	delivered := 0
	for _, target := range s.sessions.All() {
		if target == exclude {
			continue
		}
		if s.deliver(target, text) {
			delivered++
		}
	}
	return delivered
}

// SendToRoom relays a message from sender to every member of the room,
// sender included. Any session may post to an existing room.
func (s *Server) SendToRoom(name string, sender *Session, body string) (int, error) {
	members, err := s.rooms.Members(name)
	if err != nil {
		return 0, err
	}
	env := protocol.RoomEnvelope(s.now(), name, sender.Nickname(), body)
	delivered := 0
	for _, target := range members {
		if s.deliver(target, env) {
			delivered++
		}
	}
	s.metrics.RoomMessagesSent.Add(1)
	return delivered, nil
}

// CreateRoom creates a room with creator as its first member and records it
// in the room catalog.
func (s *Server) CreateRoom(name string, creator *Session) error {
	meta, err := s.rooms.CreateRoom(name, creator)
	if err != nil {
		return err
	}
	s.metrics.RoomsCreated.Add(1)
	s.persistRoom(meta)
	slog.Info("room created", "room", name, "by", meta.CreatedBy)
	return nil
}

// persistRoom saves a room to the catalog. A catalog failure is logged and
// the room stays usable for this run.
func (s *Server) persistRoom(meta model.Room) {
	if s.catalog == nil {
		return
	}
	if err := s.catalog.SaveRoom(meta); err != nil {
		slog.Error("failed to persist room", "room", meta.Name, "err", err)
	}
}

// deliver sends one line to target. A session already closed is skipped
// silently; any other failure drops the recipient.
func (s *Server) deliver(target *Session, text string) bool {
	err := target.Send(text)
	if err == nil {
		return true
	}
	if errors.Is(err, ErrSessionClosed) {
		return false
	}
	s.metrics.DeliveryFailures.Add(1)
	slog.Warn("delivery failed, dropping recipient",
		"session", target.ID(), "nick", target.Nickname(), "err", err)
	_ = target.Close()
	return false
}
