package store

import "github.com/NicolasHaas/gorelay/pkg/model"

// RoomCatalog records which rooms exist so they survive a restart.
// Membership and messages are never stored.
type RoomCatalog interface {
	// Close closes the underlying storage connection.
	Close() error

	// SaveRoom records a room. Saving a name that is already recorded is a
	// no-op and keeps the original creator and timestamp.
	SaveRoom(room model.Room) error

	// ListRooms returns all recorded rooms in the order they were first saved.
	ListRooms() ([]model.Room, error)
}

// Compile-time checks.
var (
	_ RoomCatalog = (*Store)(nil)
	_ RoomCatalog = (*MemoryStore)(nil)
)
