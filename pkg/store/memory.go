package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/NicolasHaas/gorelay/pkg/model"
)

// MemoryStore is an in-memory RoomCatalog for tests and for running without
// a database. It mirrors the SQLite store's validation and ordering.
type MemoryStore struct {
	mu sync.RWMutex

	now   func() time.Time
	rooms []model.Room
	index map[string]int
}

// NewMemory creates a MemoryStore using time.Now().UTC().
func NewMemory() *MemoryStore {
	return NewMemoryWithClock(nil)
}

// NewMemoryWithClock creates a MemoryStore with a custom clock.
func NewMemoryWithClock(now func() time.Time) *MemoryStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &MemoryStore{
		now:   now,
		index: make(map[string]int),
	}
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

// SaveRoom records a room; an already recorded name is left untouched.
func (m *MemoryStore) SaveRoom(room model.Room) error {
	if err := model.ValidateRoomName(room.Name); err != nil {
		return fmt.Errorf("store: save room: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.index[room.Name]; ok {
		return nil
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = m.now()
	}
	// second precision, same as the SQLite column
	room.CreatedAt = room.CreatedAt.UTC().Truncate(time.Second)
	m.index[room.Name] = len(m.rooms)
	m.rooms = append(m.rooms, room)
	return nil
}

// ListRooms returns all rooms in insertion order.
func (m *MemoryStore) ListRooms() ([]model.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.rooms) == 0 {
		return nil, nil
	}
	out := make([]model.Room, len(m.rooms))
	copy(out, m.rooms)
	return out, nil
}
