package server

import (
	"sort"
	"sync"
	"time"

	"github.com/NicolasHaas/gorelay/pkg/model"
)

// RoomInfo is a snapshot of one room and its members' nicknames.
type RoomInfo struct {
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Members   []string  `json:"members"`
}

type room struct {
	meta    model.Room
	members map[string]*Session // sessionID -> session
}

// RoomRegistry owns every room and its membership. Membership changes update
// the session's own room set under the registry lock, so the two views never
// disagree.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*room
	order []string // creation order
	now   func() time.Time
}

// NewRoomRegistry creates an empty registry.
func NewRoomRegistry(now func() time.Time) *RoomRegistry {
	if now == nil {
		now = time.Now
	}
	return &RoomRegistry{
		rooms: make(map[string]*room),
		now:   now,
	}
}

// CreateRoom adds a room. A non-nil creator becomes its first member.
func (rr *RoomRegistry) CreateRoom(name string, creator *Session) (model.Room, error) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if _, exists := rr.rooms[name]; exists {
		return model.Room{}, ErrRoomExists
	}
	r := &room{
		meta:    model.Room{Name: name, CreatedAt: rr.now().UTC()},
		members: make(map[string]*Session),
	}
	if creator != nil {
		r.meta.CreatedBy = creator.Nickname()
		r.members[creator.ID()] = creator
		creator.addRoom(name)
	}
	rr.rooms[name] = r
	rr.order = append(rr.order, name)
	return r.meta, nil
}

// Restore adds a persisted room if it is not already present.
// It reports whether the room was added.
func (rr *RoomRegistry) Restore(meta model.Room) bool {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if _, exists := rr.rooms[meta.Name]; exists {
		return false
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = rr.now().UTC()
	}
	rr.rooms[meta.Name] = &room{meta: meta, members: make(map[string]*Session)}
	rr.order = append(rr.order, meta.Name)
	return true
}

// Join adds s to an existing room.
func (rr *RoomRegistry) Join(name string, s *Session) error {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	r, ok := rr.rooms[name]
	if !ok {
		return ErrRoomNotFound
	}
	if _, member := r.members[s.ID()]; member {
		return ErrAlreadyMember
	}
	r.members[s.ID()] = s
	s.addRoom(name)
	return nil
}

// Leave removes s from a room. Empty rooms are kept.
func (rr *RoomRegistry) Leave(name string, s *Session) error {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	r, ok := rr.rooms[name]
	if !ok {
		return ErrRoomNotFound
	}
	if _, member := r.members[s.ID()]; !member {
		return ErrNotMember
	}
	delete(r.members, s.ID())
	s.removeRoom(name)
	return nil
}

// LeaveAll removes s from every room it joined and returns their names.
func (rr *RoomRegistry) LeaveAll(s *Session) []string {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	var left []string
	for _, name := range rr.order {
		r := rr.rooms[name]
		if _, member := r.members[s.ID()]; member {
			delete(r.members, s.ID())
			s.removeRoom(name)
			left = append(left, name)
		}
	}
	return left
}

// Exists reports whether a room with this name exists.
func (rr *RoomRegistry) Exists(name string) bool {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	_, ok := rr.rooms[name]
	return ok
}

// ListRooms returns room names in creation order.
func (rr *RoomRegistry) ListRooms() []string {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	names := make([]string, len(rr.order))
	copy(names, rr.order)
	return names
}

// Members returns the sessions in a room (snapshot).
func (rr *RoomRegistry) Members(name string) ([]*Session, error) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	r, ok := rr.rooms[name]
	if !ok {
		return nil, ErrRoomNotFound
	}
	result := make([]*Session, 0, len(r.members))
	for _, s := range r.members {
		result = append(result, s)
	}
	return result, nil
}

// MembersCount returns how many sessions are in a room.
func (rr *RoomRegistry) MembersCount(name string) int {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	if r, ok := rr.rooms[name]; ok {
		return len(r.members)
	}
	return 0
}

// Snapshot returns every room with its members' nicknames, sorted.
func (rr *RoomRegistry) Snapshot() []RoomInfo {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	infos := make([]RoomInfo, 0, len(rr.order))
	for _, name := range rr.order {
		r := rr.rooms[name]
		members := make([]string, 0, len(r.members))
		for _, s := range r.members {
			members = append(members, s.Nickname())
		}
		sort.Strings(members)
		infos = append(infos, RoomInfo{
			Name:      r.meta.Name,
			CreatedBy: r.meta.CreatedBy,
			CreatedAt: r.meta.CreatedAt,
			Members:   members,
		})
	}
	return infos
}
