package server

import (
	"slices"
	"sync"

	"github.com/NicolasHaas/gorelay/pkg/model"
)

// Presence is the ordered list of nicknames shown by /members.
//
// It is keyed by nickname only: /hide and /reveal act on any name, not just
// the caller's, and a revealed name need not belong to a live session.
type Presence struct {
	mu    sync.RWMutex
	nicks []string
}

// NewPresence creates an empty presence list.
func NewPresence() *Presence {
	return &Presence{}
}

// Hide removes nick from the list.
func (p *Presence) Hide(nick string) error {
	if !p.remove(nick) {
		return ErrNotVisible
	}
	return nil
}

// Reveal appends nick to the list.
func (p *Presence) Reveal(nick string) error {
	if !p.add(nick) {
		return ErrAlreadyVisible
	}
	return nil
}

// Contains reports whether nick is listed.
func (p *Presence) Contains(nick string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Contains(p.nicks, nick)
}

// ListMembers returns the listed nicknames with 1-based indices.
func (p *Presence) ListMembers() []model.Member {
	p.mu.RLock()
	defer p.mu.RUnlock()
	members := make([]model.Member, len(p.nicks))
	for i, nick := range p.nicks {
		members[i] = model.Member{Index: i + 1, Nickname: nick}
	}
	return members
}

func (p *Presence) add(nick string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if slices.Contains(p.nicks, nick) {
		return false
	}
	p.nicks = append(p.nicks, nick)
	return true
}

func (p *Presence) remove(nick string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := slices.Index(p.nicks, nick)
	if i < 0 {
		return false
	}
	p.nicks = slices.Delete(p.nicks, i, i+1)
	return true
}
