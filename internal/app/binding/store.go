// Package binding holds the client's current room assignment. One Store is
// shared by everything in a client process: invitations write it, call
// screens read it and watch it for changes made behind their back.
package binding

import (
	"sync"

	"github.com/dkeye/Interview/internal/domain"
	"github.com/rs/zerolog/log"
)

type Store struct {
	mu      sync.RWMutex
	current domain.InvitationBinding
	seq     int
	subs    map[int]func(domain.InvitationBinding)
}

func NewStore() *Store {
	return &Store{subs: make(map[int]func(domain.InvitationBinding))}
}

func (s *Store) Get() domain.InvitationBinding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) Set(b domain.InvitationBinding) {
	s.mu.Lock()
	changed := s.current != b
	s.current = b
	subs := s.snapshotLocked()
	s.mu.Unlock()
	if !changed {
		return
	}
	log.Info().Str("module", "binding").Str("room", string(b.RoomID)).Str("application", string(b.ApplicationID)).Msg("binding set")
	notify(subs, b)
}

func (s *Store) Clear() {
	s.mu.Lock()
	changed := !s.current.IsZero()
	s.current = domain.InvitationBinding{}
	subs := s.snapshotLocked()
	s.mu.Unlock()
	if !changed {
		return
	}
	log.Info().Str("module", "binding").Msg("binding cleared")
	notify(subs, domain.InvitationBinding{})
}

// ClearIf clears the binding only while it still points at room, so a
// session ending late cannot wipe a newer assignment.
func (s *Store) ClearIf(room domain.RoomID) bool {
	s.mu.Lock()
	if s.current.IsZero() || s.current.RoomID != room {
		s.mu.Unlock()
		return false
	}
	s.current = domain.InvitationBinding{}
	subs := s.snapshotLocked()
	s.mu.Unlock()
	log.Info().Str("module", "binding").Str("room", string(room)).Msg("binding cleared")
	notify(subs, domain.InvitationBinding{})
	return true
}

// Subscribe calls fn with the new value after every change, outside the
// store lock. The returned func cancels the subscription.
func (s *Store) Subscribe(fn func(domain.InvitationBinding)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := s.seq
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) snapshotLocked() []func(domain.InvitationBinding) {
	out := make([]func(domain.InvitationBinding), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(domain.InvitationBinding), b domain.InvitationBinding) {
	for _, fn := range subs {
		fn(b)
	}
}
