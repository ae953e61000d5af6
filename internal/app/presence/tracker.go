// Package presence covers both ends of the liveness signal: the client's
// heartbeat and the hub's freshness tracker.
package presence

import (
	"sync"
	"time"

	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
)

type sighting struct {
	room domain.RoomID
	at   time.Time
}

// Tracker remembers the last heartbeat per user. A heartbeat is evidence
// of presence only within window; older ones count as absent.
type Tracker struct {
	clock  core.Clock
	window time.Duration

	mu   sync.RWMutex
	seen map[domain.UserID]sighting
}

func NewTracker(clock core.Clock, window time.Duration) *Tracker {
	return &Tracker{
		clock:  clock,
		window: window,
		seen:   make(map[domain.UserID]sighting),
	}
}

func (t *Tracker) Observe(user domain.UserID, room domain.RoomID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen[user] = sighting{room: room, at: t.clock.Now()}
}

func (t *Tracker) Forget(user domain.UserID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.seen, user)
}

// Lookup returns the room user was last seen in, if still fresh.
func (t *Tracker) Lookup(user domain.UserID) (domain.RoomID, bool) {
	t.mu.RLock()
	s, ok := t.seen[user]
	t.mu.RUnlock()
	if !ok || t.clock.Now().Sub(s.at) > t.window {
		return "", false
	}
	return s.room, true
}

// Prune drops stale sightings and returns how many were removed.
func (t *Tracker) Prune() int {
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for u, s := range t.seen {
		if now.Sub(s.at) > t.window {
			delete(t.seen, u)
			n++
		}
	}
	return n
}
