package hub

import (
	"context"
	"sort"
	"sync"

	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	User   domain.UserID
	Room   domain.RoomID
	Conn   core.SignalConnection
	Cancel context.CancelFunc
}

// Registry tracks live signaling connections, the room each one is in and
// which users each one watches.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	watchers map[domain.UserID]map[core.SessionID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
		watchers: make(map[domain.UserID]map[core.SessionID]struct{}),
	}
}

func (r *Registry) Bind(sid core.SessionID, user domain.UserID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{User: user, Conn: conn, Cancel: cancel}
	log.Info().Str("module", "hub.registry").Str("sid", string(sid)).Str("user", string(user)).Msg("bound signal")
}

// Unbind forgets sid and returns what it was bound to.
func (r *Registry) Unbind(sid core.SessionID) (sessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return sessionEntry{}, false
	}
	delete(r.sessions, sid)
	for user, set := range r.watchers {
		delete(set, sid)
		if len(set) == 0 {
			delete(r.watchers, user)
		}
	}
	log.Info().Str("module", "hub.registry").Str("sid", string(sid)).Msg("unbind session")
	return *e, true
}

func (r *Registry) UserOf(sid core.SessionID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return "", false
	}
	return e.User, true
}

func (r *Registry) RoomOf(sid core.SessionID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.Room == "" {
		return "", false
	}
	return e.Room, true
}

func (r *Registry) UpdateRoom(sid core.SessionID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	e.Room = room
	log.Info().Str("module", "hub.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("updated room")
	return true
}

// RemoveRoom clears the room of sid and returns it.
func (r *Registry) RemoveRoom(sid core.SessionID) (domain.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok || e.Room == "" {
		return "", false
	}
	room := e.Room
	e.Room = ""
	log.Info().Str("module", "hub.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("removed room association")
	return room, true
}

func (r *Registry) Watch(sid core.SessionID, user domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sid]; !ok {
		return false
	}
	set := r.watchers[user]
	if set == nil {
		set = make(map[core.SessionID]struct{})
		r.watchers[user] = set
	}
	set[sid] = struct{}{}
	return true
}

type regSnap struct {
	SID  core.SessionID
	User domain.UserID
	Conn core.SignalConnection
}

func (r *Registry) Get(sid core.SessionID) (regSnap, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return regSnap{}, false
	}
	return regSnap{SID: sid, User: e.User, Conn: e.Conn}, true
}

func (r *Registry) MembersOfRoom(room domain.RoomID) []regSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]regSnap, 0, 2)
	for sid, e := range r.sessions {
		if e.Room == room {
			out = append(out, regSnap{SID: sid, User: e.User, Conn: e.Conn})
		}
	}
	return out
}

func (r *Registry) ConnsOfUser(user domain.UserID) []regSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []regSnap
	for sid, e := range r.sessions {
		if e.User == user {
			out = append(out, regSnap{SID: sid, User: e.User, Conn: e.Conn})
		}
	}
	return out
}

func (r *Registry) WatchersOf(user domain.UserID) []regSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]regSnap, 0, len(r.watchers[user]))
	for sid := range r.watchers[user] {
		if e, ok := r.sessions[sid]; ok {
			out = append(out, regSnap{SID: sid, User: e.User, Conn: e.Conn})
		}
	}
	return out
}

type RoomInfo struct {
	ID      domain.RoomID   `json:"roomID"`
	Members []domain.UserID `json:"members"`
}

// Rooms lists occupied rooms, sorted by id.
func (r *Registry) Rooms() []RoomInfo {
	r.mu.RLock()
	byRoom := make(map[domain.RoomID][]domain.UserID)
	for _, e := range r.sessions {
		if e.Room != "" {
			byRoom[e.Room] = append(byRoom[e.Room], e.User)
		}
	}
	r.mu.RUnlock()

	out := make([]RoomInfo, 0, len(byRoom))
	for id, members := range byRoom {
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		out = append(out, RoomInfo{ID: id, Members: members})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "hub.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
