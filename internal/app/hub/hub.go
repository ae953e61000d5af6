// Package hub is the signaling backend: it routes call screen events
// between the participants of a room, forwards presence heartbeats to the
// hosts watching a participant and records interview start and end.
package hub

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dkeye/Interview/internal/app/presence"
	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/dkeye/Interview/internal/repository"
	"github.com/rs/zerolog/log"
)

type Hub struct {
	Registry   *Registry
	Presence   *presence.Tracker
	Interviews repository.InterviewRepository
	Policy     Policy
	Clock      core.Clock
}

func New(tracker *presence.Tracker, interviews repository.InterviewRepository, clock core.Clock) *Hub {
	if clock == nil {
		clock = core.SystemClock
	}
	return &Hub{
		Registry:   NewRegistry(),
		Presence:   tracker,
		Interviews: interviews,
		Policy:     SimplePolicy{},
		Clock:      clock,
	}
}

// Connect registers a freshly upgraded connection of user.
func (h *Hub) Connect(sid core.SessionID, user domain.UserID, conn core.SignalConnection, cancel context.CancelFunc) {
	h.Registry.Bind(sid, user, conn, cancel)
}

// Disconnect drops sid. A connection that was still in a room is announced
// to the rest of the room as user:left.
func (h *Hub) Disconnect(sid core.SessionID) {
	e, ok := h.Registry.Unbind(sid)
	if !ok {
		return
	}
	if e.Room != "" {
		h.broadcastRoom(e.Room, sid, domain.EventUserLeft, domain.LeftPayload{RoomID: e.Room, UserID: e.User})
	}
	if len(h.Registry.ConnsOfUser(e.User)) == 0 && h.Presence != nil {
		h.Presence.Forget(e.User)
	}
}

// Dispatch handles one inbound frame of sid.
func (h *Hub) Dispatch(ctx context.Context, sid core.SessionID, frame []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		log.Error().Err(err).Str("module", "hub").Str("sid", string(sid)).Msg("bad json")
		h.sendError(sid, "bad_json")
		return
	}
	user, ok := h.Registry.UserOf(sid)
	if !ok {
		log.Warn().Str("module", "hub").Str("sid", string(sid)).Msg("frame from unknown session")
		return
	}

	switch env.Event {
	case domain.EventRoomJoin:
		h.handleJoin(sid, user, env.Data)
	case domain.EventRoomLeave:
		h.handleRoomLeave(sid, user, env.Data)
	case domain.EventUserLeave:
		h.handleUserLeave(sid, user, env.Data)
	case domain.EventUserWatch:
		h.handleWatch(sid, env.Data)
	case domain.EventUserInInterview:
		h.handlePresence(sid, user, env.Data)
	case domain.EventStartInterview:
		h.handleStartInterview(ctx, sid, user, env.Data)
	case domain.EventEndInterview:
		h.handleEndInterview(ctx, sid, user, env.Data)
	case domain.EventOffer, domain.EventAnswer:
		h.handleSDP(sid, user, env.Event, env.Data)
	case domain.EventCandidate:
		h.handleCandidate(sid, user, env.Data)
	case domain.EventPing:
		h.send(sid, domain.EventPong, nil)
	default:
		log.Warn().Str("module", "hub").Str("event", env.Event).Msg("unknown event")
		h.sendError(sid, "unknown_event")
	}
}

func (h *Hub) send(sid core.SessionID, event string, payload any) {
	snap, ok := h.Registry.Get(sid)
	if !ok {
		return
	}
	frame, err := domain.NewEnvelope(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "hub").Msg("encode frame")
		return
	}
	h.deliver(snap, frame)
}

func (h *Hub) sendError(sid core.SessionID, msg string) {
	h.send(sid, domain.EventError, domain.ErrorPayload{Error: msg})
}

func (h *Hub) broadcast(targets []regSnap, except core.SessionID, event string, payload any) {
	frame, err := domain.NewEnvelope(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "hub").Msg("encode frame")
		return
	}
	seen := make(map[core.SessionID]struct{}, len(targets))
	for _, t := range targets {
		if t.SID == except {
			continue
		}
		if _, dup := seen[t.SID]; dup {
			continue
		}
		seen[t.SID] = struct{}{}
		h.deliver(t, frame)
	}
}

func (h *Hub) broadcastRoom(room domain.RoomID, except core.SessionID, event string, payload any) {
	h.broadcast(h.Registry.MembersOfRoom(room), except, event, payload)
}

func (h *Hub) sendToUser(user domain.UserID, event string, payload any) int {
	targets := h.Registry.ConnsOfUser(user)
	h.broadcast(targets, "", event, payload)
	return len(targets)
}

func (h *Hub) deliver(t regSnap, frame []byte) {
	err := t.Conn.TrySend(core.Frame(frame))
	if err == nil || errors.Is(err, core.ErrConnectionClosed) {
		return
	}
	if h.Policy == nil {
		return
	}
	switch h.Policy.OnBackPressure(t.SID, t.User) {
	case KickMember:
		log.Warn().Str("module", "hub").Str("sid", string(t.SID)).Msg("kicking slow connection")
		h.Kick(t.SID)
	case MarkSlow:
		log.Warn().Str("module", "hub").Str("sid", string(t.SID)).Msg("slow connection")
	case DropFrame, NoAction:
	}
}

// Kick cancels the connection of sid; its read loop then disconnects it.
func (h *Hub) Kick(sid core.SessionID) {
	snap, ok := h.Registry.Get(sid)
	if !ok {
		return
	}
	h.Registry.Cancel(sid)
	snap.Conn.Close()
}

// Rooms is the list served on /api/rooms.
func (h *Hub) Rooms() []RoomInfo { return h.Registry.Rooms() }
