package hub

import (
	"encoding/json"

	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/rs/zerolog/log"
)

func (h *Hub) handleJoin(sid core.SessionID, user domain.UserID, data json.RawMessage) {
	var p domain.RoomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "hub").Msg("bad join payload")
		h.sendError(sid, "bad_payload")
		return
	}
	if cur, ok := h.Registry.RoomOf(sid); ok {
		if cur == p.RoomID {
			return
		}
		h.leaveRoom(sid, user, cur)
	}

	peers := h.Registry.MembersOfRoom(p.RoomID)
	h.Registry.UpdateRoom(sid, p.RoomID)
	log.Info().Str("module", "hub").Str("sid", string(sid)).Str("room", string(p.RoomID)).Int("peers", len(peers)).Msg("join")

	h.broadcast(peers, sid, domain.EventRoomPeer, domain.RoomPayload{RoomID: p.RoomID, UserID: user})
	for _, peer := range peers {
		h.send(sid, domain.EventRoomPeer, domain.RoomPayload{RoomID: p.RoomID, UserID: peer.User})
	}
}

// handleRoomLeave drops the media room only; the connection stays open.
func (h *Hub) handleRoomLeave(sid core.SessionID, user domain.UserID, data json.RawMessage) {
	var p domain.RoomPayload
	_ = json.Unmarshal(data, &p)
	cur, ok := h.Registry.RoomOf(sid)
	if !ok || (p.RoomID != "" && p.RoomID != cur) {
		return
	}
	h.leaveRoom(sid, user, cur)
}

// handleUserLeave is the call screen teardown: the room is left and the
// user's presence is dropped.
func (h *Hub) handleUserLeave(sid core.SessionID, user domain.UserID, data json.RawMessage) {
	var p domain.LeavePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "hub").Msg("bad user:leave payload")
		return
	}
	room := p.RoomID
	if cur, ok := h.Registry.RoomOf(sid); ok && (room == "" || room == cur) {
		h.Registry.RemoveRoom(sid)
		room = cur
	}
	if room != "" {
		targets := append(h.Registry.MembersOfRoom(room), h.Registry.WatchersOf(user)...)
		h.broadcast(targets, sid, domain.EventUserLeft, domain.LeftPayload{RoomID: room, UserID: user})
	}
	if h.Presence != nil {
		h.Presence.Forget(user)
	}
	log.Info().Str("module", "hub").Str("sid", string(sid)).Str("room", string(room)).Msg("user left")
}

func (h *Hub) leaveRoom(sid core.SessionID, user domain.UserID, room domain.RoomID) {
	h.Registry.RemoveRoom(sid)
	h.broadcastRoom(room, sid, domain.EventUserLeft, domain.LeftPayload{RoomID: room, UserID: user})
}
