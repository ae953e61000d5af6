package hub

import (
	"encoding/json"

	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/rs/zerolog/log"
)

// Offers, answers and candidates are relayed verbatim to the other members
// of the sender's room, stamped with the sender.

func (h *Hub) handleSDP(sid core.SessionID, user domain.UserID, event string, data json.RawMessage) {
	var p domain.SDPPayload
	if err := json.Unmarshal(data, &p); err != nil || p.SDP == "" {
		log.Error().Err(err).Str("module", "hub").Str("event", event).Msg("bad sdp payload")
		h.sendError(sid, "bad_payload")
		return
	}
	if !h.inRoom(sid, p.RoomID) {
		h.sendError(sid, "not_in_room")
		return
	}
	p.From = user
	h.broadcastRoom(p.RoomID, sid, event, p)
}

func (h *Hub) handleCandidate(sid core.SessionID, user domain.UserID, data json.RawMessage) {
	var p domain.CandidatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "hub").Msg("bad candidate payload")
		h.sendError(sid, "bad_payload")
		return
	}
	if !h.inRoom(sid, p.RoomID) {
		h.sendError(sid, "not_in_room")
		return
	}
	p.From = user
	h.broadcastRoom(p.RoomID, sid, domain.EventCandidate, p)
}

func (h *Hub) inRoom(sid core.SessionID, room domain.RoomID) bool {
	cur, ok := h.Registry.RoomOf(sid)
	return ok && room != "" && cur == room
}
