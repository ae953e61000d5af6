package hub

import (
	"encoding/json"

	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/rs/zerolog/log"
)

func (h *Hub) handleWatch(sid core.SessionID, data json.RawMessage) {
	var p domain.WatchPayload
	if err := json.Unmarshal(data, &p); err != nil || p.UserID == "" {
		h.sendError(sid, "bad_payload")
		return
	}
	h.Registry.Watch(sid, p.UserID)
	log.Info().Str("module", "hub").Str("sid", string(sid)).Str("watched", string(p.UserID)).Msg("watch")
}

// handlePresence records a heartbeat and forwards it to the user's watchers
// and to the company named in it. The sender's identity always wins over
// the payload's userId.
func (h *Hub) handlePresence(sid core.SessionID, user domain.UserID, data json.RawMessage) {
	var p domain.PresencePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		h.sendError(sid, "bad_payload")
		return
	}
	if h.Presence != nil {
		h.Presence.Observe(user, p.RoomID)
	}
	going := domain.PresenceGoingPayload{UserID: user, CompanyID: p.CompanyID, RoomID: p.RoomID}
	targets := h.Registry.WatchersOf(user)
	if p.CompanyID != "" {
		targets = append(targets, h.Registry.ConnsOfUser(domain.UserID(p.CompanyID))...)
	}
	h.broadcast(targets, sid, domain.EventUserInterviewGoing, going)
}
