package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/dkeye/Interview/internal/repository"
	"github.com/rs/zerolog/log"
)

// handleStartInterview is the host admitting a participant: the interview is
// recorded and the participant invited.
func (h *Hub) handleStartInterview(ctx context.Context, sid core.SessionID, company domain.UserID, data json.RawMessage) {
	var p domain.StartInterviewPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" || p.UserID == "" {
		h.sendError(sid, "bad_payload")
		return
	}
	if h.Interviews != nil {
		_, err := h.Interviews.StartInterview(ctx, repository.StartInterviewInput{
			RoomID:        p.RoomID,
			ApplicationID: p.ApplicationID,
			CompanyID:     company,
			UserID:        p.UserID,
			CompanyName:   p.CompanyName,
			StartedAt:     h.Clock.Now().UTC(),
		})
		if err != nil {
			log.Error().Err(err).Str("module", "hub").Str("room", string(p.RoomID)).Msg("record interview start")
		}
	}
	n := h.sendToUser(p.UserID, domain.EventInterviewInvite, domain.InvitePayload{
		RoomID:        p.RoomID,
		ApplicationID: p.ApplicationID,
		CompanyID:     company,
		CompanyName:   p.CompanyName,
	})
	log.Info().Str("module", "hub").Str("room", string(p.RoomID)).Str("user", string(p.UserID)).Int("conns", n).Msg("interview started")
}

// handleEndInterview records the end and tells the participant, whose call
// screen then shows the end toast and leaves.
func (h *Hub) handleEndInterview(ctx context.Context, sid core.SessionID, company domain.UserID, data json.RawMessage) {
	var p domain.EndInterviewPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		h.sendError(sid, "bad_payload")
		return
	}
	now := h.Clock.Now().UTC()
	started, err := time.Parse(time.RFC3339, p.StartTime)
	if err != nil {
		log.Warn().Err(err).Str("module", "hub").Str("start_time", p.StartTime).Msg("bad start time")
		started = now
	}
	if h.Interviews != nil {
		iv, err := h.Interviews.CompleteInterview(ctx, repository.CompleteInterviewInput{
			RoomID:        p.RoomID,
			ApplicationID: p.ApplicationID,
			CompanyID:     company,
			UserID:        p.UserID,
			StartedAt:     started,
			EndedAt:       now,
		})
		if err != nil {
			log.Error().Err(err).Str("module", "hub").Str("room", string(p.RoomID)).Msg("record interview end")
		} else {
			log.Info().Str("module", "hub").Str("room", string(p.RoomID)).Int64("duration_s", iv.DurationSeconds).Msg("interview completed")
		}
	}
	if p.UserID != "" {
		h.sendToUser(p.UserID, domain.EventInterviewEnd, p.RoomID)
	}
}
