package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/dkeye/Interview/internal/app/hub"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/dkeye/Interview/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Hub *hub.Hub
}

type RoomsResponse struct {
	Rooms []hub.RoomInfo `json:"rooms"`
}

type PresenceResponse struct {
	UserID      domain.UserID `json:"userId"`
	RoomID      domain.RoomID `json:"roomID,omitempty"`
	InInterview bool          `json:"inInterview"`
}

type InterviewResponse struct {
	ID              string                     `json:"id"`
	RoomID          domain.RoomID              `json:"roomID"`
	ApplicationID   domain.ApplicationID       `json:"applicationId"`
	CompanyID       domain.UserID              `json:"companyId"`
	UserID          domain.UserID              `json:"userId"`
	CompanyName     string                     `json:"companyName"`
	Status          repository.InterviewStatus `json:"status"`
	StartedAt       time.Time                  `json:"startedAt"`
	EndedAt         *time.Time                 `json:"endedAt,omitempty"`
	DurationSeconds int64                      `json:"durationSeconds"`
}

func (h *Handlers) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, RoomsResponse{Rooms: h.Hub.Rooms()})
}

// GetPresence reports whether the user sent a heartbeat within the
// freshness window.
func (h *Handlers) GetPresence(c *gin.Context) {
	user := domain.UserID(c.Param("user_id"))
	resp := PresenceResponse{UserID: user}
	if h.Hub.Presence != nil {
		if room, ok := h.Hub.Presence.Lookup(user); ok {
			resp.RoomID = room
			resp.InInterview = true
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) GetInterview(c *gin.Context) {
	if h.Hub.Interviews == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "interviews are not recorded"})
		return
	}
	iv, err := h.Hub.Interviews.GetInterviewByRoom(c.Request.Context(), domain.RoomID(c.Param("room_id")))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "interview not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("get interview")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, InterviewResponse{
		ID:              iv.ID,
		RoomID:          iv.RoomID,
		ApplicationID:   iv.ApplicationID,
		CompanyID:       iv.CompanyID,
		UserID:          iv.UserID,
		CompanyName:     iv.CompanyName,
		Status:          iv.Status,
		StartedAt:       iv.StartedAt,
		EndedAt:         iv.EndedAt,
		DurationSeconds: iv.DurationSeconds,
	})
}
