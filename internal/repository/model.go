package repository

import (
	"time"

	"github.com/dkeye/Interview/internal/domain"
)

type InterviewStatus string

const (
	InterviewStatusRunning   InterviewStatus = "running"
	InterviewStatusCompleted InterviewStatus = "completed"
)

type Interview struct {
	ID              string
	RoomID          domain.RoomID
	ApplicationID   domain.ApplicationID
	CompanyID       domain.UserID
	UserID          domain.UserID
	CompanyName     string
	StartedAt       time.Time
	EndedAt         *time.Time
	Status          InterviewStatus
	DurationSeconds int64
}
