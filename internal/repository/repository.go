// Package repository records interviews started and ended through the hub.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Interview/internal/domain"
)

var ErrNotFound = errors.New("interview not found")

type StartInterviewInput struct {
	RoomID        domain.RoomID
	ApplicationID domain.ApplicationID
	CompanyID     domain.UserID
	UserID        domain.UserID
	CompanyName   string
	StartedAt     time.Time
}

// CompleteInterviewInput closes the running interview of a room. StartedAt
// is the start time the host reported; it is used when the hub has no
// running record, e.g. after a restart.
type CompleteInterviewInput struct {
	RoomID        domain.RoomID
	ApplicationID domain.ApplicationID
	CompanyID     domain.UserID
	UserID        domain.UserID
	StartedAt     time.Time
	EndedAt       time.Time
}

type InterviewRepository interface {
	StartInterview(ctx context.Context, input StartInterviewInput) (*Interview, error)
	CompleteInterview(ctx context.Context, input CompleteInterviewInput) (*Interview, error)
	// GetInterviewByRoom returns the latest interview of the room or
	// ErrNotFound.
	GetInterviewByRoom(ctx context.Context, roomID domain.RoomID) (*Interview, error)
}

// Duration is the whole seconds between start and end, never negative.
func Duration(start, end time.Time) int64 {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
