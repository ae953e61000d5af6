package core

import (
	"context"

	"github.com/dkeye/Interview/internal/domain"
)

type CallMode string

const CallModeOneOnOne CallMode = "one_on_one"

// JoinConfig is handed to the media handle on join. Callbacks may be
// invoked from any goroutine.
type JoinConfig struct {
	RoomID   domain.RoomID
	UserID   domain.UserID
	UserName string
	Mode     CallMode
	Camera   bool
	Mic      bool

	// OnJoinRoom fires once the room is joined.
	OnJoinRoom func()
	// OnLeaveRoom fires when the handle leaves the room on its own.
	OnLeaveRoom func()
	// OnUserLeave fires when the remote participant drops.
	OnUserLeave func(domain.UserID)
}

// MediaSession is a joined (or joining) audio/video room.
type MediaSession interface {
	Join(ctx context.Context, cfg JoinConfig) error
	Destroy() error
}

// RoomLeaver is implemented by handles that can leave the room before
// being destroyed. Callers must probe for it.
type RoomLeaver interface {
	Leave(ctx context.Context) error
}

type MediaFactory interface {
	Create(token string) (MediaSession, error)
}
