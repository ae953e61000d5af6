package session

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dkeye/Interview/internal/domain"
)

// Query parameters of the call screen URL.
const (
	QueryRoomID        = "roomId"
	QueryApplicationID = "applicationId"
	QueryUserID        = "user_id"
)

// ParseScreenURL returns the query of a call screen URL such as
// "/user/video-call?roomId=room123".
func ParseScreenURL(raw string) (url.Values, error) {
	if raw == "" {
		return url.Values{}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse call screen url: %w", err)
	}
	return u.Query(), nil
}

// ResolveRoomID picks the room to join. The URL wins over the bound room so
// that a fresh invitation link beats stale shared state.
func ResolveRoomID(query url.Values, bound domain.InvitationBinding) (domain.RoomID, error) {
	if id := strings.TrimSpace(query.Get(QueryRoomID)); id != "" {
		return domain.RoomID(id), nil
	}
	if !bound.IsZero() {
		return bound.RoomID, nil
	}
	return "", ErrMissingRoomIdentifier
}
