package domain

// RoomID is one scheduled interview's call instance, issued by the backend
// when the interview is scheduled.
type (
	RoomID        string
	ApplicationID string
)
