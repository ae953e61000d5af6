package domain

// InvitationBinding is the room the client is currently assigned to.
// A zero RoomID means nothing is bound.
type InvitationBinding struct {
	RoomID        RoomID
	ApplicationID ApplicationID
	CompanyID     UserID
	CompanyName   string
}

func (b InvitationBinding) IsZero() bool {
	return b.RoomID == ""
}
