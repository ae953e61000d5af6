package domain

// Role is the side of the marketplace a participant is on.
type Role string

const (
	RoleUser    Role = "user"
	RoleCompany Role = "company"
)
