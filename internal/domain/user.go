// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const (
	MaxUserIDLen   = 64
	MaxUsernameLen = 36
)

var (
	ErrUserIDEmpty     = errors.New("user id empty")
	ErrUserIDTooLong   = errors.New("user id too long")
	ErrUsernameTooLong = errors.New("username too long")
)

type UserID string

type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
// An empty username falls back to the id.
func NewUser(id, username string) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return nil, ErrUserIDTooLong
	}
	u := &User{ID: UserID(id), Username: id}
	if username != "" {
		if err := u.SetUsername(username); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (u *User) SetUsername(username string) error {
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	if username == "" {
		username = string(u.ID)
	}
	u.Username = username
	return nil
}
