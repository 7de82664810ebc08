// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
)

var ErrUserIDEmpty = errors.New("user_id empty")

type UserID string

// Identity is what a connection claims about itself via Identify.
// Nothing verifies it.
type Identity struct {
	UserID UserID `json:"user_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// NewIdentity rejects only an empty user id; any other claim is accepted as is.
func NewIdentity(userID, name, avatar string) (Identity, error) {
	if userID == "" {
		return Identity{}, ErrUserIDEmpty
	}
	return Identity{UserID: UserID(userID), Name: name, Avatar: avatar}, nil
}
