package models

import (
	"fmt"
	"time"
)

// Role is the access level of a User.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
	// RoleSystem marks the sentinel account that absorbs orphaned popular
	// content. At most one such user exists, keyed by a reserved email.
	RoleSystem Role = "SYSTEM"
)

// ParseRole validates a stored role value.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUser, RoleAdmin, RoleSystem:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// User is a board member. PasswordHash is nil for identities created through
// an external (social) provider; VerifiedAt is nil until the email is confirmed.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash *string
	VerifiedAt   *time.Time
	Role         Role
	CreatedAt    time.Time
}

// IsSystem reports whether u is the sentinel account.
func (u *User) IsSystem() bool {
	return u.Role == RoleSystem
}

// IsAdmin reports whether u may change request statuses.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Actor is the identity performing an operation, as resolved by the
// transport from the access token.
type Actor struct {
	ID   string
	Role Role
}
