// Package models defines the entities persisted by the feature board server.
package models

import "time"

// RefreshToken is a server-stored, single-use token exchanged for a new
// access token.
type RefreshToken struct {
	UserID  string
	Token   string
	Expires time.Time
}
