package models

import "time"

// Vote is the presence of one voter's support for one request. There is no
// numeric value: the row existing is the whole signal.
type Vote struct {
	UserID    string
	RequestID string
	CreatedAt time.Time
}

// VoteAction is the outcome of a vote toggle.
type VoteAction string

const (
	VoteAdded   VoteAction = "added"
	VoteRemoved VoteAction = "removed"
)
