package models

import (
	"fmt"
	"time"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

// Status is the triage state of a FeatureRequest. Only admins change it.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusRejected   Status = "REJECTED"
	StatusAccepted   Status = "ACCEPTED"
)

// ParseStatus returns the Status named by s or an error for anything outside
// the fixed set.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusInProgress, StatusCompleted, StatusRejected, StatusAccepted:
		return st, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// FeatureRequest is a proposal on the board. Its vote count is never stored;
// it is always derived from the votes table.
type FeatureRequest struct {
	ID          string
	Title       string
	Description string
	Status      Status
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RequestVotes pairs a request id with its current vote count.
type RequestVotes struct {
	RequestID string
	Votes     int
}
