package models

import "time"

type ActivityType string

const (
	ActivityCreated ActivityType = "created"
	ActivityEdited  ActivityType = "edited"
	ActivityDeleted ActivityType = "deleted"
	ActivityVoted   ActivityType = "voted"
	ActivityUnvoted ActivityType = "unvoted"
)

// Activity is an append-only audit record. A deleted activity never points
// at its request (the row is gone); it carries TitleSnapshot instead.
type Activity struct {
	ID            string
	Type          ActivityType
	UserID        string
	RequestID     *string
	TitleSnapshot *string
	CreatedAt     time.Time
}

// Label is what a presentation layer shows for the activity's subject.
func (a *Activity) Label(liveTitle string) string {
	if a.TitleSnapshot != nil {
		return *a.TitleSnapshot
	}
	return liveTitle
}
