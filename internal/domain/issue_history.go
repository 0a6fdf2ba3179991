package domain

import "time"

// IssueHistory is an immutable audit trail entry for a status transition.
type IssueHistory struct {
	ID        string
	IssueID   string
	ActorID   *string
	OldStatus IssueStatus
	NewStatus IssueStatus
	Note      string
	CreatedAt time.Time
}
