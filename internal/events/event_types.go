package events

import (
	"time"

	"github.com/spec-kit/campus-issues/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIssueRaised        EventType = "issue_raised"
	EventIssueUpvoted       EventType = "issue_upvoted"
	EventIssueStatusChanged EventType = "issue_status_changed"
	EventIssueWithdrawn     EventType = "issue_withdrawn"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	IssueID   string      `json:"issue_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// IssueRaisedPayload payload.
type IssueRaisedPayload struct {
	Department string `json:"department"`
	Title      string `json:"title"`
	Anonymous  bool   `json:"anonymous"`
}

// IssueUpvotedPayload payload.
type IssueUpvotedPayload struct {
	Upvotes int `json:"upvotes"`
}

// IssueStatusChangedPayload payload.
type IssueStatusChangedPayload struct {
	OldStatus domain.IssueStatus `json:"old_status"`
	NewStatus domain.IssueStatus `json:"new_status"`
	Reason    string             `json:"reason,omitempty"`
}

// IssueWithdrawnPayload payload.
type IssueWithdrawnPayload struct {
	Department string `json:"department"`
}
