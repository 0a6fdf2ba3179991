package domain

import "time"

// IssueStatus enumerates lifecycle states for issues.
type IssueStatus string

const (
	IssueStatusOpen     IssueStatus = "OPEN"
	IssueStatusResolved IssueStatus = "RESOLVED"
	IssueStatusRejected IssueStatus = "REJECTED"
)

// Terminal reports whether no further transition is allowed from the status.
// RESOLVED and REJECTED are terminal; an issue is never reopened.
func (s IssueStatus) Terminal() bool {
	return s == IssueStatusResolved || s == IssueStatusRejected
}

// AnonymousAuthor is the display author for anonymously raised issues.
const AnonymousAuthor = "Anonymous"

// Issue is the aggregate for reported campus facility problems.
//
// Upvotes only ever increases and is bumped via an atomic counter increment
// at the store. RejectionReason is non-empty iff Status is REJECTED. The
// per-user report marks are session-local and never persisted here.
type Issue struct {
	ID               string
	Title            string
	Description      string
	Department       string
	ImageURL         *string
	ResolvedImageURL *string
	Upvotes          int
	CreatedBy        string
	Author           string
	Status           IssueStatus
	RejectionReason  *string
	CreatedAt        time.Time
}
