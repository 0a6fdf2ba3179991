// Package view derives the tab-specific subset and ordering of issues from
// the full in-memory collection plus session overlays. Apply is a pure
// function with no side effects and is safe to recompute on every input
// change.
package view

import (
	"sort"
	"strings"

	"github.com/spec-kit/campus-issues/internal/domain"
	"github.com/spec-kit/campus-issues/internal/session"
)

// Tab identifies one of the client views.
type Tab string

const (
	TabFeed      Tab = "feed"
	TabLog       Tab = "log"
	TabTrack     Tab = "track"
	TabProfessor Tab = "professor"
)

// Valid reports whether the tab is known.
func (t Tab) Valid() bool {
	switch t {
	case TabFeed, TabLog, TabTrack, TabProfessor:
		return true
	}
	return false
}

// IssueView decorates an issue with the current user's session marks.
type IssueView struct {
	domain.Issue
	Upvoted  bool
	Reported bool
}

// Apply filters, searches and ranks the collection for the given tab.
//
// feed: open issues. log: terminal issues. track: issues created by the
// current user, any status. professor: open issues, text-filtered by a
// case-insensitive substring match over title, description and department.
// Department narrowing for the professor tab happens at the retrieval
// boundary, not here.
//
// Ordering for every tab: upvotes descending, then creation time descending.
func Apply(issues []domain.Issue, tab Tab, current *domain.User, overlays session.Overlays, search string) []IssueView {
	filtered := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		if !matchesTab(issue, tab, current) {
			continue
		}
		if tab == TabProfessor && !matchesSearch(issue, search) {
			continue
		}
		filtered = append(filtered, issue)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Upvotes != filtered[j].Upvotes {
			return filtered[i].Upvotes > filtered[j].Upvotes
		}
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	result := make([]IssueView, 0, len(filtered))
	for _, issue := range filtered {
		result = append(result, IssueView{
			Issue:    issue,
			Upvoted:  overlays.HasUpvoted(issue.ID),
			Reported: overlays.HasReported(issue.ID),
		})
	}
	return result
}

func matchesTab(issue domain.Issue, tab Tab, current *domain.User) bool {
	switch tab {
	case TabFeed, TabProfessor:
		return issue.Status == domain.IssueStatusOpen
	case TabLog:
		return issue.Status != domain.IssueStatusOpen
	case TabTrack:
		return current != nil && issue.CreatedBy == current.ID
	}
	return false
}

func matchesSearch(issue domain.Issue, search string) bool {
	query := strings.ToLower(strings.TrimSpace(search))
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(issue.Title), query) ||
		strings.Contains(strings.ToLower(issue.Description), query) ||
		strings.Contains(strings.ToLower(issue.Department), query)
}
