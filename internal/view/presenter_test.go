package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/campus-issues/internal/domain"
	"github.com/spec-kit/campus-issues/internal/session"
)

func emptyOverlays() session.Overlays {
	return session.Overlays{Upvoted: map[string]struct{}{}, Reported: map[string]struct{}{}}
}

func issueAt(id string, upvotes int, ts int64, status domain.IssueStatus) domain.Issue {
	return domain.Issue{
		ID:          id,
		Title:       "title " + id,
		Description: "description " + id,
		Department:  "CSE/IT",
		Upvotes:     upvotes,
		CreatedBy:   "creator",
		Status:      status,
		CreatedAt:   time.Unix(ts, 0),
	}
}

func TestApplyOrdersByUpvotesThenRecency(t *testing.T) {
	issues := []domain.Issue{
		issueAt("A", 5, 100, domain.IssueStatusOpen),
		issueAt("B", 5, 200, domain.IssueStatusOpen),
		issueAt("C", 9, 50, domain.IssueStatusOpen),
	}

	got := Apply(issues, TabFeed, nil, emptyOverlays(), "")
	require.Len(t, got, 3)
	assert.Equal(t, "C", got[0].ID)
	assert.Equal(t, "B", got[1].ID)
	assert.Equal(t, "A", got[2].ID)
}

func TestApplyFeedShowsOnlyOpen(t *testing.T) {
	issues := []domain.Issue{
		issueAt("open", 0, 1, domain.IssueStatusOpen),
		issueAt("resolved", 0, 2, domain.IssueStatusResolved),
		issueAt("rejected", 0, 3, domain.IssueStatusRejected),
	}

	got := Apply(issues, TabFeed, nil, emptyOverlays(), "")
	require.Len(t, got, 1)
	assert.Equal(t, "open", got[0].ID)
}

func TestApplyLogShowsTerminalStates(t *testing.T) {
	issues := []domain.Issue{
		issueAt("open", 0, 1, domain.IssueStatusOpen),
		issueAt("resolved", 0, 2, domain.IssueStatusResolved),
		issueAt("rejected", 0, 3, domain.IssueStatusRejected),
	}

	got := Apply(issues, TabLog, nil, emptyOverlays(), "")
	require.Len(t, got, 2)
	for _, iv := range got {
		assert.NotEqual(t, domain.IssueStatusOpen, iv.Status)
	}
}

func TestApplyTrackFiltersByCreator(t *testing.T) {
	mine := issueAt("mine", 0, 1, domain.IssueStatusResolved)
	mine.CreatedBy = "user-1"
	other := issueAt("other", 0, 2, domain.IssueStatusOpen)
	other.CreatedBy = "user-2"

	current := &domain.User{ID: "user-1", Role: domain.RoleStudent}
	got := Apply([]domain.Issue{mine, other}, TabTrack, current, emptyOverlays(), "")
	require.Len(t, got, 1)
	assert.Equal(t, "mine", got[0].ID)
}

func TestApplyProfessorSearchIsCaseInsensitive(t *testing.T) {
	issue := issueAt("ac", 0, 1, domain.IssueStatusOpen)
	issue.Title = "Library AC not working"

	got := Apply([]domain.Issue{issue}, TabProfessor, nil, emptyOverlays(), "library")
	require.Len(t, got, 1)

	got = Apply([]domain.Issue{issue}, TabProfessor, nil, emptyOverlays(), "cafeteria")
	assert.Empty(t, got)
}

func TestApplyProfessorSearchMatchesDepartment(t *testing.T) {
	issue := issueAt("d", 0, 1, domain.IssueStatusOpen)

	got := Apply([]domain.Issue{issue}, TabProfessor, nil, emptyOverlays(), "cse")
	require.Len(t, got, 1)
}

func TestApplyDecoratesWithOverlayMarks(t *testing.T) {
	issues := []domain.Issue{
		issueAt("voted", 0, 1, domain.IssueStatusOpen),
		issueAt("plain", 0, 2, domain.IssueStatusOpen),
	}
	overlays := session.Overlays{
		Upvoted:  map[string]struct{}{"voted": {}},
		Reported: map[string]struct{}{"plain": {}},
	}

	got := Apply(issues, TabFeed, nil, overlays, "")
	require.Len(t, got, 2)
	byID := map[string]IssueView{}
	for _, iv := range got {
		byID[iv.ID] = iv
	}
	assert.True(t, byID["voted"].Upvoted)
	assert.False(t, byID["voted"].Reported)
	assert.True(t, byID["plain"].Reported)
	assert.False(t, byID["plain"].Upvoted)
}

func TestApplyUnknownTabYieldsNothing(t *testing.T) {
	issues := []domain.Issue{issueAt("a", 0, 1, domain.IssueStatusOpen)}
	assert.Empty(t, Apply(issues, Tab("bogus"), nil, emptyOverlays(), ""))
}
