package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-issues/internal/domain"
	"github.com/spec-kit/campus-issues/internal/events"
	"github.com/spec-kit/campus-issues/internal/repository"
	"github.com/spec-kit/campus-issues/internal/session"
	"github.com/spec-kit/campus-issues/internal/view"
	apperrors "github.com/spec-kit/campus-issues/pkg/util"
)

// IssueService owns the issue lifecycle: creation, upvoting, the
// open -> resolved / open -> rejected transitions, withdrawal and listing.
// All permission checks live here, over the closed domain.Role type.
type IssueService struct {
	issues     repository.IssueRepository
	history    repository.IssueHistoryRepository
	media      MediaStore
	overlays   session.OverlayStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// IssueDependencies bundles collaborators for the issue service.
type IssueDependencies struct {
	IssueRepo   repository.IssueRepository
	HistoryRepo repository.IssueHistoryRepository
	Media       MediaStore
	Overlays    session.OverlayStore
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// RaiseInput describes issue creation payload. ImageData carries optional
// base64 image content selected on the client.
type RaiseInput struct {
	Title       string
	Description string
	Department  string
	ImageData   string
	Anonymous   bool
}

// NewIssueService constructs the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssueService{
		issues:     deps.IssueRepo,
		history:    deps.HistoryRepo,
		media:      deps.Media,
		overlays:   deps.Overlays,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Raise files a new issue on behalf of a student. An attached image is made
// durable before the record is committed; if the commit then fails the
// uploaded object is removed so no orphan is left behind.
func (s *IssueService) Raise(ctx context.Context, actor *domain.User, input RaiseInput) (*domain.Issue, error) {
	if actor == nil || actor.Role != domain.RoleStudent {
		return nil, apperrors.NewForbidden("only students can raise issues")
	}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}
	if !domain.ValidDepartment(input.Department) {
		return nil, apperrors.NewValidationError("unknown department", map[string]any{"department": input.Department})
	}

	issue := &domain.Issue{
		Title:       title,
		Description: description,
		Department:  input.Department,
		CreatedBy:   actor.ID,
		Author:      authorLabel(actor, input.Anonymous),
		Status:      domain.IssueStatusOpen,
	}

	var uploadedID string
	if strings.TrimSpace(input.ImageData) != "" {
		url, publicID, err := s.media.Store(ctx, input.ImageData, "issues/"+uuid.NewString())
		if err != nil {
			return nil, err
		}
		uploadedID = publicID
		issue.ImageURL = &url
	}

	if err := s.issues.Create(ctx, issue); err != nil {
		s.removeUpload(ctx, uploadedID)
		return nil, apperrors.NewStorageError("failed to persist issue", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueRaised,
		IssueID: issue.ID,
		Actor:   eventActor(actor),
		Payload: events.IssueRaisedPayload{
			Department: issue.Department,
			Title:      issue.Title,
			Anonymous:  input.Anonymous,
		},
	})
	return issue, nil
}

// Upvote bumps the issue counter for a student. The session overlay makes
// repeat calls within one session a silent no-op; the store applies the
// increment atomically and re-checks the open status at commit time, so a
// transition racing in from another session wins cleanly.
func (s *IssueService) Upvote(ctx context.Context, actor *domain.User, issueID string) (*domain.Issue, error) {
	if actor == nil || actor.Role != domain.RoleStudent {
		return nil, apperrors.NewForbidden("only students can upvote issues")
	}

	already, err := s.overlays.HasUpvoted(ctx, actor.ID, issueID)
	if err != nil {
		s.logger.Warn("overlay lookup failed; treating as not upvoted", zap.Error(err))
	}

	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("issue", map[string]any{"id": issueID})
		}
		return nil, apperrors.MapError(err)
	}
	if already {
		return issue, nil
	}
	if issue.Status != domain.IssueStatusOpen {
		return nil, apperrors.NewInvalidTransition("issue is no longer open", map[string]any{"status": issue.Status})
	}

	// Optimistic: mark the session first, then commit remotely.
	if err := s.overlays.MarkUpvoted(ctx, actor.ID, issueID); err != nil {
		s.logger.Warn("failed to mark session upvote", zap.Error(err))
	}

	upvotes, err := s.issues.IncrementUpvote(ctx, issueID)
	switch {
	case err == nil:
		issue.Upvotes = upvotes
	case errors.Is(err, pgx.ErrNoRows):
		// Status flipped between the read and the commit.
		return nil, apperrors.NewInvalidTransition("issue is no longer open", nil)
	default:
		// Swallowed deliberately: the optimistic session mark stays and the
		// counters reconcile on the next fetch. Logged so the divergence is
		// visible to operators.
		s.logger.Warn("upvote increment failed; local state diverges",
			zap.String("issue_id", issueID), zap.Error(err))
		issue.Upvotes++
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueUpvoted,
		IssueID: issue.ID,
		Actor:   eventActor(actor),
		Payload: events.IssueUpvotedPayload{Upvotes: issue.Upvotes},
	})
	return issue, nil
}

// Resolve moves an open issue to RESOLVED. Professor-only, restricted to the
// professor's own department. The optional proof image becomes the issue's
// resolved image.
func (s *IssueService) Resolve(ctx context.Context, actor *domain.User, issueID, proofImageData string) (*domain.Issue, error) {
	issue, err := s.guardTransition(ctx, actor, issueID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	var uploadedID string
	if strings.TrimSpace(proofImageData) != "" {
		url, publicID, err := s.media.Store(ctx, proofImageData, "resolutions/"+issueID)
		if err != nil {
			return nil, err
		}
		uploadedID = publicID
		fields["resolved_image_url"] = url
	}

	updated, err := s.commitTransition(ctx, actor, issue, domain.IssueStatusResolved, fields, "")
	if err != nil {
		// The proof went up but the transition lost the race; drop the orphan.
		s.removeUpload(ctx, uploadedID)
		return nil, err
	}
	return updated, nil
}

// removeUpload drops a freshly stored object after its record write failed.
func (s *IssueService) removeUpload(ctx context.Context, publicID string) {
	if publicID == "" {
		return
	}
	if err := s.media.Remove(ctx, publicID); err != nil {
		s.logger.Warn("orphaned media object left behind",
			zap.String("public_id", publicID), zap.Error(err))
	}
}

// Reject moves an open issue to REJECTED with a mandatory reason.
func (s *IssueService) Reject(ctx context.Context, actor *domain.User, issueID, reason string) (*domain.Issue, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("rejection reason required", nil)
	}

	issue, err := s.guardTransition(ctx, actor, issueID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{"rejection_reason": reason}
	updated, err := s.commitTransition(ctx, actor, issue, domain.IssueStatusRejected, fields, reason)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Withdraw durably deletes an issue; only its creator may do so.
func (s *IssueService) Withdraw(ctx context.Context, actor *domain.User, issueID string) error {
	if actor == nil {
		return apperrors.NewAuthError("authentication required")
	}
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("issue", map[string]any{"id": issueID})
		}
		return apperrors.MapError(err)
	}
	if issue.CreatedBy != actor.ID {
		return apperrors.NewForbidden("only the creator can withdraw an issue")
	}

	if err := s.issues.Delete(ctx, issueID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("issue", map[string]any{"id": issueID})
		}
		return apperrors.NewStorageError("failed to withdraw issue", err)
	}

	s.removeIssueMedia(ctx, issue)

	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueWithdrawn,
		IssueID: issueID,
		Actor:   eventActor(actor),
		Payload: events.IssueWithdrawnPayload{Department: issue.Department},
	})
	return nil
}

// Report marks an issue in the caller's session overlay only. The report
// counter is never persisted or acted upon.
func (s *IssueService) Report(ctx context.Context, actor *domain.User, issueID string) error {
	if actor == nil {
		return apperrors.NewAuthError("authentication required")
	}
	if _, err := s.issues.GetByID(ctx, issueID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("issue", map[string]any{"id": issueID})
		}
		return apperrors.MapError(err)
	}
	return s.overlays.MarkReported(ctx, actor.ID, issueID)
}

// List returns the ranked view for a tab. Narrowing happens at the retrieval
// boundary: feed and the professor dashboard fetch only open issues, log only
// terminal ones, track only the caller's. The presenter applies the same
// predicates again over the fetched slice and imposes the ranking.
func (s *IssueService) List(ctx context.Context, actor *domain.User, tab view.Tab, search string) ([]view.IssueView, error) {
	if actor == nil {
		return nil, apperrors.NewAuthError("authentication required")
	}
	if !tab.Valid() {
		return nil, apperrors.NewValidationError("unknown tab", map[string]any{"tab": string(tab)})
	}

	filter := repository.IssueFilter{}
	switch tab {
	case view.TabFeed:
		filter.Statuses = []domain.IssueStatus{domain.IssueStatusOpen}
	case view.TabLog:
		filter.Statuses = []domain.IssueStatus{domain.IssueStatusResolved, domain.IssueStatusRejected}
	case view.TabTrack:
		createdBy := actor.ID
		filter.CreatedBy = &createdBy
	case view.TabProfessor:
		if actor.Role != domain.RoleProfessor {
			return nil, apperrors.NewForbidden("professor dashboard requires a professor account")
		}
		filter.Department = actor.Department
		filter.Statuses = []domain.IssueStatus{domain.IssueStatusOpen}
		if trimmed := strings.TrimSpace(search); trimmed != "" {
			filter.SearchTerm = &trimmed
		}
	}

	issues, err := s.issues.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to fetch issues", err)
	}

	overlays, err := s.overlays.Snapshot(ctx, actor.ID)
	if err != nil {
		s.logger.Warn("overlay snapshot failed; rendering without session marks", zap.Error(err))
		overlays = session.Overlays{Upvoted: map[string]struct{}{}, Reported: map[string]struct{}{}}
	}

	return view.Apply(issues, tab, actor, overlays, search), nil
}

// History returns the transition audit trail for an issue.
func (s *IssueService) History(ctx context.Context, issueID string) ([]domain.IssueHistory, error) {
	if s.history == nil {
		return []domain.IssueHistory{}, nil
	}
	return s.history.ListByIssue(ctx, issueID)
}

// removeIssueMedia drops attached images for a withdrawn issue. Best-effort;
// the record is already gone and an orphaned object only costs storage.
func (s *IssueService) removeIssueMedia(ctx context.Context, issue *domain.Issue) {
	if s.media == nil {
		return
	}
	for _, imageURL := range []*string{issue.ImageURL, issue.ResolvedImageURL} {
		if imageURL == nil {
			continue
		}
		publicID := PublicIDFromURL(*imageURL)
		if publicID == "" {
			continue
		}
		if err := s.media.Remove(ctx, publicID); err != nil {
			s.logger.Warn("failed to remove media for withdrawn issue",
				zap.String("issue_id", issue.ID), zap.Error(err))
		}
	}
}

func (s *IssueService) guardTransition(ctx context.Context, actor *domain.User, issueID string) (*domain.Issue, error) {
	if actor == nil || actor.Role != domain.RoleProfessor {
		return nil, apperrors.NewForbidden("only professors can review issues")
	}
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("issue", map[string]any{"id": issueID})
		}
		return nil, apperrors.MapError(err)
	}
	if !actor.CanActOn(issue.Department) {
		return nil, apperrors.NewForbidden("issue belongs to another department")
	}
	if issue.Status.Terminal() {
		return nil, apperrors.NewInvalidTransition("issue is no longer open", map[string]any{"status": issue.Status})
	}
	return issue, nil
}

func (s *IssueService) commitTransition(ctx context.Context, actor *domain.User, issue *domain.Issue, next domain.IssueStatus, fields map[string]any, note string) (*domain.Issue, error) {
	updated, err := s.issues.TransitionFromOpen(ctx, issue.ID, next, fields)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race against another reviewer; nothing was mutated.
			return nil, apperrors.NewInvalidTransition("issue is no longer open", nil)
		}
		return nil, apperrors.NewStorageError("failed to update issue", err)
	}

	s.recordTransition(ctx, actor, updated, issue.Status, note)
	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueStatusChanged,
		IssueID: updated.ID,
		Actor:   eventActor(actor),
		Payload: events.IssueStatusChangedPayload{
			OldStatus: issue.Status,
			NewStatus: updated.Status,
			Reason:    note,
		},
	})
	return updated, nil
}

func (s *IssueService) recordTransition(ctx context.Context, actor *domain.User, issue *domain.Issue, oldStatus domain.IssueStatus, note string) {
	if s.history == nil {
		return
	}
	actorID := actor.ID
	entry := &domain.IssueHistory{
		IssueID:   issue.ID,
		ActorID:   &actorID,
		OldStatus: oldStatus,
		NewStatus: issue.Status,
		Note:      note,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record issue history", zap.String("issue_id", issue.ID), zap.Error(err))
	}
}

func (s *IssueService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func eventActor(actor *domain.User) events.Actor {
	return events.Actor{UserID: actor.ID, Role: actor.Role}
}

// authorLabel picks the display author: "Anonymous" when requested, else a
// stable identifier for the student.
func authorLabel(actor *domain.User, anonymous bool) string {
	if anonymous {
		return domain.AnonymousAuthor
	}
	if actor.StudentID != nil && *actor.StudentID != "" {
		return "Student ID: " + *actor.StudentID
	}
	return actor.Name
}
