package dto

import (
	"time"

	"github.com/spec-kit/campus-issues/internal/domain"
	"github.com/spec-kit/campus-issues/internal/view"
)

// RaiseIssueRequest payload for filing an issue. ImageData carries an
// optional base64 data URI.
type RaiseIssueRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Department  string `json:"department"`
	ImageData   string `json:"image_data,omitempty"`
	Anonymous   bool   `json:"anonymous"`
}

// ResolveIssueRequest payload; the proof image is optional.
type ResolveIssueRequest struct {
	ProofImageData string `json:"proof_image_data,omitempty"`
}

// RejectIssueRequest payload; reason is mandatory.
type RejectIssueRequest struct {
	Reason string `json:"reason"`
}

// IssueResponse is the issue shape returned to clients. Upvoted and
// Reported reflect the caller's session overlay, not persisted state.
type IssueResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Department       string    `json:"department"`
	ImageURL         *string   `json:"image_url,omitempty"`
	ResolvedImageURL *string   `json:"resolved_image_url,omitempty"`
	Upvotes          int       `json:"upvotes"`
	CreatedBy        string    `json:"created_by"`
	Author           string    `json:"author"`
	Status           string    `json:"status"`
	RejectionReason  *string   `json:"rejection_reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	Upvoted          bool      `json:"upvoted"`
	Reported         bool      `json:"reported"`
}

// IssueHistoryResponse is one entry of an issue's transition audit trail.
type IssueHistoryResponse struct {
	ID        string    `json:"id"`
	ActorID   *string   `json:"actor_id,omitempty"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewIssueHistoryResponse maps a history entry.
func NewIssueHistoryResponse(entry domain.IssueHistory) IssueHistoryResponse {
	return IssueHistoryResponse{
		ID:        entry.ID,
		ActorID:   entry.ActorID,
		OldStatus: string(entry.OldStatus),
		NewStatus: string(entry.NewStatus),
		Note:      entry.Note,
		CreatedAt: entry.CreatedAt,
	}
}

// NewIssueResponse maps a presented issue view.
func NewIssueResponse(iv view.IssueView) IssueResponse {
	return IssueResponse{
		ID:               iv.ID,
		Title:            iv.Title,
		Description:      iv.Description,
		Department:       iv.Department,
		ImageURL:         iv.ImageURL,
		ResolvedImageURL: iv.ResolvedImageURL,
		Upvotes:          iv.Upvotes,
		CreatedBy:        iv.CreatedBy,
		Author:           iv.Author,
		Status:           string(iv.Status),
		RejectionReason:  iv.RejectionReason,
		CreatedAt:        iv.CreatedAt,
		Upvoted:          iv.Upvoted,
		Reported:         iv.Reported,
	}
}
