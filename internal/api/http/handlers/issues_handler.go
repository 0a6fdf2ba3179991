package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-issues/internal/api/dto"
	"github.com/spec-kit/campus-issues/internal/auth"
	"github.com/spec-kit/campus-issues/internal/domain"
	"github.com/spec-kit/campus-issues/internal/service"
	"github.com/spec-kit/campus-issues/internal/view"
	apperrors "github.com/spec-kit/campus-issues/pkg/util"
)

// IssuesHandler manages the student-facing issue endpoints.
type IssuesHandler struct {
	service *service.IssueService
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(issueService *service.IssueService) *IssuesHandler {
	return &IssuesHandler{service: issueService}
}

// Raise handles POST /issues.
func (h *IssuesHandler) Raise(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewAuthError("authentication required")
	}
	var req dto.RaiseIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	issue, err := h.service.Raise(c.Context(), principal.User, service.RaiseInput{
		Title:       req.Title,
		Description: req.Description,
		Department:  req.Department,
		ImageData:   req.ImageData,
		Anonymous:   req.Anonymous,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": issueResponse(issue, false, false)})
}

// List handles GET /issues?tab=&search=.
func (h *IssuesHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewAuthError("authentication required")
	}
	tab := view.Tab(c.Query("tab", string(view.TabFeed)))
	search := c.Query("search")

	views, err := h.service.List(c.Context(), principal.User, tab, search)
	if err != nil {
		return err
	}
	items := make([]dto.IssueResponse, 0, len(views))
	for _, iv := range views {
		items = append(items, dto.NewIssueResponse(iv))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Upvote handles POST /issues/:id/upvote.
func (h *IssuesHandler) Upvote(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewAuthError("authentication required")
	}
	issue, err := h.service.Upvote(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueResponse(issue, true, false)})
}

// Report handles POST /issues/:id/report; session-local mark only.
func (h *IssuesHandler) Report(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewAuthError("authentication required")
	}
	if err := h.service.Report(c.Context(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"reported": true}})
}

// History handles GET /issues/:id/history.
func (h *IssuesHandler) History(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewAuthError("authentication required")
	}
	entries, err := h.service.History(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.IssueHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewIssueHistoryResponse(entry))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Withdraw handles DELETE /issues/:id.
func (h *IssuesHandler) Withdraw(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewAuthError("authentication required")
	}
	if err := h.service.Withdraw(c.Context(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func issueResponse(issue *domain.Issue, upvoted, reported bool) dto.IssueResponse {
	return dto.NewIssueResponse(view.IssueView{Issue: *issue, Upvoted: upvoted, Reported: reported})
}
