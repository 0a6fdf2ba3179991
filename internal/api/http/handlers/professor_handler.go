package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-issues/internal/api/dto"
	"github.com/spec-kit/campus-issues/internal/auth"
	"github.com/spec-kit/campus-issues/internal/service"
	apperrors "github.com/spec-kit/campus-issues/pkg/util"
)

// ProfessorHandler exposes the review endpoints: resolve and reject.
type ProfessorHandler struct {
	service *service.IssueService
}

// NewProfessorHandler constructs handler.
func NewProfessorHandler(issueService *service.IssueService) *ProfessorHandler {
	return &ProfessorHandler{service: issueService}
}

// Resolve handles POST /issues/:id/resolve.
func (h *ProfessorHandler) Resolve(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewAuthError("authentication required")
	}
	var req dto.ResolveIssueRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	issue, err := h.service.Resolve(c.Context(), principal.User, c.Params("id"), req.ProofImageData)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueResponse(issue, false, false)})
}

// Reject handles POST /issues/:id/reject.
func (h *ProfessorHandler) Reject(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewAuthError("authentication required")
	}
	var req dto.RejectIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	issue, err := h.service.Reject(c.Context(), principal.User, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueResponse(issue, false, false)})
}
