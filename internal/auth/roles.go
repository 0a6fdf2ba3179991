package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-issues/internal/domain"
	apperrors "github.com/spec-kit/campus-issues/pkg/util"
)

// RequireRole pre-gates a route to one of the allowed roles. The lifecycle
// engine re-checks permissions centrally; this only keeps obviously wrong
// callers away from the route.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewAuthError("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.User.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireStudent ensures a student is authenticated.
func RequireStudent() fiber.Handler {
	return RequireRole(domain.RoleStudent)
}

// RequireProfessor ensures a professor is authenticated.
func RequireProfessor() fiber.Handler {
	return RequireRole(domain.RoleProfessor)
}
