package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-issues/internal/api/http/handlers"
	"github.com/spec-kit/campus-issues/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Issues         *handlers.IssuesHandler
	Professor      *handlers.ProfessorHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/password/reset/request", cfg.Users.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Users.ConfirmPasswordReset)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, cfg.Users.Logout)

	issues := app.Group("/issues", cfg.AuthMiddleware.Handle)
	issues.Get("", cfg.Issues.List)
	issues.Post("", auth.RequireStudent(), cfg.Issues.Raise)
	issues.Post("/:id/upvote", auth.RequireStudent(), cfg.Issues.Upvote)
	issues.Post("/:id/report", cfg.Issues.Report)
	issues.Get("/:id/history", cfg.Issues.History)
	issues.Delete("/:id", cfg.Issues.Withdraw)

	issues.Post("/:id/resolve", auth.RequireProfessor(), cfg.Professor.Resolve)
	issues.Post("/:id/reject", auth.RequireProfessor(), cfg.Professor.Reject)
}
