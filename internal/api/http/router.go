package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/api/http/handlers"
	"github.com/spec-kit/ticket-tracker/internal/auth"
	"github.com/spec-kit/ticket-tracker/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Comments       *handlers.CommentsHandler
	AuthMiddleware *auth.AuthMiddleware
	Policy         *auth.Policy
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	authenticate := cfg.AuthMiddleware.Handle
	can := func(op auth.Operation) fiber.Handler {
		return auth.RequirePermission(cfg.Policy, op)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", authenticate, auth.RequireAuthenticated(), cfg.Auth.Logout)
	authGroup.Get("/me", authenticate, auth.RequireAuthenticated(), cfg.Auth.Me)

	app.Post("/users", cfg.Users.Register)
	app.Get("/users", authenticate, can(auth.OpUserList), cfg.Users.List)

	tickets := app.Group("/tickets", authenticate)
	tickets.Get("/", can(auth.OpTicketList), cfg.Tickets.ListTickets)
	tickets.Post("/", can(auth.OpTicketCreate), cfg.Tickets.CreateTicket)
	tickets.Delete("/:id", can(auth.OpTicketDelete), cfg.Tickets.DeleteTicket)
	tickets.Patch("/:id/status", can(auth.OpTicketUpdateStatus), cfg.Tickets.UpdateStatus)
	tickets.Patch("/:id/assign", can(auth.OpTicketAssign), cfg.Tickets.AssignTicket)
	tickets.Get("/:id/history", can(auth.OpTicketHistory), cfg.Tickets.History)
	tickets.Get("/:id/comments", can(auth.OpCommentList), cfg.Comments.ListComments)
	tickets.Post("/:id/comments", can(auth.OpCommentAdd), cfg.Comments.AddComment)

	comments := app.Group("/comments", authenticate)
	comments.Patch("/:id", can(auth.OpCommentEdit), cfg.Comments.EditComment)
	comments.Delete("/:id", can(auth.OpCommentDelete), cfg.Comments.DeleteComment)
}

// NewServer builds the fiber app with middlewares and routes registered.
func NewServer(appName string, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration, routes RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               appName,
		ErrorHandler:          ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, logger, metrics, timeout)
	RegisterRoutes(app, routes)
	return app
}
