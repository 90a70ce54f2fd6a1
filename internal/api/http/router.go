package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/api/http/handlers"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/auth"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Queues         *handlers.QueueHandler
	Sessions       *handlers.SessionHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/counters", cfg.Health.Counters)

	operator := []domain.Role{domain.RoleOperator, domain.RoleAdmin}

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Post("/:id/claim", auth.RequireRole(operator...), cfg.Tickets.Claim)
	tickets.Post("/:id/transition", cfg.Tickets.Transition)
	tickets.Post("/:id/forward", auth.RequireRole(operator...), cfg.Tickets.Forward)
	tickets.Get("/:id/audit", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.Audit)

	queue := app.Group("/queue", cfg.AuthMiddleware.Handle)
	queue.Get("/:channel", cfg.Queues.Live)

	escalations := app.Group("/escalations", cfg.AuthMiddleware.Handle)
	escalations.Get("/:department", cfg.Queues.Escalations)
	escalations.Post("/:id/take", auth.RequireRole(operator...), cfg.Queues.TakeDemand)

	session := app.Group("/session", cfg.AuthMiddleware.Handle, auth.RequireRole(operator...))
	session.Get("/active", cfg.Sessions.Active)
	session.Post("/online", cfg.Sessions.Online)
	session.Post("/offline", cfg.Sessions.Offline)
	session.Get("/offer", cfg.Sessions.Offer)
	session.Post("/offer/accept", cfg.Sessions.Accept)
	session.Post("/offer/reject", cfg.Sessions.Reject)
}
