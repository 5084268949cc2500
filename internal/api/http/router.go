package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/clearbridge/support-sync/internal/api/http/handlers"
	"github.com/clearbridge/support-sync/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Streams        *handlers.StreamHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	// The events routes come first so "/tickets/events" is not captured
	// by the ":id" parameter.
	api.Get("/tickets/events", cfg.Streams.StreamTickets)
	api.Get("/tickets/:id/events", cfg.Streams.StreamTicket)

	api.Post("/tickets", auth.RequireRole(auth.RoleCustomer), cfg.Tickets.CreateTicket)
	api.Get("/tickets", cfg.Tickets.ListTickets)
	api.Get("/tickets/:id", cfg.Tickets.GetTicket)
	api.Post("/tickets/:id/claim", auth.RequireRole(auth.RoleAgent), cfg.Tickets.ClaimTicket)
	api.Post("/tickets/:id/resolve", auth.RequireRole(auth.RoleAgent), cfg.Tickets.ResolveTicket)
	api.Post("/tickets/:id/messages", cfg.Tickets.AppendMessage)
}
