package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-notify/internal/api/http/handlers"
	"github.com/spec-kit/ticket-notify/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Subscriptions  *handlers.SubscriptionsHandler
	Updates        *handlers.UpdatesHandler
	Sync           *handlers.SyncHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets/:id")
	tickets.Post("/replies", cfg.Updates.CreateReply)
	tickets.Get("/updates", cfg.Updates.ListUpdates)

	staffOnly := auth.RequireStaff()
	tickets.Put("/subscription", staffOnly, cfg.Subscriptions.Subscribe)
	tickets.Delete("/subscription", staffOnly, cfg.Subscriptions.Unsubscribe)
	tickets.Get("/subscription", staffOnly, cfg.Subscriptions.Status)
	tickets.Get("/subscribers", staffOnly, cfg.Subscriptions.ListSubscribers)

	api.Post("/updates/:id/read", staffOnly, cfg.Updates.MarkRead)

	api.Put("/tickets/:id", staffOnly, cfg.Sync.UpsertTicket)
	api.Put("/staff/:handle", staffOnly, cfg.Sync.UpsertStaffContact)
}
