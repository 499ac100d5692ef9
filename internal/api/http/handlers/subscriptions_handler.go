package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-notify/internal/api/dto"
	"github.com/spec-kit/ticket-notify/internal/auth"
	"github.com/spec-kit/ticket-notify/internal/service"
	apperrors "github.com/spec-kit/ticket-notify/pkg/util"
)

// SubscriptionsHandler exposes the subscription registry to staff.
type SubscriptionsHandler struct {
	registry *service.SubscriptionService
}

// NewSubscriptionsHandler returns a new handler instance.
func NewSubscriptionsHandler(registry *service.SubscriptionService) *SubscriptionsHandler {
	return &SubscriptionsHandler{registry: registry}
}

// Subscribe handles PUT /api/v1/tickets/:id/subscription.
func (h *SubscriptionsHandler) Subscribe(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticketID := c.Params("id")

	if err := h.registry.Subscribe(c.UserContext(), ticketID, principal.Handle); err != nil {
		return err
	}
	return c.JSON(dto.SubscriptionStatusResponse{TicketID: ticketID, Subscribed: true})
}

// Unsubscribe handles DELETE /api/v1/tickets/:id/subscription.
func (h *SubscriptionsHandler) Unsubscribe(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticketID := c.Params("id")

	if err := h.registry.Unsubscribe(c.UserContext(), ticketID, principal.Handle); err != nil {
		return err
	}
	return c.JSON(dto.SubscriptionStatusResponse{TicketID: ticketID, Subscribed: false})
}

// Status handles GET /api/v1/tickets/:id/subscription.
func (h *SubscriptionsHandler) Status(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticketID := c.Params("id")

	subscribed, err := h.registry.IsSubscribed(c.UserContext(), ticketID, principal.Handle)
	if err != nil {
		return err
	}
	return c.JSON(dto.SubscriptionStatusResponse{TicketID: ticketID, Subscribed: subscribed})
}

// ListSubscribers handles GET /api/v1/tickets/:id/subscribers.
func (h *SubscriptionsHandler) ListSubscribers(c *fiber.Ctx) error {
	ticketID := c.Params("id")

	handles, err := h.registry.ListActiveSubscribers(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	if handles == nil {
		handles = []string{}
	}
	return c.JSON(dto.SubscribersResponse{TicketID: ticketID, Subscribers: handles})
}
