package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-notify/internal/api/dto"
	"github.com/spec-kit/ticket-notify/internal/auth"
	"github.com/spec-kit/ticket-notify/internal/service"
	apperrors "github.com/spec-kit/ticket-notify/pkg/util"
)

// UpdatesHandler exposes the update ledger: reply ingestion for the
// upstream CRUD system and the feed/read-tracking endpoints.
type UpdatesHandler struct {
	ledger *service.LedgerService
}

// NewUpdatesHandler returns a new handler instance.
func NewUpdatesHandler(ledger *service.LedgerService) *UpdatesHandler {
	return &UpdatesHandler{ledger: ledger}
}

// CreateReply handles POST /api/v1/tickets/:id/replies. The ledger append
// is synchronous; notification dispatch happens on the async queue and
// its outcome never affects this response.
func (h *UpdatesHandler) CreateReply(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticketID := c.Params("id")

	var req dto.CreateReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	update, err := h.ledger.AppendUpdate(c.UserContext(), service.AppendUpdateInput{
		TicketID:     ticketID,
		Content:      req.Content,
		AuthorHandle: principal.Handle,
		IsStaffReply: principal.IsStaff(),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewUpdateResponse(*update))
}

// ListUpdates handles GET /api/v1/tickets/:id/updates.
func (h *UpdatesHandler) ListUpdates(c *fiber.Ctx) error {
	ticketID := c.Params("id")
	limit := c.QueryInt("limit", 0)

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return apperrors.NewValidationError("invalid before cursor", map[string]any{"before": raw})
		}
		before = &parsed
	}

	updates, err := h.ledger.ListRecentUpdates(c.UserContext(), ticketID, limit, before)
	if err != nil {
		return err
	}

	resp := dto.UpdateListResponse{TicketID: ticketID, Updates: make([]dto.UpdateResponse, 0, len(updates))}
	for _, update := range updates {
		resp.Updates = append(resp.Updates, dto.NewUpdateResponse(update))
	}
	if len(updates) > 0 {
		last := updates[len(updates)-1].RepliedAt
		resp.NextBefore = &last
	}
	return c.JSON(resp)
}

// MarkRead handles POST /api/v1/updates/:id/read.
func (h *UpdatesHandler) MarkRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	updateID := c.Params("id")

	if err := h.ledger.MarkRead(c.UserContext(), updateID, principal.Handle); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
