package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-notify/internal/api/dto"
	"github.com/spec-kit/ticket-notify/internal/domain"
	"github.com/spec-kit/ticket-notify/internal/repository"
	apperrors "github.com/spec-kit/ticket-notify/pkg/util"
)

// SyncHandler is the boundary the upstream system calls to keep the
// engine's reference data current: the ticket copy and the staff
// directory.
type SyncHandler struct {
	tickets  repository.TicketRepository
	staffDir repository.StaffDirectoryRepository
}

// NewSyncHandler returns a new handler instance.
func NewSyncHandler(tickets repository.TicketRepository, staffDir repository.StaffDirectoryRepository) *SyncHandler {
	return &SyncHandler{tickets: tickets, staffDir: staffDir}
}

// UpsertTicket handles PUT /api/v1/tickets/:id.
func (h *SyncHandler) UpsertTicket(c *fiber.Ctx) error {
	ticketID := c.Params("id")

	var req dto.UpsertTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if strings.TrimSpace(req.PlayerHandle) == "" || strings.TrimSpace(req.PlayerEmail) == "" {
		return apperrors.NewValidationError("player contact required", nil)
	}

	ticket := &domain.Ticket{
		ID:           ticketID,
		Subject:      req.Subject,
		PlayerHandle: req.PlayerHandle,
		PlayerEmail:  req.PlayerEmail,
	}
	if err := h.tickets.Upsert(c.UserContext(), ticket); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ticket_id": ticket.ID})
}

// UpsertStaffContact handles PUT /api/v1/staff/:handle.
func (h *SyncHandler) UpsertStaffContact(c *fiber.Ctx) error {
	handle := c.Params("handle")

	var req dto.UpsertStaffContactRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if strings.TrimSpace(req.Email) == "" {
		return apperrors.NewValidationError("email required", nil)
	}

	contact := &domain.StaffContact{
		Handle:      handle,
		DisplayName: req.DisplayName,
		Email:       req.Email,
	}
	if err := h.staffDir.Upsert(c.UserContext(), contact); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"handle": contact.Handle})
}
