package dto

import (
	"time"

	"github.com/spec-kit/ticket-notify/internal/domain"
)

// CreateReplyRequest payload.
type CreateReplyRequest struct {
	Content string `json:"content"`
}

// UpdateResponse represents one ledger entry.
type UpdateResponse struct {
	ID           string    `json:"id"`
	TicketID     string    `json:"ticket_id"`
	Content      string    `json:"content"`
	AuthorHandle string    `json:"author_handle"`
	IsStaffReply bool      `json:"is_staff_reply"`
	RepliedAt    time.Time `json:"replied_at"`
	ReadBy       []string  `json:"read_by"`
}

// UpdateListResponse pages through a ticket's update feed.
type UpdateListResponse struct {
	TicketID   string           `json:"ticket_id"`
	Updates    []UpdateResponse `json:"updates"`
	NextBefore *time.Time       `json:"next_before,omitempty"`
}

// NewUpdateResponse maps a domain update.
func NewUpdateResponse(update domain.Update) UpdateResponse {
	readBy := update.ReadBy
	if readBy == nil {
		readBy = []string{}
	}
	return UpdateResponse{
		ID:           update.ID,
		TicketID:     update.TicketID,
		Content:      update.Content,
		AuthorHandle: update.AuthorHandle,
		IsStaffReply: update.IsStaffReply,
		RepliedAt:    update.RepliedAt,
		ReadBy:       readBy,
	}
}
