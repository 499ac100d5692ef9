package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-notify/internal/domain"
	"github.com/spec-kit/ticket-notify/internal/events"
	"github.com/spec-kit/ticket-notify/internal/repository"
	apperrors "github.com/spec-kit/ticket-notify/pkg/util"
)

const (
	defaultUpdateListLimit = 20
	maxUpdateListLimit     = 100
)

// LedgerService owns the append-only log of reply events and their
// per-recipient read state. Entries drive notification text and read
// tracking only; the authoritative reply lives in the upstream ticket.
type LedgerService struct {
	updates    repository.UpdateRepository
	registry   *SubscriptionService
	dispatcher events.Dispatcher
	truncLimit int
	logger     *zap.Logger
}

// LedgerDependencies bundles collaborators for the ledger.
type LedgerDependencies struct {
	UpdateRepo repository.UpdateRepository
	Registry   *SubscriptionService
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewLedgerService constructs the service.
func NewLedgerService(deps LedgerDependencies, contentTruncationLength int) *LedgerService {
	if contentTruncationLength <= 0 {
		contentTruncationLength = domain.DefaultContentTruncationLength
	}
	return &LedgerService{
		updates:    deps.UpdateRepo,
		registry:   deps.Registry,
		dispatcher: deps.Dispatcher,
		truncLimit: contentTruncationLength,
		logger:     deps.Logger,
	}
}

// AppendUpdateInput describes one reply event.
type AppendUpdateInput struct {
	TicketID     string
	Content      string
	AuthorHandle string
	IsStaffReply bool
	RepliedAt    time.Time
}

// AppendUpdate records a reply event and publishes it for notification
// dispatch. The content is truncated before storage; truncation is lossy
// and intentional. A staff author is implicitly subscribed to the ticket
// by their first reply.
func (s *LedgerService) AppendUpdate(ctx context.Context, input AppendUpdateInput) (*domain.Update, error) {
	if strings.TrimSpace(input.AuthorHandle) == "" {
		return nil, apperrors.NewValidationError("author handle required", nil)
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, apperrors.NewValidationError("content required", nil)
	}
	repliedAt := input.RepliedAt
	if repliedAt.IsZero() {
		repliedAt = time.Now()
	}

	update := &domain.Update{
		TicketID:     input.TicketID,
		Content:      domain.TruncateContent(input.Content, s.truncLimit),
		AuthorHandle: input.AuthorHandle,
		IsStaffReply: input.IsStaffReply,
		RepliedAt:    repliedAt,
		ReadBy:       []string{},
	}
	if err := s.updates.Create(ctx, update); err != nil {
		return nil, err
	}

	// The reply is durable from here on; nothing below may fail it.
	if input.IsStaffReply && s.registry != nil {
		if err := s.registry.SubscribeImplicit(ctx, input.TicketID, input.AuthorHandle); err != nil {
			s.logger.Warn("implicit subscribe failed",
				zap.String("ticket_id", input.TicketID),
				zap.String("staff_handle", input.AuthorHandle),
				zap.Error(err))
		}
	}

	s.publishReplyAdded(ctx, update)
	return update, nil
}

// MarkRead adds the staff handle to the update's read-by set. Idempotent.
func (s *LedgerService) MarkRead(ctx context.Context, updateID, staffHandle string) error {
	if strings.TrimSpace(staffHandle) == "" {
		return apperrors.NewValidationError("staff handle required", nil)
	}
	return s.updates.AddReader(ctx, updateID, staffHandle)
}

// GetUpdate returns a single ledger entry.
func (s *LedgerService) GetUpdate(ctx context.Context, updateID string) (*domain.Update, error) {
	return s.updates.GetByID(ctx, updateID)
}

// ListRecentUpdates returns ledger entries for a ticket in descending
// reply-timestamp order, ties broken by insertion order. The optional
// before cursor pages further back; re-querying with the same cursor
// yields the same entries unless new data was appended.
func (s *LedgerService) ListRecentUpdates(ctx context.Context, ticketID string, limit int, before *time.Time) ([]domain.Update, error) {
	if limit <= 0 {
		limit = defaultUpdateListLimit
	}
	if limit > maxUpdateListLimit {
		limit = maxUpdateListLimit
	}
	return s.updates.ListRecentByTicket(ctx, ticketID, limit, before)
}

func (s *LedgerService) publishReplyAdded(ctx context.Context, update *domain.Update) {
	if s.dispatcher == nil {
		return
	}
	actorType := domain.SubjectTypePlayer
	if update.IsStaffReply {
		actorType = domain.SubjectTypeStaff
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventReplyAdded,
		TicketID:  update.TicketID,
		Actor:     events.Actor{Type: actorType, Handle: update.AuthorHandle},
		Timestamp: time.Now(),
		Payload:   events.ReplyAddedPayload{Update: *update},
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish reply event", zap.String("ticket_id", update.TicketID), zap.Error(err))
	}
}
