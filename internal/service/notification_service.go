package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-notify/internal/domain"
	"github.com/spec-kit/ticket-notify/internal/events"
	"github.com/spec-kit/ticket-notify/internal/repository"
)

// NotificationDispatcher is the engine side of the reply handoff.
// Implemented by dispatch.Dispatcher.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, ticket *domain.Ticket, update *domain.Update, recipients []domain.Recipient) error
}

// NotificationService bridges domain events to the dispatch engine: it
// resolves eligibility for each new reply and enqueues one dispatch per
// recipient. Errors here are logged, never returned to the reply path.
type NotificationService struct {
	dispatcher events.Dispatcher
	resolver   *EligibilityResolver
	tickets    repository.TicketRepository
	engine     NotificationDispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, resolver *EligibilityResolver, tickets repository.TicketRepository, engine NotificationDispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		resolver:   resolver,
		tickets:    tickets,
		engine:     engine,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventReplyAdded, n.handleReplyAdded)
}

func (n *NotificationService) handleReplyAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReplyAddedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for %s", event.Payload, event.Type)
	}
	update := payload.Update

	ticket, err := n.tickets.GetByID(ctx, update.TicketID)
	if err != nil {
		return fmt.Errorf("load ticket %s: %w", update.TicketID, err)
	}

	recipients, err := n.resolver.Resolve(ctx, ticket, &update)
	if err != nil {
		return fmt.Errorf("resolve recipients for update %s: %w", update.ID, err)
	}
	if len(recipients) == 0 {
		n.logger.Debug("no eligible recipients",
			zap.String("ticket_id", update.TicketID),
			zap.String("update_id", update.ID))
		return nil
	}

	if err := n.engine.Dispatch(ctx, ticket, &update, recipients); err != nil {
		return fmt.Errorf("enqueue dispatch for update %s: %w", update.ID, err)
	}

	n.logger.Info("reply dispatched",
		zap.String("ticket_id", update.TicketID),
		zap.String("update_id", update.ID),
		zap.Int("recipients", len(recipients)))
	return nil
}
