package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-notify/internal/domain"
	"github.com/spec-kit/ticket-notify/internal/events"
	"github.com/spec-kit/ticket-notify/internal/repository"
	apperrors "github.com/spec-kit/ticket-notify/pkg/util"
)

// SubscriptionService is the subscription registry: it owns which staff
// members are notified about a ticket's updates.
type SubscriptionService struct {
	subs       repository.SubscriptionRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// SubscriptionDependencies bundles collaborators for the registry.
type SubscriptionDependencies struct {
	SubscriptionRepo repository.SubscriptionRepository
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
}

// NewSubscriptionService constructs the service.
func NewSubscriptionService(deps SubscriptionDependencies) *SubscriptionService {
	return &SubscriptionService{
		subs:       deps.SubscriptionRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Subscribe registers a staff member's interest in a ticket. Idempotent:
// repeated calls and re-subscribing after an unsubscribe converge on the
// same active record.
func (s *SubscriptionService) Subscribe(ctx context.Context, ticketID, staffHandle string) error {
	return s.subscribe(ctx, ticketID, staffHandle, false)
}

// SubscribeImplicit is the subscribe performed on behalf of a staff
// member when they first reply to a ticket.
func (s *SubscriptionService) SubscribeImplicit(ctx context.Context, ticketID, staffHandle string) error {
	return s.subscribe(ctx, ticketID, staffHandle, true)
}

func (s *SubscriptionService) subscribe(ctx context.Context, ticketID, staffHandle string, implicit bool) error {
	if strings.TrimSpace(staffHandle) == "" {
		return apperrors.NewValidationError("staff handle required", nil)
	}

	_, err := s.subs.Activate(ctx, ticketID, staffHandle)
	if apperrors.IsConflict(err) {
		// A concurrent mutation raced the upsert. The operation is
		// idempotent, so reapplying once converges.
		_, err = s.subs.Activate(ctx, ticketID, staffHandle)
	}
	if err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSubscriberAdded,
		TicketID:  ticketID,
		Actor:     events.Actor{Type: domain.SubjectTypeStaff, Handle: staffHandle},
		Timestamp: time.Now(),
		Payload:   events.SubscriberAddedPayload{StaffHandle: staffHandle, Implicit: implicit},
	})
	return nil
}

// Unsubscribe deactivates the record and stamps the unsubscribe time.
// No-op when the record is absent or already inactive.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, ticketID, staffHandle string) error {
	if strings.TrimSpace(staffHandle) == "" {
		return apperrors.NewValidationError("staff handle required", nil)
	}

	if err := s.subs.Deactivate(ctx, ticketID, staffHandle, time.Now()); err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSubscriberRemoved,
		TicketID:  ticketID,
		Actor:     events.Actor{Type: domain.SubjectTypeStaff, Handle: staffHandle},
		Timestamp: time.Now(),
		Payload:   events.SubscriberRemovedPayload{StaffHandle: staffHandle},
	})
	return nil
}

// ListActiveSubscribers returns the staff handles currently subscribed.
func (s *SubscriptionService) ListActiveSubscribers(ctx context.Context, ticketID string) ([]string, error) {
	return s.subs.ListActiveHandles(ctx, ticketID)
}

// IsSubscribed reports whether the staff member has an active subscription.
func (s *SubscriptionService) IsSubscribed(ctx context.Context, ticketID, staffHandle string) (bool, error) {
	sub, err := s.subs.Get(ctx, ticketID, staffHandle)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return sub.Active, nil
}

func (s *SubscriptionService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
