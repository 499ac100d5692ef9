package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-notify/internal/domain"
	"github.com/spec-kit/ticket-notify/internal/repository"
)

// EligibilityResolver computes who should be notified about one update.
// It reads live registry state on every call; caching across updates
// would let stale subscription sets leak into later dispatches.
type EligibilityResolver struct {
	subs     repository.SubscriptionRepository
	staffDir repository.StaffDirectoryRepository
	logger   *zap.Logger
}

// NewEligibilityResolver constructs the resolver.
func NewEligibilityResolver(subs repository.SubscriptionRepository, staffDir repository.StaffDirectoryRepository, logger *zap.Logger) *EligibilityResolver {
	return &EligibilityResolver{subs: subs, staffDir: staffDir, logger: logger}
}

// Resolve returns the recipient set for the update: active subscribers
// minus the author, plus the ticket's player contact when the reply came
// from staff. The player is always eligible for staff replies regardless
// of subscription state.
func (r *EligibilityResolver) Resolve(ctx context.Context, ticket *domain.Ticket, update *domain.Update) ([]domain.Recipient, error) {
	handles, err := r.subs.ListActiveHandles(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}

	eligible := make([]string, 0, len(handles))
	for _, handle := range handles {
		if handle == update.AuthorHandle {
			continue
		}
		eligible = append(eligible, handle)
	}

	contacts, err := r.staffDir.GetByHandles(ctx, eligible)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(contacts)+1)
	recipients := make([]domain.Recipient, 0, len(contacts)+1)
	for _, contact := range contacts {
		if _, ok := seen[contact.Handle]; ok {
			continue
		}
		seen[contact.Handle] = struct{}{}
		recipients = append(recipients, domain.Recipient{
			Handle:  contact.Handle,
			Address: contact.Email,
			Kind:    domain.SubjectTypeStaff,
		})
	}
	if len(contacts) < len(eligible) {
		r.logger.Warn("subscribers missing from staff directory",
			zap.String("ticket_id", ticket.ID),
			zap.Int("subscribed", len(eligible)),
			zap.Int("resolved", len(contacts)))
	}

	if update.IsStaffReply && ticket.PlayerHandle != update.AuthorHandle {
		if _, ok := seen[ticket.PlayerHandle]; !ok {
			recipients = append(recipients, domain.Recipient{
				Handle:  ticket.PlayerHandle,
				Address: ticket.PlayerEmail,
				Kind:    domain.SubjectTypePlayer,
			})
		}
	}

	return recipients, nil
}
