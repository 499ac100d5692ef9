package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-notify/internal/domain"
	apperrors "github.com/spec-kit/ticket-notify/pkg/util"
)

// SubscriptionRepository persists the (ticket, staff) subscription records.
// The unique index on (ticket_id, staff_handle) backs up the one-record-
// per-pair invariant against races; mutations are single-statement upserts
// so concurrent callers always land in one of the two terminal states.
type SubscriptionRepository interface {
	Activate(ctx context.Context, ticketID, staffHandle string) (*domain.Subscription, error)
	Deactivate(ctx context.Context, ticketID, staffHandle string, at time.Time) error
	Get(ctx context.Context, ticketID, staffHandle string) (*domain.Subscription, error)
	ListActiveHandles(ctx context.Context, ticketID string) ([]string, error)
}

type subscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository builds repository.
func NewSubscriptionRepository(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepository{pool: pool}
}

func (r *subscriptionRepository) Activate(ctx context.Context, ticketID, staffHandle string) (*domain.Subscription, error) {
	const query = `
        INSERT INTO ticket_subscriptions (ticket_id, staff_handle, active, subscribed_at)
        VALUES ($1,$2,TRUE,now())
        ON CONFLICT (ticket_id, staff_handle) DO UPDATE
            SET active = TRUE, unsubscribed_at = NULL
        RETURNING id, ticket_id, staff_handle, active, subscribed_at, unsubscribed_at`
	var sub domain.Subscription
	err := r.pool.QueryRow(ctx, query, ticketID, staffHandle).Scan(
		&sub.ID,
		&sub.TicketID,
		&sub.StaffHandle,
		&sub.Active,
		&sub.SubscribedAt,
		&sub.UnsubscribedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflict("concurrent subscription mutation", map[string]any{
				"ticket_id":    ticketID,
				"staff_handle": staffHandle,
			})
		}
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) Deactivate(ctx context.Context, ticketID, staffHandle string, at time.Time) error {
	const query = `
        UPDATE ticket_subscriptions
        SET active = FALSE, unsubscribed_at = $3
        WHERE ticket_id=$1 AND staff_handle=$2 AND active`
	_, err := r.pool.Exec(ctx, query, ticketID, staffHandle, at)
	return err
}

func (r *subscriptionRepository) Get(ctx context.Context, ticketID, staffHandle string) (*domain.Subscription, error) {
	const query = `
        SELECT id, ticket_id, staff_handle, active, subscribed_at, unsubscribed_at
        FROM ticket_subscriptions WHERE ticket_id=$1 AND staff_handle=$2`
	var sub domain.Subscription
	err := r.pool.QueryRow(ctx, query, ticketID, staffHandle).Scan(
		&sub.ID,
		&sub.TicketID,
		&sub.StaffHandle,
		&sub.Active,
		&sub.SubscribedAt,
		&sub.UnsubscribedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListActiveHandles(ctx context.Context, ticketID string) ([]string, error) {
	const query = `
        SELECT staff_handle FROM ticket_subscriptions
        WHERE ticket_id=$1 AND active`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var handle string
		if err := rows.Scan(&handle); err != nil {
			return nil, err
		}
		result = append(result, handle)
	}
	return result, rows.Err()
}
