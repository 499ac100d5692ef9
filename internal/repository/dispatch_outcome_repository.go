package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-notify/internal/domain"
)

// DispatchOutcomeRepository persists per-(update, recipient) delivery
// state. CreatePending is the dedup gate: the unique index on
// (update_id, recipient_handle) means only one caller ever observes
// created=true for a pair.
type DispatchOutcomeRepository interface {
	CreatePending(ctx context.Context, updateID string, recipient domain.Recipient) (outcome *domain.DispatchOutcome, created bool, err error)
	RecordResult(ctx context.Context, id string, state domain.DispatchState, attempts int, lastError string) error
	ListUnresolved(ctx context.Context, olderThan time.Time, limit int) ([]domain.PendingDispatch, error)
}

type dispatchOutcomeRepository struct {
	pool *pgxpool.Pool
}

// NewDispatchOutcomeRepository builds repository.
func NewDispatchOutcomeRepository(pool *pgxpool.Pool) DispatchOutcomeRepository {
	return &dispatchOutcomeRepository{pool: pool}
}

func (r *dispatchOutcomeRepository) CreatePending(ctx context.Context, updateID string, recipient domain.Recipient) (*domain.DispatchOutcome, bool, error) {
	const insert = `
        INSERT INTO dispatch_outcomes (update_id, recipient_handle, recipient_kind, recipient_address)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (update_id, recipient_handle) DO NOTHING
        RETURNING id, state, attempts, created_at, updated_at`
	outcome := &domain.DispatchOutcome{UpdateID: updateID, Recipient: recipient}
	err := r.pool.QueryRow(ctx, insert, updateID, recipient.Handle, recipient.Kind, recipient.Address).Scan(
		&outcome.ID,
		&outcome.State,
		&outcome.Attempts,
		&outcome.CreatedAt,
		&outcome.UpdatedAt,
	)
	if err == nil {
		return outcome, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	// Conflict path: another Dispatch already owns this pair.
	const get = `
        SELECT id, state, attempts, recipient_kind, recipient_address, last_error, created_at, updated_at
        FROM dispatch_outcomes WHERE update_id=$1 AND recipient_handle=$2`
	err = r.pool.QueryRow(ctx, get, updateID, recipient.Handle).Scan(
		&outcome.ID,
		&outcome.State,
		&outcome.Attempts,
		&outcome.Recipient.Kind,
		&outcome.Recipient.Address,
		&outcome.LastError,
		&outcome.CreatedAt,
		&outcome.UpdatedAt,
	)
	if err != nil {
		return nil, false, err
	}
	return outcome, false, nil
}

func (r *dispatchOutcomeRepository) RecordResult(ctx context.Context, id string, state domain.DispatchState, attempts int, lastError string) error {
	const query = `
        UPDATE dispatch_outcomes
        SET state=$2, attempts=$3, last_error=NULLIF($4,''), updated_at=now()
        WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id, state, attempts, lastError)
	return err
}

// ListUnresolved returns pending or retryable outcomes untouched since
// olderThan, joined with the ledger data needed to rebuild their
// notifications. Used by the recovery sweep.
func (r *dispatchOutcomeRepository) ListUnresolved(ctx context.Context, olderThan time.Time, limit int) ([]domain.PendingDispatch, error) {
	const query = `
        SELECT o.id, o.update_id, o.recipient_handle, o.recipient_kind, o.recipient_address,
               o.state, o.attempts, o.last_error, o.created_at, o.updated_at,
               u.ticket_id, u.seq, u.content, u.author_handle, u.is_staff_reply, u.replied_at, u.read_by,
               t.subject
        FROM dispatch_outcomes o
        JOIN ticket_updates u ON u.id = o.update_id
        JOIN tickets t ON t.id = u.ticket_id
        WHERE o.state IN ('PENDING','FAILED_RETRYABLE') AND o.updated_at < $1
        ORDER BY o.updated_at ASC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PendingDispatch
	for rows.Next() {
		var pd domain.PendingDispatch
		if err := rows.Scan(
			&pd.Outcome.ID,
			&pd.Outcome.UpdateID,
			&pd.Outcome.Recipient.Handle,
			&pd.Outcome.Recipient.Kind,
			&pd.Outcome.Recipient.Address,
			&pd.Outcome.State,
			&pd.Outcome.Attempts,
			&pd.Outcome.LastError,
			&pd.Outcome.CreatedAt,
			&pd.Outcome.UpdatedAt,
			&pd.Update.TicketID,
			&pd.Update.Seq,
			&pd.Update.Content,
			&pd.Update.AuthorHandle,
			&pd.Update.IsStaffReply,
			&pd.Update.RepliedAt,
			&pd.Update.ReadBy,
			&pd.TicketSubject,
		); err != nil {
			return nil, err
		}
		pd.Update.ID = pd.Outcome.UpdateID
		result = append(result, pd)
	}
	return result, rows.Err()
}
