package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-notify/internal/domain"
	apperrors "github.com/spec-kit/ticket-notify/pkg/util"
)

// UpdateRepository persists the append-only ledger of reply events.
type UpdateRepository interface {
	Create(ctx context.Context, update *domain.Update) error
	GetByID(ctx context.Context, id string) (*domain.Update, error)
	AddReader(ctx context.Context, updateID, staffHandle string) error
	ListRecentByTicket(ctx context.Context, ticketID string, limit int, before *time.Time) ([]domain.Update, error)
}

type updateRepository struct {
	pool *pgxpool.Pool
}

// NewUpdateRepository builds repository.
func NewUpdateRepository(pool *pgxpool.Pool) UpdateRepository {
	return &updateRepository{pool: pool}
}

func (r *updateRepository) Create(ctx context.Context, update *domain.Update) error {
	const query = `
        INSERT INTO ticket_updates (ticket_id, content, author_handle, is_staff_reply, replied_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, seq`
	err := r.pool.QueryRow(ctx, query,
		update.TicketID,
		update.Content,
		update.AuthorHandle,
		update.IsStaffReply,
		update.RepliedAt,
	).Scan(&update.ID, &update.Seq)
	if err != nil && isForeignKeyViolation(err) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": update.TicketID})
	}
	return err
}

func (r *updateRepository) GetByID(ctx context.Context, id string) (*domain.Update, error) {
	const query = `
        SELECT id, ticket_id, seq, content, author_handle, is_staff_reply, replied_at, read_by
        FROM ticket_updates WHERE id=$1`
	var update domain.Update
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&update.ID,
		&update.TicketID,
		&update.Seq,
		&update.Content,
		&update.AuthorHandle,
		&update.IsStaffReply,
		&update.RepliedAt,
		&update.ReadBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("update", map[string]any{"update_id": id})
		}
		return nil, err
	}
	return &update, nil
}

// AddReader grows the read-by set. Appending an already-present handle is
// a no-op, so the set stays monotonic under concurrent marks.
func (r *updateRepository) AddReader(ctx context.Context, updateID, staffHandle string) error {
	const query = `
        UPDATE ticket_updates
        SET read_by = CASE
            WHEN $2 = ANY(read_by) THEN read_by
            ELSE array_append(read_by, $2)
        END
        WHERE id=$1`
	tag, err := r.pool.Exec(ctx, query, updateID, staffHandle)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFound("update", map[string]any{"update_id": updateID})
	}
	return nil
}

func (r *updateRepository) ListRecentByTicket(ctx context.Context, ticketID string, limit int, before *time.Time) ([]domain.Update, error) {
	const query = `
        SELECT id, ticket_id, seq, content, author_handle, is_staff_reply, replied_at, read_by
        FROM ticket_updates
        WHERE ticket_id=$1 AND ($3::timestamptz IS NULL OR replied_at < $3)
        ORDER BY replied_at DESC, seq DESC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, ticketID, limit, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Update
	for rows.Next() {
		var update domain.Update
		if err := rows.Scan(
			&update.ID,
			&update.TicketID,
			&update.Seq,
			&update.Content,
			&update.AuthorHandle,
			&update.IsStaffReply,
			&update.RepliedAt,
			&update.ReadBy,
		); err != nil {
			return nil, err
		}
		result = append(result, update)
	}
	return result, rows.Err()
}
