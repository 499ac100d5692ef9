package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-notify/internal/domain"
)

// StaffDirectoryRepository maps staff handles to deliverable addresses.
type StaffDirectoryRepository interface {
	Upsert(ctx context.Context, contact *domain.StaffContact) error
	GetByHandles(ctx context.Context, handles []string) ([]domain.StaffContact, error)
}

type staffDirectoryRepository struct {
	pool *pgxpool.Pool
}

// NewStaffDirectoryRepository builds repository.
func NewStaffDirectoryRepository(pool *pgxpool.Pool) StaffDirectoryRepository {
	return &staffDirectoryRepository{pool: pool}
}

func (r *staffDirectoryRepository) Upsert(ctx context.Context, contact *domain.StaffContact) error {
	const query = `
        INSERT INTO staff_directory (handle, display_name, email)
        VALUES ($1,$2,$3)
        ON CONFLICT (handle) DO UPDATE
            SET display_name = EXCLUDED.display_name,
                email = EXCLUDED.email
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		contact.Handle,
		contact.DisplayName,
		contact.Email,
	).Scan(&contact.CreatedAt)
}

func (r *staffDirectoryRepository) GetByHandles(ctx context.Context, handles []string) ([]domain.StaffContact, error) {
	if len(handles) == 0 {
		return nil, nil
	}
	const query = `
        SELECT handle, display_name, email, created_at
        FROM staff_directory WHERE handle = ANY($1)`
	rows, err := r.pool.Query(ctx, query, handles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffContact
	for rows.Next() {
		var contact domain.StaffContact
		if err := rows.Scan(
			&contact.Handle,
			&contact.DisplayName,
			&contact.Email,
			&contact.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, contact)
	}
	return result, rows.Err()
}
