package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStaffRepository stores staff accounts in the relational database.
type PostgresStaffRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresStaffRepository initializes a repo backed by pgxpool.
func NewPostgresStaffRepository(pool *pgxpool.Pool) *PostgresStaffRepository {
	if pool == nil {
		panic("auth: pgx pool required")
	}
	return &PostgresStaffRepository{pool: pool}
}

// GetByUsername fetches a staff row by username.
func (r *PostgresStaffRepository) GetByUsername(ctx context.Context, username string) (*Staff, error) {
	query := `
		SELECT id, username, display_name, password_hash, is_active, created_at, updated_at
		FROM staff
		WHERE username = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, username))
}

// GetByID fetches a staff row by id.
func (r *PostgresStaffRepository) GetByID(ctx context.Context, id string) (*Staff, error) {
	query := `
		SELECT id, username, display_name, password_hash, is_active, created_at, updated_at
		FROM staff
		WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// UpdatePasswordHash replaces the stored bcrypt hash.
func (r *PostgresStaffRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE staff SET password_hash = $2, updated_at = now()
		WHERE id = $1
	`, id, hash)
	if err != nil {
		return fmt.Errorf("auth: update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaffNotFound
	}
	return nil
}

func (r *PostgresStaffRepository) scanOne(row pgx.Row) (*Staff, error) {
	var s Staff
	if err := row.Scan(
		&s.ID,
		&s.Username,
		&s.DisplayName,
		&s.PasswordHash,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, fmt.Errorf("auth: select staff: %w", err)
	}
	return &s, nil
}
