package rewards

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the repository uses. pgxmock
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores reward exchanges in the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("rewards: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

const exchangeColumns = `
	re.id, re.user_id, re.reward_id, re.stamp_count_used, re.status,
	re.exchanged_at, re.completed_at, re.completed_by, re.notes, re.created_at`

// List returns exchanges newest first, joined with patient and reward
// display fields. The search term matches patient name, ticket number, or
// reward name.
func (r *PostgresRepository) List(ctx context.Context, q ListQuery) ([]WithDetails, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT ` + exchangeColumns + `,
		       p.display_name, p.picture_url, p.ticket_number,
		       rw.name, rw.image_url
		FROM reward_exchanges re
		LEFT JOIN profiles p ON p.id = re.user_id
		LEFT JOIN rewards rw ON rw.id = re.reward_id
		WHERE ($1 = '' OR re.status = $1)
		  AND ($2 = '' OR p.display_name ILIKE '%' || $2 || '%'
		       OR p.ticket_number ILIKE '%' || $2 || '%'
		       OR rw.name ILIKE '%' || $2 || '%')
		ORDER BY re.exchanged_at DESC
		LIMIT $3`
	rows, err := r.pool.Query(ctx, query, q.Status, q.Search, limit)
	if err != nil {
		return nil, fmt.Errorf("rewards: list: %w", err)
	}
	defer rows.Close()

	var out []WithDetails
	for rows.Next() {
		var d WithDetails
		var userName, rewardName *string
		if err := rows.Scan(&d.ID, &d.UserID, &d.RewardID, &d.StampCountUsed, &d.Status,
			&d.ExchangedAt, &d.CompletedAt, &d.CompletedBy, &d.Notes, &d.CreatedAt,
			&userName, &d.UserPictureURL, &d.UserTicket,
			&rewardName, &d.RewardImageURL); err != nil {
			return nil, fmt.Errorf("rewards: scan: %w", err)
		}
		d.UserName = orFallback(userName)
		d.RewardName = orFallback(rewardName)
		out = append(out, d)
	}
	return out, rows.Err()
}

func orFallback(v *string) string {
	if v != nil && *v != "" {
		return *v
	}
	return FallbackDisplayName
}

// GetByID fetches one exchange.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Exchange, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+exchangeColumns+`
		FROM reward_exchanges re WHERE re.id = $1`, id)
	var e Exchange
	err := row.Scan(&e.ID, &e.UserID, &e.RewardID, &e.StampCountUsed, &e.Status,
		&e.ExchangedAt, &e.CompletedAt, &e.CompletedBy, &e.Notes, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExchangeNotFound
		}
		return nil, fmt.Errorf("rewards: get: %w", err)
	}
	return &e, nil
}

// MarkCompleted flips the row to completed and records who handed it over.
func (r *PostgresRepository) MarkCompleted(ctx context.Context, id, completedBy string) (*Exchange, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE reward_exchanges
		SET status = $2, completed_at = now(), completed_by = $3
		WHERE id = $1
		RETURNING id, user_id, reward_id, stamp_count_used, status,
		          exchanged_at, completed_at, completed_by, notes, created_at`,
		id, StatusCompleted, completedBy)
	return scanExchange(row)
}

// MarkCancelled flips the row to cancelled without touching stamps.
func (r *PostgresRepository) MarkCancelled(ctx context.Context, id string, notes *string) (*Exchange, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE reward_exchanges
		SET status = $2, notes = COALESCE($3, notes)
		WHERE id = $1
		RETURNING id, user_id, reward_id, stamp_count_used, status,
		          exchanged_at, completed_at, completed_by, notes, created_at`,
		id, StatusCancelled, notes)
	return scanExchange(row)
}

// Delete removes the row.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reward_exchanges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("rewards: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExchangeNotFound
	}
	return nil
}

func scanExchange(row pgx.Row) (*Exchange, error) {
	var e Exchange
	err := row.Scan(&e.ID, &e.UserID, &e.RewardID, &e.StampCountUsed, &e.Status,
		&e.ExchangedAt, &e.CompletedAt, &e.CompletedBy, &e.Notes, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExchangeNotFound
		}
		return nil, fmt.Errorf("rewards: update: %w", err)
	}
	return &e, nil
}
