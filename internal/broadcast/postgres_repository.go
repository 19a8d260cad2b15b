package broadcast

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLogRepository stores broadcast logs in the relational database.
type PostgresLogRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresLogRepository initializes a log repo backed by pgxpool.
func NewPostgresLogRepository(pool *pgxpool.Pool) *PostgresLogRepository {
	if pool == nil {
		panic("broadcast: pgx pool required")
	}
	return &PostgresLogRepository{pool: pool}
}

// Insert persists one run log and fills in the generated id and timestamp.
func (r *PostgresLogRepository) Insert(ctx context.Context, log *Log) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO broadcast_logs
			(sent_by, segment_conditions, message_text, target_count, success_count, failed_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		log.SentBy, log.Segment, log.Message, log.TargetCount, log.SuccessCount, log.FailedCount)
	if err := row.Scan(&log.ID, &log.CreatedAt); err != nil {
		return fmt.Errorf("broadcast: insert log: %w", err)
	}
	return nil
}

// List returns run logs newest first.
func (r *PostgresLogRepository) List(ctx context.Context, limit, offset int) ([]Log, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, sent_by, segment_conditions, message_text,
		       target_count, success_count, failed_count, created_at
		FROM broadcast_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("broadcast: list logs: %w", err)
	}
	defer rows.Close()

	var out []Log
	for rows.Next() {
		var l Log
		if err := rows.Scan(&l.ID, &l.SentBy, &l.Segment, &l.Message,
			&l.TargetCount, &l.SuccessCount, &l.FailedCount, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("broadcast: scan log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
