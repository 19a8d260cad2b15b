package profiles

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const profileColumns = `
	id, line_user_id, display_name, real_name, picture_url, stamp_count,
	ticket_number, last_visit_date, visit_count, view_mode, is_line_friend,
	family_id, family_role, next_visit_date, next_visit_memo,
	reservation_button_clicks, created_at, updated_at`

// PostgresRepository stores profiles in the relational database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("profiles: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// List returns all profiles, most recently updated first.
func (r *PostgresRepository) List(ctx context.Context) ([]*Profile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("profiles: list: %w", err)
	}
	defer rows.Close()

	var out []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetByID fetches one profile.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

// Update applies a partial edit, building the SET clause from provided fields.
func (r *PostgresRepository) Update(ctx context.Context, id string, update Update) (*Profile, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	sets := []string{"updated_at = now()"}
	args := []any{id}
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, nullable(*value))
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	add("display_name", update.DisplayName)
	add("real_name", update.RealName)
	add("ticket_number", update.TicketNumber)
	add("view_mode", update.ViewMode)
	if update.LastVisitDate != nil {
		if *update.LastVisitDate == "" {
			sets = append(sets, "last_visit_date = NULL")
		} else {
			args = append(args, (*update.LastVisitDate)[:10])
			sets = append(sets, "last_visit_date = $"+strconv.Itoa(len(args))+"::date")
		}
	}

	query := `UPDATE profiles SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + profileColumns
	p, err := scanProfile(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("profiles: update: %w", err)
	}
	return p, nil
}

// SetStampCount overwrites the stamp counter after range validation.
func (r *PostgresRepository) SetStampCount(ctx context.Context, id string, count int) (*Profile, error) {
	if !ValidStampCount(count) {
		return nil, ErrInvalidStampCount
	}
	query := `
		UPDATE profiles SET stamp_count = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + profileColumns
	p, err := scanProfile(r.pool.QueryRow(ctx, query, id, count))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("profiles: set stamp count: %w", err)
	}
	return p, nil
}

// AdjustStampCount applies a delta clamped to 0..999 in a single statement,
// relying on the row-level atomicity of the update.
func (r *PostgresRepository) AdjustStampCount(ctx context.Context, id string, delta int) (*Profile, error) {
	query := `
		UPDATE profiles
		SET stamp_count = LEAST($3, GREATEST(0, stamp_count + $2)), updated_at = now()
		WHERE id = $1
		RETURNING ` + profileColumns
	p, err := scanProfile(r.pool.QueryRow(ctx, query, id, delta, MaxStampCount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("profiles: adjust stamp count: %w", err)
	}
	return p, nil
}

// UpdateNextVisit edits the next-visit memo and date.
func (r *PostgresRepository) UpdateNextVisit(ctx context.Context, id string, update NextVisitUpdate) (*Profile, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	sets := []string{"updated_at = now()"}
	args := []any{id}
	if update.Date != nil {
		if *update.Date == "" {
			sets = append(sets, "next_visit_date = NULL")
		} else {
			args = append(args, *update.Date)
			sets = append(sets, "next_visit_date = $"+strconv.Itoa(len(args))+"::date")
		}
	}
	if update.Memo != nil {
		args = append(args, nullable(*update.Memo))
		sets = append(sets, "next_visit_memo = $"+strconv.Itoa(len(args)))
	}

	query := `UPDATE profiles SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + profileColumns
	p, err := scanProfile(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("profiles: update next visit: %w", err)
	}
	return p, nil
}

// IncrementReservationClicks bumps the counter in one atomic statement.
func (r *PostgresRepository) IncrementReservationClicks(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE profiles
		SET reservation_button_clicks = reservation_button_clicks + 1
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("profiles: increment reservation clicks: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	if err := row.Scan(
		&p.ID,
		&p.LineUserID,
		&p.DisplayName,
		&p.RealName,
		&p.PictureURL,
		&p.StampCount,
		&p.TicketNumber,
		&p.LastVisitDate,
		&p.VisitCount,
		&p.ViewMode,
		&p.IsLineFriend,
		&p.FamilyID,
		&p.FamilyRole,
		&p.NextVisitDate,
		&p.NextVisitMemo,
		&p.ReservationClicks,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
