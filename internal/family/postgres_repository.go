package family

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wakabadc/clinic-line-admin/internal/profiles"
)

// PostgresRepository stores families and membership columns in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("family: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// CreateFamily inserts a family row.
func (r *PostgresRepository) CreateFamily(ctx context.Context, name, representativeUserID string) (*Family, error) {
	query := `
		INSERT INTO families (family_name, representative_user_id)
		VALUES ($1, $2)
		RETURNING id, family_name, representative_user_id, created_at, updated_at
	`
	return r.scanFamily(r.pool.QueryRow(ctx, query, name, representativeUserID))
}

// GetFamily fetches a family row.
func (r *PostgresRepository) GetFamily(ctx context.Context, id string) (*Family, error) {
	query := `
		SELECT id, family_name, representative_user_id, created_at, updated_at
		FROM families
		WHERE id = $1
	`
	f, err := r.scanFamily(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFamilyNotFound
		}
		return nil, err
	}
	return f, nil
}

// RenameFamily updates the family name.
func (r *PostgresRepository) RenameFamily(ctx context.Context, id, name string) (*Family, error) {
	query := `
		UPDATE families SET family_name = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, family_name, representative_user_id, created_at, updated_at
	`
	f, err := r.scanFamily(r.pool.QueryRow(ctx, query, id, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFamilyNotFound
		}
		return nil, err
	}
	return f, nil
}

// DeleteFamily removes a family row.
func (r *PostgresRepository) DeleteFamily(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM families WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("family: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFamilyNotFound
	}
	return nil
}

// ListSummaries aggregates member counts and totals per family, largest
// stamp totals first.
func (r *PostgresRepository) ListSummaries(ctx context.Context, minMembers int) ([]Summary, error) {
	query := `
		SELECT f.id, f.family_name, f.representative_user_id, f.created_at, f.updated_at,
		       COUNT(p.id) AS member_count,
		       COALESCE(SUM(p.stamp_count), 0) AS total_stamp_count,
		       COALESCE(SUM(p.visit_count), 0) AS total_visit_count
		FROM families f
		LEFT JOIN profiles p ON p.family_id = f.id
		GROUP BY f.id
		HAVING COUNT(p.id) >= $1
		ORDER BY total_stamp_count DESC
	`
	rows, err := r.pool.Query(ctx, query, minMembers)
	if err != nil {
		return nil, fmt.Errorf("family: list summaries: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.RepresentativeUserID,
			&s.CreatedAt,
			&s.UpdatedAt,
			&s.MemberCount,
			&s.TotalStampCount,
			&s.TotalVisitCount,
		); err != nil {
			return nil, fmt.Errorf("family: scan summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetProfile fetches one profile with its family columns.
func (r *PostgresRepository) GetProfile(ctx context.Context, userID string) (*profiles.Profile, error) {
	query := `
		SELECT id, display_name, stamp_count, visit_count, family_id, family_role
		FROM profiles
		WHERE id = $1
	`
	var p profiles.Profile
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.ID,
		&p.DisplayName,
		&p.StampCount,
		&p.VisitCount,
		&p.FamilyID,
		&p.FamilyRole,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profiles.ErrProfileNotFound
		}
		return nil, fmt.Errorf("family: select profile: %w", err)
	}
	return &p, nil
}

// MembersOf lists the members of a family, parent first.
func (r *PostgresRepository) MembersOf(ctx context.Context, familyID string) ([]*profiles.Profile, error) {
	query := `
		SELECT id, display_name, stamp_count, visit_count, family_id, family_role
		FROM profiles
		WHERE family_id = $1
		ORDER BY family_role DESC, id
	`
	rows, err := r.pool.Query(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("family: list members: %w", err)
	}
	defer rows.Close()

	var out []*profiles.Profile
	for rows.Next() {
		var p profiles.Profile
		if err := rows.Scan(
			&p.ID,
			&p.DisplayName,
			&p.StampCount,
			&p.VisitCount,
			&p.FamilyID,
			&p.FamilyRole,
		); err != nil {
			return nil, fmt.Errorf("family: scan member: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// CountMembers counts the members of a family.
func (r *PostgresRepository) CountMembers(ctx context.Context, familyID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE family_id = $1`, familyID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("family: count members: %w", err)
	}
	return count, nil
}

// AssignProfile moves a profile into a family with the given role.
func (r *PostgresRepository) AssignProfile(ctx context.Context, userID, familyID, role string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE profiles SET family_id = $2, family_role = $3, updated_at = now()
		WHERE id = $1
	`, userID, familyID, role)
	if err != nil {
		return fmt.Errorf("family: assign profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return profiles.ErrProfileNotFound
	}
	return nil
}

func (r *PostgresRepository) scanFamily(row pgx.Row) (*Family, error) {
	var f Family
	if err := row.Scan(
		&f.ID,
		&f.Name,
		&f.RepresentativeUserID,
		&f.CreatedAt,
		&f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &f, nil
}
