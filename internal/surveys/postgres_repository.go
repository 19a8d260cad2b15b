package surveys

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores surveys, targets, and answers in the
// relational database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("surveys: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

const surveyColumns = `
	id, title, description, reward_stamps, is_active,
	start_date, end_date, created_at, updated_at`

// ListSurveys returns surveys newest first.
func (r *PostgresRepository) ListSurveys(ctx context.Context) ([]Survey, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+surveyColumns+`
		FROM surveys
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("surveys: list: %w", err)
	}
	defer rows.Close()

	var out []Survey
	for rows.Next() {
		var s Survey
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.RewardStamps, &s.IsActive,
			&s.StartDate, &s.EndDate, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("surveys: scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSurvey fetches one survey.
func (r *PostgresRepository) GetSurvey(ctx context.Context, id string) (*Survey, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+surveyColumns+`
		FROM surveys WHERE id = $1`, id)
	var s Survey
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.RewardStamps, &s.IsActive,
		&s.StartDate, &s.EndDate, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSurveyNotFound
		}
		return nil, fmt.Errorf("surveys: get: %w", err)
	}
	return &s, nil
}

// CreateSurvey inserts a survey, rejecting a reused id.
func (r *PostgresRepository) CreateSurvey(ctx context.Context, s *Survey) (*Survey, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO surveys (id, title, description, reward_stamps, is_active, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at, updated_at`,
		s.ID, s.Title, s.Description, s.RewardStamps, s.IsActive, s.StartDate, s.EndDate)
	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDuplicateSurveyID
		}
		return nil, fmt.Errorf("surveys: create: %w", err)
	}
	return s, nil
}

// UpdateSurvey applies a partial edit.
func (r *PostgresRepository) UpdateSurvey(ctx context.Context, id string, update UpdateRequest) (*Survey, error) {
	var startDate, endDate any
	if update.StartDate != nil {
		startDate = parseOptionalDate(*update.StartDate)
	}
	if update.EndDate != nil {
		endDate = parseOptionalDate(*update.EndDate)
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE surveys
		SET title         = COALESCE($2, title),
		    description   = CASE WHEN $3 THEN $4 ELSE description END,
		    reward_stamps = COALESCE($5, reward_stamps),
		    is_active     = COALESCE($6, is_active),
		    start_date    = CASE WHEN $7 THEN $8::timestamptz ELSE start_date END,
		    end_date      = CASE WHEN $9 THEN $10::timestamptz ELSE end_date END,
		    updated_at    = now()
		WHERE id = $1
		RETURNING `+surveyColumns,
		id, update.Title, update.Description != nil, normalizeDescription(update.Description),
		update.RewardStamps, update.IsActive,
		update.StartDate != nil, startDate,
		update.EndDate != nil, endDate)
	var s Survey
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.RewardStamps, &s.IsActive,
		&s.StartDate, &s.EndDate, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSurveyNotFound
		}
		return nil, fmt.Errorf("surveys: update: %w", err)
	}
	return &s, nil
}

func normalizeDescription(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}

// UpsertTargets registers targets keyed by (survey_id, user_id). Existing
// rows keep their answered_at; only show_on_liff_open is refreshed.
func (r *PostgresRepository) UpsertTargets(ctx context.Context, surveyID string, userIDs []string, showOnLiffOpen bool) error {
	batch := &pgx.Batch{}
	for _, userID := range userIDs {
		batch.Queue(`
			INSERT INTO survey_targets (survey_id, user_id, show_on_liff_open)
			VALUES ($1, $2, $3)
			ON CONFLICT (survey_id, user_id)
			DO UPDATE SET show_on_liff_open = EXCLUDED.show_on_liff_open, updated_at = now()`,
			surveyID, userID, showOnLiffOpen)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range userIDs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("surveys: upsert targets: %w", err)
		}
	}
	return nil
}

const targetColumns = `
	t.id, t.survey_id, t.user_id, t.show_on_liff_open,
	t.answered_at, t.postponed_count, t.created_at, t.updated_at`

// ListTargets returns one survey's targets newest first, joined with
// patient display fields.
func (r *PostgresRepository) ListTargets(ctx context.Context, surveyID string) ([]TargetWithProfile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+targetColumns+`,
		       p.display_name, p.real_name, p.ticket_number
		FROM survey_targets t
		LEFT JOIN profiles p ON p.id = t.user_id
		WHERE t.survey_id = $1
		ORDER BY t.created_at DESC`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("surveys: list targets: %w", err)
	}
	defer rows.Close()

	var out []TargetWithProfile
	for rows.Next() {
		var t TargetWithProfile
		if err := rows.Scan(&t.ID, &t.SurveyID, &t.UserID, &t.ShowOnLiffOpen,
			&t.AnsweredAt, &t.PostponedCount, &t.CreatedAt, &t.UpdatedAt,
			&t.DisplayName, &t.RealName, &t.TicketNumber); err != nil {
			return nil, fmt.Errorf("surveys: scan target: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTarget fetches one (survey, user) row.
func (r *PostgresRepository) GetTarget(ctx context.Context, surveyID, userID string) (*Target, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+targetColumns+`
		FROM survey_targets t
		WHERE t.survey_id = $1 AND t.user_id = $2`, surveyID, userID)
	var t Target
	err := row.Scan(&t.ID, &t.SurveyID, &t.UserID, &t.ShowOnLiffOpen,
		&t.AnsweredAt, &t.PostponedCount, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTargetNotFound
		}
		return nil, fmt.Errorf("surveys: get target: %w", err)
	}
	return &t, nil
}

// ResetTarget deletes the answer row and nulls answered_at, in one
// transaction so a half-reset never survives.
func (r *PostgresRepository) ResetTarget(ctx context.Context, surveyID, userID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("surveys: reset: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM survey_answers WHERE survey_id = $1 AND user_id = $2`,
		surveyID, userID); err != nil {
		return fmt.Errorf("surveys: reset: delete answer: %w", err)
	}
	tag, err := tx.Exec(ctx, `
		UPDATE survey_targets SET answered_at = NULL, updated_at = now()
		WHERE survey_id = $1 AND user_id = $2`,
		surveyID, userID)
	if err != nil {
		return fmt.Errorf("surveys: reset: update target: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTargetNotFound
	}
	return tx.Commit(ctx)
}

// SetLiffFlag flips show_on_liff_open for every target of one survey and
// reports how many rows changed.
func (r *PostgresRepository) SetLiffFlag(ctx context.Context, surveyID string, show bool) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE survey_targets SET show_on_liff_open = $2, updated_at = now()
		WHERE survey_id = $1`, surveyID, show)
	if err != nil {
		return 0, fmt.Errorf("surveys: set liff flag: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// AllTargets returns every target row, for per-survey stats.
func (r *PostgresRepository) AllTargets(ctx context.Context) ([]Target, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+targetColumns+`
		FROM survey_targets t`)
	if err != nil {
		return nil, fmt.Errorf("surveys: all targets: %w", err)
	}
	defer rows.Close()

	var out []Target
	for rows.Next() {
		var t Target
		if err := rows.Scan(&t.ID, &t.SurveyID, &t.UserID, &t.ShowOnLiffOpen,
			&t.AnsweredAt, &t.PostponedCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("surveys: scan target: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListAnswers returns one survey's answers newest first, joined with the
// respondent's display name.
func (r *PostgresRepository) ListAnswers(ctx context.Context, surveyID string) ([]AnswerRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.survey_id, a.user_id, a.q1_rating, a.q2_comment, a.q3_recommend, a.created_at,
		       p.display_name
		FROM survey_answers a
		LEFT JOIN profiles p ON p.id = a.user_id
		WHERE a.survey_id = $1
		ORDER BY a.created_at DESC`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("surveys: list answers: %w", err)
	}
	defer rows.Close()

	var out []AnswerRow
	for rows.Next() {
		var a AnswerRow
		if err := rows.Scan(&a.SurveyID, &a.UserID, &a.Q1Rating, &a.Q2Comment, &a.Q3Recommend,
			&a.CreatedAt, &a.DisplayName); err != nil {
			return nil, fmt.Errorf("surveys: scan answer: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveAnswer inserts the answer row and stamps answered_at on the target,
// in one transaction.
func (r *PostgresRepository) SaveAnswer(ctx context.Context, a Answer) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("surveys: answer: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO survey_answers (survey_id, user_id, q1_rating, q2_comment, q3_recommend)
		VALUES ($1, $2, $3, $4, $5)`,
		a.SurveyID, a.UserID, a.Q1Rating, a.Q2Comment, a.Q3Recommend); err != nil {
		return fmt.Errorf("surveys: answer: insert: %w", err)
	}
	tag, err := tx.Exec(ctx, `
		UPDATE survey_targets SET answered_at = now(), updated_at = now()
		WHERE survey_id = $1 AND user_id = $2`,
		a.SurveyID, a.UserID)
	if err != nil {
		return fmt.Errorf("surveys: answer: update target: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTargetNotFound
	}
	return tx.Commit(ctx)
}

// IncrementPostponed bumps the postpone counter and returns the new value.
func (r *PostgresRepository) IncrementPostponed(ctx context.Context, surveyID, userID string) (int, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE survey_targets
		SET postponed_count = postponed_count + 1, updated_at = now()
		WHERE survey_id = $1 AND user_id = $2
		RETURNING postponed_count`, surveyID, userID)
	var count int
	if err := row.Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrTargetNotFound
		}
		return 0, fmt.Errorf("surveys: postpone: %w", err)
	}
	return count, nil
}

// PendingTargets returns LIFF-flagged unanswered targets for one patient.
func (r *PostgresRepository) PendingTargets(ctx context.Context, userID string) ([]Target, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+targetColumns+`
		FROM survey_targets t
		WHERE t.user_id = $1 AND t.show_on_liff_open AND t.answered_at IS NULL
		ORDER BY t.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("surveys: pending targets: %w", err)
	}
	defer rows.Close()

	var out []Target
	for rows.Next() {
		var t Target
		if err := rows.Scan(&t.ID, &t.SurveyID, &t.UserID, &t.ShowOnLiffOpen,
			&t.AnsweredAt, &t.PostponedCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("surveys: scan target: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
