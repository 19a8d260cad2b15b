package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wakabadc/clinic-line-admin/pkg/logging"
)

// ActivityEntry is one row of the staff activity trail. StaffID is nil for
// the legacy shared login.
type ActivityEntry struct {
	ID         string          `json:"id"`
	StaffID    *string         `json:"staff_id"`
	Action     Action          `json:"action"`
	TargetType string          `json:"target_type,omitempty"`
	TargetID   string          `json:"target_id,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ActivityLogger appends activity rows. All methods are nil-safe so callers
// can run without audit wiring in tests.
type ActivityLogger struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewActivityLogger creates an activity logger over database/sql.
func NewActivityLogger(db *sql.DB, logger *logging.Logger) *ActivityLogger {
	if logger == nil {
		logger = logging.Default()
	}
	return &ActivityLogger{db: db, logger: logger}
}

// Record appends one activity row. staffID "" is stored as NULL (legacy
// login). Failures are swallowed: the audit trail never blocks or fails the
// primary operation.
func (l *ActivityLogger) Record(ctx context.Context, staffID, targetType, targetID string, detail Detail) {
	if l == nil || l.db == nil {
		return
	}
	payload, err := json.Marshal(detail)
	if err != nil {
		l.logger.Warn("audit: marshal details failed", "action", detail.Action(), "error", err)
		payload = nil
	}

	query := `
		INSERT INTO activity_logs (id, staff_id, action, target_type, target_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = l.db.ExecContext(ctx, query,
		uuid.NewString(),
		nullString(staffID),
		string(detail.Action()),
		nullString(targetType),
		nullString(targetID),
		payload,
		time.Now().UTC(),
	)
	if err != nil {
		l.logger.Warn("audit: insert activity row failed", "action", detail.Action(), "error", err)
	}
}

// ListActivity returns the newest activity rows with limit/offset paging.
// Without a database the trail is empty, never an error.
func (l *ActivityLogger) ListActivity(ctx context.Context, limit, offset int) ([]ActivityEntry, error) {
	if l == nil || l.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, staff_id, action, target_type, target_id, details, created_at
		FROM activity_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := l.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("audit: list activity: %w", err)
	}
	defer rows.Close()

	var entries []ActivityEntry
	for rows.Next() {
		var (
			e          ActivityEntry
			staffID    sql.NullString
			targetType sql.NullString
			targetID   sql.NullString
			details    []byte
		)
		if err := rows.Scan(&e.ID, &staffID, &e.Action, &targetType, &targetID, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan activity row: %w", err)
		}
		if staffID.Valid {
			e.StaffID = &staffID.String
		}
		e.TargetType = targetType.String
		e.TargetID = targetID.String
		e.Details = details
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
