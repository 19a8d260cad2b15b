package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventEntry is one patient behaviour row written by the LIFF app
// (app opens, reservation taps, survey opens). The dashboard only reads them.
type EventEntry struct {
	ID        string          `json:"id"`
	UserID    *string         `json:"user_id"`
	EventName string          `json:"event_name"`
	Source    string          `json:"source,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`

	// Profile enrichment filled in by the reader when the user still exists.
	DisplayName  *string `json:"display_name,omitempty"`
	TicketNumber *string `json:"ticket_number,omitempty"`
}

// EventLogReader lists patient event rows for the admin UI.
type EventLogReader struct {
	db *sql.DB
}

// NewEventLogReader creates a reader over database/sql.
func NewEventLogReader(db *sql.DB) *EventLogReader {
	return &EventLogReader{db: db}
}

// List returns the newest event rows joined with profile display fields.
// Without a database the log is empty, never an error.
func (r *EventLogReader) List(ctx context.Context, limit, offset int) ([]EventEntry, error) {
	if r == nil || r.db == nil {
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
		SELECT e.id, e.user_id, e.event_name, e.source, e.metadata, e.created_at,
		       p.display_name, p.ticket_number
		FROM event_logs e
		LEFT JOIN profiles p ON p.id = e.user_id
		ORDER BY e.created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("audit: list event logs: %w", err)
	}
	defer rows.Close()

	var entries []EventEntry
	for rows.Next() {
		var (
			e        EventEntry
			userID   sql.NullString
			source   sql.NullString
			metadata []byte
			name     sql.NullString
			ticket   sql.NullString
		)
		if err := rows.Scan(&e.ID, &userID, &e.EventName, &source, &metadata, &e.CreatedAt, &name, &ticket); err != nil {
			return nil, fmt.Errorf("audit: scan event row: %w", err)
		}
		if userID.Valid {
			e.UserID = &userID.String
		}
		e.Source = source.String
		e.Metadata = metadata
		if name.Valid {
			e.DisplayName = &name.String
		}
		if ticket.Valid {
			e.TicketNumber = &ticket.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
