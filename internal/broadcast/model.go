// Package broadcast filters patient segments, renders per-recipient message
// text, and dispatches LINE pushes with pacing and a persisted log per run.
package broadcast

import (
	"bytes"
	"encoding/json"
	"time"
)

// IntRange is an inclusive numeric bound pair. Nil ends are open.
type IntRange struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// OptionalString distinguishes an absent JSON key from an explicit null.
// Absent means the condition is not applied at all; an explicit null
// matches only unset values.
type OptionalString struct {
	Set   bool
	Value *string
}

// IsZero lets omitzero drop the key entirely when it was never set.
func (o OptionalString) IsZero() bool { return !o.Set }

// UnmarshalJSON only runs for keys present in the payload, so Set records
// presence and a nil Value records the explicit null.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// MarshalJSON round-trips the presence/null distinction for log capture.
func (o OptionalString) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// Segment is an ad hoc, non-persisted audience filter. Absent conditions
// never exclude anyone.
type Segment struct {
	StampCount    *IntRange      `json:"stampCount,omitempty"`
	LastVisitDays *IntRange      `json:"lastVisitDays,omitempty"`
	ViewMode      OptionalString `json:"viewMode,omitzero"`
	IsLineFriend  *bool          `json:"isLineFriend,omitempty"`
}

// Log is one persisted broadcast run: who sent what to whom, with the
// segment captured as JSON and aggregate counts. Immutable once written.
type Log struct {
	ID           string          `json:"id"`
	SentBy       *string         `json:"sent_by"`
	Segment      json.RawMessage `json:"segment"`
	Message      string          `json:"message"`
	TargetCount  int             `json:"target_count"`
	SuccessCount int             `json:"success_count"`
	FailedCount  int             `json:"failed_count"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SendRequest is the body for a broadcast send or preview.
type SendRequest struct {
	Segment Segment `json:"segment"`
	Message string  `json:"message"`
}

// RecipientOutcome is the per-recipient result of one push attempt.
type RecipientOutcome struct {
	UserID string `json:"user_id"`
	OK     bool   `json:"ok"`
	Err    string `json:"error,omitempty"`
}

// SendResult aggregates a broadcast run. Counts derive from Outcomes.
type SendResult struct {
	LogID        string             `json:"log_id"`
	TargetCount  int                `json:"target_count"`
	SuccessCount int                `json:"success_count"`
	FailedCount  int                `json:"failed_count"`
	Outcomes     []RecipientOutcome `json:"outcomes,omitempty"`
}

// PreviewRecipient is one matched profile in a dry-run estimate.
type PreviewRecipient struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Rendered    string `json:"rendered_message"`
}

// PreviewResult is a dry-run estimate: the audience and sample rendered
// text, computed without touching the LINE API.
type PreviewResult struct {
	TargetCount int                `json:"target_count"`
	Recipients  []PreviewRecipient `json:"recipients"`
}
