// Package rewards manages reward exchange records and their three-state
// lifecycle: pending, completed, cancelled.
package rewards

import "time"

// Exchange statuses. Pending is the only state transitions leave from.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// FallbackDisplayName is shown when a joined profile or reward row is gone.
const FallbackDisplayName = "不明"

// Exchange is one redemption event. Stamps consumed are never refunded,
// even on cancellation.
type Exchange struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	RewardID       string     `json:"reward_id"`
	StampCountUsed int        `json:"stamp_count_used"`
	Status         string     `json:"status"`
	ExchangedAt    time.Time  `json:"exchanged_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	CompletedBy    *string    `json:"completed_by"`
	Notes          *string    `json:"notes"`
	CreatedAt      time.Time  `json:"created_at"`
}

// WithDetails joins patient and reward display fields onto an exchange for
// the dashboard list.
type WithDetails struct {
	Exchange
	UserName       string  `json:"user_name"`
	UserPictureURL *string `json:"user_picture_url"`
	UserTicket     *string `json:"user_medical_record_number"`
	RewardName     string  `json:"reward_name"`
	RewardImageURL *string `json:"reward_image_url"`
}

// ListQuery narrows the exchange list. Search matches patient name, ticket
// number, or reward name, case-insensitively.
type ListQuery struct {
	Status string
	Search string
	Limit  int
}

// ValidStatus reports whether s is one of the three lifecycle states.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusCompleted || s == StatusCancelled
}

// Terminal reports whether s is a state delete is allowed from.
func Terminal(s string) bool {
	return s == StatusCompleted || s == StatusCancelled
}
