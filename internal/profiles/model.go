// Package profiles manages patient profiles: loyalty stamps, visit data,
// next-visit memos, and the reservation click counter.
package profiles

import (
	"time"
	"unicode/utf8"
)

// MaxStampCount caps the loyalty stamp counter per profile.
const MaxStampCount = 999

// MaxMemoLength caps the next-visit memo, counted in runes.
const MaxMemoLength = 200

// View modes the LIFF app can render a profile in.
const (
	ViewModeAdult = "adult"
	ViewModeKids  = "kids"
)

// Family roles a profile can hold inside its family.
const (
	RoleParent = "parent"
	RoleChild  = "child"
)

// Profile represents a patient tied 1:1 to a LINE user.
type Profile struct {
	ID                string     `json:"id"`
	LineUserID        string     `json:"line_user_id"`
	DisplayName       *string    `json:"display_name"`
	RealName          *string    `json:"real_name"`
	PictureURL        *string    `json:"picture_url"`
	StampCount        int        `json:"stamp_count"`
	TicketNumber      *string    `json:"ticket_number"`
	LastVisitDate     *time.Time `json:"last_visit_date"`
	VisitCount        int        `json:"visit_count"`
	ViewMode          *string    `json:"view_mode"`
	IsLineFriend      *bool      `json:"is_line_friend"`
	FamilyID          *string    `json:"family_id"`
	FamilyRole        *string    `json:"family_role"`
	NextVisitDate     *time.Time `json:"next_visit_date"`
	NextVisitMemo     *string    `json:"next_visit_memo"`
	ReservationClicks int        `json:"reservation_button_clicks"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Update carries a partial profile edit. Nil fields are left untouched;
// empty strings clear the column.
type Update struct {
	DisplayName   *string `json:"display_name"`
	RealName      *string `json:"real_name"`
	TicketNumber  *string `json:"ticket_number"`
	LastVisitDate *string `json:"last_visit_date"`
	ViewMode      *string `json:"view_mode"`
}

// Validate rejects malformed update fields before any mutation.
func (u *Update) Validate() error {
	if u.ViewMode != nil && *u.ViewMode != "" &&
		*u.ViewMode != ViewModeAdult && *u.ViewMode != ViewModeKids {
		return ErrInvalidViewMode
	}
	if u.LastVisitDate != nil && *u.LastVisitDate != "" {
		if _, err := time.Parse("2006-01-02", (*u.LastVisitDate)[:min(10, len(*u.LastVisitDate))]); err != nil {
			return ErrInvalidVisitDate
		}
	}
	return nil
}

// NextVisitUpdate carries a next-visit memo edit.
type NextVisitUpdate struct {
	Date *string `json:"next_visit_date"`
	Memo *string `json:"next_visit_memo"`
}

// Validate rejects memos over the length cap and malformed dates.
func (u *NextVisitUpdate) Validate() error {
	if u.Memo != nil && utf8.RuneCountInString(*u.Memo) > MaxMemoLength {
		return ErrMemoTooLong
	}
	if u.Date != nil && *u.Date != "" {
		if _, err := time.Parse("2006-01-02", *u.Date); err != nil {
			return ErrInvalidVisitDate
		}
	}
	return nil
}

// ValidStampCount reports whether count is inside the allowed 0..999 range.
func ValidStampCount(count int) bool {
	return count >= 0 && count <= MaxStampCount
}

// ClampStampCount forces count into the allowed range, matching what the
// stamp delta path does in a single statement server-side.
func ClampStampCount(count int) int {
	if count < 0 {
		return 0
	}
	if count > MaxStampCount {
		return MaxStampCount
	}
	return count
}
