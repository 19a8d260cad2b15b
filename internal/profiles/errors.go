package profiles

import "errors"

var (
	// ErrProfileNotFound is returned when the referenced profile is absent.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrInvalidStampCount is returned when a stamp count is outside 0..999.
	ErrInvalidStampCount = errors.New("stamp_count must be between 0 and 999")

	// ErrInvalidDelta is returned when a stamp delta is not an integer value.
	ErrInvalidDelta = errors.New("delta must be a non-zero integer")

	// ErrMemoTooLong is returned when a next-visit memo exceeds 200 characters.
	ErrMemoTooLong = errors.New("next_visit_memo must be 200 characters or fewer")

	// ErrInvalidViewMode is returned when view_mode is not adult/kids.
	ErrInvalidViewMode = errors.New("view_mode must be adult or kids")

	// ErrInvalidVisitDate is returned when a visit date is not YYYY-MM-DD.
	ErrInvalidVisitDate = errors.New("visit date must be formatted YYYY-MM-DD")
)
