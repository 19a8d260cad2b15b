package surveys

import "errors"

var (
	// ErrSurveyNotFound is returned when a survey id does not exist.
	ErrSurveyNotFound = errors.New("surveys: survey not found")

	// ErrTargetNotFound is returned when no distribution row exists for
	// the (survey, user) pair.
	ErrTargetNotFound = errors.New("surveys: target not found")

	// ErrDuplicateSurveyID is returned when a create reuses an id.
	ErrDuplicateSurveyID = errors.New("surveys: survey id already in use")

	// ErrSurveyIDRequired is returned when a request omits the survey id.
	ErrSurveyIDRequired = errors.New("surveys: survey id is required")

	// ErrTitleRequired is returned when a create omits the title.
	ErrTitleRequired = errors.New("surveys: title is required")

	// ErrInvalidTargetType is returned when targetType is not all, filter,
	// or manual.
	ErrInvalidTargetType = errors.New("surveys: target type must be all, filter, or manual")

	// ErrLiffFlagRequired is returned when showOnLiffOpen is absent.
	ErrLiffFlagRequired = errors.New("surveys: showOnLiffOpen must be a boolean")

	// ErrAlreadyAnswered is returned when a patient submits a second
	// answer for the same survey.
	ErrAlreadyAnswered = errors.New("surveys: already answered")

	// ErrSurveyClosed is returned when a patient answers a survey that is
	// inactive or outside its start/end window.
	ErrSurveyClosed = errors.New("surveys: survey is closed")

	// ErrInvalidRating is returned when an answer carries a score outside
	// the question's scale.
	ErrInvalidRating = errors.New("surveys: rating out of range")

	// ErrAlreadyPending is returned when reset-to-pending runs on a target
	// that never answered or was already reset. A second reset is rejected
	// rather than treated as a no-op.
	ErrAlreadyPending = errors.New("surveys: target is already pending")
)
