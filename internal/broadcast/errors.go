package broadcast

import "errors"

var (
	// ErrEmptyMessage is returned when a send carries no message text.
	ErrEmptyMessage = errors.New("broadcast: message text is required")

	// ErrRestrictedWindow is returned when a send falls inside the
	// clinic's nightly quiet hours.
	ErrRestrictedWindow = errors.New("broadcast: sends are blocked during quiet hours")

	// ErrLogNotFound is returned when a broadcast log id does not exist.
	ErrLogNotFound = errors.New("broadcast: log not found")
)
