package rewards

import "errors"

var (
	// ErrExchangeNotFound is returned when an exchange id does not exist.
	ErrExchangeNotFound = errors.New("rewards: exchange not found")

	// ErrCompleterRequired is returned when complete is called without a
	// staff name.
	ErrCompleterRequired = errors.New("rewards: completer name is required")

	// ErrNotPending is returned when a transition is attempted on a row
	// that already left the pending state.
	ErrNotPending = errors.New("rewards: exchange is no longer pending")

	// ErrAlreadyCancelled is returned when cancel is called twice.
	ErrAlreadyCancelled = errors.New("rewards: exchange is already cancelled")

	// ErrNotTerminal is returned when delete is attempted on a pending row.
	ErrNotTerminal = errors.New("rewards: only completed or cancelled exchanges can be deleted")
)
