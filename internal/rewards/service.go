package rewards

import (
	"context"
	"strings"

	"github.com/wakabadc/clinic-line-admin/pkg/logging"
)

// Service enforces the exchange lifecycle: transitions leave pending only,
// and delete is accepted from the two terminal states.
type Service struct {
	repo   Repository
	logger *logging.Logger
}

// NewService creates a reward exchange service.
func NewService(repo Repository, logger *logging.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List returns exchanges with joined display fields.
func (s *Service) List(ctx context.Context, q ListQuery) ([]WithDetails, error) {
	return s.repo.List(ctx, q)
}

// Complete hands a pending exchange over. The completer name is mandatory
// and the row must still be pending.
func (s *Service) Complete(ctx context.Context, id, completedBy string) (*Exchange, error) {
	if strings.TrimSpace(completedBy) == "" {
		return nil, ErrCompleterRequired
	}
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != StatusPending {
		return nil, ErrNotPending
	}
	return s.repo.MarkCompleted(ctx, id, completedBy)
}

// Cancel voids a pending exchange. Consumed stamps are not restored, by
// business rule. A second cancel is rejected rather than treated as a no-op.
func (s *Service) Cancel(ctx context.Context, id string, notes *string) (*Exchange, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch e.Status {
	case StatusCancelled:
		return nil, ErrAlreadyCancelled
	case StatusCompleted:
		return nil, ErrNotPending
	}
	return s.repo.MarkCancelled(ctx, id, notes)
}

// Delete hard-removes a terminal exchange. Pending rows must be completed
// or cancelled first.
func (s *Service) Delete(ctx context.Context, id string) error {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !Terminal(e.Status) {
		return ErrNotTerminal
	}
	return s.repo.Delete(ctx, id)
}
