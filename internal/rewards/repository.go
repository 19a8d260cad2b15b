package rewards

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository persists reward exchanges.
type Repository interface {
	List(ctx context.Context, q ListQuery) ([]WithDetails, error)
	GetByID(ctx context.Context, id string) (*Exchange, error)
	MarkCompleted(ctx context.Context, id, completedBy string) (*Exchange, error)
	MarkCancelled(ctx context.Context, id string, notes *string) (*Exchange, error)
	Delete(ctx context.Context, id string) error
}

// InMemoryRepository is an in-memory Repository for tests and development.
type InMemoryRepository struct {
	mu        sync.RWMutex
	exchanges map[string]*WithDetails
}

// NewInMemoryRepository creates an empty in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{exchanges: make(map[string]*WithDetails)}
}

// Add seeds one exchange, assigning an id when absent.
func (r *InMemoryRepository) Add(e *WithDetails) *WithDetails {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = StatusPending
	}
	if e.ExchangedAt.IsZero() {
		e.ExchangedAt = time.Now().UTC()
	}
	r.exchanges[e.ID] = e
	return e
}

// List returns exchanges newest first, optionally narrowed by status and a
// search term over patient name, ticket number, and reward name.
func (r *InMemoryRepository) List(ctx context.Context, q ListQuery) ([]WithDetails, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	out := make([]WithDetails, 0, len(r.exchanges))
	for _, e := range r.exchanges {
		if q.Status != "" && e.Status != q.Status {
			continue
		}
		if q.Search != "" && !matchesSearch(e, q.Search) {
			continue
		}
		out = append(out, *e)
	}
	sortByExchangedAtDesc(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesSearch(e *WithDetails, search string) bool {
	s := strings.ToLower(search)
	if strings.Contains(strings.ToLower(e.UserName), s) {
		return true
	}
	if strings.Contains(strings.ToLower(e.RewardName), s) {
		return true
	}
	if e.UserTicket != nil && strings.Contains(strings.ToLower(*e.UserTicket), s) {
		return true
	}
	return false
}

func sortByExchangedAtDesc(list []WithDetails) {
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && list[j].ExchangedAt.After(list[j-1].ExchangedAt); j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}
}

// GetByID fetches one exchange.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Exchange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.exchanges[id]
	if !ok {
		return nil, ErrExchangeNotFound
	}
	copied := e.Exchange
	return &copied, nil
}

// MarkCompleted flips the row to completed and records who handed it over.
func (r *InMemoryRepository) MarkCompleted(ctx context.Context, id, completedBy string) (*Exchange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.exchanges[id]
	if !ok {
		return nil, ErrExchangeNotFound
	}
	now := time.Now().UTC()
	e.Status = StatusCompleted
	e.CompletedAt = &now
	e.CompletedBy = &completedBy
	copied := e.Exchange
	return &copied, nil
}

// MarkCancelled flips the row to cancelled. Stamps stay consumed.
func (r *InMemoryRepository) MarkCancelled(ctx context.Context, id string, notes *string) (*Exchange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.exchanges[id]
	if !ok {
		return nil, ErrExchangeNotFound
	}
	e.Status = StatusCancelled
	if notes != nil {
		e.Notes = notes
	}
	copied := e.Exchange
	return &copied, nil
}

// Delete removes the row.
func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exchanges[id]; !ok {
		return ErrExchangeNotFound
	}
	delete(r.exchanges, id)
	return nil
}
