package profiles

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for profile storage.
type Repository interface {
	List(ctx context.Context) ([]*Profile, error)
	GetByID(ctx context.Context, id string) (*Profile, error)
	Update(ctx context.Context, id string, update Update) (*Profile, error)
	SetStampCount(ctx context.Context, id string, count int) (*Profile, error)
	AdjustStampCount(ctx context.Context, id string, delta int) (*Profile, error)
	UpdateNextVisit(ctx context.Context, id string, update NextVisitUpdate) (*Profile, error)
	IncrementReservationClicks(ctx context.Context, id string) error
}

// InMemoryRepository is a stub implementation of Repository backed by a map.
type InMemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{profiles: make(map[string]*Profile)}
}

// Add seeds a profile, assigning an id when absent.
func (r *InMemoryRepository) Add(p *Profile) *Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.LineUserID == "" {
		p.LineUserID = p.ID
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.profiles[p.ID] = p
	return p
}

// List returns all profiles ordered by most recently updated.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		copied := *p
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// GetByID returns one profile.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	copied := *p
	return &copied, nil
}

// Update applies a partial edit.
func (r *InMemoryRepository) Update(ctx context.Context, id string, update Update) (*Profile, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	p.DisplayName = applyOptional(p.DisplayName, update.DisplayName)
	p.RealName = applyOptional(p.RealName, update.RealName)
	p.TicketNumber = applyOptional(p.TicketNumber, update.TicketNumber)
	p.ViewMode = applyOptional(p.ViewMode, update.ViewMode)
	if update.LastVisitDate != nil {
		if *update.LastVisitDate == "" {
			p.LastVisitDate = nil
		} else {
			d, _ := time.Parse("2006-01-02", (*update.LastVisitDate)[:10])
			p.LastVisitDate = &d
		}
	}
	p.UpdatedAt = time.Now().UTC()
	copied := *p
	return &copied, nil
}

// SetStampCount overwrites the stamp counter after range validation.
func (r *InMemoryRepository) SetStampCount(ctx context.Context, id string, count int) (*Profile, error) {
	if !ValidStampCount(count) {
		return nil, ErrInvalidStampCount
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	p.StampCount = count
	p.UpdatedAt = time.Now().UTC()
	copied := *p
	return &copied, nil
}

// AdjustStampCount applies a clamped delta.
func (r *InMemoryRepository) AdjustStampCount(ctx context.Context, id string, delta int) (*Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	p.StampCount = ClampStampCount(p.StampCount + delta)
	p.UpdatedAt = time.Now().UTC()
	copied := *p
	return &copied, nil
}

// UpdateNextVisit edits the next-visit memo and date.
func (r *InMemoryRepository) UpdateNextVisit(ctx context.Context, id string, update NextVisitUpdate) (*Profile, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	if update.Date != nil {
		if *update.Date == "" {
			p.NextVisitDate = nil
		} else {
			d, _ := time.Parse("2006-01-02", *update.Date)
			p.NextVisitDate = &d
		}
	}
	p.NextVisitMemo = applyOptional(p.NextVisitMemo, update.Memo)
	p.UpdatedAt = time.Now().UTC()
	copied := *p
	return &copied, nil
}

// IncrementReservationClicks bumps the reservation click counter.
func (r *InMemoryRepository) IncrementReservationClicks(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return ErrProfileNotFound
	}
	p.ReservationClicks++
	return nil
}

// applyOptional implements the PATCH convention: nil leaves the field alone,
// empty string clears it, anything else replaces it.
func applyOptional(current, incoming *string) *string {
	if incoming == nil {
		return current
	}
	if *incoming == "" {
		return nil
	}
	value := *incoming
	return &value
}
