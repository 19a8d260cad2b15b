package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StaffRepository defines the interface for staff account storage.
type StaffRepository interface {
	GetByUsername(ctx context.Context, username string) (*Staff, error)
	GetByID(ctx context.Context, id string) (*Staff, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// InMemoryStaffRepository is a stub implementation used in tests and when no
// database is configured.
type InMemoryStaffRepository struct {
	mu    sync.RWMutex
	staff map[string]*Staff
}

// NewInMemoryStaffRepository creates an empty in-memory staff store.
func NewInMemoryStaffRepository() *InMemoryStaffRepository {
	return &InMemoryStaffRepository{staff: make(map[string]*Staff)}
}

// Add inserts a staff row, assigning an id when absent.
func (r *InMemoryStaffRepository) Add(s *Staff) *Staff {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	r.staff[s.ID] = s
	return s
}

// GetByUsername finds an account by username.
func (r *InMemoryStaffRepository) GetByUsername(ctx context.Context, username string) (*Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.staff {
		if s.Username == username {
			copied := *s
			return &copied, nil
		}
	}
	return nil, ErrStaffNotFound
}

// GetByID finds an account by id.
func (r *InMemoryStaffRepository) GetByID(ctx context.Context, id string) (*Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.staff[id]
	if !ok {
		return nil, ErrStaffNotFound
	}
	copied := *s
	return &copied, nil
}

// UpdatePasswordHash replaces the stored bcrypt hash.
func (r *InMemoryStaffRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.staff[id]
	if !ok {
		return ErrStaffNotFound
	}
	s.PasswordHash = hash
	s.UpdatedAt = time.Now().UTC()
	return nil
}
