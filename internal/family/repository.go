package family

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wakabadc/clinic-line-admin/internal/profiles"
)

// Repository defines the storage the membership manager operates over:
// the families table plus the family columns of profiles.
type Repository interface {
	CreateFamily(ctx context.Context, name, representativeUserID string) (*Family, error)
	GetFamily(ctx context.Context, id string) (*Family, error)
	RenameFamily(ctx context.Context, id, name string) (*Family, error)
	DeleteFamily(ctx context.Context, id string) error
	ListSummaries(ctx context.Context, minMembers int) ([]Summary, error)

	GetProfile(ctx context.Context, userID string) (*profiles.Profile, error)
	MembersOf(ctx context.Context, familyID string) ([]*profiles.Profile, error)
	CountMembers(ctx context.Context, familyID string) (int, error)
	AssignProfile(ctx context.Context, userID, familyID, role string) error
}

// InMemoryRepository is a stub Repository for tests.
type InMemoryRepository struct {
	mu       sync.RWMutex
	families map[string]*Family
	profiles map[string]*profiles.Profile
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		families: make(map[string]*Family),
		profiles: make(map[string]*profiles.Profile),
	}
}

// AddProfile seeds a profile.
func (r *InMemoryRepository) AddProfile(p *profiles.Profile) *profiles.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	r.profiles[p.ID] = p
	return p
}

// AddFamily seeds a family.
func (r *InMemoryRepository) AddFamily(f *Family) *Family {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	r.families[f.ID] = f
	return f
}

// FamilyExists reports whether a family row is still present.
func (r *InMemoryRepository) FamilyExists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.families[id]
	return ok
}

// CreateFamily inserts a family row.
func (r *InMemoryRepository) CreateFamily(ctx context.Context, name, representativeUserID string) (*Family, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	f := &Family{
		ID:                   uuid.NewString(),
		Name:                 name,
		RepresentativeUserID: representativeUserID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	r.families[f.ID] = f
	copied := *f
	return &copied, nil
}

// GetFamily fetches a family row.
func (r *InMemoryRepository) GetFamily(ctx context.Context, id string) (*Family, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.families[id]
	if !ok {
		return nil, ErrFamilyNotFound
	}
	copied := *f
	return &copied, nil
}

// RenameFamily updates the family name.
func (r *InMemoryRepository) RenameFamily(ctx context.Context, id, name string) (*Family, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.families[id]
	if !ok {
		return nil, ErrFamilyNotFound
	}
	f.Name = name
	f.UpdatedAt = time.Now().UTC()
	copied := *f
	return &copied, nil
}

// DeleteFamily removes a family row.
func (r *InMemoryRepository) DeleteFamily(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.families[id]; !ok {
		return ErrFamilyNotFound
	}
	delete(r.families, id)
	return nil
}

// ListSummaries returns aggregate rows for families with at least minMembers
// members, largest stamp totals first.
func (r *InMemoryRepository) ListSummaries(ctx context.Context, minMembers int) ([]Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Summary
	for _, f := range r.families {
		s := Summary{Family: *f}
		for _, p := range r.profiles {
			if p.FamilyID != nil && *p.FamilyID == f.ID {
				s.MemberCount++
				s.TotalStampCount += p.StampCount
				s.TotalVisitCount += p.VisitCount
			}
		}
		if s.MemberCount >= minMembers {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TotalStampCount > out[j].TotalStampCount
	})
	return out, nil
}

// GetProfile fetches one profile.
func (r *InMemoryRepository) GetProfile(ctx context.Context, userID string) (*profiles.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, profiles.ErrProfileNotFound
	}
	copied := *p
	return &copied, nil
}

// MembersOf lists the members of a family, parent first.
func (r *InMemoryRepository) MembersOf(ctx context.Context, familyID string) ([]*profiles.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*profiles.Profile
	for _, p := range r.profiles {
		if p.FamilyID != nil && *p.FamilyID == familyID {
			copied := *p
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := "", ""
		if out[i].FamilyRole != nil {
			ri = *out[i].FamilyRole
		}
		if out[j].FamilyRole != nil {
			rj = *out[j].FamilyRole
		}
		if ri != rj {
			return ri == profiles.RoleParent
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CountMembers counts the members of a family.
func (r *InMemoryRepository) CountMembers(ctx context.Context, familyID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, p := range r.profiles {
		if p.FamilyID != nil && *p.FamilyID == familyID {
			count++
		}
	}
	return count, nil
}

// AssignProfile moves a profile into a family with the given role.
func (r *InMemoryRepository) AssignProfile(ctx context.Context, userID, familyID, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return profiles.ErrProfileNotFound
	}
	fid := familyID
	ro := role
	p.FamilyID = &fid
	p.FamilyRole = &ro
	return nil
}
