package family

import (
	"context"
	"fmt"

	"github.com/wakabadc/clinic-line-admin/internal/profiles"
	"github.com/wakabadc/clinic-line-admin/pkg/logging"
)

// Service implements the membership flows. Every mutation keeps two
// invariants: a profile always belongs to exactly one family, and a family
// with zero members never persists.
type Service struct {
	repo   Repository
	logger *logging.Logger
}

// NewService creates a family membership service.
func NewService(repo Repository, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// List returns families with two or more members. Single-member families are
// a valid resting state but are hidden from list views.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	return s.repo.ListSummaries(ctx, 2)
}

// Get returns a family with its members and aggregate totals.
func (s *Service) Get(ctx context.Context, familyID string) (*WithMembers, error) {
	f, err := s.repo.GetFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	members, err := s.repo.MembersOf(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("family: load members: %w", err)
	}
	out := &WithMembers{Family: *f, Members: members, MemberCount: len(members)}
	for _, m := range members {
		out.TotalStampCount += m.StampCount
		out.TotalVisitCount += m.VisitCount
	}
	return out, nil
}

// Create makes a new family, assigns parent to the representative and child
// to everyone else, and deletes any prior family emptied by the moves.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Family, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Collect prior family ids before anyone moves.
	oldFamilyIDs := make(map[string]struct{})
	for _, id := range req.MemberIDs {
		p, err := s.repo.GetProfile(ctx, id)
		if err != nil {
			return nil, err
		}
		if p.FamilyID != nil {
			oldFamilyIDs[*p.FamilyID] = struct{}{}
		}
	}

	created, err := s.repo.CreateFamily(ctx, req.Name, req.RepresentativeUserID)
	if err != nil {
		return nil, fmt.Errorf("family: create: %w", err)
	}

	for _, id := range req.MemberIDs {
		role := profiles.RoleChild
		if id == req.RepresentativeUserID {
			role = profiles.RoleParent
		}
		if err := s.repo.AssignProfile(ctx, id, created.ID, role); err != nil {
			s.logger.Error("failed to move member into new family",
				"family_id", created.ID, "user_id", id, "error", err)
		}
	}

	delete(oldFamilyIDs, created.ID)
	for oldID := range oldFamilyIDs {
		s.deleteIfEmpty(ctx, oldID)
	}
	return created, nil
}

// AddMember moves a profile into an existing family as child and cleans up
// the family it left if that became empty.
func (s *Service) AddMember(ctx context.Context, familyID, userID string) (*profiles.Profile, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetFamily(ctx, familyID); err != nil {
		return nil, err
	}
	if p.FamilyID != nil && *p.FamilyID == familyID {
		return nil, ErrAlreadyInFamily
	}

	oldFamilyID := p.FamilyID
	if err := s.repo.AssignProfile(ctx, userID, familyID, profiles.RoleChild); err != nil {
		return nil, fmt.Errorf("family: add member: %w", err)
	}
	if oldFamilyID != nil {
		s.deleteIfEmpty(ctx, *oldFamilyID)
	}
	return s.repo.GetProfile(ctx, userID)
}

// RemoveMember splits a non-parent member off into a brand-new single-member
// family where they hold the parent role. Removal never leaves a profile
// without a family.
func (s *Service) RemoveMember(ctx context.Context, familyID, userID string) (*Family, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.FamilyID == nil || *p.FamilyID != familyID {
		return nil, ErrNotInFamily
	}

	count, err := s.repo.CountMembers(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("family: count members: %w", err)
	}
	if count == 1 {
		return nil, ErrAlreadySingle
	}
	if p.FamilyRole != nil && *p.FamilyRole == profiles.RoleParent {
		return nil, ErrParentNotRemovable
	}

	return s.moveToOwnFamily(ctx, p)
}

// Dissolve gives every member their own single-member family and deletes the
// original. Individual member moves that fail are recorded but do not abort
// the remaining moves.
func (s *Service) Dissolve(ctx context.Context, familyID string) (*DissolveResult, error) {
	if _, err := s.repo.GetFamily(ctx, familyID); err != nil {
		return nil, err
	}
	members, err := s.repo.MembersOf(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("family: load members: %w", err)
	}
	if len(members) == 0 {
		return nil, ErrNoMembers
	}

	result := &DissolveResult{}
	for _, m := range members {
		move := MemberMove{UserID: m.ID}
		newFamily, err := s.moveToOwnFamily(ctx, m)
		if err != nil {
			s.logger.Error("failed to split member during dissolve",
				"family_id", familyID, "user_id", m.ID, "error", err)
			move.Err = err.Error()
			result.FailedCount++
		} else {
			move.NewFamilyID = newFamily.ID
		}
		result.Moved = append(result.Moved, move)
	}

	if err := s.repo.DeleteFamily(ctx, familyID); err != nil {
		return nil, fmt.Errorf("family: delete after dissolve: %w", err)
	}
	return result, nil
}

// Rename updates the family name only; membership is untouched.
func (s *Service) Rename(ctx context.Context, familyID, name string) (*Family, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	return s.repo.RenameFamily(ctx, familyID, name)
}

func (s *Service) moveToOwnFamily(ctx context.Context, p *profiles.Profile) (*Family, error) {
	name := FallbackMemberName
	if p.DisplayName != nil && *p.DisplayName != "" {
		name = *p.DisplayName
	}
	created, err := s.repo.CreateFamily(ctx, name+"の家族", p.ID)
	if err != nil {
		return nil, fmt.Errorf("family: create single-member family: %w", err)
	}
	if err := s.repo.AssignProfile(ctx, p.ID, created.ID, profiles.RoleParent); err != nil {
		return nil, fmt.Errorf("family: move into single-member family: %w", err)
	}
	return created, nil
}

func (s *Service) deleteIfEmpty(ctx context.Context, familyID string) {
	count, err := s.repo.CountMembers(ctx, familyID)
	if err != nil {
		s.logger.Error("failed to count members of prior family",
			"family_id", familyID, "error", err)
		return
	}
	if count != 0 {
		return
	}
	if err := s.repo.DeleteFamily(ctx, familyID); err != nil {
		s.logger.Error("failed to delete emptied family",
			"family_id", familyID, "error", err)
	}
}
