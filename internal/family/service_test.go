package family

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/wakabadc/clinic-line-admin/internal/profiles"
	"github.com/wakabadc/clinic-line-admin/pkg/logging"
)

func newTestService() (*Service, *InMemoryRepository) {
	repo := NewInMemoryRepository()
	return NewService(repo, logging.NewWithWriter("error", io.Discard)), repo
}

func seedProfile(repo *InMemoryRepository, id, name string) *profiles.Profile {
	p := &profiles.Profile{ID: id}
	if name != "" {
		p.DisplayName = &name
	}
	return repo.AddProfile(p)
}

func seedFamily(repo *InMemoryRepository, name, repID string, memberIDs ...string) *Family {
	f := repo.AddFamily(&Family{Name: name, RepresentativeUserID: repID})
	for _, id := range memberIDs {
		role := profiles.RoleChild
		if id == repID {
			role = profiles.RoleParent
		}
		_ = repo.AssignProfile(context.Background(), id, f.ID, role)
	}
	return f
}

func TestCreateAssignsRoles(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	seedProfile(repo, "u1", "父")
	seedProfile(repo, "u2", "子")

	created, err := svc.Create(ctx, CreateRequest{
		Name:                 "山田家",
		RepresentativeUserID: "u1",
		MemberIDs:            []string{"u1", "u2"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	p1, _ := repo.GetProfile(ctx, "u1")
	p2, _ := repo.GetProfile(ctx, "u2")
	if *p1.FamilyRole != profiles.RoleParent {
		t.Errorf("representative must hold parent, got %s", *p1.FamilyRole)
	}
	if *p2.FamilyRole != profiles.RoleChild {
		t.Errorf("other members must hold child, got %s", *p2.FamilyRole)
	}
	if *p1.FamilyID != created.ID || *p2.FamilyID != created.ID {
		t.Error("both members must belong to the new family")
	}
}

func TestCreateDeletesEmptiedPriorFamily(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	seedProfile(repo, "u1", "a")
	old := seedFamily(repo, "aの家族", "u1", "u1")
	seedProfile(repo, "u2", "b")

	if _, err := svc.Create(ctx, CreateRequest{
		Name:                 "新しい家族",
		RepresentativeUserID: "u2",
		MemberIDs:            []string{"u1", "u2"},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if repo.FamilyExists(old.ID) {
		t.Error("the emptied prior family must be deleted")
	}
}

func TestCreateValidations(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	seedProfile(repo, "u1", "")

	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"missing name", CreateRequest{RepresentativeUserID: "u1", MemberIDs: []string{"u1"}}, ErrNameRequired},
		{"missing representative", CreateRequest{Name: "x", MemberIDs: []string{"u1"}}, ErrRepresentativeRequired},
		{"empty members", CreateRequest{Name: "x", RepresentativeUserID: "u1"}, ErrMemberIDsRequired},
		{"rep not member", CreateRequest{Name: "x", RepresentativeUserID: "u1", MemberIDs: []string{"u2"}}, ErrRepresentativeNotMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAddMemberDuplicateRejected(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	seedProfile(repo, "u1", "a")
	seedProfile(repo, "u2", "b")
	f := seedFamily(repo, "家族", "u1", "u1", "u2")

	if _, err := svc.AddMember(ctx, f.ID, "u2"); !errors.Is(err, ErrAlreadyInFamily) {
		t.Errorf("expected ErrAlreadyInFamily, got %v", err)
	}
}

func TestAddMemberCleansUpOldFamily(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	seedProfile(repo, "u1", "a")
	seedProfile(repo, "u2", "b")
	dest := seedFamily(repo, "移動先", "u1", "u1")
	old := seedFamily(repo, "bの家族", "u2", "u2")

	member, err := svc.AddMember(ctx, dest.ID, "u2")
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	if *member.FamilyRole != profiles.RoleChild {
		t.Errorf("added member must be child, got %s", *member.FamilyRole)
	}
	if repo.FamilyExists(old.ID) {
		t.Error("the emptied old family must be deleted")
	}
}

func TestRemoveMemberSplitsOff(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	seedProfile(repo, "u1", "親")
	seedProfile(repo, "u2", "子")
	f := seedFamily(repo, "家族", "u1", "u1", "u2")

	newFamily, err := svc.RemoveMember(ctx, f.ID, "u2")
	if err != nil {
		t.Fatalf("remove member: %v", err)
	}

	if count, _ := repo.CountMembers(ctx, f.ID); count != 1 {
		t.Errorf("source family must be left with 1 member, got %d", count)
	}
	moved, _ := repo.GetProfile(ctx, "u2")
	if *moved.FamilyID != newFamily.ID {
		t.Error("removed member must own the new family")
	}
	if *moved.FamilyRole != profiles.RoleParent {
		t.Errorf("removed member must be parent of the new family, got %s", *moved.FamilyRole)
	}
	if newFamily.RepresentativeUserID != "u2" {
		t.Errorf("new family representative must be the removed member, got %s", newFamily.RepresentativeUserID)
	}
}

func TestRemoveMemberParentRejected(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	seedProfile(repo, "u1", "親")
	seedProfile(repo, "u2", "子")
	f := seedFamily(repo, "家族", "u1", "u1", "u2")

	if _, err := svc.RemoveMember(ctx, f.ID, "u1"); !errors.Is(err, ErrParentNotRemovable) {
		t.Errorf("expected ErrParentNotRemovable, got %v", err)
	}
}

func TestRemoveMemberSingleRejected(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	seedProfile(repo, "u1", "a")
	f := seedFamily(repo, "aの家族", "u1", "u1")

	if _, err := svc.RemoveMember(ctx, f.ID, "u1"); !errors.Is(err, ErrAlreadySingle) {
		t.Errorf("expected ErrAlreadySingle, got %v", err)
	}
}

func TestRemoveMemberWrongFamily(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	seedProfile(repo, "u1", "a")
	seedProfile(repo, "u2", "b")
	f1 := seedFamily(repo, "家族1", "u1", "u1")
	seedFamily(repo, "家族2", "u2", "u2")

	if _, err := svc.RemoveMember(ctx, f1.ID, "u2"); !errors.Is(err, ErrNotInFamily) {
		t.Errorf("expected ErrNotInFamily, got %v", err)
	}
}

func TestDissolveThreeMembers(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	seedProfile(repo, "u1", "親")
	seedProfile(repo, "u2", "子1")
	seedProfile(repo, "u3", "子2")
	f := seedFamily(repo, "家族", "u1", "u1", "u2", "u3")

	result, err := svc.Dissolve(ctx, f.ID)
	if err != nil {
		t.Fatalf("dissolve: %v", err)
	}
	if len(result.Moved) != 3 || result.FailedCount != 0 {
		t.Fatalf("expected 3 clean moves, got %+v", result)
	}
	if repo.FamilyExists(f.ID) {
		t.Error("the original family row must no longer exist")
	}

	seen := make(map[string]struct{})
	for _, id := range []string{"u1", "u2", "u3"} {
		p, _ := repo.GetProfile(ctx, id)
		if p.FamilyID == nil || p.FamilyRole == nil {
			t.Fatalf("member %s left without a family", id)
		}
		if *p.FamilyRole != profiles.RoleParent {
			t.Errorf("member %s must be parent of their own family, got %s", id, *p.FamilyRole)
		}
		if count, _ := repo.CountMembers(ctx, *p.FamilyID); count != 1 {
			t.Errorf("member %s must be alone in their family, got %d members", id, count)
		}
		if _, dup := seen[*p.FamilyID]; dup {
			t.Errorf("member %s shares a family with another dissolved member", id)
		}
		seen[*p.FamilyID] = struct{}{}
	}
}

func TestDissolveMissingFamily(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Dissolve(context.Background(), "missing"); !errors.Is(err, ErrFamilyNotFound) {
		t.Errorf("expected ErrFamilyNotFound, got %v", err)
	}
}

func TestListHidesSingleMemberFamilies(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	seedProfile(repo, "u1", "a")
	seedProfile(repo, "u2", "b")
	seedProfile(repo, "u3", "c")
	seedFamily(repo, "二人家族", "u1", "u1", "u2")
	seedFamily(repo, "cの家族", "u3", "u3")

	summaries, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected only the 2-member family, got %d rows", len(summaries))
	}
	if summaries[0].MemberCount != 2 {
		t.Errorf("expected member_count 2, got %d", summaries[0].MemberCount)
	}
}

func TestRenameKeepsMembership(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	seedProfile(repo, "u1", "a")
	seedProfile(repo, "u2", "b")
	f := seedFamily(repo, "旧名", "u1", "u1", "u2")

	renamed, err := svc.Rename(ctx, f.ID, "新名")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "新名" {
		t.Errorf("expected 新名, got %s", renamed.Name)
	}
	if count, _ := repo.CountMembers(ctx, f.ID); count != 2 {
		t.Errorf("rename must not touch membership, got %d members", count)
	}
}
