// Package family manages family groups: creating and dissolving them,
// moving members between them, and keeping the representative role and the
// no-empty-family invariant intact.
package family

import (
	"time"

	"github.com/wakabadc/clinic-line-admin/internal/profiles"
)

// FallbackMemberName names single-member families created for profiles with
// no display name.
const FallbackMemberName = "ユーザー"

// Family is a named group with exactly one representative.
type Family struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"family_name"`
	RepresentativeUserID string    `json:"representative_user_id"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Summary is the list-view row: aggregate counts only, no member detail.
// Single-member families are hidden from list views.
type Summary struct {
	Family
	MemberCount     int `json:"member_count"`
	TotalStampCount int `json:"total_stamp_count"`
	TotalVisitCount int `json:"total_visit_count"`
}

// WithMembers is the detail view: the family plus its member profiles and
// aggregate totals.
type WithMembers struct {
	Family
	Members         []*profiles.Profile `json:"members"`
	MemberCount     int                 `json:"member_count"`
	TotalStampCount int                 `json:"total_stamp_count"`
	TotalVisitCount int                 `json:"total_visit_count"`
}

// CreateRequest is the body for POST /api/families.
type CreateRequest struct {
	Name                 string   `json:"family_name"`
	RepresentativeUserID string   `json:"representative_user_id"`
	MemberIDs            []string `json:"member_ids"`
}

// Validate rejects malformed create requests before any mutation.
func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return ErrNameRequired
	}
	if r.RepresentativeUserID == "" {
		return ErrRepresentativeRequired
	}
	if len(r.MemberIDs) == 0 {
		return ErrMemberIDsRequired
	}
	for _, id := range r.MemberIDs {
		if id == r.RepresentativeUserID {
			return nil
		}
	}
	return ErrRepresentativeNotMember
}

// MemberMove is one per-member outcome of a dissolve. Err is empty on success.
type MemberMove struct {
	UserID      string `json:"user_id"`
	NewFamilyID string `json:"new_family_id,omitempty"`
	Err         string `json:"error,omitempty"`
}

// DissolveResult aggregates the per-member outcomes of a dissolution.
type DissolveResult struct {
	Moved       []MemberMove `json:"moved"`
	FailedCount int          `json:"failed_count"`
}
