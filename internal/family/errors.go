package family

import "errors"

var (
	// ErrFamilyNotFound is returned when the referenced family is absent.
	ErrFamilyNotFound = errors.New("family not found")

	// ErrNameRequired is returned when a family name is missing.
	ErrNameRequired = errors.New("family_name is required")

	// ErrRepresentativeRequired is returned when no representative is given.
	ErrRepresentativeRequired = errors.New("representative_user_id is required")

	// ErrMemberIDsRequired is returned when member_ids is empty.
	ErrMemberIDsRequired = errors.New("member_ids must contain at least one user id")

	// ErrRepresentativeNotMember is returned when the representative is not
	// listed in member_ids.
	ErrRepresentativeNotMember = errors.New("representative_user_id must be included in member_ids")

	// ErrAlreadyInFamily is returned when adding a member who already belongs
	// to the destination family.
	ErrAlreadyInFamily = errors.New("user already belongs to this family")

	// ErrNotInFamily is returned when removing a member from a family they do
	// not belong to.
	ErrNotInFamily = errors.New("user does not belong to this family")

	// ErrAlreadySingle is returned when removing the sole member of a family.
	ErrAlreadySingle = errors.New("user is already in a single-member family")

	// ErrParentNotRemovable is returned when removing the representative.
	// Another member must be promoted first.
	ErrParentNotRemovable = errors.New("the parent cannot be removed; reassign the representative first")

	// ErrNoMembers is returned when dissolving a family with no members.
	ErrNoMembers = errors.New("family has no members")
)
