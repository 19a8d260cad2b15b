package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when the username/password pair does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrStaffNotFound is returned when a staff row is absent.
	ErrStaffNotFound = errors.New("staff not found")

	// ErrStaffInactive is returned when a deactivated staff member tries to log in.
	ErrStaffInactive = errors.New("staff account is deactivated")

	// ErrWeakPassword is returned when a new password fails validation.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
)
