package user

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateUser is returned when the username or email is taken.
	ErrDuplicateUser = errors.New("username or email already exists")

	// ErrInvalidCredentials is returned for any login failure. It never
	// distinguishes unknown email from wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrPasswordTooShort is returned when the password has fewer than six
	// characters.
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")

	// ErrInvalidAdminCode is returned when admin registration is attempted
	// without the configured admin secret code.
	ErrInvalidAdminCode = errors.New("invalid admin code")

	// ErrUserNotFound is returned by repository lookups with no match.
	ErrUserNotFound = errors.New("user not found")
)

// ValidationError reports the first field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
