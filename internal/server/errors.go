package server

import "errors"

// Sentinel errors shared across the store implementations and handlers.
// Handlers translate these into HTTP responses at the request boundary;
// nothing is retried.
var (
	// ErrNotFound means the referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the record exists but is owned by another user.
	ErrForbidden = errors.New("forbidden")

	// ErrUsernameTaken is returned when the users.username unique
	// constraint rejects an insert. The constraint, not the pre-check,
	// is the source of truth for uniqueness.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrInvalidCredentials covers both unknown usernames and failed
	// password verification so the two cases are indistinguishable.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidationError carries a message safe to surface to the user via a
// flash message (password rules, missing file, bad extension).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErr(msg string) error { return &ValidationError{Message: msg} }
