// Package apperr defines the error taxonomy shared by all core operations.
// Every operation either leaves state untouched and returns one of these, or
// commits fully; there is no partial mutation on the error path.
package apperr

import "errors"

var (
	// ErrValidation marks malformed input rejected before any mutation:
	// non-positive quantities, missing ids, empty cart at checkout, zero
	// token lifetimes.
	ErrValidation = errors.New("validation failed")

	// ErrRemote marks a failed remote collaborator call. Local state is left
	// unchanged and the failure is surfaced; the core never retries.
	ErrRemote = errors.New("remote call failed")

	// ErrNotOwner marks a mutation attempted on a product the current
	// session does not own. Rejected before the remote dispatch.
	ErrNotOwner = errors.New("not the product owner")

	// ErrUnauthenticated marks an intent that requires a live session.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrSessionExpired marks the expiry-timer logout path; it is never
	// raised by caller input.
	ErrSessionExpired = errors.New("session expired")
)
