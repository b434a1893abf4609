/*
errors.go - Centralized error types for the approval engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The taxonomy mirrors how callers must react:

  1. Validation errors    - bad input; fix and retry
  2. Authorization errors - wrong role; never mutates state
  3. State conflicts      - stale expected status; re-read before retry
  4. Not found            - unresolvable id
  5. Collaborator errors  - I/O failures from store/object storage

USAGE:
  Callers classify with errors.Is:

    if errors.Is(err, approval.ErrStateConflict) {
        // re-read the request, present the fresh status
    }

SEE ALSO:
  - engine.go:   Produces most of these
  - api/handlers.go: Maps them to HTTP statuses
*/
package approval

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all submission-time input failures.
	ErrValidation = errors.New("validation failed")

	// ErrAuthorization is returned when an actor's role does not match the
	// role required by the attempted action. Authorization never mutates state.
	ErrAuthorization = errors.New("role not permitted")

	// ErrStateConflict is returned when the persisted status no longer
	// matches the expected status at mutation time (concurrent decision,
	// double submit, stale client). Callers should re-read and may retry.
	ErrStateConflict = errors.New("status changed concurrently")

	// ErrNotFound is returned when a request, project, or user id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrCollaborator wraps I/O failures from external collaborators.
	ErrCollaborator = errors.New("collaborator failure")

	// ErrUnknownRole is returned for role strings outside the closed set.
	ErrUnknownRole = errors.New("unknown role")

	// ErrUnknownStatus is returned for status strings outside the closed set.
	ErrUnknownStatus = errors.New("unknown status")

	// ErrUnknownKind is returned for request kind tags outside the closed set.
	ErrUnknownKind = errors.New("unknown request kind")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a single invalid submission field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// AuthorizationError reports a role/action mismatch.
type AuthorizationError struct {
	Role     Role
	Action   string
	Required Role
}

func (e *AuthorizationError) Error() string {
	if e.Required != "" {
		return fmt.Sprintf("role %q may not perform %s (requires %q)", e.Role, e.Action, e.Required)
	}
	return fmt.Sprintf("role %q may not perform %s", e.Role, e.Action)
}

func (e *AuthorizationError) Unwrap() error { return ErrAuthorization }

// StateConflictError reports a failed compare-and-set on request status.
type StateConflictError struct {
	RequestID string
	Expected  Status
	Actual    Status
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("request %s: expected status %s, found %s", e.RequestID, e.Expected, e.Actual)
}

func (e *StateConflictError) Unwrap() error { return ErrStateConflict }

// NotFoundError reports an unresolvable entity reference.
type NotFoundError struct {
	Entity string // "request", "project", "user"
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// CollaboratorError wraps a failure from an external collaborator. Storage
// and persistence failures are propagated through this type; notification
// failures are swallowed by the engine and never surface.
type CollaboratorError struct {
	Op  string // e.g. "objectstore.upload", "store.create"
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return ErrCollaborator }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed after a fresh read.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStateConflict)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrAuthorization) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrStateConflict)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
