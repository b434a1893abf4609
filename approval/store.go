/*
store.go - Persistence and collaborator interfaces

PURPOSE:
  Defines the interface between the approval engine and everything outside
  it: the entity store, notification dispatch, object storage, and identity
  resolution. The engine and ledger depend only on these interfaces; no
  package-level singletons exist anywhere.

COMPARE-AND-SET CONTRACT:
  CompareAndSetStatus is the only way a request mutates after creation.
  The write succeeds only if the persisted status still equals the expected
  status; otherwise the store fails closed with a StateConflictError carrying
  the actual status. This linearizes transitions per request id without any
  lock held by the caller.

IMPLEMENTATIONS:
  - store/sqlite: production store (single UPDATE with status predicate)
  - approval/store: in-memory store for tests and dev

SEE ALSO:
  - engine.go:       The only writer
  - ledger:          Read-only consumer of the same interface
*/
package approval

import "context"

// =============================================================================
// ENTITY STORE
// =============================================================================

// RequestFilter narrows ListRequests. Zero fields match everything.
type RequestFilter struct {
	EmployeeID string
	ProjectID  string
	Kind       RequestKind
	Statuses   []Status
}

// ExtraFields carries the per-transition additional data written together
// with a status change. Only transfer completion uses it today.
type ExtraFields struct {
	TransferProofURL string
}

// EntityStore persists users, projects, memberships, and money requests.
//
// Requests are append-then-transition: CreateRequest writes the initial
// record, CompareAndSetStatus applies every later change. There is no
// update of amount/reason/project and no delete of anything.
type EntityStore interface {
	CreateRequest(ctx context.Context, req *MoneyRequest) error
	GetRequest(ctx context.Context, id string) (*MoneyRequest, error)
	ListRequests(ctx context.Context, f RequestFilter) ([]MoneyRequest, error)

	// CompareAndSetStatus atomically moves a request from expected to next,
	// writing extra fields in the same mutation. Fails with NotFoundError if
	// the id does not resolve, StateConflictError if the persisted status is
	// not the expected one.
	CompareAndSetStatus(ctx context.Context, id string, expected, next Status, extra ExtraFields) error

	CreateUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SetUserActive(ctx context.Context, id string, active bool) error

	CreateProject(ctx context.Context, p Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]Project, error)
	SetProjectActive(ctx context.Context, id string, active bool) error

	CreateMembership(ctx context.Context, m Membership) error
	ListMembershipsByEmployee(ctx context.Context, employeeID string) ([]Membership, error)
}

// =============================================================================
// COLLABORATORS - Implemented outside the core
// =============================================================================

// NotificationDispatcher delivers a message to a user. Dispatch is
// best-effort: the engine logs and swallows any error, and never rolls back
// a transition because notification failed.
type NotificationDispatcher interface {
	Send(ctx context.Context, userID, title, body string) error
}

// ObjectStore stores opaque bytes (receipts, transfer proofs) and returns a
// URL for later reference. The engine never uploads; callers upload first
// and pass the resulting URL in.
type ObjectStore interface {
	Upload(ctx context.Context, data []byte, path string) (string, error)
}

// AuthProvider resolves a caller credential (e.g. a bearer token) to the
// acting user.
type AuthProvider interface {
	CurrentActor(ctx context.Context, credential string) (Actor, error)
}
