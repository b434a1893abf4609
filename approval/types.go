/*
Package approval provides the core custody-advance and expense approval engine.

PURPOSE:
  This package contains the domain model and algorithms for routing monetary
  requests through a two-stage approval chain. Whether the money is a custody
  advance (cash request) or an expense claim, the same engine validates the
  submission, gates each decision by role, and applies forward-only status
  transitions with compare-and-set discipline.

KEY CONCEPTS IN THIS FILE (types.go):
  - Role:         Closed set of actor roles (employee, PM, GM)
  - Status:       Closed set of request statuses (the state machine nodes)
  - RequestKind:  Cash request vs. expense (the two transition graphs)
  - MoneyRequest: The request entity itself
  - User/Project/Membership: Supporting entities

DESIGN PRINCIPLES:
  1. Closed enumerations: statuses and roles are parsed strictly; an
     unrecognized value is an error, never a silent default.
  2. Precision: amounts use decimal.Decimal to avoid floating-point errors.
  3. Immutability: amount, reason, and project are fixed at submission;
     only status (and the transfer proof) change afterwards.
  4. Auditability: requests are never deleted; terminal states are permanent.

SEE ALSO:
  - gate.go:     Role gating per transition
  - engine.go:   Submission and decision lifecycle
  - transfer.go: Transfer completion for cash requests
  - store.go:    Persistence and collaborator interfaces
*/
package approval

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ROLES
// =============================================================================

type Role string

const (
	RoleEmployee       Role = "employee"
	RoleProjectManager Role = "project_manager"
	RoleGeneralManager Role = "general_manager"
)

// ParseRole converts a stored role string into a Role. Unrecognized values
// are rejected; callers that need the legacy behavior of defaulting unknown
// roles to employee must opt in explicitly (see auth.WithLenientRoles).
func ParseRole(s string) (Role, error) {
	switch Role(strings.TrimSpace(s)) {
	case RoleEmployee:
		return RoleEmployee, nil
	case RoleProjectManager:
		return RoleProjectManager, nil
	case RoleGeneralManager:
		return RoleGeneralManager, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// =============================================================================
// STATUSES - Nodes of the transition graph
// =============================================================================

type Status string

const (
	StatusPendingPM       Status = "PENDING_PM"
	StatusPendingGM       Status = "PENDING_GM"
	StatusWaitingTransfer Status = "WAITING_TRANSFER"
	StatusApproved        Status = "APPROVED"
	StatusRejected        Status = "REJECTED"
)

// Terminal reports whether no further transition may be applied.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseStatus converts a persisted status string into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPendingPM, StatusPendingGM, StatusWaitingTransfer, StatusApproved, StatusRejected:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// =============================================================================
// REQUEST KINDS
// =============================================================================

type RequestKind string

const (
	// KindCashRequest is a custody advance: PM approval, GM approval, then a
	// transfer-completion step before it is balance-effective.
	KindCashRequest RequestKind = "cash_request"

	// KindExpense is a spend claim: PM approval, then GM approval, which is
	// balance-effective immediately.
	KindExpense RequestKind = "expense"
)

// ParseRequestKind converts a stored kind tag into a RequestKind.
func ParseRequestKind(s string) (RequestKind, error) {
	switch RequestKind(s) {
	case KindCashRequest, KindExpense:
		return RequestKind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// =============================================================================
// MONEY REQUEST - The request entity
// =============================================================================

// MoneyRequest is the shared shape for cash requests and expenses,
// distinguished by Kind. Amount, Reason, and ProjectID never change after
// creation; Status changes only through engine transitions, and
// TransferProofURL is set exactly once, at transfer completion.
type MoneyRequest struct {
	ID           string
	Kind         RequestKind
	EmployeeID   string
	EmployeeName string
	ProjectID    string
	Amount       decimal.Decimal
	Reason       string
	Status       Status

	// ReceiptURL is mandatory for expenses, unused for cash requests.
	ReceiptURL string

	// TransferProofURL is populated only at transfer completion of a
	// cash request. Empty until then, and always empty for expenses.
	TransferProofURL string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks submission-time invariants. It does not resolve foreign
// references (employee/project existence is the engine's concern).
func (r *MoneyRequest) Validate() error {
	if r.Kind != KindCashRequest && r.Kind != KindExpense {
		return &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown request kind %q", r.Kind)}
	}
	if strings.TrimSpace(r.EmployeeID) == "" {
		return &ValidationError{Field: "employee_id", Message: "employee is required"}
	}
	if strings.TrimSpace(r.ProjectID) == "" {
		return &ValidationError{Field: "project_id", Message: "project is required"}
	}
	if !r.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Message: "amount must be greater than zero"}
	}
	if strings.TrimSpace(r.Reason) == "" {
		return &ValidationError{Field: "reason", Message: "reason is required"}
	}
	if r.Kind == KindExpense && strings.TrimSpace(r.ReceiptURL) == "" {
		return &ValidationError{Field: "receipt_url", Message: "expense requires a receipt"}
	}
	return nil
}

// =============================================================================
// SUPPORTING ENTITIES
// =============================================================================

// User is an actor known to the system. Users are created by an external
// provisioning call, flipped active/inactive, and never deleted.
type User struct {
	ID        string
	Name      string
	Role      Role
	Active    bool
	CreatedAt time.Time
}

// Project is a cost target for requests. Soft-deactivated, never deleted.
type Project struct {
	ID          string
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
}

// Membership links an employee to a project. Immutable once created;
// duplicate links are tolerated as duplicate facts.
type Membership struct {
	EmployeeID string
	ProjectID  string
	CreatedAt  time.Time
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role Role
}
