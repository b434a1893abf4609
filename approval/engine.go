/*
engine.go - Submission and decision lifecycle

PURPOSE:
  The transition engine: validates submissions, applies role-gated,
  forward-only status transitions, and dispatches best-effort notifications
  after each successful change.

TRANSITION GRAPHS:
  CashRequest: PENDING_PM -> PENDING_GM -> WAITING_TRANSFER -> APPROVED
  Expense:     PENDING_PM -> PENDING_GM -> APPROVED
  REJECTED is terminal and reachable from either pending stage of both kinds.

  Approval at the GM stage is NOT balance-effective for cash requests; only
  transfer completion (transfer.go) is. For expenses, GM approval is
  immediately balance-effective.

ATOMICITY:
  Every transition goes through EntityStore.CompareAndSetStatus keyed on the
  expected current status. A concurrent decision makes the second caller fail
  with a StateConflictError; nothing is ever overwritten silently.

NOTIFICATIONS:
  Dispatched strictly after the mutation commits, outside any lock. Failures
  are logged and swallowed: notification is a side effect, not part of the
  transition contract.

SEE ALSO:
  - gate.go:     Role gating
  - transfer.go: The WAITING_TRANSFER -> APPROVED step
  - membership.go: Optional submission-time membership enforcement
*/
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine drives the request lifecycle. All dependencies are injected; the
// zero value is not usable, construct with NewEngine.
type Engine struct {
	store    EntityStore
	notifier NotificationDispatcher
	log      *zap.Logger
	now      func() time.Time

	// enforceMembership turns project membership into a hard submission
	// precondition. Off by default: historically the membership directory
	// only filtered selectable projects in the UI.
	enforceMembership bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for swallowed notification failures.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMembershipEnforcement makes submission fail unless the employee is
// linked to the chosen project.
func WithMembershipEnforcement() Option {
	return func(e *Engine) { e.enforceMembership = true }
}

// NewEngine creates an engine over the given store and dispatcher.
func NewEngine(store EntityStore, notifier NotificationDispatcher, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		notifier: notifier,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// =============================================================================
// SUBMISSION
// =============================================================================

// SubmitInput is the common submission payload. ReceiptURL is required for
// expenses and ignored for cash requests.
type SubmitInput struct {
	EmployeeID string
	ProjectID  string
	Amount     decimal.Decimal
	Reason     string
	ReceiptURL string
}

// SubmitCashRequest creates a custody advance in PENDING_PM.
func (e *Engine) SubmitCashRequest(ctx context.Context, in SubmitInput) (*MoneyRequest, error) {
	in.ReceiptURL = ""
	return e.submit(ctx, KindCashRequest, in)
}

// SubmitExpense creates an expense claim in PENDING_PM.
func (e *Engine) SubmitExpense(ctx context.Context, in SubmitInput) (*MoneyRequest, error) {
	return e.submit(ctx, KindExpense, in)
}

func (e *Engine) submit(ctx context.Context, kind RequestKind, in SubmitInput) (*MoneyRequest, error) {
	now := e.now().UTC()
	req := &MoneyRequest{
		ID:         uuid.NewString(),
		Kind:       kind,
		EmployeeID: in.EmployeeID,
		ProjectID:  in.ProjectID,
		Amount:     in.Amount,
		Reason:     in.Reason,
		Status:     StatusPendingPM,
		ReceiptURL: in.ReceiptURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// Validation first: no partial record is ever created.
	if err := req.Validate(); err != nil {
		return nil, err
	}

	employee, err := e.store.GetUser(ctx, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	req.EmployeeName = employee.Name

	project, err := e.store.GetProject(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if !project.Active {
		return nil, &ValidationError{Field: "project_id", Message: fmt.Sprintf("project %s is inactive", project.ID)}
	}

	if e.enforceMembership {
		linked, err := e.isMember(ctx, in.EmployeeID, in.ProjectID)
		if err != nil {
			return nil, err
		}
		if !linked {
			return nil, &AuthorizationError{
				Role:   employee.Role,
				Action: fmt.Sprintf("submit against project %s without membership", in.ProjectID),
			}
		}
	}

	if err := e.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (e *Engine) isMember(ctx context.Context, employeeID, projectID string) (bool, error) {
	memberships, err := e.store.ListMembershipsByEmployee(ctx, employeeID)
	if err != nil {
		return false, err
	}
	for _, m := range memberships {
		if m.ProjectID == projectID {
			return true, nil
		}
	}
	return false, nil
}

// =============================================================================
// DECISIONS
// =============================================================================

// PMDecision applies the first-stage decision. Approval moves the request to
// PENDING_GM; rejection is terminal.
func (e *Engine) PMDecision(ctx context.Context, requestID string, approve bool, actor Actor) (Status, error) {
	return e.decide(ctx, requestID, approve, actor, TransitionPMDecision)
}

// GMDecision applies the second-stage decision. Approval moves an expense to
// APPROVED and a cash request to WAITING_TRANSFER; rejection is terminal.
func (e *Engine) GMDecision(ctx context.Context, requestID string, approve bool, actor Actor) (Status, error) {
	return e.decide(ctx, requestID, approve, actor, TransitionGMDecision)
}

func (e *Engine) decide(ctx context.Context, requestID string, approve bool, actor Actor, stage TransitionKind) (Status, error) {
	if err := Authorize(actor.Role, stage); err != nil {
		return "", err
	}

	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return "", err
	}

	expected := StatusPendingPM
	if stage == TransitionGMDecision {
		expected = StatusPendingGM
	}

	next := StatusRejected
	if approve {
		switch {
		case stage == TransitionPMDecision:
			next = StatusPendingGM
		case req.Kind == KindCashRequest:
			// GM approval of an advance is not balance-effective; the
			// amount counts only after transfer completion.
			next = StatusWaitingTransfer
		default:
			next = StatusApproved
		}
	}

	if err := e.store.CompareAndSetStatus(ctx, requestID, expected, next, ExtraFields{}); err != nil {
		return "", err
	}

	e.notify(ctx, req, next)
	return next, nil
}

// notify dispatches a best-effort status notification to the employee.
// Failure is logged and swallowed; the transition has already committed.
func (e *Engine) notify(ctx context.Context, req *MoneyRequest, next Status) {
	title := fmt.Sprintf("Request %s", statusLabel(next))
	body := fmt.Sprintf("Your %s for %s is now %s.", kindLabel(req.Kind), req.Amount.StringFixed(2), next)
	if err := e.notifier.Send(ctx, req.EmployeeID, title, body); err != nil {
		e.log.Warn("notification dispatch failed",
			zap.String("request_id", req.ID),
			zap.String("employee_id", req.EmployeeID),
			zap.String("status", string(next)),
			zap.Error(err))
	}
}

func statusLabel(s Status) string {
	switch s {
	case StatusPendingGM:
		return "awaiting final approval"
	case StatusWaitingTransfer:
		return "awaiting transfer"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	default:
		return string(s)
	}
}

func kindLabel(k RequestKind) string {
	if k == KindCashRequest {
		return "cash request"
	}
	return "expense"
}
