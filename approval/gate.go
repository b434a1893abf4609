/*
gate.go - Authorization gate for request transitions

PURPOSE:
  Decides whether a role may perform a transition. The gate is a pure
  function of (role, transition kind): it performs no data lookups and has
  no side effects. Denial never mutates state.

GATING TABLE:
  pm_decision       -> project_manager
  gm_decision       -> general_manager
  complete_transfer -> general_manager

  Each transition names exactly one permitted role. There is no support for
  parallel approvers or delegated approval.

SEE ALSO:
  - engine.go:   Calls Authorize before every transition
  - transfer.go: Same, for transfer completion
*/
package approval

// TransitionKind identifies a stage of the approval graph for gating.
type TransitionKind string

const (
	TransitionPMDecision       TransitionKind = "pm_decision"
	TransitionGMDecision       TransitionKind = "gm_decision"
	TransitionCompleteTransfer TransitionKind = "complete_transfer"
)

// requiredRole is the total gating table: every transition kind names the
// single role permitted to invoke it.
var requiredRole = map[TransitionKind]Role{
	TransitionPMDecision:       RoleProjectManager,
	TransitionGMDecision:       RoleGeneralManager,
	TransitionCompleteTransfer: RoleGeneralManager,
}

// Authorize permits or denies a transition for a role. It returns nil when
// permitted and an AuthorizationError otherwise.
func Authorize(role Role, transition TransitionKind) error {
	required, ok := requiredRole[transition]
	if !ok {
		return &AuthorizationError{Role: role, Action: string(transition)}
	}
	if role != required {
		return &AuthorizationError{Role: role, Action: string(transition), Required: required}
	}
	return nil
}
