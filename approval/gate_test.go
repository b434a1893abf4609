package approval_test

import (
	"errors"
	"testing"

	"github.com/warp/custody-engine/approval"
)

func TestAuthorize_GatingTable(t *testing.T) {
	cases := []struct {
		role       approval.Role
		transition approval.TransitionKind
		allowed    bool
	}{
		{approval.RoleProjectManager, approval.TransitionPMDecision, true},
		{approval.RoleGeneralManager, approval.TransitionPMDecision, false},
		{approval.RoleEmployee, approval.TransitionPMDecision, false},

		{approval.RoleGeneralManager, approval.TransitionGMDecision, true},
		{approval.RoleProjectManager, approval.TransitionGMDecision, false},
		{approval.RoleEmployee, approval.TransitionGMDecision, false},

		{approval.RoleGeneralManager, approval.TransitionCompleteTransfer, true},
		{approval.RoleProjectManager, approval.TransitionCompleteTransfer, false},
		{approval.RoleEmployee, approval.TransitionCompleteTransfer, false},
	}

	for _, tc := range cases {
		err := approval.Authorize(tc.role, tc.transition)
		if tc.allowed && err != nil {
			t.Errorf("%s on %s: unexpected denial: %v", tc.role, tc.transition, err)
		}
		if !tc.allowed && !errors.Is(err, approval.ErrAuthorization) {
			t.Errorf("%s on %s: got %v, want authorization error", tc.role, tc.transition, err)
		}
	}
}

func TestAuthorize_UnknownTransition_Denied(t *testing.T) {
	err := approval.Authorize(approval.RoleGeneralManager, approval.TransitionKind("escalate"))
	if !errors.Is(err, approval.ErrAuthorization) {
		t.Errorf("got %v, want authorization error", err)
	}
}

func TestParseRole_Strict(t *testing.T) {
	// Unrecognized roles are rejected, never defaulted to employee.
	if _, err := approval.ParseRole("superadmin"); !errors.Is(err, approval.ErrUnknownRole) {
		t.Errorf("got %v, want unknown role error", err)
	}
	role, err := approval.ParseRole(" project_manager ")
	if err != nil || role != approval.RoleProjectManager {
		t.Errorf("got (%v, %v), want project_manager", role, err)
	}
}
