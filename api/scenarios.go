/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Seeds recognizable walkthroughs of the approval graph for demos and
  manual testing: users in each role, a project with memberships, and
  requests left at interesting points of their lifecycle.

  Scenarios are additive seed data. They go through the same engine as real
  traffic, so a loaded scenario is also a smoke test of the full chain.
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/custody-engine/approval"
)

// Scenario is a loadable demo state.
type Scenario struct {
	Name        string
	Description string
	Load        func(ctx context.Context, h *Handler) error
}

func builtinScenarios() map[string]Scenario {
	return map[string]Scenario{
		"fresh-team": {
			Name:        "fresh-team",
			Description: "Three users (employee, PM, GM), one project, no requests yet",
			Load:        loadFreshTeam,
		},
		"mid-approval": {
			Name:        "mid-approval",
			Description: "Requests parked at each stage: PENDING_PM, PENDING_GM, WAITING_TRANSFER",
			Load:        loadMidApproval,
		},
		"settled-month": {
			Name:        "settled-month",
			Description: "A completed cycle: approved advance, approved expense, one rejection",
			Load:        loadSettledMonth,
		},
	}
}

// ListScenarios returns all available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	var dtos []ScenarioDTO
	for _, s := range h.scenarios {
		dtos = append(dtos, ScenarioDTO{Name: s.Name, Description: s.Description})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LoadScenario seeds the named scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var body LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	scenario, ok := h.scenarios[body.Name]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", nil)
		return
	}
	if err := scenario.Load(r.Context(), h); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"loaded": scenario.Name})
}

// =============================================================================
// SCENARIO DATA
// =============================================================================

type seedTeam struct {
	employee approval.User
	pm       approval.User
	gm       approval.User
	project  approval.Project
}

func seedBaseTeam(ctx context.Context, h *Handler) (*seedTeam, error) {
	team := &seedTeam{
		employee: approval.User{ID: "emp-amira", Name: "Amira Hassan", Role: approval.RoleEmployee, Active: true},
		pm:       approval.User{ID: "pm-priya", Name: "Priya Nair", Role: approval.RoleProjectManager, Active: true},
		gm:       approval.User{ID: "gm-omar", Name: "Omar Said", Role: approval.RoleGeneralManager, Active: true},
		project: approval.Project{
			ID:          "proj-harbor",
			Name:        "Harbor Upgrade",
			Description: "Dockside logistics refresh",
			Active:      true,
		},
	}

	for _, u := range []approval.User{team.employee, team.pm, team.gm} {
		if err := h.Store.CreateUser(ctx, u); err != nil {
			return nil, err
		}
	}
	if err := h.Store.CreateProject(ctx, team.project); err != nil {
		return nil, err
	}
	if err := h.Store.CreateMembership(ctx, approval.Membership{
		EmployeeID: team.employee.ID,
		ProjectID:  team.project.ID,
	}); err != nil {
		return nil, err
	}
	return team, nil
}

func loadFreshTeam(ctx context.Context, h *Handler) error {
	_, err := seedBaseTeam(ctx, h)
	return err
}

func loadMidApproval(ctx context.Context, h *Handler) error {
	team, err := seedBaseTeam(ctx, h)
	if err != nil {
		return err
	}
	pm := approval.Actor{ID: team.pm.ID, Role: team.pm.Role}
	gm := approval.Actor{ID: team.gm.ID, Role: team.gm.Role}

	// Parked at PENDING_PM
	if _, err := h.Engine.SubmitCashRequest(ctx, approval.SubmitInput{
		EmployeeID: team.employee.ID,
		ProjectID:  team.project.ID,
		Amount:     decimal.NewFromInt(250),
		Reason:     "Site visit travel float",
	}); err != nil {
		return err
	}

	// Parked at PENDING_GM
	expense, err := h.Engine.SubmitExpense(ctx, approval.SubmitInput{
		EmployeeID: team.employee.ID,
		ProjectID:  team.project.ID,
		Amount:     decimal.NewFromInt(80),
		Reason:     "Crane permit fee",
		ReceiptURL: "/uploads/demo-permit-receipt.jpg",
	})
	if err != nil {
		return err
	}
	if _, err := h.Engine.PMDecision(ctx, expense.ID, true, pm); err != nil {
		return err
	}

	// Parked at WAITING_TRANSFER
	advance, err := h.Engine.SubmitCashRequest(ctx, approval.SubmitInput{
		EmployeeID: team.employee.ID,
		ProjectID:  team.project.ID,
		Amount:     decimal.NewFromInt(500),
		Reason:     "Contractor cash advance",
	})
	if err != nil {
		return err
	}
	if _, err := h.Engine.PMDecision(ctx, advance.ID, true, pm); err != nil {
		return err
	}
	_, err = h.Engine.GMDecision(ctx, advance.ID, true, gm)
	return err
}

func loadSettledMonth(ctx context.Context, h *Handler) error {
	team, err := seedBaseTeam(ctx, h)
	if err != nil {
		return err
	}
	pm := approval.Actor{ID: team.pm.ID, Role: team.pm.Role}
	gm := approval.Actor{ID: team.gm.ID, Role: team.gm.Role}

	// Advance carried all the way to APPROVED via transfer completion.
	advance, err := h.Engine.SubmitCashRequest(ctx, approval.SubmitInput{
		EmployeeID: team.employee.ID,
		ProjectID:  team.project.ID,
		Amount:     decimal.NewFromInt(500),
		Reason:     "Contractor cash advance",
	})
	if err != nil {
		return err
	}
	if _, err := h.Engine.PMDecision(ctx, advance.ID, true, pm); err != nil {
		return err
	}
	if _, err := h.Engine.GMDecision(ctx, advance.ID, true, gm); err != nil {
		return err
	}
	if _, err := h.Engine.CompleteTransfer(ctx, advance.ID, "/uploads/demo-transfer-proof.pdf", gm); err != nil {
		return err
	}

	// Expense approved at the GM stage.
	expense, err := h.Engine.SubmitExpense(ctx, approval.SubmitInput{
		EmployeeID: team.employee.ID,
		ProjectID:  team.project.ID,
		Amount:     decimal.NewFromInt(200),
		Reason:     "Equipment rental",
		ReceiptURL: "/uploads/demo-rental-receipt.jpg",
	})
	if err != nil {
		return err
	}
	if _, err := h.Engine.PMDecision(ctx, expense.ID, true, pm); err != nil {
		return err
	}
	if _, err := h.Engine.GMDecision(ctx, expense.ID, true, gm); err != nil {
		return err
	}

	// And one rejection, permanently excluded from every sum.
	rejected, err := h.Engine.SubmitCashRequest(ctx, approval.SubmitInput{
		EmployeeID: team.employee.ID,
		ProjectID:  team.project.ID,
		Amount:     decimal.NewFromInt(100),
		Reason:     "Conference float",
	})
	if err != nil {
		return err
	}
	_, err = h.Engine.PMDecision(ctx, rejected.ID, false, pm)
	return err
}
