/*
Package ledger computes balances and reports from approved requests.

PURPOSE:
  The read side of the system. Every call re-scans persisted requests and
  sums only records with status APPROVED: a custody advance counts from
  transfer completion, an expense counts from GM approval, and nothing else
  counts at all. There is no cache and no running counter, so the calculator
  is trivially consistent with the engine's invariant at the cost of O(n)
  work per call.

CONSISTENCY:
  Reads are not transactionally isolated from concurrent decisions; a
  balance may be superseded the moment it is returned. Acceptable for a
  human-paced approval workflow.

SEE ALSO:
  - approval/engine.go: The write side these reads trail
  - export.go:          CSV rendering of calculator output
*/
package ledger

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/custody-engine/approval"
)

// =============================================================================
// TOTALS
// =============================================================================

// Totals is a per-employee running balance.
//
// Inflow is the sum of approved cash requests, Outflow the sum of approved
// expenses, Balance their difference. Balance may be negative; there is no
// floor.
type Totals struct {
	Inflow  decimal.Decimal
	Outflow decimal.Decimal
	Balance decimal.Decimal
}

// EmployeeRow pairs an employee with their totals in summary output.
type EmployeeRow struct {
	EmployeeID   string
	EmployeeName string
	Totals
}

// OrganizationSummary aggregates totals over all active employees. It is
// composed by summing per-employee totals, so its consistency window matches
// the per-employee reads it is built from.
type OrganizationSummary struct {
	Totals
	Employees []EmployeeRow
}

// ProjectBreakdown groups approved expense amounts on one project.
type ProjectBreakdown struct {
	ProjectID   string
	ProjectName string
	PerEmployee map[string]decimal.Decimal // employee name -> sum
	Total       decimal.Decimal
}

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator is read-only over the entity store. It participates in no
// transaction with the engine.
type Calculator struct {
	store approval.EntityStore
}

func NewCalculator(store approval.EntityStore) *Calculator {
	return &Calculator{store: store}
}

// EmployeeTotals recomputes an employee's balance from approved records.
func (c *Calculator) EmployeeTotals(ctx context.Context, employeeID string) (Totals, error) {
	if _, err := c.store.GetUser(ctx, employeeID); err != nil {
		return Totals{}, err
	}
	return c.totals(ctx, employeeID)
}

func (c *Calculator) totals(ctx context.Context, employeeID string) (Totals, error) {
	approved := []approval.Status{approval.StatusApproved}

	cash, err := c.store.ListRequests(ctx, approval.RequestFilter{
		EmployeeID: employeeID,
		Kind:       approval.KindCashRequest,
		Statuses:   approved,
	})
	if err != nil {
		return Totals{}, err
	}

	expenses, err := c.store.ListRequests(ctx, approval.RequestFilter{
		EmployeeID: employeeID,
		Kind:       approval.KindExpense,
		Statuses:   approved,
	})
	if err != nil {
		return Totals{}, err
	}

	t := Totals{Inflow: decimal.Zero, Outflow: decimal.Zero}
	for _, r := range cash {
		t.Inflow = t.Inflow.Add(r.Amount)
	}
	for _, r := range expenses {
		t.Outflow = t.Outflow.Add(r.Amount)
	}
	t.Balance = t.Inflow.Sub(t.Outflow)
	return t, nil
}

// OrganizationSummary sums per-employee totals over all active employees.
// Deliberately composed from EmployeeTotals-equivalent reads rather than a
// separate aggregate query.
func (c *Calculator) OrganizationSummary(ctx context.Context) (*OrganizationSummary, error) {
	users, err := c.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	summary := &OrganizationSummary{
		Totals: Totals{Inflow: decimal.Zero, Outflow: decimal.Zero, Balance: decimal.Zero},
	}
	for _, u := range users {
		if !u.Active {
			continue
		}
		t, err := c.totals(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		summary.Inflow = summary.Inflow.Add(t.Inflow)
		summary.Outflow = summary.Outflow.Add(t.Outflow)
		summary.Balance = summary.Balance.Add(t.Balance)
		summary.Employees = append(summary.Employees, EmployeeRow{
			EmployeeID:   u.ID,
			EmployeeName: u.Name,
			Totals:       t,
		})
	}
	return summary, nil
}

// ProjectExpenseBreakdown groups approved expenses on a project by employee
// name.
func (c *Calculator) ProjectExpenseBreakdown(ctx context.Context, projectID string) (*ProjectBreakdown, error) {
	project, err := c.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	expenses, err := c.store.ListRequests(ctx, approval.RequestFilter{
		ProjectID: projectID,
		Kind:      approval.KindExpense,
		Statuses:  []approval.Status{approval.StatusApproved},
	})
	if err != nil {
		return nil, err
	}

	b := &ProjectBreakdown{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		PerEmployee: make(map[string]decimal.Decimal),
		Total:       decimal.Zero,
	}
	for _, r := range expenses {
		prev, ok := b.PerEmployee[r.EmployeeName]
		if !ok {
			prev = decimal.Zero
		}
		b.PerEmployee[r.EmployeeName] = prev.Add(r.Amount)
		b.Total = b.Total.Add(r.Amount)
	}
	return b, nil
}

// EmployeeNames returns the breakdown's employee names in stable order.
func (b *ProjectBreakdown) EmployeeNames() []string {
	names := make([]string, 0, len(b.PerEmployee))
	for name := range b.PerEmployee {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
