/*
membership.go - Project membership directory

PURPOSE:
  Resolves which projects an employee may submit requests against. The
  directory feeds selectable-project lists in submission flows; it is not
  consulted by the gate or the engine unless membership enforcement is
  switched on (see engine.go WithMembershipEnforcement).

  Links are immutable facts. Linking twice creates two facts; ProjectsFor
  deduplicates on read, so callers always see set semantics.
*/
package approval

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Directory answers membership queries over the entity store.
type Directory struct {
	store EntityStore
}

// NewDirectory creates a directory over the given store.
func NewDirectory(store EntityStore) *Directory {
	return &Directory{store: store}
}

// ProjectsFor returns the distinct project ids the employee is linked to,
// sorted for stable output.
func (d *Directory) ProjectsFor(ctx context.Context, employeeID string) ([]string, error) {
	memberships, err := d.store.ListMembershipsByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(memberships))
	var ids []string
	for _, m := range memberships {
		if !seen[m.ProjectID] {
			seen[m.ProjectID] = true
			ids = append(ids, m.ProjectID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Link records a membership. Manager action: requires project_manager or
// general_manager. Duplicate links are tolerated.
func (d *Directory) Link(ctx context.Context, employeeID, projectID string, actor Actor) (*Membership, error) {
	if actor.Role != RoleProjectManager && actor.Role != RoleGeneralManager {
		return nil, &AuthorizationError{Role: actor.Role, Action: "link membership"}
	}
	if strings.TrimSpace(employeeID) == "" {
		return nil, &ValidationError{Field: "employee_id", Message: "employee is required"}
	}
	if strings.TrimSpace(projectID) == "" {
		return nil, &ValidationError{Field: "project_id", Message: "project is required"}
	}

	// Both ends must resolve; a link to a ghost is useless.
	if _, err := d.store.GetUser(ctx, employeeID); err != nil {
		return nil, err
	}
	if _, err := d.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	m := Membership{EmployeeID: employeeID, ProjectID: projectID, CreatedAt: time.Now().UTC()}
	if err := d.store.CreateMembership(ctx, m); err != nil {
		return nil, err
	}
	return &m, nil
}
