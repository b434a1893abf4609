// Package store provides EntityStore implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/custody-engine/approval"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	requests    map[string]approval.MoneyRequest
	users       map[string]approval.User
	projects    map[string]approval.Project
	memberships []approval.Membership
}

func NewMemory() *Memory {
	return &Memory{
		requests: make(map[string]approval.MoneyRequest),
		users:    make(map[string]approval.User),
		projects: make(map[string]approval.Project),
	}
}

// =============================================================================
// REQUESTS
// =============================================================================

func (m *Memory) CreateRequest(_ context.Context, req *approval.MoneyRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[req.ID] = *req
	return nil
}

func (m *Memory) GetRequest(_ context.Context, id string) (*approval.MoneyRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, &approval.NotFoundError{Entity: "request", ID: id}
	}
	out := req
	return &out, nil
}

func (m *Memory) ListRequests(_ context.Context, f approval.RequestFilter) ([]approval.MoneyRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []approval.MoneyRequest
	for _, req := range m.requests {
		if matches(req, f) {
			result = append(result, req)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func matches(req approval.MoneyRequest, f approval.RequestFilter) bool {
	if f.EmployeeID != "" && req.EmployeeID != f.EmployeeID {
		return false
	}
	if f.ProjectID != "" && req.ProjectID != f.ProjectID {
		return false
	}
	if f.Kind != "" && req.Kind != f.Kind {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if req.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// CompareAndSetStatus applies the status change only if the stored status
// still matches expected. The single mutex makes check-and-write atomic.
func (m *Memory) CompareAndSetStatus(_ context.Context, id string, expected, next approval.Status, extra approval.ExtraFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return &approval.NotFoundError{Entity: "request", ID: id}
	}
	if req.Status != expected {
		return &approval.StateConflictError{RequestID: id, Expected: expected, Actual: req.Status}
	}

	req.Status = next
	if extra.TransferProofURL != "" {
		req.TransferProofURL = extra.TransferProofURL
	}
	req.UpdatedAt = time.Now().UTC()
	m.requests[id] = req
	return nil
}

// =============================================================================
// USERS
// =============================================================================

func (m *Memory) CreateUser(_ context.Context, u approval.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.users[u.ID] = u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id string) (*approval.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, &approval.NotFoundError{Entity: "user", ID: id}
	}
	out := u
	return &out, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]approval.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]approval.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *Memory) SetUserActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return &approval.NotFoundError{Entity: "user", ID: id}
	}
	u.Active = active
	m.users[id] = u
	return nil
}

// =============================================================================
// PROJECTS
// =============================================================================

func (m *Memory) CreateProject(_ context.Context, p approval.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.projects[p.ID] = p
	return nil
}

func (m *Memory) GetProject(_ context.Context, id string) (*approval.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, &approval.NotFoundError{Entity: "project", ID: id}
	}
	out := p
	return &out, nil
}

func (m *Memory) ListProjects(_ context.Context) ([]approval.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	projects := make([]approval.Project, 0, len(m.projects))
	for _, p := range m.projects {
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects, nil
}

func (m *Memory) SetProjectActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return &approval.NotFoundError{Entity: "project", ID: id}
	}
	p.Active = active
	m.projects[id] = p
	return nil
}

// =============================================================================
// MEMBERSHIPS
// =============================================================================

// CreateMembership appends a membership fact. No uniqueness: duplicate links
// are tolerated, reads deduplicate.
func (m *Memory) CreateMembership(_ context.Context, mem approval.Membership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mem.CreatedAt.IsZero() {
		mem.CreatedAt = time.Now().UTC()
	}
	m.memberships = append(m.memberships, mem)
	return nil
}

func (m *Memory) ListMembershipsByEmployee(_ context.Context, employeeID string) ([]approval.Membership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []approval.Membership
	for _, mem := range m.memberships {
		if mem.EmployeeID == employeeID {
			result = append(result, mem)
		}
	}
	return result, nil
}
