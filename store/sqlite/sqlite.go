/*
Package sqlite provides a SQLite-backed implementation of approval.EntityStore.

PURPOSE:
  Production persistence for users, projects, memberships, and money
  requests. The same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

COMPARE-AND-SET:
  Status transitions are a single UPDATE with the expected status in the
  WHERE clause. Zero rows affected means either the request is gone (not
  found) or someone else moved it first (state conflict); the store re-reads
  to tell the two apart and fails closed.

MUTATION DISCIPLINE:
  - money_requests: INSERT once, then status-only UPDATEs via CAS. Amount,
    reason, and project are never updated. Nothing is ever deleted.
  - users/projects: soft activation flag only.
  - memberships: append-only, duplicates tolerated.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and there is a single writer at a time.

USAGE:
  store, err := sqlite.New("./data/custody.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - approval/store.go:        Interface definitions and CAS contract
  - approval/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/custody-engine/approval"
)

// Store implements approval.EntityStore using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	-- Memberships are append-only facts; no uniqueness, duplicates tolerated.
	CREATE TABLE IF NOT EXISTS memberships (
		employee_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_memberships_employee
		ON memberships(employee_id);

	CREATE TABLE IF NOT EXISTS money_requests (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		employee_name TEXT NOT NULL,
		project_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		reason TEXT NOT NULL,
		status TEXT NOT NULL,
		receipt_url TEXT,
		transfer_proof_url TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Balance calculation (hot path): employee + kind + status
	CREATE INDEX IF NOT EXISTS idx_requests_employee_kind_status
		ON money_requests(employee_id, kind, status);

	-- Project expense reports
	CREATE INDEX IF NOT EXISTS idx_requests_project_kind_status
		ON money_requests(project_id, kind, status);

	-- Approver queues
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON money_requests(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REQUESTS
// =============================================================================

func (s *Store) CreateRequest(ctx context.Context, req *approval.MoneyRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO money_requests
			(id, kind, employee_id, employee_name, project_id, amount, reason,
			 status, receipt_url, transfer_proof_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, string(req.Kind), req.EmployeeID, req.EmployeeName, req.ProjectID,
		req.Amount.String(), req.Reason, string(req.Status), req.ReceiptURL,
		req.TransferProofURL, fmtTime(req.CreatedAt), fmtTime(req.UpdatedAt))
	if err != nil {
		return &approval.CollaboratorError{Op: "store.create_request", Err: err}
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (*approval.MoneyRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, employee_id, employee_name, project_id, amount, reason,
		       status, receipt_url, transfer_proof_url, created_at, updated_at
		FROM money_requests WHERE id = ?`, id)

	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &approval.NotFoundError{Entity: "request", ID: id}
	}
	if err != nil {
		return nil, &approval.CollaboratorError{Op: "store.get_request", Err: err}
	}
	return req, nil
}

func (s *Store) ListRequests(ctx context.Context, f approval.RequestFilter) ([]approval.MoneyRequest, error) {
	query := `
		SELECT id, kind, employee_id, employee_name, project_id, amount, reason,
		       status, receipt_url, transfer_proof_url, created_at, updated_at
		FROM money_requests WHERE 1=1`
	var args []any

	if f.EmployeeID != "" {
		query += " AND employee_id = ?"
		args = append(args, f.EmployeeID)
	}
	if f.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, f.ProjectID)
	}
	if f.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(f.Kind))
	}
	if len(f.Statuses) > 0 {
		query += " AND status IN (?" + strings.Repeat(",?", len(f.Statuses)-1) + ")"
		for _, st := range f.Statuses {
			args = append(args, string(st))
		}
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &approval.CollaboratorError{Op: "store.list_requests", Err: err}
	}
	defer rows.Close()

	var result []approval.MoneyRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, &approval.CollaboratorError{Op: "store.list_requests", Err: err}
		}
		result = append(result, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, &approval.CollaboratorError{Op: "store.list_requests", Err: err}
	}
	return result, nil
}

// CompareAndSetStatus performs the CAS as a single UPDATE keyed on the
// expected status. On zero rows affected it re-reads to distinguish a
// missing request from a concurrent transition.
func (s *Store) CompareAndSetStatus(ctx context.Context, id string, expected, next approval.Status, extra approval.ExtraFields) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE money_requests
		SET status = ?,
		    transfer_proof_url = CASE WHEN ? <> '' THEN ? ELSE transfer_proof_url END,
		    updated_at = ?
		WHERE id = ? AND status = ?`,
		string(next), extra.TransferProofURL, extra.TransferProofURL,
		fmtTime(time.Now().UTC()), id, string(expected))
	if err != nil {
		return &approval.CollaboratorError{Op: "store.compare_and_set", Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return &approval.CollaboratorError{Op: "store.compare_and_set", Err: err}
	}
	if affected > 0 {
		return nil
	}

	current, err := s.GetRequest(ctx, id)
	if err != nil {
		return err // not found, or the re-read itself failed
	}
	return &approval.StateConflictError{RequestID: id, Expected: expected, Actual: current.Status}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(r rowScanner) (*approval.MoneyRequest, error) {
	var req approval.MoneyRequest
	var kind, status, amount, createdAt, updatedAt string
	var receiptURL, proofURL sql.NullString

	err := r.Scan(&req.ID, &kind, &req.EmployeeID, &req.EmployeeName, &req.ProjectID,
		&amount, &req.Reason, &status, &receiptURL, &proofURL, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if req.Kind, err = approval.ParseRequestKind(kind); err != nil {
		return nil, err
	}
	if req.Status, err = approval.ParseStatus(status); err != nil {
		return nil, err
	}
	if req.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("bad amount %q: %w", amount, err)
	}
	req.ReceiptURL = receiptURL.String
	req.TransferProofURL = proofURL.String
	req.CreatedAt = parseTime(createdAt)
	req.UpdatedAt = parseTime(updatedAt)
	return &req, nil
}

// =============================================================================
// USERS
// =============================================================================

func (s *Store) CreateUser(ctx context.Context, u approval.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, role, active, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, string(u.Role), boolToInt(u.Active), fmtTime(u.CreatedAt))
	if err != nil {
		return &approval.CollaboratorError{Op: "store.create_user", Err: err}
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*approval.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, role, active, created_at FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &approval.NotFoundError{Entity: "user", ID: id}
	}
	if err != nil {
		return nil, &approval.CollaboratorError{Op: "store.get_user", Err: err}
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]approval.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, role, active, created_at FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, &approval.CollaboratorError{Op: "store.list_users", Err: err}
	}
	defer rows.Close()

	var users []approval.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, &approval.CollaboratorError{Op: "store.list_users", Err: err}
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *Store) SetUserActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET active = ? WHERE id = ?`,
		boolToInt(active), id)
	if err != nil {
		return &approval.CollaboratorError{Op: "store.set_user_active", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &approval.NotFoundError{Entity: "user", ID: id}
	}
	return nil
}

func scanUser(r rowScanner) (*approval.User, error) {
	var u approval.User
	var role, createdAt string
	var active int
	if err := r.Scan(&u.ID, &u.Name, &role, &active, &createdAt); err != nil {
		return nil, err
	}
	parsed, err := approval.ParseRole(role)
	if err != nil {
		return nil, err
	}
	u.Role = parsed
	u.Active = active != 0
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

// =============================================================================
// PROJECTS
// =============================================================================

func (s *Store) CreateProject(ctx context.Context, p approval.Project) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, active, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, boolToInt(p.Active), fmtTime(p.CreatedAt))
	if err != nil {
		return &approval.CollaboratorError{Op: "store.create_project", Err: err}
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*approval.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, active, created_at FROM projects WHERE id = ?`, id)

	var p approval.Project
	var createdAt string
	var active int
	var description sql.NullString
	err := row.Scan(&p.ID, &p.Name, &description, &active, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &approval.NotFoundError{Entity: "project", ID: id}
	}
	if err != nil {
		return nil, &approval.CollaboratorError{Op: "store.get_project", Err: err}
	}
	p.Description = description.String
	p.Active = active != 0
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]approval.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, active, created_at FROM projects ORDER BY id ASC`)
	if err != nil {
		return nil, &approval.CollaboratorError{Op: "store.list_projects", Err: err}
	}
	defer rows.Close()

	var projects []approval.Project
	for rows.Next() {
		var p approval.Project
		var createdAt string
		var active int
		var description sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &description, &active, &createdAt); err != nil {
			return nil, &approval.CollaboratorError{Op: "store.list_projects", Err: err}
		}
		p.Description = description.String
		p.Active = active != 0
		p.CreatedAt = parseTime(createdAt)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *Store) SetProjectActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE projects SET active = ? WHERE id = ?`,
		boolToInt(active), id)
	if err != nil {
		return &approval.CollaboratorError{Op: "store.set_project_active", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &approval.NotFoundError{Entity: "project", ID: id}
	}
	return nil
}

// =============================================================================
// MEMBERSHIPS
// =============================================================================

func (s *Store) CreateMembership(ctx context.Context, m approval.Membership) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memberships (employee_id, project_id, created_at)
		VALUES (?, ?, ?)`,
		m.EmployeeID, m.ProjectID, fmtTime(m.CreatedAt))
	if err != nil {
		return &approval.CollaboratorError{Op: "store.create_membership", Err: err}
	}
	return nil
}

func (s *Store) ListMembershipsByEmployee(ctx context.Context, employeeID string) ([]approval.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, project_id, created_at
		FROM memberships WHERE employee_id = ? ORDER BY created_at ASC`, employeeID)
	if err != nil {
		return nil, &approval.CollaboratorError{Op: "store.list_memberships", Err: err}
	}
	defer rows.Close()

	var result []approval.Membership
	for rows.Next() {
		var m approval.Membership
		var createdAt string
		if err := rows.Scan(&m.EmployeeID, &m.ProjectID, &createdAt); err != nil {
			return nil, &approval.CollaboratorError{Op: "store.list_memberships", Err: err}
		}
		m.CreatedAt = parseTime(createdAt)
		result = append(result, m)
	}
	return result, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
