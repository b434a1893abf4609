/*
handlers.go - HTTP API handlers for the approval engine

PURPOSE:
  Exposes the approval engine and ledger calculator via REST. Handles HTTP
  request/response, JSON serialization, and delegates every business rule
  to the core packages.

ENDPOINTS:
  Requests:
    POST   /api/requests/cash              Submit a custody advance
    POST   /api/requests/expenses          Submit an expense claim
    GET    /api/requests                   Filterable listing (approver queues)
    GET    /api/requests/{id}              Single request
    POST   /api/requests/{id}/pm-decision  First-stage decision
    POST   /api/requests/{id}/gm-decision  Second-stage decision
    POST   /api/requests/{id}/transfer     Transfer completion (cash only)

  Employees:
    GET    /api/employees                  List users
    POST   /api/employees                  Provision a user
    POST   /api/employees/{id}/activate    Reactivate
    POST   /api/employees/{id}/deactivate  Soft-deactivate
    GET    /api/employees/{id}/totals      Running balance
    GET    /api/employees/{id}/projects    Selectable projects (memberships)
    GET    /api/employees/{id}/requests    Request history

  Projects:
    GET    /api/projects
    POST   /api/projects
    POST   /api/projects/{id}/deactivate
    GET    /api/projects/{id}/expense-report
    GET    /api/projects/{id}/expense-report/export   CSV

  Other:
    POST   /api/memberships                Link employee to project
    GET    /api/reports/organization       Org-wide summary
    GET    /api/reports/organization/export  CSV
    POST   /api/uploads                    Store receipt/proof bytes
    GET    /api/scenarios                  Demo scenarios
    POST   /api/scenarios/load

ERROR HANDLING:
  Domain errors map to HTTP statuses:
  - 400: validation
  - 401: unauthenticated
  - 403: role not permitted
  - 404: unresolvable id
  - 409: state conflict (stale expected status)
  - 500: collaborator/internal failures

SEE ALSO:
  - dto.go:    Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/custody-engine/approval"
	"github.com/warp/custody-engine/ledger"
)

// maxUploadBytes caps receipt/proof uploads.
const maxUploadBytes = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      approval.EntityStore
	Engine     *approval.Engine
	Directory  *approval.Directory
	Calculator *ledger.Calculator
	Exporter   ledger.Exporter
	Objects    approval.ObjectStore
	Auth       approval.AuthProvider
	Log        *zap.Logger

	scenarios map[string]Scenario
}

// NewHandler wires a handler over the injected collaborators.
func NewHandler(
	store approval.EntityStore,
	engine *approval.Engine,
	calc *ledger.Calculator,
	objects approval.ObjectStore,
	authProvider approval.AuthProvider,
	log *zap.Logger,
) *Handler {
	return &Handler{
		Store:      store,
		Engine:     engine,
		Directory:  approval.NewDirectory(store),
		Calculator: calc,
		Objects:    objects,
		Auth:       authProvider,
		Log:        log,
		scenarios:  builtinScenarios(),
	}
}

// =============================================================================
// AUTHENTICATION MIDDLEWARE
// =============================================================================

type actorKey struct{}

// Authenticate resolves the bearer token to an actor and stores it in the
// request context. Requests without a valid token get 401.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "Missing bearer token", nil)
			return
		}

		actor, err := h.Auth.CurrentActor(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid credentials", nil)
			return
		}

		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFrom(ctx context.Context) approval.Actor {
	actor, _ := ctx.Value(actorKey{}).(approval.Actor)
	return actor
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// SubmitCashRequest creates a custody advance for the authenticated employee.
func (h *Handler) SubmitCashRequest(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, approval.KindCashRequest)
}

// SubmitExpense creates an expense claim for the authenticated employee.
func (h *Handler) SubmitExpense(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, approval.KindExpense)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, kind approval.RequestKind) {
	var body SubmitRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	actor := actorFrom(r.Context())
	in := approval.SubmitInput{
		EmployeeID: actor.ID,
		ProjectID:  body.ProjectID,
		Amount:     body.Amount,
		Reason:     body.Reason,
		ReceiptURL: body.ReceiptURL,
	}

	var req *approval.MoneyRequest
	var err error
	if kind == approval.KindCashRequest {
		req, err = h.Engine.SubmitCashRequest(r.Context(), in)
	} else {
		req, err = h.Engine.SubmitExpense(r.Context(), in)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRequestDTO(req))
}

// GetRequest returns a single request.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Store.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// ListRequests returns requests matching query filters. Approver screens use
// status=PENDING_PM / PENDING_GM / WAITING_TRANSFER as their queues.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	f := approval.RequestFilter{
		EmployeeID: r.URL.Query().Get("employee_id"),
		ProjectID:  r.URL.Query().Get("project_id"),
	}

	if kind := r.URL.Query().Get("kind"); kind != "" {
		parsed, err := approval.ParseRequestKind(kind)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Unknown kind", err)
			return
		}
		f.Kind = parsed
	}
	for _, raw := range r.URL.Query()["status"] {
		parsed, err := approval.ParseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Unknown status", err)
			return
		}
		f.Statuses = append(f.Statuses, parsed)
	}

	requests, err := h.Store.ListRequests(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

// PMDecision applies the first-stage decision.
func (h *Handler) PMDecision(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Engine.PMDecision)
}

// GMDecision applies the second-stage decision.
func (h *Handler) GMDecision(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Engine.GMDecision)
}

func (h *Handler) decide(
	w http.ResponseWriter,
	r *http.Request,
	fn func(context.Context, string, bool, approval.Actor) (approval.Status, error),
) {
	var body DecisionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	id := chi.URLParam(r, "id")
	status, err := fn(r.Context(), id, body.Approve, actorFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DecisionDTO{ID: id, Status: string(status)})
}

// CompleteTransfer finalizes a custody advance with its transfer proof.
func (h *Handler) CompleteTransfer(w http.ResponseWriter, r *http.Request) {
	var body CompleteTransferBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	id := chi.URLParam(r, "id")
	status, err := h.Engine.CompleteTransfer(r.Context(), id, body.ProofURL, actorFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DecisionDTO{ID: id, Status: string(status)})
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListUsers returns all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]UserDTO, len(users))
	for i := range users {
		dtos[i] = toUserDTO(&users[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateUser provisions a user. General-manager action.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if actor := actorFrom(r.Context()); actor.Role != approval.RoleGeneralManager {
		writeDomainError(w, &approval.AuthorizationError{
			Role: actor.Role, Action: "provision user", Required: approval.RoleGeneralManager,
		})
		return
	}

	var body CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	role, err := approval.ParseRole(body.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown role", err)
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	u := approval.User{ID: body.ID, Name: body.Name, Role: role, Active: true}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if err := h.Store.CreateUser(r.Context(), u); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(&u))
}

// SetUserActive flips the active flag; the route decides the direction.
func (h *Handler) SetUserActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if actor := actorFrom(r.Context()); actor.Role != approval.RoleGeneralManager {
			writeDomainError(w, &approval.AuthorizationError{
				Role: actor.Role, Action: "change user activation", Required: approval.RoleGeneralManager,
			})
			return
		}
		if err := h.Store.SetUserActive(r.Context(), chi.URLParam(r, "id"), active); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// EmployeeTotals returns the running balance for an employee.
func (h *Handler) EmployeeTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.Calculator.EmployeeTotals(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTotalsDTO(totals))
}

// EmployeeProjects returns the distinct projects the employee is linked to.
func (h *Handler) EmployeeProjects(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Directory.ProjectsFor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

// EmployeeRequests returns an employee's request history.
func (h *Handler) EmployeeRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Store.ListRequests(r.Context(), approval.RequestFilter{
		EmployeeID: chi.URLParam(r, "id"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

// ListProjects returns all projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.ListProjects(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]ProjectDTO, len(projects))
	for i := range projects {
		dtos[i] = toProjectDTO(&projects[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProject creates a project. Manager action.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	if actor.Role != approval.RoleProjectManager && actor.Role != approval.RoleGeneralManager {
		writeDomainError(w, &approval.AuthorizationError{Role: actor.Role, Action: "create project"})
		return
	}

	var body CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	p := approval.Project{
		ID:          uuid.NewString(),
		Name:        body.Name,
		Description: body.Description,
		Active:      true,
	}
	if err := h.Store.CreateProject(r.Context(), p); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectDTO(&p))
}

// DeactivateProject soft-deactivates a project. Manager action.
func (h *Handler) DeactivateProject(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	if actor.Role != approval.RoleProjectManager && actor.Role != approval.RoleGeneralManager {
		writeDomainError(w, &approval.AuthorizationError{Role: actor.Role, Action: "deactivate project"})
		return
	}
	if err := h.Store.SetProjectActive(r.Context(), chi.URLParam(r, "id"), false); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProjectExpenseReport groups approved expenses on a project by employee.
func (h *Handler) ProjectExpenseReport(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.Calculator.ProjectExpenseBreakdown(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBreakdownDTO(breakdown))
}

// ExportProjectExpenseReport streams the expense report as CSV.
func (h *Handler) ExportProjectExpenseReport(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.Calculator.ProjectExpenseBreakdown(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "expenses-"+breakdown.ProjectID+".csv"))
	if err := h.Exporter.ExportBreakdown(w, breakdown); err != nil {
		h.Log.Error("export failed", zap.Error(err))
	}
}

// =============================================================================
// MEMBERSHIP / REPORT / UPLOAD HANDLERS
// =============================================================================

// LinkMembership links an employee to a project. Manager action; the
// directory performs the role check.
func (h *Handler) LinkMembership(w http.ResponseWriter, r *http.Request) {
	var body LinkMembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	m, err := h.Directory.Link(r.Context(), body.EmployeeID, body.ProjectID, actorFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"employee_id": m.EmployeeID,
		"project_id":  m.ProjectID,
	})
}

// OrganizationSummary aggregates totals over all active employees.
func (h *Handler) OrganizationSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Calculator.OrganizationSummary(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dto := OrganizationSummaryDTO{TotalsDTO: toTotalsDTO(summary.Totals)}
	for _, row := range summary.Employees {
		dto.Employees = append(dto.Employees, EmployeeRowDTO{
			EmployeeID:   row.EmployeeID,
			EmployeeName: row.EmployeeName,
			TotalsDTO:    toTotalsDTO(row.Totals),
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

// ExportOrganizationSummary streams the organization summary as CSV.
func (h *Handler) ExportOrganizationSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Calculator.OrganizationSummary(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="organization-summary.csv"`)
	if err := h.Exporter.ExportSummary(w, summary); err != nil {
		h.Log.Error("export failed", zap.Error(err))
	}
}

// UploadArtifact stores receipt/proof bytes and returns the URL to reference
// in a subsequent submission or transfer completion.
func (h *Handler) UploadArtifact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file field", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read upload", err)
		return
	}

	url, err := h.Objects.Upload(r.Context(), data, header.Filename)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, UploadDTO{URL: url})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps core errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, approval.ErrValidation):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	case errors.Is(err, approval.ErrAuthorization):
		writeError(w, http.StatusForbidden, "Not permitted", err)
	case errors.Is(err, approval.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, approval.ErrStateConflict):
		writeError(w, http.StatusConflict, "Status changed concurrently", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
