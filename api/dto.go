/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  DTOs are pure data carriers; the engine validates. Amounts cross the wire
  as JSON numbers or strings and decode into decimal.Decimal either way.
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/custody-engine/approval"
	"github.com/warp/custody-engine/ledger"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// SubmitRequestBody is the submission payload for both request kinds.
// ReceiptURL is required for expenses and rejected for cash requests.
type SubmitRequestBody struct {
	ProjectID  string          `json:"project_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	ReceiptURL string          `json:"receipt_url,omitempty"`
}

// DecisionBody carries an approve/reject decision.
type DecisionBody struct {
	Approve bool `json:"approve"`
}

// CompleteTransferBody carries the transfer proof reference.
type CompleteTransferBody struct {
	ProofURL string `json:"proof_url"`
}

// CreateUserRequest provisions a user.
type CreateUserRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// CreateProjectRequest creates a project.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// LinkMembershipRequest links an employee to a project.
type LinkMembershipRequest struct {
	EmployeeID string `json:"employee_id"`
	ProjectID  string `json:"project_id"`
}

// LoadScenarioRequest names a demo scenario to load.
type LoadScenarioRequest struct {
	Name string `json:"name"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// MoneyRequestDTO represents a request in API responses.
type MoneyRequestDTO struct {
	ID               string `json:"id"`
	Kind             string `json:"kind"`
	EmployeeID       string `json:"employee_id"`
	EmployeeName     string `json:"employee_name"`
	ProjectID        string `json:"project_id"`
	Amount           string `json:"amount"`
	Reason           string `json:"reason"`
	Status           string `json:"status"`
	ReceiptURL       string `json:"receipt_url,omitempty"`
	TransferProofURL string `json:"transfer_proof_url,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

func toRequestDTO(r *approval.MoneyRequest) MoneyRequestDTO {
	return MoneyRequestDTO{
		ID:               r.ID,
		Kind:             string(r.Kind),
		EmployeeID:       r.EmployeeID,
		EmployeeName:     r.EmployeeName,
		ProjectID:        r.ProjectID,
		Amount:           r.Amount.String(),
		Reason:           r.Reason,
		Status:           string(r.Status),
		ReceiptURL:       r.ReceiptURL,
		TransferProofURL: r.TransferProofURL,
		CreatedAt:        r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        r.UpdatedAt.Format(time.RFC3339),
	}
}

func toRequestDTOs(rs []approval.MoneyRequest) []MoneyRequestDTO {
	dtos := make([]MoneyRequestDTO, len(rs))
	for i := range rs {
		dtos[i] = toRequestDTO(&rs[i])
	}
	return dtos
}

// DecisionDTO reports the status a decision produced.
type DecisionDTO struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// UserDTO represents a user.
type UserDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toUserDTO(u *approval.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Role:      string(u.Role),
		Active:    u.Active,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// ProjectDTO represents a project.
type ProjectDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"created_at,omitempty"`
}

func toProjectDTO(p *approval.Project) ProjectDTO {
	return ProjectDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}

// TotalsDTO is the running balance of one employee.
type TotalsDTO struct {
	Inflow  string `json:"inflow"`
	Outflow string `json:"outflow"`
	Balance string `json:"balance"`
}

func toTotalsDTO(t ledger.Totals) TotalsDTO {
	return TotalsDTO{
		Inflow:  t.Inflow.StringFixed(2),
		Outflow: t.Outflow.StringFixed(2),
		Balance: t.Balance.StringFixed(2),
	}
}

// OrganizationSummaryDTO aggregates totals over active employees.
type OrganizationSummaryDTO struct {
	TotalsDTO
	Employees []EmployeeRowDTO `json:"employees"`
}

// EmployeeRowDTO is one employee line in the organization summary.
type EmployeeRowDTO struct {
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	TotalsDTO
}

// BreakdownDTO is a project expense report.
type BreakdownDTO struct {
	ProjectID   string            `json:"project_id"`
	ProjectName string            `json:"project_name"`
	PerEmployee map[string]string `json:"per_employee"`
	Total       string            `json:"total"`
}

func toBreakdownDTO(b *ledger.ProjectBreakdown) BreakdownDTO {
	per := make(map[string]string, len(b.PerEmployee))
	for name, sum := range b.PerEmployee {
		per[name] = sum.StringFixed(2)
	}
	return BreakdownDTO{
		ProjectID:   b.ProjectID,
		ProjectName: b.ProjectName,
		PerEmployee: per,
		Total:       b.Total.StringFixed(2),
	}
}

// UploadDTO returns the URL of a stored artifact.
type UploadDTO struct {
	URL string `json:"url"`
}

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
