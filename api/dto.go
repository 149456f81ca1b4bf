/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the domain model from
  the wire contract. Request bodies carry go-playground/validator tags and
  are validated in the handlers before any domain call.

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients

ERROR CONTRACT:
  Failures are returned as ErrorResponse with a code from the closed
  error-kind union (absence.ErrorKind). Clients dispatch on the code,
  never on message text or payload shape.

SEE ALSO:
  - handlers.go: uses these types
  - absence/errors.go: the error-kind union
*/
package api

import (
	"time"

	"github.com/meridian/absence-engine/absence"
	"github.com/meridian/absence-engine/ledger"
)

// =============================================================================
// LEAVE TYPES
// =============================================================================

// LeaveTypeDTO represents a catalog entry in API responses.
type LeaveTypeDTO struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	ColorHex        string   `json:"color_hex,omitempty"`
	ConsumesBalance bool     `json:"consumes_balance"`
	AnnualCap       *float64 `json:"annual_cap,omitempty"`
	Active          bool     `json:"active"`
}

// SaveLeaveTypeRequest creates or updates a catalog entry.
type SaveLeaveTypeRequest struct {
	ID              string   `json:"id" validate:"required"`
	Name            string   `json:"name" validate:"required"`
	Description     string   `json:"description"`
	ColorHex        string   `json:"color_hex" validate:"omitempty,hexcolor"`
	ConsumesBalance bool     `json:"consumes_balance"`
	AnnualCap       *float64 `json:"annual_cap" validate:"omitempty,gte=0"`
	Active          bool     `json:"active"`
}

// =============================================================================
// BALANCES
// =============================================================================

// BalanceDTO represents one balance entry.
type BalanceDTO struct {
	EmployeeID  string  `json:"employee_id"`
	Year        int     `json:"year"`
	TypeID      string  `json:"type_id"`
	Entitlement float64 `json:"entitlement"`
	Reserved    float64 `json:"reserved"`
	Available   float64 `json:"available"`
}

// ProvisionBalanceRequest sets an entitlement for an employee/year/type.
type ProvisionBalanceRequest struct {
	EmployeeID  string  `json:"employee_id" validate:"required"`
	Year        int     `json:"year" validate:"required,gte=2000"`
	TypeID      string  `json:"type_id" validate:"required"`
	Entitlement float64 `json:"entitlement" validate:"gte=0"`
}

// =============================================================================
// REQUESTS
// =============================================================================

// RequestDTO represents a leave request. Mutating endpoints return the full
// updated entity so clients can upsert it into local caches by id.
type RequestDTO struct {
	ID              string  `json:"id"`
	EmployeeID      string  `json:"employee_id"`
	TypeID          string  `json:"type_id"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	Duration        float64 `json:"duration"`
	Status          string  `json:"status"`
	Justification   string  `json:"justification,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
	DecidedBy       *string `json:"decided_by,omitempty"`
	DecidedAt       *string `json:"decided_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// CreateRequestRequest submits a new leave request.
type CreateRequestRequest struct {
	EmployeeID    string `json:"employee_id" validate:"required"`
	TypeID        string `json:"type_id" validate:"required"`
	StartDate     string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Justification string `json:"justification"`
}

// RejectRequestRequest carries the manager's rejection reason.
type RejectRequestRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// =============================================================================
// DIRECTORY
// =============================================================================

// EmployeeDTO represents a directory record.
type EmployeeDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateEmployeeRequest provisions a directory record.
type CreateEmployeeRequest struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Role  string `json:"role" validate:"required,oneof=EMPLOYEE MANAGER"`
}

// TeamDTO represents a team and its member set.
type TeamDTO struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	ManagerID string   `json:"manager_id"`
	Members   []string `json:"members"`
}

// SaveTeamRequest creates or updates a team.
type SaveTeamRequest struct {
	ID        string   `json:"id"`
	Name      string   `json:"name" validate:"required"`
	ManagerID string   `json:"manager_id" validate:"required"`
	Members   []string `json:"members"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toLeaveTypeDTO(t absence.LeaveType) LeaveTypeDTO {
	dto := LeaveTypeDTO{
		ID:              string(t.ID),
		Name:            t.Name,
		Description:     t.Description,
		ColorHex:        t.ColorHex,
		ConsumesBalance: t.ConsumesBalance,
		Active:          t.Active,
	}
	if t.AnnualCap != nil {
		f := t.AnnualCap.Float64()
		dto.AnnualCap = &f
	}
	return dto
}

func toBalanceDTO(e ledger.Entry) BalanceDTO {
	return BalanceDTO{
		EmployeeID:  e.Key.EmployeeID,
		Year:        e.Key.Year,
		TypeID:      e.Key.TypeID,
		Entitlement: e.Entitlement.Float64(),
		Reserved:    e.Reserved.Float64(),
		Available:   e.Available().Float64(),
	}
}

func toRequestDTO(r absence.LeaveRequest) RequestDTO {
	dto := RequestDTO{
		ID:            string(r.ID),
		EmployeeID:    string(r.EmployeeID),
		TypeID:        string(r.TypeID),
		StartDate:     r.StartDate.Format("2006-01-02"),
		EndDate:       r.EndDate.Format("2006-01-02"),
		Duration:      r.Duration.Float64(),
		Status:        string(r.Status),
		Justification: r.Justification,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     r.UpdatedAt.Format(time.RFC3339),
	}
	dto.RejectionReason = r.RejectionReason
	if r.DecidedBy != nil {
		by := string(*r.DecidedBy)
		dto.DecidedBy = &by
	}
	if r.DecidedAt != nil {
		at := r.DecidedAt.Format(time.RFC3339)
		dto.DecidedAt = &at
	}
	return dto
}

func toRequestDTOs(rs []absence.LeaveRequest) []RequestDTO {
	dtos := make([]RequestDTO, len(rs))
	for i, r := range rs {
		dtos[i] = toRequestDTO(r)
	}
	return dtos
}

func toEmployeeDTO(e absence.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:        string(e.ID),
		Name:      e.Name,
		Email:     e.Email,
		Role:      string(e.Role),
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
}

func toTeamDTO(t absence.Team) TeamDTO {
	members := make([]string, len(t.Members))
	for i, m := range t.Members {
		members[i] = string(m)
	}
	return TeamDTO{
		ID:        string(t.ID),
		Name:      t.Name,
		ManagerID: string(t.ManagerID),
		Members:   members,
	}
}
