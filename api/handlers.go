/*
handlers.go - HTTP API handlers

PURPOSE:
  Exposes the absence engine via REST. Handles HTTP request/response, JSON
  serialization and input validation, and delegates everything else to the
  domain layer.

ENDPOINTS:
  Catalog:
    GET    /api/types                    List leave types
    GET    /api/types/{id}               Get one leave type
    POST   /api/types                    Create/update leave type (manager)
    DELETE /api/types/{id}               Deactivate leave type (manager)

  Balances:
    GET    /api/employees/{id}/balances  Balance entries for a year
    POST   /api/balances                 Provision entitlement (manager)

  Requests:
    POST   /api/requests                 Submit request
    GET    /api/requests                 List own (or a given employee's) requests
    GET    /api/requests/{id}            Get one request
    POST   /api/requests/{id}/approve    Approve (manager of owner)
    POST   /api/requests/{id}/reject     Reject with reason (manager of owner)
    POST   /api/requests/{id}/cancel     Cancel (owner or their manager)

  Team:
    GET    /api/team/pending             Pending queue for the acting manager
    GET    /api/team/history             Team history for the acting manager

  Directory:
    GET/POST /api/employees, GET /api/employees/{id}
    GET/POST /api/teams,     GET /api/teams/{id}

ERROR HANDLING:
  Domain errors map from the closed error-kind union to HTTP statuses:
    validation            400
    forbidden             403
    not_found             404
    insufficient_balance  409
    invalid_transition    409
    invariant_violation   500 (also logged at error level)

SEE ALSO:
  - dto.go: request/response structures
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meridian/absence-engine/absence"
	"github.com/meridian/absence-engine/ledger"
)

// Store is the persistence surface the API needs: requests, catalog,
// directory and balances behind one implementation (sqlite or memory).
type Store interface {
	absence.RequestStore
	absence.TypeStore
	absence.DirectoryStore
	ledger.Store
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	store      Store
	catalog    *absence.Catalog
	ledger     *ledger.Ledger
	engine     *absence.Engine
	aggregator *absence.Aggregator

	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandler wires the domain components on top of a store.
func NewHandler(store Store, logger *zap.Logger, engineOpts ...absence.EngineOption) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	catalog := absence.NewCatalog(store)
	lg := ledger.New(store, ledger.WithLogger(logger))

	opts := append([]absence.EngineOption{absence.WithEngineLogger(logger)}, engineOpts...)
	engine := absence.NewEngine(store, lg, catalog, store, opts...)

	return &Handler{
		store:      store,
		catalog:    catalog,
		ledger:     lg,
		engine:     engine,
		aggregator: absence.NewAggregator(store, store),
		validate:   validator.New(),
		logger:     logger,
	}
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListLeaveTypes returns all catalog entries.
func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.catalog.List(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]LeaveTypeDTO, len(types))
	for i, t := range types {
		dtos[i] = toLeaveTypeDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetLeaveType returns a single catalog entry.
func (h *Handler) GetLeaveType(w http.ResponseWriter, r *http.Request) {
	id := absence.LeaveTypeID(chi.URLParam(r, "id"))

	t, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveTypeDTO(*t))
}

// SaveLeaveType creates or updates a catalog entry. Manager only.
func (h *Handler) SaveLeaveType(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}

	var req SaveLeaveTypeRequest
	if !h.decode(w, r, &req) {
		return
	}

	t := absence.LeaveType{
		ID:              absence.LeaveTypeID(req.ID),
		Name:            req.Name,
		Description:     req.Description,
		ColorHex:        req.ColorHex,
		ConsumesBalance: req.ConsumesBalance,
		Active:          req.Active,
	}
	if req.AnnualCap != nil {
		c := ledger.DaysFromFloat(*req.AnnualCap)
		t.AnnualCap = &c
	}

	saved, err := h.catalog.Save(r.Context(), t)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveTypeDTO(*saved))
}

// DeactivateLeaveType retires a catalog entry. Manager only.
func (h *Handler) DeactivateLeaveType(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}

	id := absence.LeaveTypeID(chi.URLParam(r, "id"))
	t, err := h.catalog.Deactivate(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveTypeDTO(*t))
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// GetBalances returns an employee's balance entries for a year.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")
	year := h.yearParam(r)

	entries, err := h.store.ListBalances(r.Context(), employeeID, year)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]BalanceDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toBalanceDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ProvisionBalance sets an entitlement. Manager only.
func (h *Handler) ProvisionBalance(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}

	var req ProvisionBalanceRequest
	if !h.decode(w, r, &req) {
		return
	}

	key := ledger.Key{EmployeeID: req.EmployeeID, Year: req.Year, TypeID: req.TypeID}
	entry, err := h.ledger.Provision(r.Context(), key, ledger.DaysFromFloat(req.Entitlement))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBalanceDTO(*entry))
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// CreateRequest submits a new leave request for the acting employee.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req CreateRequestRequest
	if !h.decode(w, r, &req) {
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date must be formatted 2006-01-02", absence.KindValidation, err)
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end_date must be formatted 2006-01-02", absence.KindValidation, err)
		return
	}

	created, err := h.engine.Create(r.Context(), actorFrom(r), absence.CreateInput{
		EmployeeID:    absence.EmployeeID(req.EmployeeID),
		TypeID:        absence.LeaveTypeID(req.TypeID),
		StartDate:     start,
		EndDate:       end,
		Justification: req.Justification,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(*created))
}

// GetRequest returns a single request.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id := absence.RequestID(chi.URLParam(r, "id"))

	request, err := h.engine.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*request))
}

// ListRequests returns an employee's requests for a year. Defaults to the
// acting employee and the current year.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	employeeID := absence.EmployeeID(r.URL.Query().Get("employee_id"))
	if employeeID == "" {
		employeeID = actorFrom(r).ID
	}
	year := h.yearParam(r)

	requests, err := h.engine.ListForEmployee(r.Context(), employeeID, year)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

// ApproveRequest approves a pending request.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	id := absence.RequestID(chi.URLParam(r, "id"))

	updated, err := h.engine.Approve(r.Context(), actorFrom(r), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*updated))
}

// RejectRequest rejects a pending request with a reason.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	id := absence.RequestID(chi.URLParam(r, "id"))

	var req RejectRequestRequest
	if !h.decode(w, r, &req) {
		return
	}

	updated, err := h.engine.Reject(r.Context(), actorFrom(r), id, req.Reason)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*updated))
}

// CancelRequest cancels a pending or approved request.
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	id := absence.RequestID(chi.URLParam(r, "id"))

	updated, err := h.engine.Cancel(r.Context(), actorFrom(r), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*updated))
}

// =============================================================================
// TEAM HANDLERS
// =============================================================================

// TeamPending returns the pending queue for the acting manager.
func (h *Handler) TeamPending(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}

	requests, err := h.aggregator.PendingForManager(r.Context(), actorFrom(r).ID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

// TeamHistory returns all subordinate requests for the acting manager.
func (h *Handler) TeamHistory(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}

	requests, err := h.aggregator.HistoryForManager(r.Context(), actorFrom(r).ID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

// =============================================================================
// DIRECTORY HANDLERS
// =============================================================================

// ListEmployees returns all directory records.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.store.ListEmployees(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns one directory record.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := absence.EmployeeID(chi.URLParam(r, "id"))

	emp, err := h.store.GetEmployee(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if emp == nil {
		h.writeDomainError(w, &absence.NotFoundError{Kind: "employee", ID: string(id)})
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee provisions a directory record. Manager only.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}

	var req CreateEmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	emp := absence.Employee{
		ID:        absence.EmployeeID(req.ID),
		Name:      req.Name,
		Email:     req.Email,
		Role:      absence.Role(req.Role),
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.SaveEmployee(r.Context(), emp); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// ListTeams returns all teams.
func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.store.ListTeams(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]TeamDTO, len(teams))
	for i, t := range teams {
		dtos[i] = toTeamDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTeam returns one team.
func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	id := absence.TeamID(chi.URLParam(r, "id"))

	team, err := h.store.GetTeam(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if team == nil {
		h.writeDomainError(w, &absence.NotFoundError{Kind: "team", ID: string(id)})
		return
	}
	writeJSON(w, http.StatusOK, toTeamDTO(*team))
}

// SaveTeam creates or updates a team. Manager only.
func (h *Handler) SaveTeam(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}

	var req SaveTeamRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	members := make([]absence.EmployeeID, len(req.Members))
	for i, m := range req.Members {
		members[i] = absence.EmployeeID(m)
	}
	team := absence.Team{
		ID:        absence.TeamID(req.ID),
		Name:      req.Name,
		ManagerID: absence.EmployeeID(req.ManagerID),
		Members:   members,
	}
	if err := h.store.SaveTeam(r.Context(), team); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTeamDTO(team))
}

// =============================================================================
// HELPERS
// =============================================================================

// decode parses and validates a JSON request body, writing a validation
// error response on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", absence.KindValidation, err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "request validation failed", absence.KindValidation, err)
		return false
	}
	return true
}

// requireManager gates administrative and team endpoints on the actor's
// directory role. Per-request ownership checks stay in the engine.
func (h *Handler) requireManager(w http.ResponseWriter, r *http.Request) bool {
	if actorFrom(r).Role != absence.RoleManager {
		writeError(w, http.StatusForbidden, "requires manager role", absence.KindForbidden, nil)
		return false
	}
	return true
}

func (h *Handler) yearParam(r *http.Request) int {
	if y, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil {
		return y
	}
	return time.Now().Year()
}

// writeDomainError maps a domain error onto the wire contract.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	kind := absence.Kind(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("code", string(kind)), zap.Error(err))
	}
	writeError(w, status, err.Error(), kind, nil)
}

func statusFor(kind absence.ErrorKind) int {
	switch kind {
	case absence.KindValidation:
		return http.StatusBadRequest
	case absence.KindForbidden:
		return http.StatusForbidden
	case absence.KindNotFound:
		return http.StatusNotFound
	case absence.KindInsufficientBalance, absence.KindInvalidTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, code absence.ErrorKind, err error) {
	resp := ErrorResponse{Error: message, Code: string(code)}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
