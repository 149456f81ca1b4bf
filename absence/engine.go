/*
engine.go - Request lifecycle engine

PURPOSE:
  The state machine for an individual leave request. Every intent (create,
  approve, reject, cancel) enters here, is validated against the catalog and
  the ledger, and leaves as a new request state plus, where applicable, a
  balance delta.

TRANSITIONS:
  -                create   employee            -> Pending    reserve
  Pending          approve  manager of owner    -> Approved   (held already)
  Pending          reject   manager of owner    -> Rejected   release
  Pending/Approved cancel   owner or manager    -> Cancelled  release
  anything else                                 -> InvalidTransition

  Reservation happens eagerly at creation, so displayed balance always
  reflects outstanding requests and several pending requests can never
  collectively overdraw an entitlement. Rejection and cancellation release
  identically; only the audit trail differs.

ATOMICITY:
  A transition and its balance effect commit together or not at all, and at
  most once. Every transition commits through a compare-and-swap on the
  request's prior status, so of two racing duplicates exactly one persists
  and releases; the loser fails with InvalidTransition. Create reserves
  first and releases again if the insert fails; reject/cancel commit the
  request first and revert it if the release cannot follow.

AUTHORIZATION:
  Approve/reject require the actor to be a manager of the request's owner.
  Cancel is open to the owner and their managers. The actor is an explicit
  argument on every call.

SEE ALSO:
  - ledger/ledger.go: reserve/release semantics
  - team.go: manager-facing projections over the same records
*/
package absence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meridian/absence-engine/ledger"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine orchestrates the request lifecycle. Synchronous per call; all
// concurrency control lives in the ledger's per-key serialization.
type Engine struct {
	requests  RequestStore
	ledger    *ledger.Ledger
	catalog   *Catalog
	directory Directory

	duration DurationPolicy
	now      func() time.Time
	newID    func() RequestID
	logger   *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock overrides the engine clock. Tests use this to pin "today".
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithDurationPolicy overrides the default business-day duration policy.
func WithDurationPolicy(p DurationPolicy) EngineOption {
	return func(e *Engine) { e.duration = p }
}

// WithIDFunc overrides request id generation.
func WithIDFunc(fn func() RequestID) EngineOption {
	return func(e *Engine) { e.newID = fn }
}

// WithEngineLogger sets the engine logger.
func WithEngineLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(requests RequestStore, lg *ledger.Ledger, catalog *Catalog, directory Directory, opts ...EngineOption) *Engine {
	e := &Engine{
		requests:  requests,
		ledger:    lg,
		catalog:   catalog,
		directory: directory,
		duration:  BusinessDays,
		now:       time.Now,
		newID:     func() RequestID { return RequestID(uuid.NewString()) },
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// =============================================================================
// CREATE
// =============================================================================

// CreateInput is the plain structured input for request submission.
type CreateInput struct {
	EmployeeID    EmployeeID
	TypeID        LeaveTypeID
	StartDate     time.Time
	EndDate       time.Time
	Justification string
}

// Create validates and submits a new request, eagerly reserving balance for
// balance-consuming types. If the reservation fails the whole operation
// fails and no request is created.
func (e *Engine) Create(ctx context.Context, actor Actor, in CreateInput) (*LeaveRequest, error) {
	if actor.ID != in.EmployeeID {
		return nil, &ForbiddenError{
			ActorID: actor.ID,
			Action:  "create",
			Reason:  "requests are submitted by their owner",
		}
	}

	start, end := dateOnly(in.StartDate), dateOnly(in.EndDate)
	if err := e.validateDates(start, end); err != nil {
		return nil, err
	}

	lt, err := e.catalog.Get(ctx, in.TypeID)
	if err != nil {
		return nil, err
	}
	if !lt.Active {
		return nil, &ValidationError{Field: "type_id", Message: fmt.Sprintf("leave type %s is inactive", lt.ID)}
	}

	duration := e.duration(start, end)
	if duration.IsZero() {
		return nil, &ValidationError{Field: "dates", Message: "period contains no consumable days"}
	}

	if err := e.checkOverlap(ctx, in.EmployeeID, start, end); err != nil {
		return nil, err
	}
	if err := e.checkAnnualCap(ctx, lt, in.EmployeeID, start.Year(), duration); err != nil {
		return nil, err
	}

	now := e.now()
	request := &LeaveRequest{
		ID:            e.newID(),
		EmployeeID:    in.EmployeeID,
		TypeID:        in.TypeID,
		StartDate:     start,
		EndDate:       end,
		Duration:      duration,
		Status:        StatusPending,
		Justification: in.Justification,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	reserved := false
	if lt.ConsumesBalance {
		if err := e.ledger.Reserve(ctx, request.BalanceKey(), duration); err != nil {
			return nil, err
		}
		reserved = true
	}

	if err := e.requests.InsertRequest(ctx, request); err != nil {
		if reserved {
			// Undo the reservation so the failed create leaves no trace.
			if relErr := e.ledger.Release(ctx, request.BalanceKey(), duration); relErr != nil {
				e.logger.Error("failed to release after aborted create",
					zap.String("request_id", string(request.ID)),
					zap.Error(relErr))
			}
		}
		return nil, fmt.Errorf("insert request: %w", err)
	}

	e.logger.Info("request created",
		zap.String("request_id", string(request.ID)),
		zap.String("employee_id", string(request.EmployeeID)),
		zap.String("type_id", string(request.TypeID)),
		zap.String("duration", duration.String()))
	return request, nil
}

func (e *Engine) validateDates(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return &ValidationError{Field: "dates", Message: "start and end dates are required"}
	}
	if end.Before(start) {
		return &ValidationError{Field: "end_date", Message: "must not be before start date"}
	}
	if start.Before(dateOnly(e.now())) {
		return &ValidationError{Field: "start_date", Message: "must not be in the past"}
	}
	return nil
}

func (e *Engine) checkOverlap(ctx context.Context, employeeID EmployeeID, start, end time.Time) error {
	open, err := e.requests.ListOpenRequestsOverlapping(ctx, employeeID, start, end)
	if err != nil {
		return fmt.Errorf("check overlapping requests: %w", err)
	}
	if len(open) > 0 {
		return &OverlapError{ExistingID: open[0].ID, Start: start, End: end}
	}
	return nil
}

// checkAnnualCap enforces the type-level yearly limit where one is declared.
// The cap counts outstanding requests (Pending and Approved) of the same
// type and year, independently of whether the type consumes balance.
func (e *Engine) checkAnnualCap(ctx context.Context, lt *LeaveType, employeeID EmployeeID, year int, duration ledger.Days) error {
	if lt.AnnualCap == nil {
		return nil
	}

	existing, err := e.requests.ListRequestsByEmployee(ctx, employeeID, year)
	if err != nil {
		return fmt.Errorf("check annual cap: %w", err)
	}

	used := ledger.Zero()
	for _, r := range existing {
		if r.TypeID == lt.ID && (r.Status == StatusPending || r.Status == StatusApproved) {
			used = used.Add(r.Duration)
		}
	}

	if used.Add(duration).GreaterThan(*lt.AnnualCap) {
		return &ValidationError{
			Field: "duration",
			Message: fmt.Sprintf("exceeds annual cap of %s days for %s (%s already requested)",
				lt.AnnualCap, lt.Name, used),
		}
	}
	return nil
}

// =============================================================================
// MANAGER DECISIONS
// =============================================================================

// Approve moves a pending request to Approved. The reservation made at
// creation simply stays held; there is no balance side effect.
func (e *Engine) Approve(ctx context.Context, actor Actor, id RequestID) (*LeaveRequest, error) {
	request, err := e.getRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.authorizeDecision(ctx, actor, request, "approve"); err != nil {
		return nil, err
	}
	if request.Status != StatusPending {
		return nil, &InvalidTransitionError{RequestID: id, From: request.Status, Action: "approve"}
	}

	now := e.now()
	request.Status = StatusApproved
	request.DecidedBy = &actor.ID
	request.DecidedAt = &now
	request.UpdatedAt = now

	updated, err := e.requests.UpdateRequest(ctx, request, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("update request: %w", err)
	}
	if !updated {
		return nil, e.transitionConflict(ctx, id, "approve")
	}

	e.logger.Info("request approved",
		zap.String("request_id", string(id)),
		zap.String("decided_by", string(actor.ID)))
	return request, nil
}

// Reject moves a pending request to Rejected, stores the reason, and
// releases the balance held at creation.
func (e *Engine) Reject(ctx context.Context, actor Actor, id RequestID, reason string) (*LeaveRequest, error) {
	if reason == "" {
		return nil, &ValidationError{Field: "reason", Message: "rejection reason is required"}
	}

	request, err := e.getRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.authorizeDecision(ctx, actor, request, "reject"); err != nil {
		return nil, err
	}
	if request.Status != StatusPending {
		return nil, &InvalidTransitionError{RequestID: id, From: request.Status, Action: "reject"}
	}

	prev := *request
	now := e.now()
	request.Status = StatusRejected
	request.RejectionReason = &reason
	request.DecidedBy = &actor.ID
	request.DecidedAt = &now
	request.UpdatedAt = now

	updated, err := e.requests.UpdateRequest(ctx, request, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("update request: %w", err)
	}
	if !updated {
		return nil, e.transitionConflict(ctx, id, "reject")
	}
	if err := e.releaseFor(ctx, request, prev); err != nil {
		return nil, err
	}

	e.logger.Info("request rejected",
		zap.String("request_id", string(id)),
		zap.String("decided_by", string(actor.ID)))
	return request, nil
}

// Cancel moves a Pending or Approved request to Cancelled and releases the
// balance held at creation. Open to the owner and to their managers.
func (e *Engine) Cancel(ctx context.Context, actor Actor, id RequestID) (*LeaveRequest, error) {
	request, err := e.getRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.authorizeCancel(ctx, actor, request); err != nil {
		return nil, err
	}
	if request.Status != StatusPending && request.Status != StatusApproved {
		return nil, &InvalidTransitionError{RequestID: id, From: request.Status, Action: "cancel"}
	}

	prev := *request
	request.Status = StatusCancelled
	request.UpdatedAt = e.now()

	updated, err := e.requests.UpdateRequest(ctx, request, prev.Status)
	if err != nil {
		return nil, fmt.Errorf("update request: %w", err)
	}
	if !updated {
		return nil, e.transitionConflict(ctx, id, "cancel")
	}
	if err := e.releaseFor(ctx, request, prev); err != nil {
		return nil, err
	}

	e.logger.Info("request cancelled",
		zap.String("request_id", string(id)),
		zap.String("actor_id", string(actor.ID)))
	return request, nil
}

// releaseFor returns the request's reservation to the ledger. Any failure
// here leaves the reservation held, so the already-committed transition is
// reverted before the error propagates: the stored state stays internally
// consistent either way.
func (e *Engine) releaseFor(ctx context.Context, request *LeaveRequest, prev LeaveRequest) error {
	lt, err := e.catalog.Get(ctx, request.TypeID)
	if err != nil {
		// Requests only store ids the catalog handed out, so a miss here is
		// a data-integrity fault, not a user error.
		e.logger.Error("leave type missing for stored request",
			zap.String("request_id", string(request.ID)),
			zap.String("type_id", string(request.TypeID)),
			zap.Error(err))
		e.revert(ctx, request, prev)
		return err
	}
	if !lt.ConsumesBalance {
		return nil
	}

	if err := e.ledger.Release(ctx, request.BalanceKey(), request.Duration); err != nil {
		e.revert(ctx, request, prev)
		return err
	}
	return nil
}

// revert swaps the request back to its pre-transition state.
func (e *Engine) revert(ctx context.Context, request *LeaveRequest, prev LeaveRequest) {
	if _, err := e.requests.UpdateRequest(ctx, &prev, request.Status); err != nil {
		e.logger.Error("failed to revert request after release failure",
			zap.String("request_id", string(request.ID)),
			zap.Error(err))
	}
	*request = prev
}

// transitionConflict reports why a status swap found no matching row: the
// request vanished, or a concurrent transition committed first.
func (e *Engine) transitionConflict(ctx context.Context, id RequestID, action string) error {
	current, err := e.getRequest(ctx, id)
	if err != nil {
		return err
	}
	return &InvalidTransitionError{RequestID: id, From: current.Status, Action: action}
}

// =============================================================================
// AUTHORIZATION
// =============================================================================

func (e *Engine) authorizeDecision(ctx context.Context, actor Actor, request *LeaveRequest, action string) error {
	if actor.Role != RoleManager {
		return &ForbiddenError{ActorID: actor.ID, Action: action, Reason: "requires manager role"}
	}
	manages, err := e.directory.IsManagerOf(ctx, actor.ID, request.EmployeeID)
	if err != nil {
		return fmt.Errorf("resolve reporting relation: %w", err)
	}
	if !manages {
		return &ForbiddenError{
			ActorID: actor.ID,
			Action:  action,
			Reason:  fmt.Sprintf("not a manager of employee %s", request.EmployeeID),
		}
	}
	return nil
}

func (e *Engine) authorizeCancel(ctx context.Context, actor Actor, request *LeaveRequest) error {
	if actor.ID == request.EmployeeID {
		return nil
	}
	if actor.Role == RoleManager {
		manages, err := e.directory.IsManagerOf(ctx, actor.ID, request.EmployeeID)
		if err != nil {
			return fmt.Errorf("resolve reporting relation: %w", err)
		}
		if manages {
			return nil
		}
	}
	return &ForbiddenError{
		ActorID: actor.ID,
		Action:  "cancel",
		Reason:  "only the owner or their manager may cancel",
	}
}

// =============================================================================
// QUERIES
// =============================================================================

// Get returns a single request. Fails with NotFoundError if absent.
func (e *Engine) Get(ctx context.Context, id RequestID) (*LeaveRequest, error) {
	return e.getRequest(ctx, id)
}

// ListForEmployee returns the employee's requests for a year, in store
// order; no server-side ordering is guaranteed.
func (e *Engine) ListForEmployee(ctx context.Context, employeeID EmployeeID, year int) ([]LeaveRequest, error) {
	return e.requests.ListRequestsByEmployee(ctx, employeeID, year)
}

func (e *Engine) getRequest(ctx context.Context, id RequestID) (*LeaveRequest, error) {
	request, err := e.requests.GetRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load request %s: %w", id, err)
	}
	if request == nil {
		return nil, &NotFoundError{Kind: "request", ID: string(id)}
	}
	return request, nil
}
