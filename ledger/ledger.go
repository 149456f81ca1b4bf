/*
Package ledger tracks consumable leave balances.

PURPOSE:
  The ledger is the single owner of BalanceEntry records: how many days of a
  leave type an employee is entitled to for a given year, and how many of
  those days are currently held against outstanding requests. Every balance
  mutation in the system goes through Reserve or Release - nothing else is
  allowed to write a balance.

KEY CONCEPTS:
  - Key:       (EmployeeID, Year, TypeID) - the unit of balance isolation
  - Entry:     Entitlement + Reserved; Available is always derived
  - Reserve:   atomic check-then-increment, fails on insufficient balance
  - Release:   decrement on rejection/cancellation; over-release is a bug

RESERVATION MODEL:
  Balance is held eagerly when a request is created (pessimistic), not when
  it is approved. The displayed available balance therefore always reflects
  outstanding requests, and several pending requests can never collectively
  overdraw an entitlement. Reserved covers requests in {Pending, Approved};
  rejection and cancellation both release identically.

CONCURRENCY:
  Every mutation is serialized per Key through an internal lock table.
  Two concurrent reservations against the same key cannot both pass the
  availability check; operations on different keys proceed in parallel.

SEE ALSO:
  - store.go: persistence interface the ledger drives
  - errors.go: sentinel and structured errors
  - absence/engine.go: the lifecycle engine that triggers reserve/release
*/
package ledger

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// =============================================================================
// KEY & ENTRY
// =============================================================================

// Key identifies one balance: an employee's allowance of one leave type
// for one reference year.
type Key struct {
	EmployeeID string
	Year       int
	TypeID     string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d/%s", k.EmployeeID, k.Year, k.TypeID)
}

// Entry is the authoritative balance record for a Key.
// Reserved is the sum of durations of the employee's Pending and Approved
// requests of that type/year. Available is never stored.
type Entry struct {
	Key         Key
	Entitlement Days
	Reserved    Days
}

// Available returns entitlement minus reserved.
func (e Entry) Available() Days {
	return e.Entitlement.Sub(e.Reserved)
}

// =============================================================================
// LEDGER
// =============================================================================

// AlertFunc receives invariant violations for operational alerting.
// Called in addition to the error being returned to the caller.
type AlertFunc func(key Key, err error)

// Ledger serializes all balance mutations per Key.
type Ledger struct {
	store  Store
	logger *zap.Logger
	alert  AlertFunc

	mu    sync.Mutex
	locks map[Key]*sync.Mutex
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger used for the invariant-violation alerting path.
func WithLogger(l *zap.Logger) Option {
	return func(lg *Ledger) { lg.logger = l }
}

// WithAlert installs a hook invoked on invariant violations.
func WithAlert(fn AlertFunc) Option {
	return func(lg *Ledger) { lg.alert = fn }
}

// New creates a ledger on top of a balance store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		logger: zap.NewNop(),
		locks:  make(map[Key]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// lockFor returns the mutex for a key, creating it on first use.
// The table grows with the number of distinct (employee, year, type)
// balances, which is bounded.
func (l *Ledger) lockFor(key Key) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// Available returns entitlement minus reserved for the key.
// Fails with ErrBalanceNotFound if the entry was never provisioned.
func (l *Ledger) Available(ctx context.Context, key Key) (Days, error) {
	entry, err := l.Entry(ctx, key)
	if err != nil {
		return Days{}, err
	}
	return entry.Available(), nil
}

// Entry returns the full balance record for the key.
func (l *Ledger) Entry(ctx context.Context, key Key) (*Entry, error) {
	entry, err := l.store.GetBalance(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load balance %s: %w", key, err)
	}
	if entry == nil {
		return nil, &BalanceNotFoundError{Key: key}
	}
	return entry, nil
}

// Reserve holds amount against the key's balance.
//
// The availability check and the increment are a single atomic step relative
// to the key: the per-key lock is held across load, check, and save, so two
// concurrent reservations cannot both pass the check and overdraw.
func (l *Ledger) Reserve(ctx context.Context, key Key, amount Days) error {
	if amount.IsNegative() || amount.IsZero() {
		return fmt.Errorf("reserve %s: amount must be positive, got %s", key, amount)
	}

	lock := l.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	entry, err := l.Entry(ctx, key)
	if err != nil {
		return err
	}

	if entry.Available().LessThan(amount) {
		return &InsufficientBalanceError{
			Key:       key,
			Available: entry.Available(),
			Requested: amount,
		}
	}

	entry.Reserved = entry.Reserved.Add(amount)
	if err := l.store.SaveBalance(ctx, *entry); err != nil {
		return fmt.Errorf("save balance %s: %w", key, err)
	}

	l.logger.Debug("balance reserved",
		zap.String("key", key.String()),
		zap.String("amount", amount.String()),
		zap.String("available", entry.Available().String()))
	return nil
}

// Release returns amount to the key's balance.
//
// Release never fails for legitimate callers: the lifecycle engine only
// releases what it previously reserved. Releasing more than is reserved
// means the ledger and the request records have diverged; that is reported
// as an InvariantViolationError and surfaced to the alerting path.
func (l *Ledger) Release(ctx context.Context, key Key, amount Days) error {
	if amount.IsNegative() || amount.IsZero() {
		return fmt.Errorf("release %s: amount must be positive, got %s", key, amount)
	}

	lock := l.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	entry, err := l.Entry(ctx, key)
	if err != nil {
		return err
	}

	if entry.Reserved.LessThan(amount) {
		vErr := &InvariantViolationError{
			Key:      key,
			Reserved: entry.Reserved,
			Release:  amount,
		}
		l.alertViolation(key, vErr)
		return vErr
	}

	entry.Reserved = entry.Reserved.Sub(amount)
	if err := l.store.SaveBalance(ctx, *entry); err != nil {
		return fmt.Errorf("save balance %s: %w", key, err)
	}

	l.logger.Debug("balance released",
		zap.String("key", key.String()),
		zap.String("amount", amount.String()),
		zap.String("available", entry.Available().String()))
	return nil
}

// Provision creates or replaces the entitlement for a key, preserving any
// existing reservation. Callers must provision an entry before the first
// reservation against it.
func (l *Ledger) Provision(ctx context.Context, key Key, entitlement Days) (*Entry, error) {
	if entitlement.IsNegative() {
		return nil, fmt.Errorf("provision %s: entitlement must not be negative", key)
	}

	lock := l.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	entry, err := l.store.GetBalance(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load balance %s: %w", key, err)
	}
	if entry == nil {
		entry = &Entry{Key: key, Reserved: Zero()}
	}
	entry.Entitlement = entitlement

	if err := l.store.SaveBalance(ctx, *entry); err != nil {
		return nil, fmt.Errorf("save balance %s: %w", key, err)
	}
	return entry, nil
}

func (l *Ledger) alertViolation(key Key, err error) {
	l.logger.Error("ledger invariant violation",
		zap.String("key", key.String()),
		zap.Error(err))
	if l.alert != nil {
		l.alert(key, err)
	}
}
