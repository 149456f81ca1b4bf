/*
store.go - Persistence interface for balance entries

PURPOSE:
  The one seam between the ledger and the database. The Store is deliberately
  dumb: it loads and saves entries, nothing more. All invariants (the
  check-then-reserve step, over-release detection) live in the Ledger, which
  serializes access per key before touching the store.

IMPLEMENTATIONS:
  - store/sqlite: production store
  - store/memory: in-memory store for tests and dev

SEE ALSO:
  - ledger.go: the only caller allowed to mutate balances
*/
package ledger

import "context"

// Store persists balance entries.
//
// Callers other than the Ledger must treat balances as read-only;
// the per-key serialization only holds if every mutation goes through
// Reserve/Release/Provision.
type Store interface {
	// GetBalance returns the entry for the key, or nil if none exists.
	GetBalance(ctx context.Context, key Key) (*Entry, error)

	// SaveBalance inserts or replaces the entry for entry.Key.
	SaveBalance(ctx context.Context, entry Entry) error

	// ListBalances returns all entries for an employee in a year,
	// in store order.
	ListBalances(ctx context.Context, employeeID string, year int) ([]Entry, error)
}
