/*
catalog.go - Leave-type catalog

PURPOSE:
  Read-mostly lookup of absence categories. The lifecycle engine resolves
  every request's type here before touching the ledger; administrative
  create/update flows through the same component so callers have a single
  owner for the reference data.

DATA-INTEGRITY NOTE:
  A type id referenced by an existing request but absent from the catalog is
  not a user error - requests only ever store ids the catalog handed out.
  Get still returns NotFoundError; the engine logs it as an integrity fault.

DEACTIVATION:
  Types are deactivated, never deleted, so historical requests keep a
  resolvable type reference. Inactive types reject new requests but resolve
  normally for reads.
*/
package absence

import (
	"context"
	"fmt"
	"strings"
)

// Catalog provides leave-type lookup and administration on top of a TypeStore.
type Catalog struct {
	types TypeStore
}

func NewCatalog(types TypeStore) *Catalog {
	return &Catalog{types: types}
}

// Get resolves a leave type. Fails with NotFoundError if absent.
func (c *Catalog) Get(ctx context.Context, id LeaveTypeID) (*LeaveType, error) {
	t, err := c.types.GetType(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load leave type %s: %w", id, err)
	}
	if t == nil {
		return nil, &NotFoundError{Kind: "leave_type", ID: string(id)}
	}
	return t, nil
}

// List returns all leave types, including inactive ones. Callers that only
// want selectable types filter on Active.
func (c *Catalog) List(ctx context.Context) ([]LeaveType, error) {
	return c.types.ListTypes(ctx)
}

// Save creates or updates a leave type after basic validation.
func (c *Catalog) Save(ctx context.Context, t LeaveType) (*LeaveType, error) {
	if strings.TrimSpace(string(t.ID)) == "" {
		return nil, &ValidationError{Field: "id", Message: "must not be empty"}
	}
	if strings.TrimSpace(t.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if t.AnnualCap != nil && t.AnnualCap.IsNegative() {
		return nil, &ValidationError{Field: "annual_cap", Message: "must not be negative"}
	}
	if err := c.types.SaveType(ctx, t); err != nil {
		return nil, fmt.Errorf("save leave type %s: %w", t.ID, err)
	}
	return &t, nil
}

// Deactivate marks a type as no longer selectable for new requests.
func (c *Catalog) Deactivate(ctx context.Context, id LeaveTypeID) (*LeaveType, error) {
	t, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Active = false
	if err := c.types.SaveType(ctx, *t); err != nil {
		return nil, fmt.Errorf("save leave type %s: %w", id, err)
	}
	return t, nil
}
