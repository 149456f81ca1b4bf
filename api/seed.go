/*
seed.go - Demo dataset

PURPOSE:
  Loads a small, self-consistent dataset for local development and manual
  testing: a manager with a team of two reports, three leave types, and
  provisioned balances for the current year. Idempotent; reposting
  overwrites the same records.

DATASET:
  Employees:  carla (MANAGER), alice, bruno (EMPLOYEE)
  Team:       engineering, managed by carla, members alice and bruno
  Types:      vacation (30d, consumes balance)
              sick (non-consuming, tracked only)
              personal (consumes balance, 5-day annual cap)
  Balances:   vacation 30d and personal 5d per report, current year
*/
package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/meridian/absence-engine/absence"
	"github.com/meridian/absence-engine/ledger"
)

// Seed loads the demo dataset.
func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	if err := h.SeedData(r.Context()); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "seeded"})
}

// SeedData writes the demo dataset through the store. Also used by the
// server binary's -seed flag.
func (h *Handler) SeedData(ctx context.Context) error {
	now := time.Now().UTC()
	year := now.Year()

	employees := []absence.Employee{
		{ID: "carla", Name: "Carla Mendes", Email: "carla@meridian.dev", Role: absence.RoleManager, CreatedAt: now},
		{ID: "alice", Name: "Alice Fontaine", Email: "alice@meridian.dev", Role: absence.RoleEmployee, CreatedAt: now},
		{ID: "bruno", Name: "Bruno Keller", Email: "bruno@meridian.dev", Role: absence.RoleEmployee, CreatedAt: now},
	}
	for _, e := range employees {
		if err := h.store.SaveEmployee(ctx, e); err != nil {
			return err
		}
	}

	team := absence.Team{
		ID:        "engineering",
		Name:      "Engineering",
		ManagerID: "carla",
		Members:   []absence.EmployeeID{"alice", "bruno"},
	}
	if err := h.store.SaveTeam(ctx, team); err != nil {
		return err
	}

	personalCap := ledger.DaysOf(5)
	types := []absence.LeaveType{
		{ID: "vacation", Name: "Vacation", Description: "Annual paid vacation", ColorHex: "#4C9AFF", ConsumesBalance: true, Active: true},
		{ID: "sick", Name: "Sick Leave", Description: "Illness, tracked without entitlement", ColorHex: "#FF5630", ConsumesBalance: false, Active: true},
		{ID: "personal", Name: "Personal Day", Description: "Short personal absences", ColorHex: "#36B37E", ConsumesBalance: true, AnnualCap: &personalCap, Active: true},
	}
	for _, t := range types {
		if _, err := h.catalog.Save(ctx, t); err != nil {
			return err
		}
	}

	for _, employeeID := range []string{"alice", "bruno"} {
		grants := []struct {
			typeID string
			days   ledger.Days
		}{
			{"vacation", ledger.DaysOf(30)},
			{"personal", ledger.DaysOf(5)},
		}
		for _, g := range grants {
			key := ledger.Key{EmployeeID: employeeID, Year: year, TypeID: g.typeID}
			if _, err := h.ledger.Provision(ctx, key, g.days); err != nil {
				return err
			}
		}
	}

	h.logger.Info("demo dataset seeded", zap.Int("year", year))
	return nil
}
