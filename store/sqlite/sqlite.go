/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.Store, absence.RequestStore, absence.TypeStore and
  absence.DirectoryStore on database/sql with the mattn/go-sqlite3 driver.
  The same SQL carries over to PostgreSQL with minor dialect changes.

KEY TABLES:
  balances:      one row per (employee, year, leave type); entitlement and
                 reserved as decimal text
  requests:      leave requests, updated in place on lifecycle transitions
  leave_types:   the catalog; deactivated rows are kept, never deleted
  employees:     directory records
  teams,
  team_members:  the reporting relation (manager of a team manages its members)

CONCURRENCY:
  The ledger serializes balance mutations per key before calling in here, so
  the store itself only needs statement-level atomicity. SQLite is opened in
  WAL mode so readers don't block the single writer.

USAGE:
  store, err := sqlite.New("./absence.db")   // or ":memory:"
  if err != nil { ... }
  defer store.Close()

SEE ALSO:
  - ledger/store.go, absence/store.go: interface definitions
  - store/memory: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/meridian/absence-engine/absence"
	"github.com/meridian/absence-engine/ledger"
)

const (
	dateFormat = "2006-01-02"
	tsFormat   = time.RFC3339Nano
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// Interface checks
var (
	_ ledger.Store           = (*Store)(nil)
	_ absence.RequestStore   = (*Store)(nil)
	_ absence.TypeStore      = (*Store)(nil)
	_ absence.DirectoryStore = (*Store)(nil)
)

// New opens (and migrates) a SQLite store. Use ":memory:" for an in-memory
// database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A second connection to the same :memory: path would see an empty
	// database, so writes are funneled through one connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS balances (
		employee_id TEXT NOT NULL,
		year        INTEGER NOT NULL,
		type_id     TEXT NOT NULL,
		entitlement TEXT NOT NULL,
		reserved    TEXT NOT NULL,
		PRIMARY KEY (employee_id, year, type_id)
	);

	CREATE TABLE IF NOT EXISTS requests (
		id               TEXT PRIMARY KEY,
		employee_id      TEXT NOT NULL,
		type_id          TEXT NOT NULL,
		year             INTEGER NOT NULL,
		start_date       TEXT NOT NULL,
		end_date         TEXT NOT NULL,
		duration         TEXT NOT NULL,
		status           TEXT NOT NULL,
		justification    TEXT NOT NULL DEFAULT '',
		rejection_reason TEXT,
		decided_by       TEXT,
		decided_at       TEXT,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee_year
		ON requests(employee_id, year);
	CREATE INDEX IF NOT EXISTS idx_requests_employee_status
		ON requests(employee_id, status);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON requests(status);

	CREATE TABLE IF NOT EXISTS leave_types (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		color_hex        TEXT NOT NULL DEFAULT '',
		consumes_balance BOOLEAN NOT NULL DEFAULT TRUE,
		annual_cap       TEXT,
		active           BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS employees (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL DEFAULT '',
		role       TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS teams (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		manager_id TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS team_members (
		team_id     TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		PRIMARY KEY (team_id, employee_id)
	);

	CREATE INDEX IF NOT EXISTS idx_teams_manager
		ON teams(manager_id);
	CREATE INDEX IF NOT EXISTS idx_team_members_employee
		ON team_members(employee_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BALANCES (ledger.Store)
// =============================================================================

func (s *Store) GetBalance(ctx context.Context, key ledger.Key) (*ledger.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT entitlement, reserved FROM balances
		WHERE employee_id = ? AND year = ? AND type_id = ?`,
		key.EmployeeID, key.Year, key.TypeID)

	var entitlement, reserved string
	if err := row.Scan(&entitlement, &reserved); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	e, err := ledger.DaysFromString(entitlement)
	if err != nil {
		return nil, fmt.Errorf("parse entitlement %q: %w", entitlement, err)
	}
	r, err := ledger.DaysFromString(reserved)
	if err != nil {
		return nil, fmt.Errorf("parse reserved %q: %w", reserved, err)
	}
	return &ledger.Entry{Key: key, Entitlement: e, Reserved: r}, nil
}

func (s *Store) SaveBalance(ctx context.Context, entry ledger.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO balances (employee_id, year, type_id, entitlement, reserved)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, year, type_id)
		DO UPDATE SET entitlement = excluded.entitlement, reserved = excluded.reserved`,
		entry.Key.EmployeeID, entry.Key.Year, entry.Key.TypeID,
		entry.Entitlement.String(), entry.Reserved.String())
	return err
}

func (s *Store) ListBalances(ctx context.Context, employeeID string, year int) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type_id, entitlement, reserved FROM balances
		WHERE employee_id = ? AND year = ?`,
		employeeID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Entry
	for rows.Next() {
		var typeID, entitlement, reserved string
		if err := rows.Scan(&typeID, &entitlement, &reserved); err != nil {
			return nil, err
		}
		e, err := ledger.DaysFromString(entitlement)
		if err != nil {
			return nil, err
		}
		r, err := ledger.DaysFromString(reserved)
		if err != nil {
			return nil, err
		}
		result = append(result, ledger.Entry{
			Key:         ledger.Key{EmployeeID: employeeID, Year: year, TypeID: typeID},
			Entitlement: e,
			Reserved:    r,
		})
	}
	return result, rows.Err()
}

// =============================================================================
// REQUESTS (absence.RequestStore)
// =============================================================================

func (s *Store) InsertRequest(ctx context.Context, r *absence.LeaveRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (id, employee_id, type_id, year, start_date, end_date,
			duration, status, justification, rejection_reason, decided_by, decided_at,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(r.ID), string(r.EmployeeID), string(r.TypeID), r.Year(),
		r.StartDate.Format(dateFormat), r.EndDate.Format(dateFormat),
		r.Duration.String(), string(r.Status), r.Justification,
		nullStr(r.RejectionReason), nullID(r.DecidedBy), nullTime(r.DecidedAt),
		r.CreatedAt.Format(tsFormat), r.UpdatedAt.Format(tsFormat))
	return err
}

func (s *Store) UpdateRequest(ctx context.Context, r *absence.LeaveRequest, from absence.Status) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE requests SET status = ?, justification = ?, rejection_reason = ?,
			decided_by = ?, decided_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(r.Status), r.Justification, nullStr(r.RejectionReason),
		nullID(r.DecidedBy), nullTime(r.DecidedAt),
		r.UpdatedAt.Format(tsFormat), string(r.ID), string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const requestColumns = `id, employee_id, type_id, start_date, end_date, duration,
	status, justification, rejection_reason, decided_by, decided_at, created_at, updated_at`

func (s *Store) GetRequest(ctx context.Context, id absence.RequestID) (*absence.LeaveRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = ?`, string(id))
	r, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

func (s *Store) ListRequestsByEmployee(ctx context.Context, employeeID absence.EmployeeID, year int) ([]absence.LeaveRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE employee_id = ? AND year = ?`,
		string(employeeID), year)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func (s *Store) ListRequestsByEmployees(ctx context.Context, employeeIDs []absence.EmployeeID, statuses ...absence.Status) ([]absence.LeaveRequest, error) {
	if len(employeeIDs) == 0 {
		return []absence.LeaveRequest{}, nil
	}

	query := `SELECT ` + requestColumns + ` FROM requests WHERE employee_id IN (` +
		placeholders(len(employeeIDs)) + `)`
	args := make([]any, 0, len(employeeIDs)+len(statuses))
	for _, id := range employeeIDs {
		args = append(args, string(id))
	}
	if len(statuses) > 0 {
		query += ` AND status IN (` + placeholders(len(statuses)) + `)`
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func (s *Store) ListOpenRequestsOverlapping(ctx context.Context, employeeID absence.EmployeeID, start, end time.Time) ([]absence.LeaveRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM requests
		 WHERE employee_id = ? AND status IN ('pending', 'approved')
		   AND start_date <= ? AND end_date >= ?`,
		string(employeeID), end.Format(dateFormat), start.Format(dateFormat))
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*absence.LeaveRequest, error) {
	var (
		id, employeeID, typeID, startDate, endDate string
		duration, status, justification           string
		rejectionReason, decidedBy, decidedAt     sql.NullString
		createdAt, updatedAt                      string
	)
	err := row.Scan(&id, &employeeID, &typeID, &startDate, &endDate, &duration,
		&status, &justification, &rejectionReason, &decidedBy, &decidedAt,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	start, err := time.Parse(dateFormat, startDate)
	if err != nil {
		return nil, fmt.Errorf("parse start_date %q: %w", startDate, err)
	}
	end, err := time.Parse(dateFormat, endDate)
	if err != nil {
		return nil, fmt.Errorf("parse end_date %q: %w", endDate, err)
	}
	dur, err := ledger.DaysFromString(duration)
	if err != nil {
		return nil, fmt.Errorf("parse duration %q: %w", duration, err)
	}
	created, err := time.Parse(tsFormat, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	updated, err := time.Parse(tsFormat, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
	}

	r := &absence.LeaveRequest{
		ID:            absence.RequestID(id),
		EmployeeID:    absence.EmployeeID(employeeID),
		TypeID:        absence.LeaveTypeID(typeID),
		StartDate:     start,
		EndDate:       end,
		Duration:      dur,
		Status:        absence.Status(status),
		Justification: justification,
		CreatedAt:     created,
		UpdatedAt:     updated,
	}
	if rejectionReason.Valid {
		r.RejectionReason = &rejectionReason.String
	}
	if decidedBy.Valid {
		by := absence.EmployeeID(decidedBy.String)
		r.DecidedBy = &by
	}
	if decidedAt.Valid {
		at, err := time.Parse(tsFormat, decidedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse decided_at %q: %w", decidedAt.String, err)
		}
		r.DecidedAt = &at
	}
	return r, nil
}

func collectRequests(rows *sql.Rows) ([]absence.LeaveRequest, error) {
	defer rows.Close()

	result := []absence.LeaveRequest{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}

// =============================================================================
// LEAVE TYPES (absence.TypeStore)
// =============================================================================

func (s *Store) GetType(ctx context.Context, id absence.LeaveTypeID) (*absence.LeaveType, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, color_hex, consumes_balance, annual_cap, active
		FROM leave_types WHERE id = ?`, string(id))
	t, err := scanType(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (s *Store) ListTypes(ctx context.Context) ([]absence.LeaveType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, color_hex, consumes_balance, annual_cap, active
		FROM leave_types`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []absence.LeaveType{}
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

func (s *Store) SaveType(ctx context.Context, t absence.LeaveType) error {
	var annualCap any
	if t.AnnualCap != nil {
		annualCap = t.AnnualCap.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_types (id, name, description, color_hex, consumes_balance, annual_cap, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, description = excluded.description,
			color_hex = excluded.color_hex, consumes_balance = excluded.consumes_balance,
			annual_cap = excluded.annual_cap, active = excluded.active`,
		string(t.ID), t.Name, t.Description, t.ColorHex, t.ConsumesBalance, annualCap, t.Active)
	return err
}

func scanType(row rowScanner) (*absence.LeaveType, error) {
	var (
		id, name, description, colorHex string
		consumesBalance, active         bool
		annualCap                       sql.NullString
	)
	if err := row.Scan(&id, &name, &description, &colorHex, &consumesBalance, &annualCap, &active); err != nil {
		return nil, err
	}

	t := &absence.LeaveType{
		ID:              absence.LeaveTypeID(id),
		Name:            name,
		Description:     description,
		ColorHex:        colorHex,
		ConsumesBalance: consumesBalance,
		Active:          active,
	}
	if annualCap.Valid {
		c, err := ledger.DaysFromString(annualCap.String)
		if err != nil {
			return nil, fmt.Errorf("parse annual_cap %q: %w", annualCap.String, err)
		}
		t.AnnualCap = &c
	}
	return t, nil
}

// =============================================================================
// DIRECTORY (absence.DirectoryStore)
// =============================================================================

func (s *Store) GetEmployee(ctx context.Context, id absence.EmployeeID) (*absence.Employee, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, created_at FROM employees WHERE id = ?`, string(id))
	e, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (s *Store) ListEmployees(ctx context.Context) ([]absence.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, role, created_at FROM employees`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []absence.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

func (s *Store) SaveEmployee(ctx context.Context, e absence.Employee) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, email, role, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, email = excluded.email, role = excluded.role`,
		string(e.ID), e.Name, e.Email, string(e.Role), e.CreatedAt.Format(tsFormat))
	return err
}

func scanEmployee(row rowScanner) (*absence.Employee, error) {
	var id, name, email, role, createdAt string
	if err := row.Scan(&id, &name, &email, &role, &createdAt); err != nil {
		return nil, err
	}
	created, err := time.Parse(tsFormat, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return &absence.Employee{
		ID:        absence.EmployeeID(id),
		Name:      name,
		Email:     email,
		Role:      absence.Role(role),
		CreatedAt: created,
	}, nil
}

func (s *Store) GetTeam(ctx context.Context, id absence.TeamID) (*absence.Team, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, manager_id FROM teams WHERE id = ?`, string(id))

	var teamID, name, managerID string
	if err := row.Scan(&teamID, &name, &managerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	members, err := s.teamMembers(ctx, absence.TeamID(teamID))
	if err != nil {
		return nil, err
	}
	return &absence.Team{
		ID:        absence.TeamID(teamID),
		Name:      name,
		ManagerID: absence.EmployeeID(managerID),
		Members:   members,
	}, nil
}

func (s *Store) ListTeams(ctx context.Context) ([]absence.Team, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, manager_id FROM teams`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []absence.Team{}
	for rows.Next() {
		var id, name, managerID string
		if err := rows.Scan(&id, &name, &managerID); err != nil {
			return nil, err
		}
		result = append(result, absence.Team{
			ID:        absence.TeamID(id),
			Name:      name,
			ManagerID: absence.EmployeeID(managerID),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		members, err := s.teamMembers(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Members = members
	}
	return result, nil
}

func (s *Store) SaveTeam(ctx context.Context, t absence.Team) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO teams (id, name, manager_id) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, manager_id = excluded.manager_id`,
		string(t.ID), t.Name, string(t.ManagerID)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM team_members WHERE team_id = ?`, string(t.ID)); err != nil {
		return err
	}
	for _, m := range t.Members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO team_members (team_id, employee_id) VALUES (?, ?)`,
			string(t.ID), string(m)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) teamMembers(ctx context.Context, teamID absence.TeamID) ([]absence.EmployeeID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT employee_id FROM team_members WHERE team_id = ?`, string(teamID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []absence.EmployeeID{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		members = append(members, absence.EmployeeID(id))
	}
	return members, rows.Err()
}

func (s *Store) IsManagerOf(ctx context.Context, managerID, employeeID absence.EmployeeID) (bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM teams t
		JOIN team_members m ON m.team_id = t.id
		WHERE t.manager_id = ? AND m.employee_id = ?`,
		string(managerID), string(employeeID))

	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Subordinates(ctx context.Context, managerID absence.EmployeeID) ([]absence.EmployeeID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT m.employee_id FROM teams t
		JOIN team_members m ON m.team_id = t.id
		WHERE t.manager_id = ?`,
		string(managerID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []absence.EmployeeID{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, absence.EmployeeID(id))
	}
	return result, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullID(id *absence.EmployeeID) any {
	if id == nil {
		return nil
	}
	return string(*id)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(tsFormat)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
