/*
Package sqlite provides a SQLite-backed implementation of the pipeline stores.

PURPOSE:
  Implements every persistence interface of the pipeline using SQLite. The
  same schema ports to PostgreSQL with minor dialect changes.

INTERFACES IMPLEMENTED:
  core.EmployeeDirectory: read view onto the employees table
  core.Counter:           purpose-keyed atomic counters
  attendance.Store:       daily attendance records
  overtime.Store:         per-day overtime records
  payroll.Store:          monthly salary records

KEY TABLES:
  employees:  collaborator records (seeded, never mutated by the pipeline)
  attendance: one row per (employee_id, date)
  overtime:   one row per (employee_id, date), ref unique when present
  salaries:   one row per (employee_id, year, month)
  counters:   one row per purpose

INDEXES:
  Uniqueness is the concurrency control of the pipeline:
  - idx_attendance_employee_day: second check-in -> DuplicateAttendanceError
  - idx_overtime_employee_day:   derivation upsert key
  - idx_overtime_ref:            partial unique index, legacy rows have NULL
  - idx_salaries_period:         second payroll -> DuplicatePayrollPeriodError

COUNTERS:
  Next() is a single statement:
    INSERT ... ON CONFLICT(purpose) DO UPDATE SET value = value + 1 RETURNING value
  so two writers can never read the same value.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. The conditional close of an attendance
  record (WHERE check_out IS NULL) keeps exactly one winner even without it.

USAGE:
  store, err := sqlite.New("./data/farmops.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool with versioned migrations.

SEE ALSO:
  - attendance.go, overtime.go, payroll.go: per-collection queries
  - store/memory: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/warp/farmops/attendance"
	"github.com/warp/farmops/core"
	"github.com/warp/farmops/overtime"
	"github.com/warp/farmops/payroll"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// Compile-time interface checks.
var (
	_ core.EmployeeDirectory = (*Store)(nil)
	_ core.Counter           = (*Store)(nil)
	_ attendance.Store       = (*Store)(nil)
	_ overtime.Store         = (*Store)(nil)
	_ payroll.Store          = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection (health endpoint).
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		position TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS counters (
		purpose TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);

	-- Attendance: check_in/check_out are display strings, NULL until set
	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		employee_id TEXT NOT NULL,
		employee_name TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		check_in TEXT,
		check_out TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_employee_day
		ON attendance(employee_id, date);
	CREATE INDEX IF NOT EXISTS idx_attendance_date_seq
		ON attendance(date DESC, seq DESC);

	-- Overtime: overtime holds "H:MM" (legacy rows: decimal hours)
	CREATE TABLE IF NOT EXISTS overtime (
		id TEXT PRIMARY KEY,
		ref TEXT,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		regular_hours TEXT NOT NULL,
		overtime TEXT NOT NULL,
		total_hours TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Pending',
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_overtime_employee_day
		ON overtime(employee_id, date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_overtime_ref
		ON overtime(ref) WHERE ref IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_overtime_status
		ON overtime(status);

	-- Salaries: money as decimal text
	CREATE TABLE IF NOT EXISTS salaries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		employee_name TEXT NOT NULL DEFAULT '',
		position TEXT NOT NULL DEFAULT '',
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		basic_salary TEXT NOT NULL,
		overtime_pay TEXT NOT NULL,
		overtime_hours TEXT NOT NULL DEFAULT '0:00',
		allowances TEXT NOT NULL,
		deductions TEXT NOT NULL,
		bonus TEXT NOT NULL,
		commission TEXT NOT NULL,
		tax_deduction TEXT NOT NULL,
		insurance_deduction TEXT NOT NULL,
		total_salary TEXT NOT NULL,
		net_salary TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Pending',
		payment_method TEXT NOT NULL DEFAULT '',
		remarks TEXT NOT NULL DEFAULT '',
		paid_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_salaries_period
		ON salaries(employee_id, year, month);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEES (core.EmployeeDirectory)
// =============================================================================

// SaveEmployee inserts or updates an employee. Used by seeding only.
func (s *Store) SaveEmployee(ctx context.Context, emp core.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, position, department, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			position = excluded.position,
			department = excluded.department
	`
	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.Position, emp.Department, s.now().Format(time.RFC3339))
	return core.Persistence("save employee", err)
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id core.EmployeeID) (core.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var emp core.Employee
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, position, department FROM employees WHERE id = ?", id,
	).Scan(&emp.ID, &emp.Name, &emp.Position, &emp.Department)
	if err == sql.ErrNoRows {
		return core.Employee{}, &core.EmployeeNotFoundError{ID: id}
	}
	if err != nil {
		return core.Employee{}, core.Persistence("get employee", err)
	}
	return emp, nil
}

// ListEmployees returns all employees ordered by id.
func (s *Store) ListEmployees(ctx context.Context) ([]core.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, position, department FROM employees ORDER BY id")
	if err != nil {
		return nil, core.Persistence("list employees", err)
	}
	defer rows.Close()

	var employees []core.Employee
	for rows.Next() {
		var emp core.Employee
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.Position, &emp.Department); err != nil {
			return nil, core.Persistence("scan employee", err)
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// =============================================================================
// COUNTERS (core.Counter)
// =============================================================================

// Next atomically increments the counter for purpose and returns the new value.
func (s *Store) Next(ctx context.Context, purpose string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var v int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO counters (purpose, value) VALUES (?, 1)
		ON CONFLICT(purpose) DO UPDATE SET value = value + 1
		RETURNING value`, purpose,
	).Scan(&v)
	if err != nil {
		return 0, core.Persistence("next counter", err)
	}
	return v, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all pipeline data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"salaries", "overtime", "attendance", "counters", "employees"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return core.Persistence("reset "+table, err)
		}
	}
	return nil
}

// whereClause joins filter conditions.
type whereClause struct {
	conds []string
	args  []any
}

func (w *whereClause) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
