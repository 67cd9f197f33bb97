/*
Package core holds the contracts shared by the attendance, overtime and payroll packages.

KEY CONCEPTS:
  - EmployeeID: stable identifier owned by the employee subsystem ("EMP001")
  - Employee: read-only view of the external employee record
  - EmployeeDirectory: lookup interface onto that subsystem
  - Counter: atomic, purpose-keyed sequence generator

The pipeline never mutates employees. It only reads them to validate that an
identifier exists and to denormalize name/position onto its own records.

SEE ALSO:
  - errors.go: error taxonomy shared across packages
  - store/sqlite, store/memory: implementations of the interfaces below
*/
package core

import "context"

// EmployeeID identifies an employee across all collections.
type EmployeeID string

// Employee is the collaborator view of an employee record.
type Employee struct {
	ID         EmployeeID
	Name       string
	Position   string
	Department string
}

// EmployeeDirectory resolves employee identifiers.
// GetEmployee returns *EmployeeNotFoundError for unknown identifiers.
type EmployeeDirectory interface {
	GetEmployee(ctx context.Context, id EmployeeID) (Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
}

// =============================================================================
// COUNTERS
// =============================================================================

// Counter hands out monotonically increasing values per purpose.
// Implementations must increment atomically in the backing store; scanning for
// max+1 is not acceptable under concurrent writers.
type Counter interface {
	Next(ctx context.Context, purpose string) (int64, error)
}

const (
	CounterAttendanceSeq = "attendance_seq"
	CounterOvertimeRef   = "overtime_ref"
)
