/*
errors.go - Error taxonomy shared by the pipeline packages

ERROR CATEGORIES:
  1. Collaborator errors - the employee subsystem does not know an identifier
  2. Lookup errors - a pipeline record id does not exist
  3. Store errors - generic persistence failures

Domain packages define their own structured errors (DuplicateAttendanceError,
DuplicatePayrollPeriodError, ...) that unwrap to sentinels so handlers can
classify them with errors.Is.

SEE ALSO:
  - attendance/errors.go, overtime/errors.go, payroll/errors.go
  - api/errors.go: HTTP status mapping
*/
package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmployeeNotFound is returned when the employee subsystem has no such identifier.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrNotFound is returned when a pipeline record id does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrPersistence marks a generic store failure.
	ErrPersistence = errors.New("persistence failure")

	// ErrInvalidInput marks a request that fails validation before touching the store.
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// EmployeeNotFoundError carries the identifier that failed to resolve.
type EmployeeNotFoundError struct {
	ID EmployeeID
}

func (e *EmployeeNotFoundError) Error() string {
	return fmt.Sprintf("employee %q not found", e.ID)
}

func (e *EmployeeNotFoundError) Unwrap() error {
	return ErrEmployeeNotFound
}

// PersistenceError wraps a store failure with the operation that failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the cause; Is keeps the ErrPersistence classification.
func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Persistence wraps err as a PersistenceError. Typed domain errors pass through untouched.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// Invalid builds an ErrInvalidInput with a message.
func Invalid(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidInput, format, args...)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether err means a missing employee or record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) || errors.Is(err, ErrNotFound)
}
