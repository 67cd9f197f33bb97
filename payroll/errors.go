package payroll

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/warp/farmops/core"
)

var (
	ErrDuplicatePayrollPeriod = errors.New("duplicate payroll period")
	ErrInvalidTransition      = errors.New("invalid payroll status transition")
	ErrInvalidStatus          = errors.New("invalid payroll status")
)

// DuplicatePayrollPeriodError is a second record for the same (employee, year, month).
type DuplicatePayrollPeriodError struct {
	EmployeeID core.EmployeeID
	Year       int
	Month      time.Month
}

func (e *DuplicatePayrollPeriodError) Error() string {
	return fmt.Sprintf("salary record for %s already exists for %04d-%02d", e.EmployeeID, e.Year, int(e.Month))
}

func (e *DuplicatePayrollPeriodError) Unwrap() error { return ErrDuplicatePayrollPeriod }

// Reasons reported per employee by a batch run.
const (
	ReasonAlreadyProcessed = "already processed"
	ReasonAlreadyPaid      = "already paid"
	ReasonEmployeeNotFound = "employee not found"
	ReasonDuplicatePeriod  = "duplicate payroll period"
)

// reason turns a per-employee failure into the string shown to callers.
func reason(err error) string {
	switch {
	case errors.Is(err, core.ErrEmployeeNotFound):
		return ReasonEmployeeNotFound
	case errors.Is(err, ErrDuplicatePayrollPeriod):
		return ReasonDuplicatePeriod
	default:
		return err.Error()
	}
}
