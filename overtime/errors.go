package overtime

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/warp/farmops/core"
)

var (
	// ErrDuplicateOvertime is returned when a record for the employee-day (or its Ref) exists.
	ErrDuplicateOvertime = errors.New("duplicate overtime record")

	// ErrInvalidStatus is returned for an unknown approval status.
	ErrInvalidStatus = errors.New("invalid overtime status")
)

// DuplicateOvertimeError identifies the conflicting employee-day.
type DuplicateOvertimeError struct {
	EmployeeID core.EmployeeID
	Date       time.Time
}

func (e *DuplicateOvertimeError) Error() string {
	return fmt.Sprintf("overtime already recorded for %s on %s", e.EmployeeID, e.Date.Format("2006-01-02"))
}

func (e *DuplicateOvertimeError) Unwrap() error { return ErrDuplicateOvertime }
