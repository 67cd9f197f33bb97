package attendance

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/warp/farmops/core"
)

var (
	ErrDuplicateAttendance = errors.New("attendance already recorded for this day")
	ErrAlreadyCheckedOut   = errors.New("already checked out")
	ErrNotCheckedIn        = errors.New("not checked in")
	ErrInvalidStatus       = errors.New("invalid attendance status")
)

// DuplicateAttendanceError is a second check-in (or create) for the same employee-day.
type DuplicateAttendanceError struct {
	EmployeeID core.EmployeeID
	Date       time.Time
}

func (e *DuplicateAttendanceError) Error() string {
	return fmt.Sprintf("%s already checked in on %s", e.EmployeeID, e.Date.Format("2006-01-02"))
}

func (e *DuplicateAttendanceError) Unwrap() error { return ErrDuplicateAttendance }

// AlreadyCheckedOutError is a check-out against a closed record.
type AlreadyCheckedOutError struct {
	EmployeeID core.EmployeeID
	Date       time.Time
	CheckOut   string
}

func (e *AlreadyCheckedOutError) Error() string {
	return fmt.Sprintf("%s already checked out on %s at %s", e.EmployeeID, e.Date.Format("2006-01-02"), e.CheckOut)
}

func (e *AlreadyCheckedOutError) Unwrap() error { return ErrAlreadyCheckedOut }

// NotCheckedInError is a check-out with no record for the day.
type NotCheckedInError struct {
	EmployeeID core.EmployeeID
	Date       time.Time
}

func (e *NotCheckedInError) Error() string {
	return fmt.Sprintf("%s has not checked in on %s", e.EmployeeID, e.Date.Format("2006-01-02"))
}

func (e *NotCheckedInError) Unwrap() error { return ErrNotCheckedIn }
