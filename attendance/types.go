/*
Package attendance implements the daily check-in/check-out state machine.

STATES (per employee, per calendar day):

	NoRecord --check-in--> CheckedIn --check-out--> CheckedOut (terminal)

	NoRecord is implicit: no row exists yet.
	CheckedIn has a check-in time and an empty check-out.
	CheckedOut has both; the check-out is written at most once.

INVARIANT:
  At most one Record per (EmployeeID, Date). The store enforces it with a
  uniqueness constraint, so a racing second check-in surfaces as
  *DuplicateAttendanceError instead of a second row.

STATUS:
  Automatic check-in: minutes <= LateAfter (09:30) -> Present, else Late.
  Manual entry without a status: < ManualPresentBefore (08:00) -> Present,
  <= ManualAbsentAfter (10:00) -> Late, later or missing -> Absent.
  The two rule sets are configured independently.

SEE ALSO:
  - machine.go: transitions
  - overtime/derive.go: runs after a check-out commits
*/
package attendance

import (
	"context"
	"strings"
	"time"

	"github.com/warp/farmops/core"
)

// Status is the attendance status of a day.
type Status string

const (
	StatusPresent Status = "Present"
	StatusLate    Status = "Late"
	StatusAbsent  Status = "Absent"
	StatusOnLeave Status = "On Leave"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent, StatusOnLeave:
		return true
	}
	return false
}

// Attended reports whether the day counts as worked for payroll.
func (s Status) Attended() bool {
	return s == StatusPresent || s == StatusLate
}

// NotYet is how an unset check-in/check-out is displayed.
const NotYet = "Not yet"

// State is the position of a record in the daily state machine.
type State int

const (
	StateNoRecord State = iota
	StateCheckedIn
	StateCheckedOut
)

func (s State) String() string {
	switch s {
	case StateCheckedIn:
		return "checked_in"
	case StateCheckedOut:
		return "checked_out"
	default:
		return "no_record"
	}
}

// Record is one employee's attendance for one calendar day.
type Record struct {
	ID           string
	Seq          int64
	EmployeeID   core.EmployeeID
	EmployeeName string
	Date         time.Time
	CheckIn      string // empty until set
	CheckOut     string // empty until set
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// State derives the machine state from the stored times.
func (r Record) State() State {
	if r.CheckOut != "" {
		return StateCheckedOut
	}
	return StateCheckedIn
}

// Filter narrows ListAttendance. Zero values mean "any".
type Filter struct {
	EmployeeID core.EmployeeID
	Date       time.Time
	Search     string
}

// Matches applies the filter in memory.
func (f Filter) Matches(r Record) bool {
	if f.EmployeeID != "" && r.EmployeeID != f.EmployeeID {
		return false
	}
	if !f.Date.IsZero() && !r.Date.Equal(f.Date) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(string(r.EmployeeID)), q) &&
			!strings.Contains(strings.ToLower(r.EmployeeName), q) {
			return false
		}
	}
	return true
}

// Store persists attendance records.
type Store interface {
	GetAttendance(ctx context.Context, id string) (Record, error)
	FindAttendance(ctx context.Context, employeeID core.EmployeeID, day time.Time) (rec Record, ok bool, err error)

	// CreateAttendance returns *DuplicateAttendanceError if the employee-day exists.
	CreateAttendance(ctx context.Context, rec Record) error

	// CloseAttendance sets the check-out of an open record. It returns
	// *AlreadyCheckedOutError when the record was closed in the meantime.
	CloseAttendance(ctx context.Context, id string, checkOut string, status Status, at time.Time) (Record, error)

	UpdateAttendance(ctx context.Context, rec Record) error
	DeleteAttendance(ctx context.Context, id string) error

	// ListAttendance returns matches newest first (date desc, seq desc).
	ListAttendance(ctx context.Context, filter Filter) ([]Record, error)
}
