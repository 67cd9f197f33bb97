/*
Package overtime derives and stores per-day overtime records.

PURPOSE:
  A check-out past the shift boundary produces (or refreshes) one overtime
  record for that employee and day. Records wait in Pending until an
  approval workflow marks them Approved; only Approved records feed payroll.

KEY TYPES:
  Duration: tagged overtime amount ("H:MM" or legacy decimal hours)
  Record:   one employee-day of overtime
  Store:    persistence contract (sqlite, memory)
  Service:  derivation plus list/create/status operations

INVARIANTS:
  - At most one record per (EmployeeID, Date); derivation upserts by that key.
  - Ref is unique when present. Legacy rows without one get SynthesizeRef on read.
  - TotalHours = RegularHours + Overtime.DecimalHours().

SEE ALSO:
  - derive.go: check-out -> overtime algorithm
  - attendance/machine.go: calls Derive after a check-out commits
  - payroll/engine.go: sums Approved records per period
*/
package overtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/farmops/clock"
	"github.com/warp/farmops/core"
)

// Status is the approval state of an overtime record.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Record is one employee-day of overtime.
type Record struct {
	ID           string
	Ref          string
	EmployeeID   core.EmployeeID
	Date         time.Time
	RegularHours decimal.Decimal
	Overtime     Duration
	TotalHours   decimal.Decimal
	Status       Status
	Description  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Recalculate derives TotalHours from its components.
func (r *Record) Recalculate() {
	r.TotalHours = r.RegularHours.Add(r.Overtime.DecimalHours())
}

// Filter narrows ListOvertime. Zero values mean "any".
type Filter struct {
	EmployeeID core.EmployeeID
	Year       int
	Month      time.Month
	Status     Status
}

// Matches applies the filter in memory.
func (f Filter) Matches(r Record) bool {
	if f.EmployeeID != "" && r.EmployeeID != f.EmployeeID {
		return false
	}
	if f.Year != 0 && r.Date.Year() != f.Year {
		return false
	}
	if f.Month != 0 && r.Date.Month() != f.Month {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// Store persists overtime records.
type Store interface {
	GetOvertime(ctx context.Context, id string) (Record, error)
	// FindOvertime looks up the record for an employee-day; ok is false when none exists.
	FindOvertime(ctx context.Context, employeeID core.EmployeeID, day time.Time) (rec Record, ok bool, err error)
	// CreateOvertime returns *DuplicateOvertimeError when the employee-day or Ref is taken.
	CreateOvertime(ctx context.Context, rec Record) error
	UpdateOvertime(ctx context.Context, rec Record) error
	// DeleteOvertime returns core.ErrNotFound when id does not exist.
	DeleteOvertime(ctx context.Context, id string) error
	ListOvertime(ctx context.Context, filter Filter) ([]Record, error)
}

// =============================================================================
// POLICY
// =============================================================================

const (
	// DefaultRegularHours is the regular-hours baseline of a derived record.
	DefaultRegularHours = 8
)

// DefaultShiftEnd is the shift boundary (17:00) after which minutes count as overtime.
var DefaultShiftEnd = clock.At(17, 0)

// Policy configures derivation.
type Policy struct {
	ShiftEnd     int // minutes of day
	RegularHours decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		ShiftEnd:     DefaultShiftEnd,
		RegularHours: decimal.NewFromInt(DefaultRegularHours),
	}
}

// =============================================================================
// REFERENCES
// =============================================================================

// NewRef composes a human-readable reference from employee code, day and a counter value.
func NewRef(employeeID core.EmployeeID, day time.Time, n int64) string {
	return fmt.Sprintf("OT-%s-%s-%04d", strings.ToUpper(string(employeeID)), day.Format("20060102"), n)
}

// SynthesizeRef fills Ref for legacy rows that were stored without one.
func SynthesizeRef(r *Record) {
	if r.Ref != "" {
		return
	}
	suffix := strings.ReplaceAll(r.ID, "-", "")
	if len(suffix) > 4 {
		suffix = suffix[:4]
	}
	r.Ref = fmt.Sprintf("OT-%s-%s-%s", strings.ToUpper(string(r.EmployeeID)), r.Date.Format("20060102"), strings.ToUpper(suffix))
}
