/*
Package payroll derives monthly salary records from attendance and approved overtime.

PURPOSE:
  For a payroll period (year, month) the engine captures each employee's
  position, looks up pay in a PayTable, and writes one Record per
  (employee, year, month).

FORMULA:
  TotalSalary = Basic + OvertimePay + Allowances + Bonus + Commission
  NetSalary   = TotalSalary - Deductions - Tax - Insurance

  Totals are never supplied by callers. Every store write runs
  Record.Recalculate first.

STATUS TRANSITIONS:

	Pending    -> Processing | Paid | Failed | Cancelled
	Processing -> Pending | Paid | Failed | Cancelled
	Failed     -> Pending | Processing | Cancelled
	Paid, Cancelled: terminal

SEE ALSO:
  - engine.go: batch and manual creation
  - table.go: basic salary, overtime tiers, tax and insurance
*/
package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/farmops/core"
)

// Status is the payment status of a salary record.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusPaid       Status = "Paid"
	StatusFailed     Status = "Failed"
	StatusCancelled  Status = "Cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusPaid, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusPending, StatusPaid, StatusFailed, StatusCancelled},
	StatusFailed:     {StatusPending, StatusProcessing, StatusCancelled},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusPaid, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// CanTransition reports whether a record may move from s to next.
// Staying in a non-terminal status is allowed so payment details can be amended.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return !s.Terminal()
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Record is one employee's pay for one period.
type Record struct {
	ID           string
	EmployeeID   core.EmployeeID
	EmployeeName string
	Position     string
	Year         int
	Month        time.Month

	BasicSalary        decimal.Decimal
	OvertimePay        decimal.Decimal
	OvertimeHours      string // "H:MM"
	Allowances         decimal.Decimal
	Deductions         decimal.Decimal
	Bonus              decimal.Decimal
	Commission         decimal.Decimal
	TaxDeduction       decimal.Decimal
	InsuranceDeduction decimal.Decimal
	TotalSalary        decimal.Decimal
	NetSalary          decimal.Decimal

	Status        Status
	PaymentMethod string
	Remarks       string
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Recalculate derives TotalSalary and NetSalary from the components.
func (r *Record) Recalculate() {
	r.TotalSalary = r.BasicSalary.Add(r.OvertimePay).Add(r.Allowances).Add(r.Bonus).Add(r.Commission)
	r.NetSalary = r.TotalSalary.Sub(r.Deductions).Sub(r.TaxDeduction).Sub(r.InsuranceDeduction)
}

// Filter narrows ListPayroll. Zero values mean "any".
type Filter struct {
	EmployeeID core.EmployeeID
	Year       int
	Month      time.Month
	Status     Status
}

func (f Filter) Matches(r Record) bool {
	if f.EmployeeID != "" && r.EmployeeID != f.EmployeeID {
		return false
	}
	if f.Year != 0 && r.Year != f.Year {
		return false
	}
	if f.Month != 0 && r.Month != f.Month {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// Store persists salary records. Implementations call Recalculate on every write.
type Store interface {
	GetPayroll(ctx context.Context, id string) (Record, error)
	FindPayroll(ctx context.Context, employeeID core.EmployeeID, year int, month time.Month) (rec Record, ok bool, err error)

	// CreatePayroll returns *DuplicatePayrollPeriodError when the employee already has the period.
	CreatePayroll(ctx context.Context, rec *Record) error
	UpdatePayroll(ctx context.Context, rec *Record) error

	// ListPayroll returns matches ordered by period desc, then employee.
	ListPayroll(ctx context.Context, filter Filter) ([]Record, error)
}
