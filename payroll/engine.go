/*
engine.go - Payroll aggregation

BATCH (Process):
  For each target employee (explicit list, or the whole directory):
    1. Existing record for the period -> skipped "already processed".
       With Force, non-Paid records are recomputed in place (id kept);
       Paid records are skipped "already paid".
    2. Basic salary and overtime rate from the PayTable by position.
    3. Approved overtime in the period, summed in decimal hours.
       OvertimePay = hours * rate, rounded.
    4. absentDays = max(0, daysInMonth - presentOrLateDays)
       Deductions = absentDays * basic / daysInMonth, rounded.
    5. Tax tiered on basic, insurance flat on basic.
    6. Persist as Pending. Totals via Recalculate.

  One employee's failure never aborts the batch; it lands in Outcomes.

CONCURRENCY:
  Workers <= 1 processes employees in order. Workers > 1 fans out with a
  bounded errgroup. Records are keyed per (employee, period) so workers never
  contend on the same row.

MANUAL (CreateManual):
  Same formula, every component overridable. A duplicate period is an error,
  never an overwrite.
*/
package payroll

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/warp/farmops/attendance"
	"github.com/warp/farmops/clock"
	"github.com/warp/farmops/core"
)

// AttendanceReader is the attendance data the engine reads.
type AttendanceReader interface {
	ListAttendance(ctx context.Context, filter attendance.Filter) ([]attendance.Record, error)
}

// OvertimeReader is the overtime data the engine reads.
// *overtime.Service satisfies it.
type OvertimeReader interface {
	ApprovedHours(ctx context.Context, employeeID core.EmployeeID, year int, month time.Month) (decimal.Decimal, error)
}

// Engine computes and stores salary records.
type Engine struct {
	Store      Store
	Directory  core.EmployeeDirectory
	Attendance AttendanceReader
	Overtime   OvertimeReader
	Table      PayTable
	Workers    int
	Logger     *slog.Logger
	Now        func() time.Time
}

func NewEngine(store Store, directory core.EmployeeDirectory, att AttendanceReader, ot OvertimeReader, table PayTable, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Store:      store,
		Directory:  directory,
		Attendance: att,
		Overtime:   ot,
		Table:      table,
		Workers:    1,
		Logger:     logger,
		Now:        time.Now,
	}
}

// =============================================================================
// BATCH
// =============================================================================

// Request selects the period and employees of a batch run.
type Request struct {
	Year        int
	Month       time.Month
	EmployeeIDs []core.EmployeeID // empty means every employee in the directory
	Force       bool
}

// OutcomeKind classifies the result for one employee.
type OutcomeKind string

const (
	OutcomeProcessed OutcomeKind = "processed"
	OutcomeSkipped   OutcomeKind = "skipped"
	OutcomeFailed    OutcomeKind = "failed"
)

// Outcome is the per-employee result of a batch run.
type Outcome struct {
	EmployeeID core.EmployeeID
	Kind       OutcomeKind
	Reason     string
	Record     *Record
}

// Result aggregates a batch run.
type Result struct {
	ProcessedCount int
	SkippedCount   int
	FailedCount    int
	Records        []Record
	Outcomes       []Outcome
}

// Process runs payroll for one period.
func (e *Engine) Process(ctx context.Context, req Request) (Result, error) {
	if !clock.ValidPeriod(req.Year, int(req.Month)) {
		return Result{}, core.Invalid("invalid payroll period %d-%02d", req.Year, int(req.Month))
	}

	targets := req.EmployeeIDs
	if len(targets) == 0 {
		emps, err := e.Directory.ListEmployees(ctx)
		if err != nil {
			return Result{}, errors.Wrap(err, "list employees")
		}
		for _, emp := range emps {
			targets = append(targets, emp.ID)
		}
	}

	outcomes := make([]Outcome, len(targets))
	if e.Workers <= 1 {
		for i, id := range targets {
			outcomes[i] = e.processOne(ctx, req, id)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.Workers)
		for i, id := range targets {
			i, id := i, id
			g.Go(func() error {
				outcomes[i] = e.processOne(gctx, req, id)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Result{}, err
		}
	}

	var res Result
	res.Outcomes = outcomes
	for _, o := range outcomes {
		switch o.Kind {
		case OutcomeProcessed:
			res.ProcessedCount++
			res.Records = append(res.Records, *o.Record)
		case OutcomeSkipped:
			res.SkippedCount++
		case OutcomeFailed:
			res.FailedCount++
			e.Logger.Warn("payroll failed for employee",
				"employee_id", o.EmployeeID, "year", req.Year, "month", int(req.Month), "reason", o.Reason)
		}
	}

	e.Logger.Info("payroll processed",
		"year", req.Year, "month", int(req.Month),
		"processed", res.ProcessedCount, "skipped", res.SkippedCount, "failed", res.FailedCount)
	return res, nil
}

func (e *Engine) processOne(ctx context.Context, req Request, id core.EmployeeID) Outcome {
	fail := func(err error) Outcome {
		return Outcome{EmployeeID: id, Kind: OutcomeFailed, Reason: reason(err)}
	}

	emp, err := e.Directory.GetEmployee(ctx, id)
	if err != nil {
		return fail(err)
	}

	existing, exists, err := e.Store.FindPayroll(ctx, id, req.Year, req.Month)
	if err != nil {
		return fail(err)
	}
	if exists && !req.Force {
		return Outcome{EmployeeID: id, Kind: OutcomeSkipped, Reason: ReasonAlreadyProcessed}
	}
	if exists && existing.Status == StatusPaid {
		return Outcome{EmployeeID: id, Kind: OutcomeSkipped, Reason: ReasonAlreadyPaid}
	}

	b, err := e.breakdown(ctx, emp, req.Year, req.Month)
	if err != nil {
		return fail(err)
	}

	now := e.Now()
	rec := b.record(emp, req.Year, req.Month)
	rec.Status = StatusPending
	rec.UpdatedAt = now

	if exists {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.PaymentMethod = existing.PaymentMethod
		rec.Remarks = existing.Remarks
		err = e.Store.UpdatePayroll(ctx, &rec)
	} else {
		rec.ID = uuid.NewString()
		rec.CreatedAt = now
		err = e.Store.CreatePayroll(ctx, &rec)
	}
	if err != nil {
		return fail(err)
	}
	return Outcome{EmployeeID: id, Kind: OutcomeProcessed, Record: &rec}
}

// =============================================================================
// COMPUTATION
// =============================================================================

// Breakdown is the computed pay components of one employee-period.
type Breakdown struct {
	Basic         decimal.Decimal
	OvertimeHours decimal.Decimal
	OvertimeRate  decimal.Decimal
	OvertimePay   decimal.Decimal
	DaysInMonth   int
	AttendedDays  int
	AbsentDays    int
	Deductions    decimal.Decimal
	Tax           decimal.Decimal
	Insurance     decimal.Decimal
}

func (b Breakdown) record(emp core.Employee, year int, month time.Month) Record {
	rec := Record{
		EmployeeID:         emp.ID,
		EmployeeName:       emp.Name,
		Position:           emp.Position,
		Year:               year,
		Month:              month,
		BasicSalary:        b.Basic,
		OvertimePay:        b.OvertimePay,
		OvertimeHours:      HoursDisplay(b.OvertimeHours),
		Allowances:         decimal.Zero,
		Deductions:         b.Deductions,
		Bonus:              decimal.Zero,
		Commission:         decimal.Zero,
		TaxDeduction:       b.Tax,
		InsuranceDeduction: b.Insurance,
	}
	rec.Recalculate()
	return rec
}

// Compute applies the pay table to a basic salary, overtime hours and attendance.
func (t PayTable) Compute(basic, overtimeHours, rate decimal.Decimal, daysInMonth, attendedDays int) Breakdown {
	absent := daysInMonth - attendedDays
	if absent < 0 {
		absent = 0
	}
	deductions := decimal.Zero
	if daysInMonth > 0 {
		deductions = basic.Mul(decimal.NewFromInt(int64(absent))).
			Div(decimal.NewFromInt(int64(daysInMonth))).
			Round(0)
	}
	return Breakdown{
		Basic:         basic,
		OvertimeHours: overtimeHours,
		OvertimeRate:  rate,
		OvertimePay:   overtimeHours.Mul(rate).Round(0),
		DaysInMonth:   daysInMonth,
		AttendedDays:  attendedDays,
		AbsentDays:    absent,
		Deductions:    deductions,
		Tax:           t.Tax(basic),
		Insurance:     t.Insurance(basic),
	}
}

// breakdown re-reads attendance and approved overtime and computes the period's pay.
func (e *Engine) breakdown(ctx context.Context, emp core.Employee, year int, month time.Month) (Breakdown, error) {
	recs, err := e.Attendance.ListAttendance(ctx, attendance.Filter{EmployeeID: emp.ID})
	if err != nil {
		return Breakdown{}, errors.Wrap(err, "read attendance")
	}
	summary := attendance.MonthSummary(recs, emp.ID, year, month)

	hours, err := e.Overtime.ApprovedHours(ctx, emp.ID, year, month)
	if err != nil {
		return Breakdown{}, errors.Wrap(err, "read overtime")
	}

	return e.Table.Compute(
		e.Table.BasicSalary(emp.Position),
		hours,
		e.Table.OvertimeRate(emp.Position),
		clock.DaysInMonth(year, month),
		summary.Attended(),
	), nil
}

// HoursDisplay renders decimal hours as "H:MM".
func HoursDisplay(hours decimal.Decimal) string {
	return clock.FormatHM(int(hours.Mul(decimal.NewFromInt(clock.MinutesPerHour)).Round(0).IntPart()))
}

// =============================================================================
// MANUAL CREATION
// =============================================================================

// ManualInput creates one salary record. Nil components are computed as in a batch run.
type ManualInput struct {
	EmployeeID    core.EmployeeID
	Year          int
	Month         time.Month
	BasicSalary   *decimal.Decimal
	OvertimePay   *decimal.Decimal
	OvertimeHours string
	Allowances    *decimal.Decimal
	Deductions    *decimal.Decimal
	Bonus         *decimal.Decimal
	Commission    *decimal.Decimal
	Tax           *decimal.Decimal
	Insurance     *decimal.Decimal
	Status        Status
	PaymentMethod string
	Remarks       string
}

// CreateManual creates a single record, rejecting a duplicate period.
func (e *Engine) CreateManual(ctx context.Context, in ManualInput) (Record, error) {
	if !clock.ValidPeriod(in.Year, int(in.Month)) {
		return Record{}, core.Invalid("invalid payroll period %d-%02d", in.Year, int(in.Month))
	}
	if in.Status != "" && !in.Status.Valid() {
		return Record{}, errors.Wrapf(ErrInvalidStatus, "%q", in.Status)
	}
	if in.OvertimeHours != "" {
		if _, err := clock.ParseHM(in.OvertimeHours); err != nil {
			return Record{}, err
		}
	}
	for _, amount := range []*decimal.Decimal{in.BasicSalary, in.OvertimePay, in.Allowances, in.Deductions, in.Bonus, in.Commission, in.Tax, in.Insurance} {
		if amount != nil && amount.IsNegative() {
			return Record{}, core.Invalid("pay components cannot be negative")
		}
	}

	emp, err := e.Directory.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return Record{}, err
	}
	if _, exists, err := e.Store.FindPayroll(ctx, in.EmployeeID, in.Year, in.Month); err != nil {
		return Record{}, err
	} else if exists {
		return Record{}, &DuplicatePayrollPeriodError{EmployeeID: in.EmployeeID, Year: in.Year, Month: in.Month}
	}

	b, err := e.breakdown(ctx, emp, in.Year, in.Month)
	if err != nil {
		return Record{}, err
	}
	if in.BasicSalary != nil {
		// Basic-dependent components follow the override unless overridden themselves.
		b = e.Table.Compute(*in.BasicSalary, b.OvertimeHours, b.OvertimeRate, b.DaysInMonth, b.AttendedDays)
	}

	rec := b.record(emp, in.Year, in.Month)
	override(&rec.OvertimePay, in.OvertimePay)
	override(&rec.Allowances, in.Allowances)
	override(&rec.Deductions, in.Deductions)
	override(&rec.Bonus, in.Bonus)
	override(&rec.Commission, in.Commission)
	override(&rec.TaxDeduction, in.Tax)
	override(&rec.InsuranceDeduction, in.Insurance)
	if in.OvertimeHours != "" {
		rec.OvertimeHours = in.OvertimeHours
	}

	now := e.Now()
	rec.ID = uuid.NewString()
	rec.Status = StatusPending
	if in.Status != "" {
		rec.Status = in.Status
	}
	if rec.Status == StatusPaid {
		rec.PaidAt = &now
	}
	rec.PaymentMethod = in.PaymentMethod
	rec.Remarks = in.Remarks
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.Recalculate()

	if err := e.Store.CreatePayroll(ctx, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func override(dst *decimal.Decimal, v *decimal.Decimal) {
	if v != nil {
		*dst = *v
	}
}

// =============================================================================
// STATUS AND QUERIES
// =============================================================================

// StatusUpdate changes the payment status of a record.
type StatusUpdate struct {
	Status        Status
	PaymentMethod string
	Remarks       string
}

// UpdateStatus applies a status transition. Paid stamps PaidAt.
func (e *Engine) UpdateStatus(ctx context.Context, id string, upd StatusUpdate) (Record, error) {
	if !upd.Status.Valid() {
		return Record{}, errors.Wrapf(ErrInvalidStatus, "%q", upd.Status)
	}
	rec, err := e.Store.GetPayroll(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if !rec.Status.CanTransition(upd.Status) {
		return Record{}, errors.Wrapf(ErrInvalidTransition, "%s -> %s", rec.Status, upd.Status)
	}

	now := e.Now()
	rec.Status = upd.Status
	if upd.Status == StatusPaid {
		rec.PaidAt = &now
	}
	if upd.PaymentMethod != "" {
		rec.PaymentMethod = upd.PaymentMethod
	}
	if upd.Remarks != "" {
		rec.Remarks = upd.Remarks
	}
	rec.UpdatedAt = now
	if err := e.Store.UpdatePayroll(ctx, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (e *Engine) Get(ctx context.Context, id string) (Record, error) {
	return e.Store.GetPayroll(ctx, id)
}

func (e *Engine) List(ctx context.Context, filter Filter) ([]Record, error) {
	return e.Store.ListPayroll(ctx, filter)
}
