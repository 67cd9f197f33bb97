/*
machine.go - Attendance transitions

OPERATIONS:
  CheckIn       NoRecord -> CheckedIn
  CheckOut      CheckedIn -> CheckedOut, then overtime derivation
  Scan          one badge scan; branches on the current state
  ManualUpsert  administrative create-or-correct, bypasses the machine

ORDER OF EFFECTS ON CHECK-OUT:
  1. Conditional close (only if check-out is still empty).
  2. Overtime derivation. Best effort: its failure is reported in the
     result, the committed check-out stays.

CONCURRENCY:
  No locks are held here. The store's uniqueness constraint and the
  conditional close are the serialization points, so two concurrent
  check-ins for the same employee-day yield one record and one
  *DuplicateAttendanceError.
*/
package attendance

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/warp/farmops/clock"
	"github.com/warp/farmops/core"
	"github.com/warp/farmops/overtime"
)

// Deriver turns a committed check-out into an overtime record.
// Rederive handles corrections, including a cleared check-out.
type Deriver interface {
	Derive(ctx context.Context, employeeID core.EmployeeID, day time.Time, checkOut string) overtime.Outcome
	Rederive(ctx context.Context, employeeID core.EmployeeID, day time.Time, checkOut string) overtime.Outcome
}

// Service runs the attendance state machine.
type Service struct {
	Store     Store
	Directory core.EmployeeDirectory
	Counter   core.Counter
	Overtime  Deriver // optional
	Policy    Policy
	Logger    *slog.Logger
}

func NewService(store Store, directory core.EmployeeDirectory, counter core.Counter, deriver Deriver, policy Policy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Store:     store,
		Directory: directory,
		Counter:   counter,
		Overtime:  deriver,
		Policy:    policy,
		Logger:    logger,
	}
}

// Event is one check-in or check-out at a point in time.
type Event struct {
	EmployeeID  core.EmployeeID
	DisplayName string // used when the directory has no name on file
	At          time.Time
}

// =============================================================================
// CHECK-IN / CHECK-OUT
// =============================================================================

// CheckIn opens the day for an employee.
func (s *Service) CheckIn(ctx context.Context, ev Event) (Record, error) {
	emp, err := s.Directory.GetEmployee(ctx, ev.EmployeeID)
	if err != nil {
		return Record{}, err
	}

	day := clock.Day(ev.At)
	if _, ok, err := s.Store.FindAttendance(ctx, ev.EmployeeID, day); err != nil {
		return Record{}, err
	} else if ok {
		return Record{}, &DuplicateAttendanceError{EmployeeID: ev.EmployeeID, Date: day}
	}

	seq, err := s.Counter.Next(ctx, core.CounterAttendanceSeq)
	if err != nil {
		return Record{}, errors.Wrap(err, "allocate attendance sequence")
	}

	rec := Record{
		ID:           uuid.NewString(),
		Seq:          seq,
		EmployeeID:   ev.EmployeeID,
		EmployeeName: displayName(emp, ev.DisplayName),
		Date:         day,
		CheckIn:      clock.Display(ev.At),
		Status:       s.Policy.CheckInStatus(clock.MinutesOfTime(ev.At)),
		CreatedAt:    ev.At,
		UpdatedAt:    ev.At,
	}
	if err := s.Store.CreateAttendance(ctx, rec); err != nil {
		return Record{}, err
	}

	s.Logger.Info("checked in",
		"employee_id", rec.EmployeeID, "date", clock.FormatDate(day), "check_in", rec.CheckIn, "status", rec.Status)
	return rec, nil
}

// CheckOutResult carries the closed record and the overtime derivation that followed.
type CheckOutResult struct {
	Record   Record
	Overtime overtime.Outcome
}

// CheckOut closes the day and derives overtime from the check-out time.
func (s *Service) CheckOut(ctx context.Context, ev Event) (CheckOutResult, error) {
	if _, err := s.Directory.GetEmployee(ctx, ev.EmployeeID); err != nil {
		return CheckOutResult{}, err
	}

	day := clock.Day(ev.At)
	rec, ok, err := s.Store.FindAttendance(ctx, ev.EmployeeID, day)
	if err != nil {
		return CheckOutResult{}, err
	}
	if !ok {
		return CheckOutResult{}, &NotCheckedInError{EmployeeID: ev.EmployeeID, Date: day}
	}
	return s.close(ctx, rec, ev.At)
}

func (s *Service) close(ctx context.Context, rec Record, at time.Time) (CheckOutResult, error) {
	if rec.State() == StateCheckedOut {
		return CheckOutResult{}, &AlreadyCheckedOutError{EmployeeID: rec.EmployeeID, Date: rec.Date, CheckOut: rec.CheckOut}
	}

	status := rec.Status
	if s.Policy.PresentOnCheckOut {
		status = StatusPresent
	}

	closed, err := s.Store.CloseAttendance(ctx, rec.ID, clock.Display(at), status, at)
	if err != nil {
		return CheckOutResult{}, err
	}
	s.Logger.Info("checked out",
		"employee_id", closed.EmployeeID, "date", clock.FormatDate(closed.Date), "check_out", closed.CheckOut)

	res := CheckOutResult{Record: closed}
	if s.Overtime != nil {
		res.Overtime = s.Overtime.Derive(ctx, closed.EmployeeID, closed.Date, closed.CheckOut)
	}
	return res, nil
}

// =============================================================================
// SCAN
// =============================================================================

// Action is what a scan did.
type Action string

const (
	ActionCheckIn           Action = "checkin"
	ActionCheckOut          Action = "checkout"
	ActionAlreadyCheckedOut Action = "already_checked_out"
)

// ScanResult is the outcome of one scan.
type ScanResult struct {
	Action   Action
	Record   Record
	Overtime *overtime.Outcome // set on checkout
}

// Scan checks in an employee with no record today, checks out one that is
// checked in, and reports a closed day without changing it.
//
// The branch is chosen from the record seen before acting. A scan that saw
// no record and then loses the check-in race gets the DuplicateAttendanceError;
// it is never turned into a check-out.
func (s *Service) Scan(ctx context.Context, ev Event) (ScanResult, error) {
	if _, err := s.Directory.GetEmployee(ctx, ev.EmployeeID); err != nil {
		return ScanResult{}, err
	}

	day := clock.Day(ev.At)
	rec, ok, err := s.Store.FindAttendance(ctx, ev.EmployeeID, day)
	if err != nil {
		return ScanResult{}, err
	}
	if ok {
		return s.scanOut(ctx, rec, ev.At)
	}

	rec, err = s.CheckIn(ctx, ev)
	if err != nil {
		return ScanResult{}, err
	}
	return ScanResult{Action: ActionCheckIn, Record: rec}, nil
}

func (s *Service) scanOut(ctx context.Context, rec Record, at time.Time) (ScanResult, error) {
	if rec.State() == StateCheckedOut {
		return ScanResult{Action: ActionAlreadyCheckedOut, Record: rec}, nil
	}
	res, err := s.close(ctx, rec, at)
	if errors.Is(err, ErrAlreadyCheckedOut) {
		latest, getErr := s.Store.GetAttendance(ctx, rec.ID)
		if getErr != nil {
			return ScanResult{}, getErr
		}
		return ScanResult{Action: ActionAlreadyCheckedOut, Record: latest}, nil
	}
	if err != nil {
		return ScanResult{}, err
	}
	return ScanResult{Action: ActionCheckOut, Record: res.Record, Overtime: &res.Overtime}, nil
}

// =============================================================================
// MANUAL ENTRY
// =============================================================================

// ManualEntry is an administrative create-or-correct of one employee-day.
type ManualEntry struct {
	EmployeeID core.EmployeeID
	Date       time.Time
	CheckIn    string
	CheckOut   string
	Status     Status // derived from CheckIn when empty
}

// ManualResult reports what ManualUpsert wrote.
type ManualResult struct {
	Record   Record
	Created  bool
	Overtime *overtime.Outcome // set when the check-out was written or changed
	Warnings []string
}

// ManualUpsert writes an employee-day directly, creating it if absent.
// Unreadable times are dropped with a warning rather than rejected.
func (s *Service) ManualUpsert(ctx context.Context, in ManualEntry, now time.Time) (ManualResult, error) {
	if in.Status != "" && !in.Status.Valid() {
		return ManualResult{}, errors.Wrapf(ErrInvalidStatus, "%q", in.Status)
	}
	if in.Date.IsZero() {
		return ManualResult{}, core.Invalid("date is required")
	}
	emp, err := s.Directory.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return ManualResult{}, err
	}

	var res ManualResult
	checkIn := s.normalize(in.CheckIn, "check_in", &res)
	checkOut := s.normalize(in.CheckOut, "check_out", &res)
	status := in.Status
	if status == "" {
		status = s.Policy.ManualStatus(checkIn)
	}

	day := clock.Day(in.Date)
	existing, ok, err := s.Store.FindAttendance(ctx, in.EmployeeID, day)
	if err != nil {
		return ManualResult{}, err
	}

	if !ok {
		seq, err := s.Counter.Next(ctx, core.CounterAttendanceSeq)
		if err != nil {
			return ManualResult{}, errors.Wrap(err, "allocate attendance sequence")
		}
		rec := Record{
			ID:           uuid.NewString(),
			Seq:          seq,
			EmployeeID:   in.EmployeeID,
			EmployeeName: displayName(emp, ""),
			Date:         day,
			CheckIn:      checkIn,
			CheckOut:     checkOut,
			Status:       status,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		err = s.Store.CreateAttendance(ctx, rec)
		if err == nil {
			res.Record, res.Created = rec, true
			s.deriveManual(ctx, &res, "")
			return res, nil
		}
		if !errors.Is(err, ErrDuplicateAttendance) {
			return ManualResult{}, err
		}
		if existing, ok, err = s.Store.FindAttendance(ctx, in.EmployeeID, day); err != nil {
			return ManualResult{}, err
		} else if !ok {
			return ManualResult{}, core.Persistence("manual upsert", errors.New("record vanished after duplicate"))
		}
	}

	previousOut := existing.CheckOut
	existing.EmployeeName = displayName(emp, existing.EmployeeName)
	existing.CheckIn = checkIn
	existing.CheckOut = checkOut
	existing.Status = status
	existing.UpdatedAt = now
	if err := s.Store.UpdateAttendance(ctx, existing); err != nil {
		return ManualResult{}, err
	}
	res.Record = existing
	s.deriveManual(ctx, &res, previousOut)
	return res, nil
}

func (s *Service) normalize(value, field string, res *ManualResult) string {
	if value == "" {
		return ""
	}
	out, err := clock.Normalize(value)
	if err != nil {
		res.Warnings = append(res.Warnings, field+": "+err.Error())
		s.Logger.Warn("manual attendance time ignored", "field", field, "value", value, "error", err)
		return ""
	}
	return out
}

func (s *Service) deriveManual(ctx context.Context, res *ManualResult, previousOut string) {
	if s.Overtime == nil || res.Record.CheckOut == previousOut {
		return
	}
	out := s.Overtime.Rederive(ctx, res.Record.EmployeeID, res.Record.Date, res.Record.CheckOut)
	res.Overtime = &out
}

// =============================================================================
// QUERIES
// =============================================================================

func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.Store.GetAttendance(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Record, error) {
	return s.Store.ListAttendance(ctx, filter)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Store.DeleteAttendance(ctx, id)
}

// Summary counts attendance by status for one employee within a month.
type Summary struct {
	Present int
	Late    int
	Absent  int
	OnLeave int
}

// Attended is the number of days that count as worked.
func (s Summary) Attended() int { return s.Present + s.Late }

// MonthSummary tallies the records of an employee within (year, month).
func MonthSummary(recs []Record, employeeID core.EmployeeID, year int, month time.Month) Summary {
	var sum Summary
	for _, r := range recs {
		if r.EmployeeID != employeeID || !clock.InMonth(r.Date, year, month) {
			continue
		}
		switch r.Status {
		case StatusPresent:
			sum.Present++
		case StatusLate:
			sum.Late++
		case StatusAbsent:
			sum.Absent++
		case StatusOnLeave:
			sum.OnLeave++
		}
	}
	return sum
}

func displayName(emp core.Employee, fallback string) string {
	if emp.Name != "" {
		return emp.Name
	}
	return fallback
}
