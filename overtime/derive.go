/*
derive.go - Check-out driven overtime derivation

ALGORITHM:
  1. Parse the check-out display time into minutes of day.
  2. overtimeMinutes = max(0, checkout - ShiftEnd)
  3. Zero overtime: no record.
  4. Otherwise Overtime = "H:MM", TotalHours = RegularHours + minutes/60.
  5. Upsert by (employee, day). An existing record is overwritten and its
     status reset to Pending so a corrected check-out never keeps a stale
     approval.

BEST EFFORT:
  Derive never returns an error. It runs after the check-out has committed,
  and a failure here must not undo that. Failures land in Outcome.Err and are
  logged; the caller reports them as a separate response field.

CORRECTIONS:
  Rederive is the manual-correction entry point. When the corrected
  check-out is cleared or no longer past ShiftEnd, the stored record for
  that employee-day is deleted whatever its status.

EDGE CASES:
  - Check-out exactly at ShiftEnd: zero overtime, no record.
  - Malformed check-out string: zero overtime, Outcome.Err is a MalformedTimeError.
  - Two derivations racing on the same employee-day: the loser of the insert
    re-reads the winner and updates it.
*/
package overtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/warp/farmops/clock"
	"github.com/warp/farmops/core"
)

// Outcome is the result of one derivation attempt.
type Outcome struct {
	Minutes      int
	RegularHours decimal.Decimal
	TotalHours   decimal.Decimal
	Record       *Record // nil when no overtime was produced or the upsert failed
	Withdrawn    *Record // record deleted by a correction, if any
	Err          error
}

// Display returns the overtime amount as "H:MM".
func (o Outcome) Display() string { return clock.FormatHM(o.Minutes) }

// Derive computes overtime for a closed attendance day and upserts the record.
func (s *Service) Derive(ctx context.Context, employeeID core.EmployeeID, day time.Time, checkOut string) Outcome {
	out := Outcome{
		RegularHours: s.Policy.RegularHours,
		TotalHours:   s.Policy.RegularHours,
	}

	checkoutMinutes, err := clock.MinutesOfDay(checkOut)
	if err != nil {
		out.Err = err
		s.Logger.Warn("overtime derivation skipped: unreadable check-out",
			"employee_id", employeeID, "date", clock.FormatDate(day), "check_out", checkOut, "error", err)
		return out
	}

	minutes := checkoutMinutes - s.Policy.ShiftEnd
	if minutes <= 0 {
		return out
	}

	out.Minutes = minutes
	overtime := FromMinutes(minutes)
	out.TotalHours = s.Policy.RegularHours.Add(overtime.DecimalHours())

	rec, err := s.upsert(ctx, employeeID, day, overtime, checkOut)
	if err != nil {
		out.Err = err
		s.Logger.Warn("overtime derivation failed",
			"employee_id", employeeID, "date", clock.FormatDate(day), "check_out", checkOut, "error", err)
		return out
	}
	out.Record = &rec
	out.RegularHours = rec.RegularHours
	out.TotalHours = rec.TotalHours
	return out
}

// Rederive recomputes overtime after a check-out correction. An empty
// checkOut means the check-out was cleared.
func (s *Service) Rederive(ctx context.Context, employeeID core.EmployeeID, day time.Time, checkOut string) Outcome {
	var out Outcome
	if checkOut != "" {
		out = s.Derive(ctx, employeeID, day, checkOut)
		if out.Err != nil || out.Minutes > 0 {
			return out
		}
	} else {
		out = Outcome{RegularHours: s.Policy.RegularHours, TotalHours: s.Policy.RegularHours}
	}

	existing, ok, err := s.Store.FindOvertime(ctx, employeeID, day)
	if err != nil {
		out.Err = err
		return out
	}
	if !ok {
		return out
	}
	if err := s.Store.DeleteOvertime(ctx, existing.ID); err != nil && !core.IsNotFound(err) {
		out.Err = err
		s.Logger.Warn("stale overtime not removed",
			"employee_id", employeeID, "date", clock.FormatDate(day), "ref", existing.Ref, "error", err)
		return out
	}
	out.Withdrawn = &existing
	s.Logger.Info("overtime withdrawn after correction",
		"employee_id", employeeID, "date", clock.FormatDate(day), "ref", existing.Ref, "status", existing.Status)
	return out
}

func (s *Service) upsert(ctx context.Context, employeeID core.EmployeeID, day time.Time, overtime Duration, checkOut string) (Record, error) {
	description := fmt.Sprintf("Overtime from check-out at %s", checkOut)

	existing, ok, err := s.Store.FindOvertime(ctx, employeeID, day)
	if err != nil {
		return Record{}, err
	}
	if ok {
		return s.refresh(ctx, existing, overtime, description)
	}

	n, err := s.Counter.Next(ctx, core.CounterOvertimeRef)
	if err != nil {
		return Record{}, errors.Wrap(err, "allocate overtime reference")
	}

	now := s.Now()
	rec := Record{
		ID:           uuid.NewString(),
		Ref:          NewRef(employeeID, day, n),
		EmployeeID:   employeeID,
		Date:         clock.Day(day),
		RegularHours: s.Policy.RegularHours,
		Overtime:     overtime,
		Status:       StatusPending,
		Description:  description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	rec.Recalculate()

	err = s.Store.CreateOvertime(ctx, rec)
	if errors.Is(err, ErrDuplicateOvertime) {
		// Lost the insert race for this employee-day; overwrite the winner.
		existing, ok, findErr := s.Store.FindOvertime(ctx, employeeID, day)
		if findErr != nil {
			return Record{}, findErr
		}
		if ok {
			return s.refresh(ctx, existing, overtime, description)
		}
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Service) refresh(ctx context.Context, rec Record, overtime Duration, description string) (Record, error) {
	if !rec.RegularHours.IsPositive() {
		rec.RegularHours = s.Policy.RegularHours
	}
	rec.Overtime = overtime
	rec.Description = description
	rec.Status = StatusPending
	rec.UpdatedAt = s.Now()
	rec.Recalculate()
	if err := s.Store.UpdateOvertime(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}
