package attendance_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/farmops/attendance"
	"github.com/warp/farmops/clock"
	"github.com/warp/farmops/core"
	"github.com/warp/farmops/overtime"
	"github.com/warp/farmops/payroll"
	"github.com/warp/farmops/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var ctx = context.Background()

type fixture struct {
	store    *memory.Store
	overtime *overtime.Service
	svc      *attendance.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	for _, emp := range []core.Employee{
		{ID: "EMP001", Name: "Ana Ruiz", Position: "Worker"},
		{ID: "EMP002", Name: "Ben Okafor", Position: "Manager"},
	} {
		require.NoError(t, store.PutEmployee(ctx, emp))
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ot := overtime.NewService(store, store, overtime.DefaultPolicy(), logger)
	svc := attendance.NewService(store, store, store, ot, attendance.DefaultPolicy(), logger)
	return fixture{store: store, overtime: ot, svc: svc}
}

func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.June, day, hour, minute, 0, 0, time.UTC)
}

func event(id core.EmployeeID, ts time.Time) attendance.Event {
	return attendance.Event{EmployeeID: id, At: ts}
}

// =============================================================================
// POLICY
// =============================================================================

func TestPolicy_CheckInStatus(t *testing.T) {
	p := attendance.DefaultPolicy()
	assert.Equal(t, attendance.StatusPresent, p.CheckInStatus(clock.At(8, 45)))
	assert.Equal(t, attendance.StatusPresent, p.CheckInStatus(clock.At(9, 30)))
	assert.Equal(t, attendance.StatusLate, p.CheckInStatus(clock.At(9, 31)))
}

func TestPolicy_ManualStatus(t *testing.T) {
	p := attendance.DefaultPolicy()
	cases := map[string]attendance.Status{
		"07:59 AM": attendance.StatusPresent,
		"08:00 AM": attendance.StatusLate,
		"10:00 AM": attendance.StatusLate,
		"10:01 AM": attendance.StatusAbsent,
		"":         attendance.StatusAbsent,
		"garbage":  attendance.StatusAbsent,
	}
	for in, want := range cases {
		assert.Equal(t, want, p.ManualStatus(in), in)
	}
}

// =============================================================================
// STATE MACHINE
// =============================================================================

func TestCheckIn_PresentAndLate(t *testing.T) {
	// GIVEN: Two employees scanning at 08:45 and 09:45
	// WHEN: Both check in
	// THEN: Present and Late, check-out unset
	f := newFixture(t)

	a, err := f.svc.CheckIn(ctx, event("EMP001", at(10, 8, 45)))
	require.NoError(t, err)
	assert.Equal(t, "08:45 AM", a.CheckIn)
	assert.Equal(t, attendance.StatusPresent, a.Status)
	assert.Empty(t, a.CheckOut)
	assert.Equal(t, attendance.StateCheckedIn, a.State())
	assert.Equal(t, "Ana Ruiz", a.EmployeeName)

	b, err := f.svc.CheckIn(ctx, event("EMP002", at(10, 9, 45)))
	require.NoError(t, err)
	assert.Equal(t, "09:45 AM", b.CheckIn)
	assert.Equal(t, attendance.StatusLate, b.Status)
	assert.Greater(t, b.Seq, a.Seq)
}

func TestCheckIn_SecondAttemptRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CheckIn(ctx, event("EMP001", at(10, 8, 0)))
	require.NoError(t, err)

	_, err = f.svc.CheckIn(ctx, event("EMP001", at(10, 12, 0)))
	var dup *attendance.DuplicateAttendanceError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, core.EmployeeID("EMP001"), dup.EmployeeID)

	recs, err := f.svc.List(ctx, attendance.Filter{EmployeeID: "EMP001"})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestCheckIn_ConcurrentRace_OneRecord(t *testing.T) {
	// GIVEN: Many simultaneous check-ins for the same employee-day
	// WHEN: They race
	// THEN: Exactly one succeeds, the rest get DuplicateAttendanceError
	f := newFixture(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CheckIn(ctx, event("EMP001", at(10, 8, i)))
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, attendance.ErrDuplicateAttendance), err.Error())
	}
	assert.Equal(t, 1, ok)
}

func TestCheckIn_UnknownEmployee(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CheckIn(ctx, event("GHOST", at(10, 8, 0)))
	var nf *core.EmployeeNotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestCheckOut_DerivesOvertime(t *testing.T) {
	// GIVEN: EMP001 checked in
	// WHEN: Checks out at 07:30 PM
	// THEN: Record closed, overtime 2:30 with 10.5 total hours
	f := newFixture(t)
	_, err := f.svc.CheckIn(ctx, event("EMP001", at(10, 8, 45)))
	require.NoError(t, err)

	res, err := f.svc.CheckOut(ctx, event("EMP001", at(10, 19, 30)))
	require.NoError(t, err)
	assert.Equal(t, "07:30 PM", res.Record.CheckOut)
	assert.Equal(t, attendance.StateCheckedOut, res.Record.State())
	assert.Equal(t, attendance.StatusPresent, res.Record.Status)

	require.NoError(t, res.Overtime.Err)
	require.NotNil(t, res.Overtime.Record)
	assert.Equal(t, "2:30", res.Overtime.Display())
	assert.True(t, res.Overtime.TotalHours.Equal(decimal.RequireFromString("10.5")))
}

func TestCheckOut_KeepsLateStatusByDefault(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CheckIn(ctx, event("EMP002", at(10, 9, 45)))
	require.NoError(t, err)

	res, err := f.svc.CheckOut(ctx, event("EMP002", at(10, 17, 0)))
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusLate, res.Record.Status)
	assert.Nil(t, res.Overtime.Record)
}

func TestCheckOut_PresentOnCheckOutPolicy(t *testing.T) {
	f := newFixture(t)
	f.svc.Policy.PresentOnCheckOut = true
	_, err := f.svc.CheckIn(ctx, event("EMP002", at(10, 9, 45)))
	require.NoError(t, err)

	res, err := f.svc.CheckOut(ctx, event("EMP002", at(10, 16, 0)))
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, res.Record.Status)
}

func TestCheckOut_Preconditions(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CheckOut(ctx, event("EMP001", at(10, 17, 0)))
	assert.True(t, errors.Is(err, attendance.ErrNotCheckedIn))

	_, err = f.svc.CheckIn(ctx, event("EMP001", at(10, 8, 0)))
	require.NoError(t, err)
	_, err = f.svc.CheckOut(ctx, event("EMP001", at(10, 17, 0)))
	require.NoError(t, err)

	_, err = f.svc.CheckOut(ctx, event("EMP001", at(10, 18, 0)))
	var closed *attendance.AlreadyCheckedOutError
	require.True(t, errors.As(err, &closed))
	assert.Equal(t, "05:00 PM", closed.CheckOut)
}

// failingDeriver simulates an overtime store outage.
type failingDeriver struct{}

func (failingDeriver) Derive(context.Context, core.EmployeeID, time.Time, string) overtime.Outcome {
	return overtime.Outcome{Err: core.Persistence("create overtime", errors.New("disk full"))}
}

func (d failingDeriver) Rederive(ctx context.Context, id core.EmployeeID, day time.Time, checkOut string) overtime.Outcome {
	return d.Derive(ctx, id, day, checkOut)
}

func TestCheckOut_OvertimeFailureDoesNotUndoCheckout(t *testing.T) {
	f := newFixture(t)
	f.svc.Overtime = failingDeriver{}
	_, err := f.svc.CheckIn(ctx, event("EMP001", at(10, 8, 0)))
	require.NoError(t, err)

	res, err := f.svc.CheckOut(ctx, event("EMP001", at(10, 20, 0)))
	require.NoError(t, err)
	assert.True(t, errors.Is(res.Overtime.Err, core.ErrPersistence))

	stored, ok, err := f.store.FindAttendance(ctx, "EMP001", at(10, 0, 0))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "08:00 PM", stored.CheckOut)
}

// =============================================================================
// SCAN
// =============================================================================

func TestScan_WalksTheStates(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Scan(ctx, event("EMP001", at(11, 8, 30)))
	require.NoError(t, err)
	assert.Equal(t, attendance.ActionCheckIn, first.Action)
	assert.Nil(t, first.Overtime)

	second, err := f.svc.Scan(ctx, event("EMP001", at(11, 18, 0)))
	require.NoError(t, err)
	assert.Equal(t, attendance.ActionCheckOut, second.Action)
	require.NotNil(t, second.Overtime)
	assert.Equal(t, "1:00", second.Overtime.Display())

	third, err := f.svc.Scan(ctx, event("EMP001", at(11, 19, 0)))
	require.NoError(t, err)
	assert.Equal(t, attendance.ActionAlreadyCheckedOut, third.Action)
	assert.Equal(t, "06:00 PM", third.Record.CheckOut)
}

// staleReadStore misses the employee-day on its first lookup, as a scan does
// when another scan commits the check-in right after it looked.
type staleReadStore struct {
	*memory.Store
	misses int
}

func (s *staleReadStore) FindAttendance(ctx context.Context, id core.EmployeeID, day time.Time) (attendance.Record, bool, error) {
	if s.misses > 0 {
		s.misses--
		return attendance.Record{}, false, nil
	}
	return s.Store.FindAttendance(ctx, id, day)
}

func TestScan_LosingCheckInRaceIsRejected(t *testing.T) {
	f := newFixture(t)

	// GIVEN: One scan checked EMP001 in at 08:00
	first, err := f.svc.Scan(ctx, event("EMP001", at(11, 8, 0)))
	require.NoError(t, err)
	require.Equal(t, attendance.ActionCheckIn, first.Action)

	// WHEN: A second scan that saw no record tries to check in at the same instant
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stale := &staleReadStore{Store: f.store, misses: 1}
	other := attendance.NewService(stale, f.store, f.store, f.overtime, attendance.DefaultPolicy(), logger)
	_, err = other.Scan(ctx, event("EMP001", at(11, 8, 0)))

	// THEN: It gets DuplicateAttendanceError and the day stays open
	var dup *attendance.DuplicateAttendanceError
	require.True(t, errors.As(err, &dup), "got %v", err)

	stored, ok, err := f.store.FindAttendance(ctx, "EMP001", at(11, 0, 0))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, stored.CheckOut)

	// AND: The evening scan still closes the day and derives overtime
	evening, err := f.svc.Scan(ctx, event("EMP001", at(11, 19, 30)))
	require.NoError(t, err)
	assert.Equal(t, attendance.ActionCheckOut, evening.Action)
	require.NotNil(t, evening.Overtime)
	assert.Equal(t, "2:30", evening.Overtime.Display())
}

func TestScan_UnknownEmployeeWithOpenDay(t *testing.T) {
	f := newFixture(t)

	// GIVEN: An open day for someone no longer in the directory
	require.NoError(t, f.store.CreateAttendance(ctx, attendance.Record{
		ID: "gone-1", EmployeeID: "GONE", Date: at(11, 0, 0),
		CheckIn: "08:00 AM", Status: attendance.StatusPresent,
	}))

	// WHEN: Their badge is scanned
	_, err := f.svc.Scan(ctx, event("GONE", at(11, 18, 0)))

	// THEN: The scan is refused and the day is not closed
	var nf *core.EmployeeNotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	stored, err := f.store.GetAttendance(ctx, "gone-1")
	require.NoError(t, err)
	assert.Empty(t, stored.CheckOut)
}

// =============================================================================
// MANUAL ENTRY
// =============================================================================

func TestManualUpsert_CreatesThenCorrects(t *testing.T) {
	f := newFixture(t)
	day := clock.NewDay(2025, time.June, 12)

	created, err := f.svc.ManualUpsert(ctx, attendance.ManualEntry{
		EmployeeID: "EMP001",
		Date:       day,
		CheckIn:    "9:15 am",
	}, at(12, 21, 0))
	require.NoError(t, err)
	assert.True(t, created.Created)
	assert.Equal(t, "09:15 AM", created.Record.CheckIn)
	assert.Equal(t, attendance.StatusLate, created.Record.Status)
	assert.Nil(t, created.Overtime)

	corrected, err := f.svc.ManualUpsert(ctx, attendance.ManualEntry{
		EmployeeID: "EMP001",
		Date:       day,
		CheckIn:    "07:50 AM",
		CheckOut:   "18:30",
	}, at(12, 21, 5))
	require.NoError(t, err)
	assert.False(t, corrected.Created)
	assert.Equal(t, created.Record.ID, corrected.Record.ID)
	assert.Equal(t, attendance.StatusPresent, corrected.Record.Status)
	assert.Equal(t, "06:30 PM", corrected.Record.CheckOut)
	require.NotNil(t, corrected.Overtime)
	assert.Equal(t, "1:30", corrected.Overtime.Display())

	recs, err := f.svc.List(ctx, attendance.Filter{EmployeeID: "EMP001", Date: day})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestManualUpsert_CorrectionWithdrawsApprovedOvertime(t *testing.T) {
	f := newFixture(t)
	day := clock.NewDay(2025, time.June, 12)
	now := at(12, 21, 0)

	// GIVEN: A manual day ending 07:30 PM whose 2:30 overtime was approved
	first, err := f.svc.ManualUpsert(ctx, attendance.ManualEntry{
		EmployeeID: "EMP001", Date: day, CheckIn: "08:00 AM", CheckOut: "07:30 PM",
	}, now)
	require.NoError(t, err)
	require.NotNil(t, first.Overtime)
	require.NotNil(t, first.Overtime.Record)
	_, err = f.overtime.SetStatus(ctx, first.Overtime.Record.ID, overtime.StatusApproved)
	require.NoError(t, err)

	// WHEN: The check-out is corrected to 05:00 PM
	corrected, err := f.svc.ManualUpsert(ctx, attendance.ManualEntry{
		EmployeeID: "EMP001", Date: day, CheckIn: "08:00 AM", CheckOut: "05:00 PM",
	}, now)
	require.NoError(t, err)

	// THEN: The approved record is withdrawn
	require.NotNil(t, corrected.Overtime)
	require.NoError(t, corrected.Overtime.Err)
	assert.Equal(t, 0, corrected.Overtime.Minutes)
	require.NotNil(t, corrected.Overtime.Withdrawn)
	assert.Equal(t, first.Overtime.Record.Ref, corrected.Overtime.Withdrawn.Ref)
	assert.Equal(t, overtime.StatusApproved, corrected.Overtime.Withdrawn.Status)

	_, ok, err := f.store.FindOvertime(ctx, "EMP001", day)
	require.NoError(t, err)
	assert.False(t, ok)

	// AND: Payroll for June pays no overtime for it
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := payroll.NewEngine(f.store, f.store, f.store, f.overtime, payroll.DefaultPayTable(), logger)
	res, err := engine.Process(ctx, payroll.Request{Year: 2025, Month: time.June, EmployeeIDs: []core.EmployeeID{"EMP001"}})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.True(t, res.Records[0].OvertimePay.IsZero())
	assert.Equal(t, "0:00", res.Records[0].OvertimeHours)
}

func TestManualUpsert_ClearedCheckOutWithdrawsOvertime(t *testing.T) {
	f := newFixture(t)
	day := clock.NewDay(2025, time.June, 13)
	now := at(13, 21, 0)

	// GIVEN: A manual day with overtime
	_, err := f.svc.ManualUpsert(ctx, attendance.ManualEntry{
		EmployeeID: "EMP001", Date: day, CheckIn: "08:00 AM", CheckOut: "08:00 PM",
	}, now)
	require.NoError(t, err)

	// WHEN: The check-out is cleared
	cleared, err := f.svc.ManualUpsert(ctx, attendance.ManualEntry{
		EmployeeID: "EMP001", Date: day, CheckIn: "08:00 AM",
	}, now)
	require.NoError(t, err)

	// THEN: The overtime record is gone
	assert.Empty(t, cleared.Record.CheckOut)
	require.NotNil(t, cleared.Overtime)
	require.NotNil(t, cleared.Overtime.Withdrawn)
	assert.Equal(t, "3:00", cleared.Overtime.Withdrawn.Overtime.Display())

	_, ok, err := f.store.FindOvertime(ctx, "EMP001", day)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManualUpsert_ExplicitStatusAndMalformedTime(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.ManualUpsert(ctx, attendance.ManualEntry{
		EmployeeID: "EMP002",
		Date:       clock.NewDay(2025, time.June, 13),
		CheckIn:    "half past nine",
		Status:     attendance.StatusOnLeave,
	}, at(13, 9, 0))
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusOnLeave, res.Record.Status)
	assert.Empty(t, res.Record.CheckIn)
	assert.Len(t, res.Warnings, 1)

	_, err = f.svc.ManualUpsert(ctx, attendance.ManualEntry{
		EmployeeID: "EMP002",
		Date:       clock.NewDay(2025, time.June, 14),
		Status:     "Sleeping",
	}, at(14, 9, 0))
	assert.True(t, errors.Is(err, attendance.ErrInvalidStatus))
}

// =============================================================================
// QUERIES
// =============================================================================

func TestList_NewestFirstAndSearch(t *testing.T) {
	f := newFixture(t)
	for d := 10; d <= 12; d++ {
		_, err := f.svc.CheckIn(ctx, event("EMP001", at(d, 8, 0)))
		require.NoError(t, err)
	}
	_, err := f.svc.CheckIn(ctx, event("EMP002", at(12, 8, 5)))
	require.NoError(t, err)

	all, err := f.svc.List(ctx, attendance.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, core.EmployeeID("EMP002"), all[0].EmployeeID)
	assert.Equal(t, 10, all[3].Date.Day())

	found, err := f.svc.List(ctx, attendance.Filter{Search: "okafor"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, core.EmployeeID("EMP002"), found[0].EmployeeID)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	rec, err := f.svc.CheckIn(ctx, event("EMP001", at(10, 8, 0)))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, rec.ID))
	_, err = f.svc.Get(ctx, rec.ID)
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(f.svc.Delete(ctx, rec.ID)))
}

func TestMonthSummary(t *testing.T) {
	recs := []attendance.Record{
		{EmployeeID: "EMP001", Date: clock.NewDay(2025, time.June, 1), Status: attendance.StatusPresent},
		{EmployeeID: "EMP001", Date: clock.NewDay(2025, time.June, 2), Status: attendance.StatusLate},
		{EmployeeID: "EMP001", Date: clock.NewDay(2025, time.June, 3), Status: attendance.StatusAbsent},
		{EmployeeID: "EMP001", Date: clock.NewDay(2025, time.July, 1), Status: attendance.StatusPresent},
		{EmployeeID: "EMP002", Date: clock.NewDay(2025, time.June, 1), Status: attendance.StatusPresent},
	}
	sum := attendance.MonthSummary(recs, "EMP001", 2025, time.June)
	assert.Equal(t, 2, sum.Attended())
	assert.Equal(t, 1, sum.Absent)
}
