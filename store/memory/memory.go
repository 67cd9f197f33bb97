// Package memory provides an in-memory implementation of every pipeline store (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/farmops/attendance"
	"github.com/warp/farmops/clock"
	"github.com/warp/farmops/core"
	"github.com/warp/farmops/overtime"
	"github.com/warp/farmops/payroll"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Store holds employees, attendance, overtime, salary records and counters.
// It enforces the same uniqueness keys as the SQLite store.
type Store struct {
	mu         sync.RWMutex
	employees  map[core.EmployeeID]core.Employee
	attendance map[string]attendance.Record
	overtime   map[string]overtime.Record
	payroll    map[string]payroll.Record
	counters   map[string]int64
}

type dayKey struct {
	EmployeeID core.EmployeeID
	Date       time.Time
}

type periodKey struct {
	EmployeeID core.EmployeeID
	Year       int
	Month      time.Month
}

func New() *Store {
	return &Store{
		employees:  make(map[core.EmployeeID]core.Employee),
		attendance: make(map[string]attendance.Record),
		overtime:   make(map[string]overtime.Record),
		payroll:    make(map[string]payroll.Record),
		counters:   make(map[string]int64),
	}
}

// =============================================================================
// EMPLOYEES + COUNTERS
// =============================================================================

// PutEmployee adds or replaces an employee in the directory.
func (s *Store) PutEmployee(_ context.Context, emp core.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[emp.ID] = emp
	return nil
}

func (s *Store) GetEmployee(_ context.Context, id core.EmployeeID) (core.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	emp, ok := s.employees[id]
	if !ok {
		return core.Employee{}, &core.EmployeeNotFoundError{ID: id}
	}
	return emp, nil
}

func (s *Store) ListEmployees(_ context.Context) ([]core.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]core.Employee, 0, len(s.employees))
	for _, emp := range s.employees {
		result = append(result, emp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Next increments and returns the counter for purpose.
func (s *Store) Next(_ context.Context, purpose string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[purpose]++
	return s.counters[purpose], nil
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func (s *Store) GetAttendance(_ context.Context, id string) (attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.attendance[id]
	if !ok {
		return attendance.Record{}, core.ErrNotFound
	}
	return rec, nil
}

func (s *Store) FindAttendance(_ context.Context, employeeID core.EmployeeID, day time.Time) (attendance.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.findAttendanceLocked(dayKey{employeeID, clock.Day(day)})
	return rec, ok, nil
}

func (s *Store) findAttendanceLocked(k dayKey) (attendance.Record, bool) {
	for _, rec := range s.attendance {
		if rec.EmployeeID == k.EmployeeID && rec.Date.Equal(k.Date) {
			return rec, true
		}
	}
	return attendance.Record{}, false
}

func (s *Store) CreateAttendance(_ context.Context, rec attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Date = clock.Day(rec.Date)
	if _, exists := s.findAttendanceLocked(dayKey{rec.EmployeeID, rec.Date}); exists {
		return &attendance.DuplicateAttendanceError{EmployeeID: rec.EmployeeID, Date: rec.Date}
	}
	s.attendance[rec.ID] = rec
	return nil
}

func (s *Store) CloseAttendance(_ context.Context, id, checkOut string, status attendance.Status, at time.Time) (attendance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.attendance[id]
	if !ok {
		return attendance.Record{}, core.ErrNotFound
	}
	if rec.CheckOut != "" {
		return attendance.Record{}, &attendance.AlreadyCheckedOutError{EmployeeID: rec.EmployeeID, Date: rec.Date, CheckOut: rec.CheckOut}
	}
	rec.CheckOut = checkOut
	rec.Status = status
	rec.UpdatedAt = at
	s.attendance[id] = rec
	return rec, nil
}

func (s *Store) UpdateAttendance(_ context.Context, rec attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attendance[rec.ID]; !ok {
		return core.ErrNotFound
	}
	rec.Date = clock.Day(rec.Date)
	if other, exists := s.findAttendanceLocked(dayKey{rec.EmployeeID, rec.Date}); exists && other.ID != rec.ID {
		return &attendance.DuplicateAttendanceError{EmployeeID: rec.EmployeeID, Date: rec.Date}
	}
	s.attendance[rec.ID] = rec
	return nil
}

func (s *Store) DeleteAttendance(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attendance[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.attendance, id)
	return nil
}

func (s *Store) ListAttendance(_ context.Context, filter attendance.Filter) ([]attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !filter.Date.IsZero() {
		filter.Date = clock.Day(filter.Date)
	}
	var result []attendance.Record
	for _, rec := range s.attendance {
		if filter.Matches(rec) {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].Seq > result[j].Seq
	})
	return result, nil
}

// =============================================================================
// OVERTIME
// =============================================================================

func (s *Store) GetOvertime(_ context.Context, id string) (overtime.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.overtime[id]
	if !ok {
		return overtime.Record{}, core.ErrNotFound
	}
	overtime.SynthesizeRef(&rec)
	return rec, nil
}

func (s *Store) FindOvertime(_ context.Context, employeeID core.EmployeeID, day time.Time) (overtime.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.findOvertimeLocked(dayKey{employeeID, clock.Day(day)})
	if ok {
		overtime.SynthesizeRef(&rec)
	}
	return rec, ok, nil
}

func (s *Store) findOvertimeLocked(k dayKey) (overtime.Record, bool) {
	for _, rec := range s.overtime {
		if rec.EmployeeID == k.EmployeeID && rec.Date.Equal(k.Date) {
			return rec, true
		}
	}
	return overtime.Record{}, false
}

func (s *Store) CreateOvertime(_ context.Context, rec overtime.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Date = clock.Day(rec.Date)
	if _, exists := s.findOvertimeLocked(dayKey{rec.EmployeeID, rec.Date}); exists {
		return &overtime.DuplicateOvertimeError{EmployeeID: rec.EmployeeID, Date: rec.Date}
	}
	if rec.Ref != "" {
		for _, other := range s.overtime {
			if other.Ref == rec.Ref {
				return &overtime.DuplicateOvertimeError{EmployeeID: rec.EmployeeID, Date: rec.Date}
			}
		}
	}
	rec.Recalculate()
	s.overtime[rec.ID] = rec
	return nil
}

func (s *Store) UpdateOvertime(_ context.Context, rec overtime.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.overtime[rec.ID]; !ok {
		return core.ErrNotFound
	}
	rec.Date = clock.Day(rec.Date)
	rec.Recalculate()
	s.overtime[rec.ID] = rec
	return nil
}

func (s *Store) DeleteOvertime(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.overtime[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.overtime, id)
	return nil
}

func (s *Store) ListOvertime(_ context.Context, filter overtime.Filter) ([]overtime.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []overtime.Record
	for _, rec := range s.overtime {
		if filter.Matches(rec) {
			overtime.SynthesizeRef(&rec)
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].EmployeeID < result[j].EmployeeID
	})
	return result, nil
}

// PutLegacyOvertime stores a record as-is, bypassing Ref and key checks.
// Used to seed rows written before references existed.
func (s *Store) PutLegacyOvertime(_ context.Context, rec overtime.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overtime[rec.ID] = rec
}

// =============================================================================
// PAYROLL
// =============================================================================

func (s *Store) GetPayroll(_ context.Context, id string) (payroll.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.payroll[id]
	if !ok {
		return payroll.Record{}, core.ErrNotFound
	}
	return rec, nil
}

func (s *Store) FindPayroll(_ context.Context, employeeID core.EmployeeID, year int, month time.Month) (payroll.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.findPayrollLocked(periodKey{employeeID, year, month})
	return rec, ok, nil
}

func (s *Store) findPayrollLocked(k periodKey) (payroll.Record, bool) {
	for _, rec := range s.payroll {
		if rec.EmployeeID == k.EmployeeID && rec.Year == k.Year && rec.Month == k.Month {
			return rec, true
		}
	}
	return payroll.Record{}, false
}

func (s *Store) CreatePayroll(_ context.Context, rec *payroll.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.findPayrollLocked(periodKey{rec.EmployeeID, rec.Year, rec.Month}); exists {
		return &payroll.DuplicatePayrollPeriodError{EmployeeID: rec.EmployeeID, Year: rec.Year, Month: rec.Month}
	}
	rec.Recalculate()
	s.payroll[rec.ID] = *rec
	return nil
}

func (s *Store) UpdatePayroll(_ context.Context, rec *payroll.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payroll[rec.ID]; !ok {
		return core.ErrNotFound
	}
	rec.Recalculate()
	s.payroll[rec.ID] = *rec
	return nil
}

func (s *Store) ListPayroll(_ context.Context, filter payroll.Filter) ([]payroll.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []payroll.Record
	for _, rec := range s.payroll {
		if filter.Matches(rec) {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.Month != b.Month {
			return a.Month > b.Month
		}
		return a.EmployeeID < b.EmployeeID
	})
	return result, nil
}

// Compile-time interface checks.
var (
	_ core.EmployeeDirectory = (*Store)(nil)
	_ core.Counter           = (*Store)(nil)
	_ attendance.Store       = (*Store)(nil)
	_ overtime.Store         = (*Store)(nil)
	_ payroll.Store          = (*Store)(nil)
)
