package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/warp/farmops/clock"
	"github.com/warp/farmops/core"
	"github.com/warp/farmops/overtime"
)

// =============================================================================
// OVERTIME STORE (overtime.Store interface)
// =============================================================================
//
// The overtime column is written as "H:MM" only. Rows from before that
// change hold decimal hours; ParseDuration reads both, and rows without a
// ref get one synthesized on read.

const overtimeColumns = `id, ref, employee_id, date, regular_hours, overtime, total_hours, status, description, created_at, updated_at`

func (s *Store) GetOvertime(ctx context.Context, id string) (overtime.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+overtimeColumns+" FROM overtime WHERE id = ?", id)
	rec, err := scanOvertime(row)
	if err == sql.ErrNoRows {
		return overtime.Record{}, core.ErrNotFound
	}
	if err != nil {
		return overtime.Record{}, core.Persistence("get overtime", err)
	}
	return rec, nil
}

func (s *Store) FindOvertime(ctx context.Context, employeeID core.EmployeeID, day time.Time) (overtime.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+overtimeColumns+" FROM overtime WHERE employee_id = ? AND date = ?",
		employeeID, clock.FormatDate(clock.Day(day)))
	rec, err := scanOvertime(row)
	if err == sql.ErrNoRows {
		return overtime.Record{}, false, nil
	}
	if err != nil {
		return overtime.Record{}, false, core.Persistence("find overtime", err)
	}
	return rec, true, nil
}

func (s *Store) CreateOvertime(ctx context.Context, rec overtime.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Recalculate()
	day := clock.Day(rec.Date)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO overtime (`+overtimeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, nullString(rec.Ref), rec.EmployeeID, clock.FormatDate(day),
		rec.RegularHours.String(), rec.Overtime.Display(), rec.TotalHours.String(),
		rec.Status, rec.Description, formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	if isUniqueConstraintError(err) {
		return &overtime.DuplicateOvertimeError{EmployeeID: rec.EmployeeID, Date: day}
	}
	return core.Persistence("create overtime", err)
}

// UpdateOvertime rewrites a record. A synthesized ref is persisted on the way.
func (s *Store) UpdateOvertime(ctx context.Context, rec overtime.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Recalculate()
	res, err := s.db.ExecContext(ctx, `
		UPDATE overtime SET ref = ?, regular_hours = ?, overtime = ?, total_hours = ?,
			status = ?, description = ?, updated_at = ?
		WHERE id = ?`,
		nullString(rec.Ref), rec.RegularHours.String(), rec.Overtime.Display(), rec.TotalHours.String(),
		rec.Status, rec.Description, formatTime(rec.UpdatedAt), rec.ID,
	)
	if isUniqueConstraintError(err) {
		return &overtime.DuplicateOvertimeError{EmployeeID: rec.EmployeeID, Date: rec.Date}
	}
	if err != nil {
		return core.Persistence("update overtime", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteOvertime(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM overtime WHERE id = ?", id)
	if err != nil {
		return core.Persistence("delete overtime", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) ListOvertime(ctx context.Context, filter overtime.Filter) ([]overtime.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var w whereClause
	if filter.EmployeeID != "" {
		w.add("employee_id = ?", filter.EmployeeID)
	}
	switch {
	case filter.Year != 0 && filter.Month != 0:
		w.add("date BETWEEN ? AND ?",
			clock.FormatDate(clock.StartOfMonth(filter.Year, filter.Month)),
			clock.FormatDate(clock.EndOfMonth(filter.Year, filter.Month)))
	case filter.Year != 0:
		w.add("date BETWEEN ? AND ?",
			clock.FormatDate(clock.NewDay(filter.Year, time.January, 1)),
			clock.FormatDate(clock.NewDay(filter.Year, time.December, 31)))
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+overtimeColumns+" FROM overtime"+w.String()+" ORDER BY date DESC, employee_id",
		w.args...)
	if err != nil {
		return nil, core.Persistence("list overtime", err)
	}
	defer rows.Close()

	var result []overtime.Record
	for rows.Next() {
		rec, err := scanOvertime(rows)
		if err != nil {
			return nil, core.Persistence("scan overtime", err)
		}
		// Month without year is rare enough to filter here.
		if filter.Year == 0 && filter.Month != 0 && rec.Date.Month() != filter.Month {
			continue
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func scanOvertime(row rowScanner) (overtime.Record, error) {
	var (
		rec                  overtime.Record
		ref                  sql.NullString
		date                 string
		regular, amount      string
		total                string
		createdAt, updatedAt string
	)
	err := row.Scan(&rec.ID, &ref, &rec.EmployeeID, &date, &regular, &amount, &total,
		&rec.Status, &rec.Description, &createdAt, &updatedAt)
	if err != nil {
		return rec, err
	}
	d, err := overtime.ParseDuration(amount)
	if err != nil {
		return rec, err
	}
	rec.Ref = ref.String
	rec.Date, _ = clock.ParseDate(date)
	rec.RegularHours = parseDecimal(regular)
	rec.Overtime = d
	rec.TotalHours = parseDecimal(total)
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	overtime.SynthesizeRef(&rec)
	return rec, nil
}
