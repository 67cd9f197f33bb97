package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/warp/farmops/attendance"
	"github.com/warp/farmops/clock"
	"github.com/warp/farmops/core"
)

// =============================================================================
// ATTENDANCE STORE (attendance.Store interface)
// =============================================================================

const attendanceColumns = `id, seq, employee_id, employee_name, date, check_in, check_out, status, created_at, updated_at`

func (s *Store) GetAttendance(ctx context.Context, id string) (attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getAttendance(ctx, id)
}

func (s *Store) getAttendance(ctx context.Context, id string) (attendance.Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+attendanceColumns+" FROM attendance WHERE id = ?", id)
	rec, err := scanAttendance(row)
	if err == sql.ErrNoRows {
		return attendance.Record{}, core.ErrNotFound
	}
	if err != nil {
		return attendance.Record{}, core.Persistence("get attendance", err)
	}
	return rec, nil
}

func (s *Store) FindAttendance(ctx context.Context, employeeID core.EmployeeID, day time.Time) (attendance.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+attendanceColumns+" FROM attendance WHERE employee_id = ? AND date = ?",
		employeeID, clock.FormatDate(clock.Day(day)))
	rec, err := scanAttendance(row)
	if err == sql.ErrNoRows {
		return attendance.Record{}, false, nil
	}
	if err != nil {
		return attendance.Record{}, false, core.Persistence("find attendance", err)
	}
	return rec, true, nil
}

// CreateAttendance inserts a record; the unique index turns a second
// employee-day into *attendance.DuplicateAttendanceError.
func (s *Store) CreateAttendance(ctx context.Context, rec attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := clock.Day(rec.Date)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance (`+attendanceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Seq, rec.EmployeeID, rec.EmployeeName, clock.FormatDate(day),
		nullString(rec.CheckIn), nullString(rec.CheckOut), rec.Status,
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	if isUniqueConstraintError(err) {
		return &attendance.DuplicateAttendanceError{EmployeeID: rec.EmployeeID, Date: day}
	}
	return core.Persistence("create attendance", err)
}

// CloseAttendance sets check_out only while it is still NULL.
func (s *Store) CloseAttendance(ctx context.Context, id, checkOut string, status attendance.Status, at time.Time) (attendance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE attendance SET check_out = ?, status = ?, updated_at = ?
		WHERE id = ? AND (check_out IS NULL OR check_out = '')`,
		checkOut, status, formatTime(at), id,
	)
	if err != nil {
		return attendance.Record{}, core.Persistence("close attendance", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return attendance.Record{}, core.Persistence("close attendance", err)
	}

	rec, err := s.getAttendance(ctx, id)
	if err != nil {
		return attendance.Record{}, err
	}
	if n == 0 {
		return attendance.Record{}, &attendance.AlreadyCheckedOutError{EmployeeID: rec.EmployeeID, Date: rec.Date, CheckOut: rec.CheckOut}
	}
	return rec, nil
}

func (s *Store) UpdateAttendance(ctx context.Context, rec attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := clock.Day(rec.Date)
	res, err := s.db.ExecContext(ctx, `
		UPDATE attendance SET employee_name = ?, date = ?, check_in = ?, check_out = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		rec.EmployeeName, clock.FormatDate(day), nullString(rec.CheckIn), nullString(rec.CheckOut),
		rec.Status, formatTime(rec.UpdatedAt), rec.ID,
	)
	if isUniqueConstraintError(err) {
		return &attendance.DuplicateAttendanceError{EmployeeID: rec.EmployeeID, Date: day}
	}
	if err != nil {
		return core.Persistence("update attendance", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAttendance(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM attendance WHERE id = ?", id)
	if err != nil {
		return core.Persistence("delete attendance", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListAttendance returns matches newest first.
func (s *Store) ListAttendance(ctx context.Context, filter attendance.Filter) ([]attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var w whereClause
	if filter.EmployeeID != "" {
		w.add("employee_id = ?", filter.EmployeeID)
	}
	if !filter.Date.IsZero() {
		w.add("date = ?", clock.FormatDate(clock.Day(filter.Date)))
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Search)); q != "" {
		like := "%" + q + "%"
		w.add("(LOWER(employee_id) LIKE ? OR LOWER(employee_name) LIKE ?)", like, like)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+attendanceColumns+" FROM attendance"+w.String()+" ORDER BY date DESC, seq DESC",
		w.args...)
	if err != nil {
		return nil, core.Persistence("list attendance", err)
	}
	defer rows.Close()

	var result []attendance.Record
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, core.Persistence("scan attendance", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func scanAttendance(row rowScanner) (attendance.Record, error) {
	var (
		rec                  attendance.Record
		date                 string
		checkIn, checkOut    sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&rec.ID, &rec.Seq, &rec.EmployeeID, &rec.EmployeeName, &date,
		&checkIn, &checkOut, &rec.Status, &createdAt, &updatedAt)
	if err != nil {
		return rec, err
	}
	rec.Date, _ = clock.ParseDate(date)
	rec.CheckIn = checkIn.String
	rec.CheckOut = checkOut.String
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return rec, nil
}
