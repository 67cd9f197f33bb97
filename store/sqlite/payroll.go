package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/warp/farmops/core"
	"github.com/warp/farmops/payroll"
)

// =============================================================================
// PAYROLL STORE (payroll.Store interface)
// =============================================================================

const salaryColumns = `id, employee_id, employee_name, position, year, month,
	basic_salary, overtime_pay, overtime_hours, allowances, deductions, bonus, commission,
	tax_deduction, insurance_deduction, total_salary, net_salary,
	status, payment_method, remarks, paid_at, created_at, updated_at`

func (s *Store) GetPayroll(ctx context.Context, id string) (payroll.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := scanSalary(s.db.QueryRowContext(ctx, "SELECT "+salaryColumns+" FROM salaries WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return payroll.Record{}, core.ErrNotFound
	}
	if err != nil {
		return payroll.Record{}, core.Persistence("get payroll", err)
	}
	return rec, nil
}

func (s *Store) FindPayroll(ctx context.Context, employeeID core.EmployeeID, year int, month time.Month) (payroll.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := scanSalary(s.db.QueryRowContext(ctx,
		"SELECT "+salaryColumns+" FROM salaries WHERE employee_id = ? AND year = ? AND month = ?",
		employeeID, year, int(month)))
	if err == sql.ErrNoRows {
		return payroll.Record{}, false, nil
	}
	if err != nil {
		return payroll.Record{}, false, core.Persistence("find payroll", err)
	}
	return rec, true, nil
}

// CreatePayroll recalculates totals and inserts the record.
func (s *Store) CreatePayroll(ctx context.Context, rec *payroll.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Recalculate()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO salaries (`+salaryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.EmployeeID, rec.EmployeeName, rec.Position, rec.Year, int(rec.Month),
		rec.BasicSalary.String(), rec.OvertimePay.String(), rec.OvertimeHours,
		rec.Allowances.String(), rec.Deductions.String(), rec.Bonus.String(), rec.Commission.String(),
		rec.TaxDeduction.String(), rec.InsuranceDeduction.String(),
		rec.TotalSalary.String(), rec.NetSalary.String(),
		rec.Status, rec.PaymentMethod, rec.Remarks, nullTime(rec.PaidAt),
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	if isUniqueConstraintError(err) {
		return &payroll.DuplicatePayrollPeriodError{EmployeeID: rec.EmployeeID, Year: rec.Year, Month: rec.Month}
	}
	return core.Persistence("create payroll", err)
}

// UpdatePayroll recalculates totals and rewrites every mutable column.
func (s *Store) UpdatePayroll(ctx context.Context, rec *payroll.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Recalculate()
	res, err := s.db.ExecContext(ctx, `
		UPDATE salaries SET
			employee_name = ?, position = ?,
			basic_salary = ?, overtime_pay = ?, overtime_hours = ?, allowances = ?, deductions = ?,
			bonus = ?, commission = ?, tax_deduction = ?, insurance_deduction = ?,
			total_salary = ?, net_salary = ?,
			status = ?, payment_method = ?, remarks = ?, paid_at = ?, updated_at = ?
		WHERE id = ?`,
		rec.EmployeeName, rec.Position,
		rec.BasicSalary.String(), rec.OvertimePay.String(), rec.OvertimeHours,
		rec.Allowances.String(), rec.Deductions.String(),
		rec.Bonus.String(), rec.Commission.String(), rec.TaxDeduction.String(), rec.InsuranceDeduction.String(),
		rec.TotalSalary.String(), rec.NetSalary.String(),
		rec.Status, rec.PaymentMethod, rec.Remarks, nullTime(rec.PaidAt), formatTime(rec.UpdatedAt),
		rec.ID,
	)
	if err != nil {
		return core.Persistence("update payroll", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) ListPayroll(ctx context.Context, filter payroll.Filter) ([]payroll.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var w whereClause
	if filter.EmployeeID != "" {
		w.add("employee_id = ?", filter.EmployeeID)
	}
	if filter.Year != 0 {
		w.add("year = ?", filter.Year)
	}
	if filter.Month != 0 {
		w.add("month = ?", int(filter.Month))
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+salaryColumns+" FROM salaries"+w.String()+" ORDER BY year DESC, month DESC, employee_id",
		w.args...)
	if err != nil {
		return nil, core.Persistence("list payroll", err)
	}
	defer rows.Close()

	var result []payroll.Record
	for rows.Next() {
		rec, err := scanSalary(rows)
		if err != nil {
			return nil, core.Persistence("scan payroll", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func scanSalary(row rowScanner) (payroll.Record, error) {
	var (
		rec                                  payroll.Record
		month                                int
		basic, otPay, allowances, deductions string
		bonus, commission, tax, insurance    string
		total, net                           string
		paidAt                               sql.NullString
		createdAt, updatedAt                 string
	)
	err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.EmployeeName, &rec.Position, &rec.Year, &month,
		&basic, &otPay, &rec.OvertimeHours, &allowances, &deductions, &bonus, &commission,
		&tax, &insurance, &total, &net,
		&rec.Status, &rec.PaymentMethod, &rec.Remarks, &paidAt, &createdAt, &updatedAt)
	if err != nil {
		return rec, err
	}
	rec.Month = time.Month(month)
	rec.BasicSalary = parseDecimal(basic)
	rec.OvertimePay = parseDecimal(otPay)
	rec.Allowances = parseDecimal(allowances)
	rec.Deductions = parseDecimal(deductions)
	rec.Bonus = parseDecimal(bonus)
	rec.Commission = parseDecimal(commission)
	rec.TaxDeduction = parseDecimal(tax)
	rec.InsuranceDeduction = parseDecimal(insurance)
	rec.TotalSalary = parseDecimal(total)
	rec.NetSalary = parseDecimal(net)
	if paidAt.Valid {
		t := parseTime(paidAt.String)
		rec.PaidAt = &t
	}
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return rec, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}
