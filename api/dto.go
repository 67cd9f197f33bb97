/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain records from the wire contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

WIRE FORMATS:
  Dates:      "YYYY-MM-DD"
  Clock:      "hh:mm AM/PM"; an unset check-in/out is rendered "Not yet"
  Overtime:   "H:MM"
  Money:      JSON numbers, whole currency units
  Timestamps: RFC3339

VALIDATION:
  Request types carry go-playground/validator tags. Handlers call
  h.decode, which rejects bad JSON and failed tags with 400. Domain
  rules (status values, time parsing) stay in the services.

SEE ALSO:
  - handlers.go: Uses these types
  - errors.go: ErrorResponse codes
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/farmops/attendance"
	"github.com/warp/farmops/clock"
	"github.com/warp/farmops/core"
	"github.com/warp/farmops/overtime"
	"github.com/warp/farmops/payroll"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Position   string `json:"position"`
	Department string `json:"department,omitempty"`
}

func toEmployeeDTO(e core.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:         string(e.ID),
		Name:       e.Name,
		Position:   e.Position,
		Department: e.Department,
	}
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// AttendanceDTO represents one employee-day.
type AttendanceDTO struct {
	ID           string `json:"id"`
	Seq          int64  `json:"seq"`
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	Date         string `json:"date"`
	CheckIn      string `json:"check_in"`
	CheckOut     string `json:"check_out"`
	Status       string `json:"status"`
	State        string `json:"state"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func toAttendanceDTO(r attendance.Record) AttendanceDTO {
	return AttendanceDTO{
		ID:           r.ID,
		Seq:          r.Seq,
		EmployeeID:   string(r.EmployeeID),
		EmployeeName: r.EmployeeName,
		Date:         clock.FormatDate(r.Date),
		CheckIn:      orNotYet(r.CheckIn),
		CheckOut:     orNotYet(r.CheckOut),
		Status:       string(r.Status),
		State:        r.State().String(),
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    r.UpdatedAt.Format(time.RFC3339),
	}
}

func orNotYet(s string) string {
	if s == "" {
		return attendance.NotYet
	}
	return s
}

// fromNotYet undoes orNotYet for values echoed back by clients.
func fromNotYet(s string) string {
	if s == attendance.NotYet {
		return ""
	}
	return s
}

// EventRequest is a badge scan or an explicit check-in/check-out.
// EventTimestamp is RFC3339; empty means now.
type EventRequest struct {
	EmployeeID     string `json:"employee_id" validate:"required"`
	DisplayName    string `json:"display_name"`
	EventTimestamp string `json:"event_timestamp"`
}

// DerivationDTO reports the overtime step that follows a check-out.
type DerivationDTO struct {
	OvertimeHours string       `json:"overtime_hours"`
	RegularHours  float64      `json:"regular_hours"`
	TotalHours    float64      `json:"total_hours"`
	Overtime      *OvertimeDTO `json:"overtime,omitempty"`
	Withdrawn     *OvertimeDTO `json:"withdrawn_overtime,omitempty"`
	OvertimeError string       `json:"overtime_error,omitempty"`
}

func toDerivationDTO(o *overtime.Outcome) *DerivationDTO {
	if o == nil {
		return nil
	}
	dto := &DerivationDTO{
		OvertimeHours: o.Display(),
		RegularHours:  o.RegularHours.InexactFloat64(),
		TotalHours:    o.TotalHours.InexactFloat64(),
	}
	if o.Record != nil {
		rec := toOvertimeDTO(*o.Record)
		dto.Overtime = &rec
	}
	if o.Withdrawn != nil {
		rec := toOvertimeDTO(*o.Withdrawn)
		dto.Withdrawn = &rec
	}
	if o.Err != nil {
		dto.OvertimeError = o.Err.Error()
	}
	return dto
}

// ScanResponse is returned by scan, check-in and check-out.
type ScanResponse struct {
	Action string        `json:"action"`
	Record AttendanceDTO `json:"record"`
	*DerivationDTO
}

// ManualAttendanceRequest creates or corrects an employee-day.
type ManualAttendanceRequest struct {
	EmployeeID string `json:"employee_id" validate:"required"`
	Date       string `json:"date" validate:"required"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Status     string `json:"status"`
}

// ManualAttendanceResponse reports the upserted record and any ignored input.
type ManualAttendanceResponse struct {
	Created  bool          `json:"created"`
	Record   AttendanceDTO `json:"record"`
	Warnings []string      `json:"warnings,omitempty"`
	*DerivationDTO
}

// =============================================================================
// OVERTIME
// =============================================================================

// OvertimeDTO represents one employee-day of overtime.
type OvertimeDTO struct {
	ID           string  `json:"id"`
	Ref          string  `json:"ref"`
	EmployeeID   string  `json:"employee_id"`
	Date         string  `json:"date"`
	RegularHours float64 `json:"regular_hours"`
	Overtime     string  `json:"overtime"`
	TotalHours   float64 `json:"total_hours"`
	Status       string  `json:"status"`
	Description  string  `json:"description,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func toOvertimeDTO(r overtime.Record) OvertimeDTO {
	return OvertimeDTO{
		ID:           r.ID,
		Ref:          r.Ref,
		EmployeeID:   string(r.EmployeeID),
		Date:         clock.FormatDate(r.Date),
		RegularHours: r.RegularHours.InexactFloat64(),
		Overtime:     r.Overtime.Display(),
		TotalHours:   r.TotalHours.InexactFloat64(),
		Status:       string(r.Status),
		Description:  r.Description,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    r.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateOvertimeRequest records overtime by hand. Overtime is "H:MM" or decimal hours.
type CreateOvertimeRequest struct {
	EmployeeID   string   `json:"employee_id" validate:"required"`
	Date         string   `json:"date" validate:"required"`
	Overtime     string   `json:"overtime" validate:"required"`
	RegularHours *float64 `json:"regular_hours" validate:"omitempty,gte=0"`
	Description  string   `json:"description"`
}

// StatusRequest changes an approval or payment status.
type StatusRequest struct {
	Status        string `json:"status" validate:"required"`
	PaymentMethod string `json:"payment_method"`
	Remarks       string `json:"remarks"`
}

// =============================================================================
// PAYROLL
// =============================================================================

// PayrollDTO represents a salary record.
type PayrollDTO struct {
	ID                 string  `json:"id"`
	EmployeeID         string  `json:"employee_id"`
	EmployeeName       string  `json:"employee_name"`
	Position           string  `json:"position"`
	Year               int     `json:"year"`
	Month              int     `json:"month"`
	BasicSalary        float64 `json:"basic_salary"`
	OvertimePay        float64 `json:"overtime_pay"`
	OvertimeHours      string  `json:"overtime_hours"`
	Allowances         float64 `json:"allowances"`
	Deductions         float64 `json:"deductions"`
	Bonus              float64 `json:"bonus"`
	Commission         float64 `json:"commission"`
	TaxDeduction       float64 `json:"tax_deduction"`
	InsuranceDeduction float64 `json:"insurance_deduction"`
	TotalSalary        float64 `json:"total_salary"`
	NetSalary          float64 `json:"net_salary"`
	Status             string  `json:"status"`
	PaymentMethod      string  `json:"payment_method,omitempty"`
	Remarks            string  `json:"remarks,omitempty"`
	PaidAt             string  `json:"paid_at,omitempty"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

func toPayrollDTO(r payroll.Record) PayrollDTO {
	dto := PayrollDTO{
		ID:                 r.ID,
		EmployeeID:         string(r.EmployeeID),
		EmployeeName:       r.EmployeeName,
		Position:           r.Position,
		Year:               r.Year,
		Month:              int(r.Month),
		BasicSalary:        r.BasicSalary.InexactFloat64(),
		OvertimePay:        r.OvertimePay.InexactFloat64(),
		OvertimeHours:      r.OvertimeHours,
		Allowances:         r.Allowances.InexactFloat64(),
		Deductions:         r.Deductions.InexactFloat64(),
		Bonus:              r.Bonus.InexactFloat64(),
		Commission:         r.Commission.InexactFloat64(),
		TaxDeduction:       r.TaxDeduction.InexactFloat64(),
		InsuranceDeduction: r.InsuranceDeduction.InexactFloat64(),
		TotalSalary:        r.TotalSalary.InexactFloat64(),
		NetSalary:          r.NetSalary.InexactFloat64(),
		Status:             string(r.Status),
		PaymentMethod:      r.PaymentMethod,
		Remarks:            r.Remarks,
		CreatedAt:          r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          r.UpdatedAt.Format(time.RFC3339),
	}
	if r.PaidAt != nil {
		dto.PaidAt = r.PaidAt.Format(time.RFC3339)
	}
	return dto
}

func toPayrollDTOs(recs []payroll.Record) []PayrollDTO {
	dtos := make([]PayrollDTO, len(recs))
	for i, r := range recs {
		dtos[i] = toPayrollDTO(r)
	}
	return dtos
}

// ProcessPayrollRequest runs a batch for one period.
type ProcessPayrollRequest struct {
	Year        int      `json:"year" validate:"required,gte=2000,lte=2100"`
	Month       int      `json:"month" validate:"required,gte=1,lte=12"`
	EmployeeIDs []string `json:"employee_ids" validate:"omitempty,dive,required"`
	Force       bool     `json:"force"`
}

// OutcomeDTO is the per-employee result of a batch.
type OutcomeDTO struct {
	EmployeeID string `json:"employee_id"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	RecordID   string `json:"record_id,omitempty"`
}

// ProcessPayrollResponse summarizes a batch.
type ProcessPayrollResponse struct {
	ProcessedCount int          `json:"processed_count"`
	SkippedCount   int          `json:"skipped_count"`
	FailedCount    int          `json:"failed_count"`
	Records        []PayrollDTO `json:"records"`
	Outcomes       []OutcomeDTO `json:"outcomes"`
}

func toProcessPayrollResponse(res payroll.Result) ProcessPayrollResponse {
	resp := ProcessPayrollResponse{
		ProcessedCount: res.ProcessedCount,
		SkippedCount:   res.SkippedCount,
		FailedCount:    res.FailedCount,
		Records:        toPayrollDTOs(res.Records),
		Outcomes:       make([]OutcomeDTO, len(res.Outcomes)),
	}
	for i, o := range res.Outcomes {
		resp.Outcomes[i] = OutcomeDTO{
			EmployeeID: string(o.EmployeeID),
			Outcome:    string(o.Kind),
			Reason:     o.Reason,
		}
		if o.Record != nil {
			resp.Outcomes[i].RecordID = o.Record.ID
		}
	}
	return resp
}

// CreatePayrollRequest creates one salary record; omitted amounts are computed.
type CreatePayrollRequest struct {
	EmployeeID    string   `json:"employee_id" validate:"required"`
	Year          int      `json:"year" validate:"required,gte=2000,lte=2100"`
	Month         int      `json:"month" validate:"required,gte=1,lte=12"`
	BasicSalary   *float64 `json:"basic_salary" validate:"omitempty,gte=0"`
	OvertimePay   *float64 `json:"overtime_pay" validate:"omitempty,gte=0"`
	OvertimeHours string   `json:"overtime_hours"`
	Allowances    *float64 `json:"allowances" validate:"omitempty,gte=0"`
	Deductions    *float64 `json:"deductions" validate:"omitempty,gte=0"`
	Bonus         *float64 `json:"bonus" validate:"omitempty,gte=0"`
	Commission    *float64 `json:"commission" validate:"omitempty,gte=0"`
	TaxDeduction  *float64 `json:"tax_deduction" validate:"omitempty,gte=0"`
	Insurance     *float64 `json:"insurance_deduction" validate:"omitempty,gte=0"`
	Status        string   `json:"status"`
	PaymentMethod string   `json:"payment_method"`
	Remarks       string   `json:"remarks"`
}

func (r CreatePayrollRequest) input() payroll.ManualInput {
	return payroll.ManualInput{
		EmployeeID:    core.EmployeeID(r.EmployeeID),
		Year:          r.Year,
		Month:         time.Month(r.Month),
		BasicSalary:   decimalPtr(r.BasicSalary),
		OvertimePay:   decimalPtr(r.OvertimePay),
		OvertimeHours: r.OvertimeHours,
		Allowances:    decimalPtr(r.Allowances),
		Deductions:    decimalPtr(r.Deductions),
		Bonus:         decimalPtr(r.Bonus),
		Commission:    decimalPtr(r.Commission),
		Tax:           decimalPtr(r.TaxDeduction),
		Insurance:     decimalPtr(r.Insurance),
		Status:        payroll.Status(r.Status),
		PaymentMethod: r.PaymentMethod,
		Remarks:       r.Remarks,
	}
}

func decimalPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}

// =============================================================================
// SCENARIOS + HEALTH
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
	Seed       int64  `json:"seed"`
}

// HealthDTO is the health endpoint body.
type HealthDTO struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Counter  string `json:"counter,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
