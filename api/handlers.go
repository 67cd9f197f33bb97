/*
handlers.go - HTTP API handlers for the farm back office

PURPOSE:
  Exposes the attendance -> overtime -> payroll pipeline via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  domain services.

ENDPOINTS:
  Attendance:
    POST   /api/attendance/scan        Badge scan (check-in or check-out)
    POST   /api/attendance/check-in    Explicit check-in
    POST   /api/attendance/check-out   Explicit check-out
    PUT    /api/attendance             Manual create-or-correct
    GET    /api/attendance             List (employee_id, date, search)
    GET    /api/attendance/summary     Monthly Present/Late/Absent/On Leave counts
    GET    /api/attendance/{id}        Get one record
    DELETE /api/attendance/{id}        Delete one record

  Overtime:
    GET    /api/overtime               List (employee_id, year, month, status)
    POST   /api/overtime               Manual entry
    GET    /api/overtime/{id}          Get one record
    PATCH  /api/overtime/{id}/status   Approve / reject

  Payroll:
    POST   /api/payroll/process        Batch for one period
    POST   /api/payroll                Create one salary record
    GET    /api/payroll                List (year, month, employee_id, status)
    GET    /api/payroll/{id}           Get one record
    PATCH  /api/payroll/{id}/status    Status transition

  Directory:
    GET    /api/employees              List employees
    GET    /api/employees/{id}         Get employee

  Misc:
    GET    /api/policy                 Effective pay policy document
    GET    /api/health                 Store (and counter) reachability

REQUEST FLOW:
  1. Decode + validate the body (h.decode)
  2. Call the service
  3. Serialize the DTO
  4. Map errors through writeDomainError (errors.go)

CHECK-OUT RESPONSES:
  The overtime step runs after the check-out commits. Its result is reported
  in separate fields (overtime_hours, overtime, overtime_error) and a failed
  derivation never turns the response into an error.

SECURITY NOTE:
  No authentication. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - errors.go: Error code mapping
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/warp/farmops/attendance"
	"github.com/warp/farmops/clock"
	"github.com/warp/farmops/core"
	"github.com/warp/farmops/factory"
	"github.com/warp/farmops/overtime"
	"github.com/warp/farmops/payroll"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the part of the persistence layer the handlers touch directly.
type Store interface {
	PipelineStore
	SaveEmployee(ctx context.Context, emp core.Employee) error
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Pinger is an optional external dependency checked by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         Store
	Services      Services
	Policy        factory.Policy
	PolicyFactory *factory.PolicyFactory
	Counter       Pinger // optional
	Logger        *slog.Logger
	Now           func() time.Time

	validate *validator.Validate

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over an already wired pipeline.
func NewHandler(store Store, services Services, policy factory.Policy, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		Store:         store,
		Services:      services,
		Policy:        policy,
		PolicyFactory: factory.NewPolicyFactory(),
		Logger:        logger,
		Now:           time.Now,
		validate:      v,
	}
}

// decode reads a JSON body into dst and runs its validate tags.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return core.Invalid("invalid request body: %v", err)
	}
	return h.validate.Struct(dst)
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), core.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Employee not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

func (h *Handler) event(req EventRequest) (attendance.Event, error) {
	at := h.Now()
	if req.EventTimestamp != "" {
		t, err := time.Parse(time.RFC3339, req.EventTimestamp)
		if err != nil {
			return attendance.Event{}, &clock.MalformedTimeError{Input: req.EventTimestamp, Reason: "not an RFC3339 timestamp"}
		}
		at = t
	}
	return attendance.Event{
		EmployeeID:  core.EmployeeID(strings.TrimSpace(req.EmployeeID)),
		DisplayName: req.DisplayName,
		At:          at,
	}, nil
}

func (h *Handler) decodeEvent(w http.ResponseWriter, r *http.Request) (attendance.Event, bool) {
	var req EventRequest
	if err := h.decode(r, &req); err != nil {
		writeDomainError(w, "Invalid request body", err)
		return attendance.Event{}, false
	}
	ev, err := h.event(req)
	if err != nil {
		writeDomainError(w, "Invalid event_timestamp", err)
		return attendance.Event{}, false
	}
	return ev, true
}

// Scan records one badge scan.
// POST /api/attendance/scan
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.decodeEvent(w, r)
	if !ok {
		return
	}

	res, err := h.Services.Attendance.Scan(r.Context(), ev)
	if err != nil {
		writeDomainError(w, "Scan failed", err)
		return
	}

	writeJSON(w, http.StatusOK, ScanResponse{
		Action:        string(res.Action),
		Record:        toAttendanceDTO(res.Record),
		DerivationDTO: toDerivationDTO(res.Overtime),
	})
}

// CheckIn opens an employee-day.
// POST /api/attendance/check-in
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.decodeEvent(w, r)
	if !ok {
		return
	}

	rec, err := h.Services.Attendance.CheckIn(r.Context(), ev)
	if err != nil {
		writeDomainError(w, "Check-in failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, ScanResponse{
		Action: string(attendance.ActionCheckIn),
		Record: toAttendanceDTO(rec),
	})
}

// CheckOut closes an employee-day and derives overtime.
// POST /api/attendance/check-out
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.decodeEvent(w, r)
	if !ok {
		return
	}

	res, err := h.Services.Attendance.CheckOut(r.Context(), ev)
	if err != nil {
		writeDomainError(w, "Check-out failed", err)
		return
	}

	writeJSON(w, http.StatusOK, ScanResponse{
		Action:        string(attendance.ActionCheckOut),
		Record:        toAttendanceDTO(res.Record),
		DerivationDTO: toDerivationDTO(&res.Overtime),
	})
}

// UpsertAttendance creates or corrects an employee-day by hand.
// PUT /api/attendance
func (h *Handler) UpsertAttendance(w http.ResponseWriter, r *http.Request) {
	var req ManualAttendanceRequest
	if err := h.decode(r, &req); err != nil {
		writeDomainError(w, "Invalid request body", err)
		return
	}
	day, err := clock.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	res, err := h.Services.Attendance.ManualUpsert(r.Context(), attendance.ManualEntry{
		EmployeeID: core.EmployeeID(strings.TrimSpace(req.EmployeeID)),
		Date:       day,
		CheckIn:    fromNotYet(req.CheckIn),
		CheckOut:   fromNotYet(req.CheckOut),
		Status:     attendance.Status(req.Status),
	}, h.Now())
	if err != nil {
		writeDomainError(w, "Failed to save attendance", err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, ManualAttendanceResponse{
		Created:       res.Created,
		Record:        toAttendanceDTO(res.Record),
		Warnings:      res.Warnings,
		DerivationDTO: toDerivationDTO(res.Overtime),
	})
}

// ListAttendance returns records newest first.
// GET /api/attendance?employee_id=&date=&search=
func (h *Handler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := attendance.Filter{
		EmployeeID: core.EmployeeID(q.Get("employee_id")),
		Search:     q.Get("search"),
	}
	if d := q.Get("date"); d != "" {
		day, err := clock.ParseDate(d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		filter.Date = day
	}

	recs, err := h.Services.Attendance.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, "Failed to list attendance", err)
		return
	}

	dtos := make([]AttendanceDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toAttendanceDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AttendanceSummary counts one employee's statuses in a month.
// GET /api/attendance/summary?employee_id=&year=&month=
func (h *Handler) AttendanceSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	employeeID := core.EmployeeID(q.Get("employee_id"))
	year, month, err := period(q.Get("year"), q.Get("month"))
	if err != nil || employeeID == "" {
		writeError(w, http.StatusBadRequest, "employee_id, year and month are required", err)
		return
	}

	recs, err := h.Services.Attendance.List(r.Context(), attendance.Filter{EmployeeID: employeeID})
	if err != nil {
		writeDomainError(w, "Failed to list attendance", err)
		return
	}

	s := attendance.MonthSummary(recs, employeeID, year, month)
	writeJSON(w, http.StatusOK, map[string]any{
		"employee_id":   employeeID,
		"year":          year,
		"month":         int(month),
		"present":       s.Present,
		"late":          s.Late,
		"absent":        s.Absent,
		"on_leave":      s.OnLeave,
		"attended":      s.Attended(),
		"days_in_month": clock.DaysInMonth(year, month),
	})
}

// GetAttendance returns one record.
// GET /api/attendance/{id}
func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Services.Attendance.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Attendance record not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(rec))
}

// DeleteAttendance removes one record.
// DELETE /api/attendance/{id}
func (h *Handler) DeleteAttendance(w http.ResponseWriter, r *http.Request) {
	if err := h.Services.Attendance.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// =============================================================================
// OVERTIME HANDLERS
// =============================================================================

// ListOvertime returns overtime records.
// GET /api/overtime?employee_id=&year=&month=&status=
func (h *Handler) ListOvertime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := overtime.Filter{
		EmployeeID: core.EmployeeID(q.Get("employee_id")),
		Status:     overtime.Status(q.Get("status")),
	}
	var err error
	if filter.Year, err = queryInt(q.Get("year")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	m, err := queryInt(q.Get("month"))
	if err != nil || m < 0 || m > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}
	filter.Month = time.Month(m)

	recs, err := h.Services.Overtime.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, "Failed to list overtime", err)
		return
	}

	dtos := make([]OvertimeDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toOvertimeDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateOvertime records overtime entered by hand.
// POST /api/overtime
func (h *Handler) CreateOvertime(w http.ResponseWriter, r *http.Request) {
	var req CreateOvertimeRequest
	if err := h.decode(r, &req); err != nil {
		writeDomainError(w, "Invalid request body", err)
		return
	}
	day, err := clock.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	amount, err := overtime.ParseDuration(req.Overtime)
	if err != nil {
		writeDomainError(w, "Invalid overtime amount", err)
		return
	}

	rec, err := h.Services.Overtime.Create(r.Context(), overtime.CreateInput{
		EmployeeID:   core.EmployeeID(strings.TrimSpace(req.EmployeeID)),
		Date:         day,
		Overtime:     amount,
		RegularHours: decimalPtr(req.RegularHours),
		Description:  req.Description,
	})
	if err != nil {
		writeDomainError(w, "Failed to create overtime", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOvertimeDTO(rec))
}

// GetOvertime returns one record.
// GET /api/overtime/{id}
func (h *Handler) GetOvertime(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Services.Overtime.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Overtime record not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toOvertimeDTO(rec))
}

// SetOvertimeStatus approves or rejects a record.
// PATCH /api/overtime/{id}/status
func (h *Handler) SetOvertimeStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := h.decode(r, &req); err != nil {
		writeDomainError(w, "Invalid request body", err)
		return
	}

	rec, err := h.Services.Overtime.SetStatus(r.Context(), chi.URLParam(r, "id"), overtime.Status(req.Status))
	if err != nil {
		writeDomainError(w, "Failed to update overtime status", err)
		return
	}
	writeJSON(w, http.StatusOK, toOvertimeDTO(rec))
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// ProcessPayroll runs a batch for one period.
// POST /api/payroll/process
func (h *Handler) ProcessPayroll(w http.ResponseWriter, r *http.Request) {
	var req ProcessPayrollRequest
	if err := h.decode(r, &req); err != nil {
		writeDomainError(w, "Invalid request body", err)
		return
	}

	ids := make([]core.EmployeeID, len(req.EmployeeIDs))
	for i, id := range req.EmployeeIDs {
		ids[i] = core.EmployeeID(strings.TrimSpace(id))
	}

	res, err := h.Services.Payroll.Process(r.Context(), payroll.Request{
		Year:        req.Year,
		Month:       time.Month(req.Month),
		EmployeeIDs: ids,
		Force:       req.Force,
	})
	if err != nil {
		writeDomainError(w, "Payroll processing failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toProcessPayrollResponse(res))
}

// CreatePayroll creates one salary record.
// POST /api/payroll
func (h *Handler) CreatePayroll(w http.ResponseWriter, r *http.Request) {
	var req CreatePayrollRequest
	if err := h.decode(r, &req); err != nil {
		writeDomainError(w, "Invalid request body", err)
		return
	}

	rec, err := h.Services.Payroll.CreateManual(r.Context(), req.input())
	if err != nil {
		writeDomainError(w, "Failed to create salary record", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPayrollDTO(rec))
}

// ListPayroll returns salary records, newest period first.
// GET /api/payroll?year=&month=&employee_id=&status=
func (h *Handler) ListPayroll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := payroll.Filter{
		EmployeeID: core.EmployeeID(q.Get("employee_id")),
		Status:     payroll.Status(q.Get("status")),
	}
	var err error
	if filter.Year, err = queryInt(q.Get("year")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	m, err := queryInt(q.Get("month"))
	if err != nil || m < 0 || m > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}
	filter.Month = time.Month(m)

	recs, err := h.Services.Payroll.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, "Failed to list payroll", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayrollDTOs(recs))
}

// GetPayroll returns one salary record.
// GET /api/payroll/{id}
func (h *Handler) GetPayroll(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Services.Payroll.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Salary record not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayrollDTO(rec))
}

// UpdatePayrollStatus moves a salary record along its status machine.
// PATCH /api/payroll/{id}/status
func (h *Handler) UpdatePayrollStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := h.decode(r, &req); err != nil {
		writeDomainError(w, "Invalid request body", err)
		return
	}

	rec, err := h.Services.Payroll.UpdateStatus(r.Context(), chi.URLParam(r, "id"), payroll.StatusUpdate{
		Status:        payroll.Status(req.Status),
		PaymentMethod: req.PaymentMethod,
		Remarks:       req.Remarks,
	})
	if err != nil {
		writeDomainError(w, "Failed to update salary status", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayrollDTO(rec))
}

// =============================================================================
// POLICY + HEALTH
// =============================================================================

// GetPolicy returns the effective pay policy as a document.
// GET /api/policy
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.PolicyFactory.ToDocument(h.Policy))
}

// Health reports store and counter reachability.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthDTO{Status: "ok", Database: "ok"}
	if err := h.Store.Ping(ctx); err != nil {
		resp.Status, resp.Database = "degraded", err.Error()
	}
	if h.Counter != nil {
		resp.Counter = "ok"
		if err := h.Counter.Ping(ctx); err != nil {
			resp.Status, resp.Counter = "degraded", err.Error()
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// =============================================================================
// QUERY HELPERS
// =============================================================================

// queryInt parses an optional integer query parameter. Empty is zero.
func queryInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// period parses a required (year, month) pair.
func period(y, m string) (int, time.Month, error) {
	year, err := strconv.Atoi(y)
	if err != nil {
		return 0, 0, core.Invalid("invalid year %q", y)
	}
	month, err := strconv.Atoi(m)
	if err != nil || !clock.ValidPeriod(year, month) {
		return 0, 0, core.Invalid("invalid period %s-%s", y, m)
	}
	return year, time.Month(month), nil
}
