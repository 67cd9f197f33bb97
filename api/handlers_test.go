/*
handlers_test.go - HTTP tests for the pipeline endpoints

Tests for:
- Badge scans walking NoRecord -> CheckedIn -> CheckedOut
- Error code mapping (duplicate, not checked in, unknown employee, validation)
- Manual attendance upsert with warnings and overtime re-derivation
- Overtime entry and approval
- Payroll batch, manual record, status transitions
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/farmops/core"
	"github.com/warp/farmops/factory"
	"github.com/warp/farmops/store/sqlite"
)

var fixedNow = time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)

var testCrew = []core.Employee{
	{ID: "EMP001", Name: "Ana Ruiz", Position: "Farm Worker", Department: "Dairy"},
	{ID: "EMP002", Name: "Ben Okafor", Position: "Farm Manager", Department: "Operations"},
}

func setupTestServer(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	for _, emp := range testCrew {
		require.NoError(t, store.SaveEmployee(ctx, emp))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	policy := factory.Defaults()
	h := NewHandler(store, Wire(store, store, policy, 1, logger), policy, logger)
	h.Now = func() time.Time { return fixedNow }
	return h, NewRouter(h, nil)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func scan(id, ts string) map[string]string {
	return map[string]string{"employee_id": id, "event_timestamp": ts}
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func TestScan_FullDay(t *testing.T) {
	_, router := setupTestServer(t)

	// GIVEN: No record for EMP001 today
	// WHEN: The badge is scanned at 08:45
	rec := doJSON(t, router, http.MethodPost, "/api/attendance/scan", scan("EMP001", "2025-06-10T08:45:00Z"))

	// THEN: The day opens as Present with no check-out yet
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	in := decodeBody[ScanResponse](t, rec)
	assert.Equal(t, "checkin", in.Action)
	assert.Equal(t, "08:45 AM", in.Record.CheckIn)
	assert.Equal(t, "Not yet", in.Record.CheckOut)
	assert.Equal(t, "Present", in.Record.Status)
	assert.Equal(t, "Ana Ruiz", in.Record.EmployeeName)
	assert.Nil(t, in.DerivationDTO)

	// WHEN: The badge is scanned again at 19:30
	rec = doJSON(t, router, http.MethodPost, "/api/attendance/scan", scan("EMP001", "2025-06-10T19:30:00Z"))

	// THEN: The day closes and 2:30 of overtime is derived
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeBody[ScanResponse](t, rec)
	assert.Equal(t, "checkout", out.Action)
	assert.Equal(t, "07:30 PM", out.Record.CheckOut)
	require.NotNil(t, out.DerivationDTO)
	assert.Equal(t, "2:30", out.OvertimeHours)
	assert.Equal(t, 8.0, out.RegularHours)
	assert.Equal(t, 10.5, out.TotalHours)
	assert.Empty(t, out.OvertimeError)
	require.NotNil(t, out.Overtime)
	assert.Equal(t, "OT-EMP001-20250610-0001", out.Overtime.Ref)
	assert.Equal(t, "Pending", out.Overtime.Status)

	// WHEN: A third scan arrives
	rec = doJSON(t, router, http.MethodPost, "/api/attendance/scan", scan("EMP001", "2025-06-10T20:00:00Z"))

	// THEN: Nothing changes
	require.Equal(t, http.StatusOK, rec.Code)
	again := decodeBody[ScanResponse](t, rec)
	assert.Equal(t, "already_checked_out", again.Action)
	assert.Equal(t, "07:30 PM", again.Record.CheckOut)
}

func TestCheckIn_LateThenDuplicate(t *testing.T) {
	_, router := setupTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/attendance/check-in", scan("EMP001", "2025-06-10T09:45:00Z"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Late", decodeBody[ScanResponse](t, rec).Record.Status)

	rec = doJSON(t, router, http.MethodPost, "/api/attendance/check-in", scan("EMP001", "2025-06-10T10:00:00Z"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeAlreadyCheckedIn, decodeBody[ErrorResponse](t, rec).Code)
}

func TestCheckOut_Errors(t *testing.T) {
	_, router := setupTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/attendance/check-out", scan("EMP001", "2025-06-10T17:00:00Z"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeNotCheckedIn, decodeBody[ErrorResponse](t, rec).Code)

	doJSON(t, router, http.MethodPost, "/api/attendance/check-in", scan("EMP001", "2025-06-10T08:00:00Z"))
	rec = doJSON(t, router, http.MethodPost, "/api/attendance/check-out", scan("EMP001", "2025-06-10T17:00:00Z"))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody[ScanResponse](t, rec)
	assert.Equal(t, "0:00", out.OvertimeHours)
	assert.Nil(t, out.Overtime)

	rec = doJSON(t, router, http.MethodPost, "/api/attendance/check-out", scan("EMP001", "2025-06-10T18:00:00Z"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeAlreadyCheckedOut, decodeBody[ErrorResponse](t, rec).Code)
}

func TestScan_RequestErrors(t *testing.T) {
	_, router := setupTestServer(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"unknown employee", scan("GHOST", "2025-06-10T08:00:00Z"), http.StatusNotFound, CodeNotFound},
		{"missing employee", map[string]string{"event_timestamp": "2025-06-10T08:00:00Z"}, http.StatusBadRequest, CodeValidation},
		{"bad timestamp", scan("EMP001", "yesterday at eight"), http.StatusBadRequest, CodeMalformedTime},
		{"bad json", "{not json", http.StatusBadRequest, CodeInvalidInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/attendance/scan", tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.code, decodeBody[ErrorResponse](t, rec).Code)
		})
	}
}

func TestScan_DefaultsToNow(t *testing.T) {
	_, router := setupTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/attendance/scan", map[string]string{"employee_id": "EMP002"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[ScanResponse](t, rec)
	assert.Equal(t, "2025-06-10", got.Record.Date)
	assert.Equal(t, "12:00 PM", got.Record.CheckIn)
	assert.Equal(t, "Late", got.Record.Status)
}

func TestUpsertAttendance(t *testing.T) {
	_, router := setupTestServer(t)

	// GIVEN: An administrator enters a day by hand
	rec := doJSON(t, router, http.MethodPut, "/api/attendance", map[string]string{
		"employee_id": "EMP001", "date": "2025-06-09", "check_in": "9:15 am",
	})

	// THEN: The record is created and the status derived from check-in
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[ManualAttendanceResponse](t, rec)
	assert.True(t, created.Created)
	assert.Equal(t, "09:15 AM", created.Record.CheckIn)
	assert.Equal(t, "Late", created.Record.Status)
	assert.Nil(t, created.DerivationDTO)

	// WHEN: The same day is corrected with a check-out past the shift
	rec = doJSON(t, router, http.MethodPut, "/api/attendance", map[string]string{
		"employee_id": "EMP001", "date": "2025-06-09", "check_in": "07:50 AM", "check_out": "18:30",
	})

	// THEN: The record is updated and overtime derived
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[ManualAttendanceResponse](t, rec)
	assert.False(t, updated.Created)
	assert.Equal(t, created.Record.ID, updated.Record.ID)
	assert.Equal(t, "Present", updated.Record.Status)
	assert.Equal(t, "06:30 PM", updated.Record.CheckOut)
	require.NotNil(t, updated.DerivationDTO)
	assert.Equal(t, "1:30", updated.OvertimeHours)

	// WHEN: The check-out is corrected back inside the shift
	rec = doJSON(t, router, http.MethodPut, "/api/attendance", map[string]string{
		"employee_id": "EMP001", "date": "2025-06-09", "check_in": "07:50 AM", "check_out": "16:45",
	})

	// THEN: The derived overtime is withdrawn
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	shortened := decodeBody[ManualAttendanceResponse](t, rec)
	require.NotNil(t, shortened.DerivationDTO)
	assert.Equal(t, "0:00", shortened.OvertimeHours)
	require.NotNil(t, shortened.Withdrawn)
	assert.Equal(t, "1:30", shortened.Withdrawn.Overtime)
	rec = doJSON(t, router, http.MethodGet, "/api/overtime?employee_id=EMP001", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]OvertimeDTO](t, rec))

	// WHEN: An unreadable time is sent with an explicit status
	rec = doJSON(t, router, http.MethodPut, "/api/attendance", map[string]string{
		"employee_id": "EMP002", "date": "2025-06-09", "check_in": "soon", "status": "On Leave",
	})

	// THEN: The time is dropped with a warning, the rest is saved
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	leave := decodeBody[ManualAttendanceResponse](t, rec)
	assert.Equal(t, "On Leave", leave.Record.Status)
	assert.Equal(t, "Not yet", leave.Record.CheckIn)
	assert.Len(t, leave.Warnings, 1)
}

func TestUpsertAttendance_Rejections(t *testing.T) {
	_, router := setupTestServer(t)

	rec := doJSON(t, router, http.MethodPut, "/api/attendance", map[string]string{
		"employee_id": "EMP001", "date": "2025-06-09", "status": "Sleeping",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInvalidStatus, decodeBody[ErrorResponse](t, rec).Code)

	rec = doJSON(t, router, http.MethodPut, "/api/attendance", map[string]string{
		"employee_id": "EMP001", "date": "09/06/2025",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListGetDeleteAttendance(t *testing.T) {
	_, router := setupTestServer(t)

	doJSON(t, router, http.MethodPost, "/api/attendance/scan", scan("EMP001", "2025-06-09T08:00:00Z"))
	doJSON(t, router, http.MethodPost, "/api/attendance/scan", scan("EMP001", "2025-06-10T08:00:00Z"))
	rec := doJSON(t, router, http.MethodPost, "/api/attendance/scan", scan("EMP002", "2025-06-10T08:05:00Z"))
	benID := decodeBody[ScanResponse](t, rec).Record.ID

	rec = doJSON(t, router, http.MethodGet, "/api/attendance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decodeBody[[]AttendanceDTO](t, rec)
	require.Len(t, all, 3)
	assert.Equal(t, "EMP002", all[0].EmployeeID)
	assert.Equal(t, "2025-06-09", all[2].Date)

	rec = doJSON(t, router, http.MethodGet, "/api/attendance?search=okafor", nil)
	require.Len(t, decodeBody[[]AttendanceDTO](t, rec), 1)

	rec = doJSON(t, router, http.MethodGet, "/api/attendance?date=2025-06-10", nil)
	require.Len(t, decodeBody[[]AttendanceDTO](t, rec), 2)

	rec = doJSON(t, router, http.MethodGet, "/api/attendance/"+benID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ben Okafor", decodeBody[AttendanceDTO](t, rec).EmployeeName)

	rec = doJSON(t, router, http.MethodDelete, "/api/attendance/"+benID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/attendance/"+benID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttendanceSummary(t *testing.T) {
	_, router := setupTestServer(t)

	doJSON(t, router, http.MethodPost, "/api/attendance/scan", scan("EMP001", "2025-06-09T08:00:00Z"))
	doJSON(t, router, http.MethodPost, "/api/attendance/scan", scan("EMP001", "2025-06-10T09:50:00Z"))

	rec := doJSON(t, router, http.MethodGet, "/api/attendance/summary?employee_id=EMP001&year=2025&month=6", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[map[string]any](t, rec)
	assert.Equal(t, 1.0, got["present"])
	assert.Equal(t, 1.0, got["late"])
	assert.Equal(t, 2.0, got["attended"])
	assert.Equal(t, 30.0, got["days_in_month"])

	rec = doJSON(t, router, http.MethodGet, "/api/attendance/summary?employee_id=EMP001&year=2025&month=13", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// OVERTIME
// =============================================================================

func TestOvertime_CreateApproveList(t *testing.T) {
	_, router := setupTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/overtime", map[string]any{
		"employee_id": "EMP001", "date": "2025-06-11", "overtime": "2:30", "description": "calving night",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[OvertimeDTO](t, rec)
	assert.Equal(t, "2:30", created.Overtime)
	assert.Equal(t, 10.5, created.TotalHours)
	assert.Equal(t, "Pending", created.Status)

	rec = doJSON(t, router, http.MethodPatch, "/api/overtime/"+created.ID+"/status", map[string]string{"status": "Approved"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Approved", decodeBody[OvertimeDTO](t, rec).Status)

	rec = doJSON(t, router, http.MethodGet, "/api/overtime?status=Approved&year=2025&month=6", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[[]OvertimeDTO](t, rec), 1)

	rec = doJSON(t, router, http.MethodGet, "/api/overtime/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.Ref, decodeBody[OvertimeDTO](t, rec).Ref)
}

func TestOvertime_Errors(t *testing.T) {
	_, router := setupTestServer(t)

	body := map[string]any{"employee_id": "EMP001", "date": "2025-06-11", "overtime": "1.5"}
	rec := doJSON(t, router, http.MethodPost, "/api/overtime", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decodeBody[OvertimeDTO](t, rec).ID

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"duplicate day", http.MethodPost, "/api/overtime", body, http.StatusConflict, CodeDuplicate},
		{"malformed amount", http.MethodPost, "/api/overtime",
			map[string]any{"employee_id": "EMP001", "date": "2025-06-12", "overtime": "lots"}, http.StatusBadRequest, CodeMalformedTime},
		{"negative regular hours", http.MethodPost, "/api/overtime",
			map[string]any{"employee_id": "EMP001", "date": "2025-06-12", "overtime": "1:00", "regular_hours": -1}, http.StatusBadRequest, CodeValidation},
		{"unknown status", http.MethodPatch, "/api/overtime/" + id + "/status",
			map[string]string{"status": "Maybe"}, http.StatusBadRequest, CodeInvalidStatus},
		{"unknown record", http.MethodPatch, "/api/overtime/nope/status",
			map[string]string{"status": "Approved"}, http.StatusNotFound, CodeNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.code, decodeBody[ErrorResponse](t, rec).Code)
		})
	}
}

// =============================================================================
// PAYROLL
// =============================================================================

func TestProcessPayroll_ManagerOvertimeThenSkip(t *testing.T) {
	_, router := setupTestServer(t)

	// GIVEN: The farm manager has 2:30 of approved overtime in June
	doJSON(t, router, http.MethodPost, "/api/attendance/scan", scan("EMP002", "2025-06-10T08:00:00Z"))
	rec := doJSON(t, router, http.MethodPost, "/api/attendance/scan", scan("EMP002", "2025-06-10T19:30:00Z"))
	otID := decodeBody[ScanResponse](t, rec).Overtime.ID
	doJSON(t, router, http.MethodPatch, "/api/overtime/"+otID+"/status", map[string]string{"status": "Approved"})

	// WHEN: June is processed for the manager
	req := map[string]any{"year": 2025, "month": 6, "employee_ids": []string{"EMP002"}}
	rec = doJSON(t, router, http.MethodPost, "/api/payroll/process", req)

	// THEN: Overtime pays at the manager rate
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[ProcessPayrollResponse](t, rec)
	assert.Equal(t, 1, res.ProcessedCount)
	require.Len(t, res.Records, 1)
	got := res.Records[0]
	assert.Equal(t, 90000.0, got.BasicSalary)
	assert.Equal(t, 500.0, got.OvertimePay)
	assert.Equal(t, "2:30", got.OvertimeHours)
	assert.Equal(t, "Pending", got.Status)
	assert.Equal(t, got.TotalSalary-got.Deductions-got.TaxDeduction-got.InsuranceDeduction, got.NetSalary)

	// WHEN: The same period is processed again
	rec = doJSON(t, router, http.MethodPost, "/api/payroll/process", req)

	// THEN: The employee is skipped
	res = decodeBody[ProcessPayrollResponse](t, rec)
	assert.Equal(t, 0, res.ProcessedCount)
	assert.Equal(t, 1, res.SkippedCount)
	assert.Equal(t, "already processed", res.Outcomes[0].Reason)
	assert.Empty(t, res.Records)
}

func TestProcessPayroll_UnknownEmployeeAndValidation(t *testing.T) {
	_, router := setupTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/payroll/process",
		map[string]any{"year": 2025, "month": 6, "employee_ids": []string{"EMP001", "GHOST"}})
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeBody[ProcessPayrollResponse](t, rec)
	assert.Equal(t, 1, res.ProcessedCount)
	assert.Equal(t, 1, res.FailedCount)
	assert.Equal(t, "employee not found", res.Outcomes[1].Reason)

	rec = doJSON(t, router, http.MethodPost, "/api/payroll/process", map[string]any{"year": 2025, "month": 13})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, decodeBody[ErrorResponse](t, rec).Code)
}

func TestCreatePayroll_DuplicateAndStatus(t *testing.T) {
	_, router := setupTestServer(t)

	body := map[string]any{
		"employee_id": "EMP001", "year": 2025, "month": 5,
		"basic_salary": 45000, "bonus": 500, "deductions": 0,
	}
	rec := doJSON(t, router, http.MethodPost, "/api/payroll", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[PayrollDTO](t, rec)
	assert.Equal(t, 45500.0, created.TotalSalary)
	assert.Equal(t, created.TotalSalary-created.TaxDeduction-created.InsuranceDeduction, created.NetSalary)

	rec = doJSON(t, router, http.MethodPost, "/api/payroll", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeDuplicatePayrollPeriod, decodeBody[ErrorResponse](t, rec).Code)

	rec = doJSON(t, router, http.MethodPatch, "/api/payroll/"+created.ID+"/status",
		map[string]string{"status": "Paid", "payment_method": "bank transfer"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decodeBody[PayrollDTO](t, rec)
	assert.Equal(t, "Paid", paid.Status)
	assert.Equal(t, "bank transfer", paid.PaymentMethod)
	assert.NotEmpty(t, paid.PaidAt)

	rec = doJSON(t, router, http.MethodPatch, "/api/payroll/"+created.ID+"/status", map[string]string{"status": "Pending"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeInvalidTransition, decodeBody[ErrorResponse](t, rec).Code)

	rec = doJSON(t, router, http.MethodGet, "/api/payroll?year=2025&month=5&status=Paid", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]PayrollDTO](t, rec), 1)

	rec = doJSON(t, router, http.MethodGet, "/api/payroll/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana Ruiz", decodeBody[PayrollDTO](t, rec).EmployeeName)

	rec = doJSON(t, router, http.MethodGet, "/api/payroll/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// DIRECTORY, POLICY, HEALTH
// =============================================================================

func TestEmployees(t *testing.T) {
	_, router := setupTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/employees", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	emps := decodeBody[[]EmployeeDTO](t, rec)
	require.Len(t, emps, 2)
	assert.Equal(t, "Farm Manager", emps[1].Position)

	rec = doJSON(t, router, http.MethodGet, "/api/employees/GHOST", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPolicy(t *testing.T) {
	_, router := setupTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/policy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decodeBody[factory.Document](t, rec)
	require.NotNil(t, doc.Attendance)
	assert.Equal(t, "09:30", doc.Attendance.LateAfter)
	require.NotNil(t, doc.Overtime)
	assert.Equal(t, "17:00", doc.Overtime.ShiftEnd)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return io.ErrUnexpectedEOF }

func TestHealth(t *testing.T) {
	h, router := setupTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody[HealthDTO](t, rec).Status)

	h.Counter = failingPinger{}
	rec = doJSON(t, router, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decodeBody[HealthDTO](t, rec).Status)
}
