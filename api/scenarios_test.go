package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadScenario(t *testing.T, router http.Handler, id string, seed int64) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id, Seed: seed})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestListScenarios(t *testing.T) {
	_, router := setupTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decodeBody[[]ScenarioDTO](t, rec)
	require.Len(t, list, 3)
	assert.Equal(t, "dairy-crew", list[0].ID)
}

func TestLoadScenario_DairyCrew(t *testing.T) {
	_, router := setupTestServer(t)

	// GIVEN: The dairy-crew scenario is loaded
	loadScenario(t, router, "dairy-crew", 0)

	// THEN: It is the current scenario
	current := decodeBody[ScenarioDTO](t, doJSON(t, router, http.MethodGet, "/api/scenarios/current", nil))
	assert.Equal(t, "dairy-crew", current.ID)

	// AND: Four hands have a record for today
	recs := decodeBody[[]AttendanceDTO](t, doJSON(t, router, http.MethodGet, "/api/attendance?date=2025-06-10", nil))
	require.Len(t, recs, 4)
	byEmp := map[string]AttendanceDTO{}
	for _, r := range recs {
		byEmp[r.EmployeeID] = r
	}
	assert.Equal(t, "Present", byEmp["EMP001"].Status)
	assert.Equal(t, "Late", byEmp["EMP003"].Status)
	assert.Equal(t, "Not yet", byEmp["EMP004"].CheckOut)

	// AND: EMP001 worked 2:30 past the shift end
	ot := decodeBody[[]OvertimeDTO](t, doJSON(t, router, http.MethodGet, "/api/overtime?employee_id=EMP001", nil))
	require.Len(t, ot, 1)
	assert.Equal(t, "2:30", ot[0].Overtime)
	assert.Equal(t, "Pending", ot[0].Status)
}

func TestLoadScenario_MonthEndPayroll(t *testing.T) {
	_, router := setupTestServer(t)

	// GIVEN: May 2025 with absences, a leave day and approved overtime
	loadScenario(t, router, "month-end-payroll", 0)

	// WHEN: Payroll is processed for May
	rec := doJSON(t, router, http.MethodPost, "/api/payroll/process", ProcessPayrollRequest{Year: 2025, Month: 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[ProcessPayrollResponse](t, rec)

	// THEN: Every hand is processed with deductions and overtime pay
	assert.Equal(t, 4, res.ProcessedCount)
	assert.Zero(t, res.FailedCount)

	byEmp := map[string]PayrollDTO{}
	for _, p := range res.Records {
		byEmp[p.EmployeeID] = p
	}
	require.Len(t, byEmp, 4)

	assert.Equal(t, 2903.0, byEmp["EMP001"].Deductions) // 2 of 31 days absent
	assert.Equal(t, 0.0, byEmp["EMP001"].OvertimePay)

	assert.Equal(t, 2000.0, byEmp["EMP002"].OvertimePay) // 4 x 2:30 at the manager rate
	assert.Equal(t, "10:00", byEmp["EMP002"].OvertimeHours)

	assert.Equal(t, 900.0, byEmp["EMP003"].OvertimePay) // 6 x 1:00
	assert.Equal(t, 0.0, byEmp["EMP003"].Deductions)

	assert.Equal(t, 1290.0, byEmp["EMP004"].Deductions) // leave day is not attended

	for _, p := range byEmp {
		assert.Equal(t, p.TotalSalary-p.Deductions-p.TaxDeduction-p.InsuranceDeduction, p.NetSalary, p.EmployeeID)
	}
}

func TestLoadScenario_SeasonalHarvest(t *testing.T) {
	_, router := setupTestServer(t)

	// GIVEN: A seeded seasonal crew
	loadScenario(t, router, "seasonal-harvest", 7)

	// THEN: The directory holds only the generated crew
	emps := decodeBody[[]EmployeeDTO](t, doJSON(t, router, http.MethodGet, "/api/employees", nil))
	require.Len(t, emps, seasonalCrewSize)
	assert.Equal(t, "SEA001", emps[0].ID)
	for _, e := range emps {
		assert.Equal(t, "Harvest", e.Department)
		assert.NotEmpty(t, e.Name)
	}

	// AND: Five closed days per hand
	recs := decodeBody[[]AttendanceDTO](t, doJSON(t, router, http.MethodGet, "/api/attendance", nil))
	assert.Len(t, recs, seasonalCrewSize*5)
	for _, r := range recs {
		assert.NotEqual(t, "Not yet", r.CheckOut)
	}
}

func TestLoadScenario_Unknown(t *testing.T) {
	_, router := setupTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "moon-base"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/scenarios/load", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetDatabase(t *testing.T) {
	_, router := setupTestServer(t)
	loadScenario(t, router, "dairy-crew", 0)

	// WHEN: The database is reset
	rec := doJSON(t, router, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN: No scenario is current and no data remains
	rec = doJSON(t, router, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	recs := decodeBody[[]AttendanceDTO](t, doJSON(t, router, http.MethodGet, "/api/attendance", nil))
	assert.Empty(t, recs)
	emps := decodeBody[[]EmployeeDTO](t, doJSON(t, router, http.MethodGet, "/api/employees", nil))
	assert.Empty(t, emps)
}
