/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with a farm crew
	and a history of scans. Loaders drive the real services (scan, manual
	entry, overtime approval) so every record goes through the pipeline.

AVAILABLE SCENARIOS:

	dairy-crew:         Four hands, one day of scans (Present, Late, overtime)
	month-end-payroll:  Full previous month with absences and approved
	                    overtime, ready for POST /api/payroll/process
	seasonal-harvest:   Generated seasonal crew with a week of random scans;
	                    overtime left Pending for approval

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Save employees into the directory
 3. Replay check-ins/check-outs through the attendance service
 4. Optionally approve derived overtime

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "seasonal-harvest", "seed": 7}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Attendance/overtime handlers the scenarios feed
  - attendance/machine.go: Scan state machine
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit"
	"github.com/pkg/errors"

	"github.com/warp/farmops/attendance"
	"github.com/warp/farmops/clock"
	"github.com/warp/farmops/core"
	"github.com/warp/farmops/overtime"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "dairy-crew",
		Name:        "Dairy Crew",
		Description: "Four hands, one day of scans: on time, late, overtime past 17:00",
	},
	{
		ID:          "month-end-payroll",
		Name:        "Month-End Payroll",
		Description: "Previous month of attendance with absences and approved overtime",
	},
	{
		ID:          "seasonal-harvest",
		Name:        "Seasonal Harvest",
		Description: "Generated seasonal crew, a week of random scans, overtime pending approval",
	},
}

// seasonalCrewSize is how many hands seasonal-harvest generates.
const seasonalCrewSize = 6

var dairyCrew = []core.Employee{
	{ID: "EMP001", Name: "Ana Ruiz", Position: "Farm Worker", Department: "Dairy"},
	{ID: "EMP002", Name: "Ben Okafor", Position: "Farm Manager", Department: "Operations"},
	{ID: "EMP003", Name: "Chidi Mensah", Position: "Milker", Department: "Dairy"},
	{ID: "EMP004", Name: "Dana Kowalski", Position: "Driver", Department: "Logistics"},
}

var seasonalPositions = []string{"Farm Worker", "Farm Worker", "Milker", "Driver", "Supervisor"}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := h.decode(r, &req); err != nil {
		writeDomainError(w, "Invalid request body", err)
		return
	}

	var load func(context.Context, int64) error
	switch req.ScenarioID {
	case "dairy-crew":
		load = h.loadDairyCrewScenario
	case "month-end-payroll":
		load = h.loadMonthEndPayrollScenario
	case "seasonal-harvest":
		load = h.loadSeasonalHarvestScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeDomainError(w, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if err := load(ctx, req.Seed); err != nil {
		writeDomainError(w, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID
	h.Logger.Info("scenario loaded", "scenario", req.ScenarioID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeDomainError(w, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadDairyCrewScenario(ctx context.Context, _ int64) error {
	if err := h.saveEmployees(ctx, dairyCrew); err != nil {
		return err
	}

	today := clock.Day(h.Now())
	shifts := []struct {
		id      core.EmployeeID
		in, out int
	}{
		{"EMP001", clock.At(8, 45), clock.At(19, 30)}, // Present, 2:30 overtime
		{"EMP002", clock.At(7, 50), clock.At(17, 0)},  // Present, no overtime
		{"EMP003", clock.At(9, 45), clock.At(18, 15)}, // Late, 1:15 overtime
		{"EMP004", clock.At(8, 10), -1},               // still on the road
	}
	for _, s := range shifts {
		if err := h.replayShift(ctx, s.id, today, s.in, s.out); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadMonthEndPayrollScenario(ctx context.Context, _ int64) error {
	if err := h.saveEmployees(ctx, dairyCrew); err != nil {
		return err
	}

	now := h.Now()
	first := clock.StartOfMonth(now.Year(), now.Month()).AddDate(0, -1, 0)
	year, month := first.Year(), first.Month()
	days := clock.DaysInMonth(year, month)

	for d := 1; d <= days; d++ {
		day := clock.NewDay(year, month, d)
		for _, emp := range dairyCrew {
			switch {
			case emp.ID == "EMP001" && (d == 3 || d == 4):
				continue // two absent days
			case emp.ID == "EMP004" && d == 10:
				if _, err := h.Services.Attendance.ManualUpsert(ctx, attendance.ManualEntry{
					EmployeeID: emp.ID, Date: day, Status: attendance.StatusOnLeave,
				}, now); err != nil {
					return err
				}
				continue
			}

			out := clock.At(17, 0)
			if emp.ID == "EMP002" && d%7 == 0 {
				out = clock.At(19, 30)
			}
			if emp.ID == "EMP003" && d%5 == 0 {
				out = clock.At(18, 0)
			}
			if err := h.replayShift(ctx, emp.ID, day, clock.At(8, 30), out); err != nil {
				return err
			}
		}
	}

	return h.approveOvertime(ctx, year, month)
}

func (h *Handler) loadSeasonalHarvestScenario(ctx context.Context, seed int64) error {
	if seed == 0 {
		seed = h.Now().UnixNano()
	}
	gofakeit.Seed(seed)

	crew := make([]core.Employee, seasonalCrewSize)
	for i := range crew {
		crew[i] = core.Employee{
			ID:         core.EmployeeID(fmt.Sprintf("SEA%03d", i+1)),
			Name:       gofakeit.Name(),
			Position:   seasonalPositions[gofakeit.Number(0, len(seasonalPositions)-1)],
			Department: "Harvest",
		}
	}
	if err := h.saveEmployees(ctx, crew); err != nil {
		return err
	}

	today := clock.Day(h.Now())
	for back := 5; back >= 1; back-- {
		day := today.AddDate(0, 0, -back)
		for _, emp := range crew {
			in := gofakeit.Number(clock.At(7, 30), clock.At(10, 15))
			out := gofakeit.Number(clock.At(16, 30), clock.At(20, 0))
			if err := h.replayShift(ctx, emp.ID, day, in, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) saveEmployees(ctx context.Context, emps []core.Employee) error {
	for _, emp := range emps {
		if err := h.Store.SaveEmployee(ctx, emp); err != nil {
			return err
		}
	}
	return nil
}

// replayShift scans an employee in and (when out >= 0) out on day.
// Times are minutes of day.
func (h *Handler) replayShift(ctx context.Context, id core.EmployeeID, day time.Time, in, out int) error {
	at := func(m int) time.Time { return day.Add(time.Duration(m) * time.Minute) }

	if _, err := h.Services.Attendance.Scan(ctx, attendance.Event{EmployeeID: id, At: at(in)}); err != nil {
		return errors.Wrapf(err, "check-in %s on %s", id, clock.FormatDate(day))
	}
	if out < 0 {
		return nil
	}
	res, err := h.Services.Attendance.Scan(ctx, attendance.Event{EmployeeID: id, At: at(out)})
	if err != nil {
		return errors.Wrapf(err, "check-out %s on %s", id, clock.FormatDate(day))
	}
	if res.Overtime != nil && res.Overtime.Err != nil {
		return errors.Wrapf(res.Overtime.Err, "overtime %s on %s", id, clock.FormatDate(day))
	}
	return nil
}

func (h *Handler) approveOvertime(ctx context.Context, year int, month time.Month) error {
	recs, err := h.Services.Overtime.List(ctx, overtime.Filter{Year: year, Month: month, Status: overtime.StatusPending})
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if _, err := h.Services.Overtime.SetStatus(ctx, rec.ID, overtime.StatusApproved); err != nil {
			return err
		}
	}
	return nil
}
