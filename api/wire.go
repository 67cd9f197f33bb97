package api

import (
	"log/slog"

	"github.com/warp/farmops/attendance"
	"github.com/warp/farmops/core"
	"github.com/warp/farmops/factory"
	"github.com/warp/farmops/overtime"
	"github.com/warp/farmops/payroll"
)

// PipelineStore is everything the services persist to. store/sqlite and
// store/memory both satisfy it.
type PipelineStore interface {
	core.EmployeeDirectory
	attendance.Store
	overtime.Store
	payroll.Store
}

// Services bundles the pipeline the handlers delegate to.
type Services struct {
	Attendance *attendance.Service
	Overtime   *overtime.Service
	Payroll    *payroll.Engine
}

// Wire builds attendance -> overtime -> payroll over one store.
// counter may differ from the store (e.g. Redis shared by several processes).
func Wire(store PipelineStore, counter core.Counter, policy factory.Policy, workers int, logger *slog.Logger) Services {
	if logger == nil {
		logger = slog.Default()
	}

	ot := overtime.NewService(store, counter, policy.Overtime, logger.With("component", "overtime"))
	ot.Directory = store

	att := attendance.NewService(store, store, counter, ot, policy.Attendance, logger.With("component", "attendance"))

	pay := payroll.NewEngine(store, store, store, ot, policy.Pay, logger.With("component", "payroll"))
	if workers > 1 {
		pay.Workers = workers
	}

	return Services{Attendance: att, Overtime: ot, Payroll: pay}
}
