package overtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/warp/farmops/clock"
	"github.com/warp/farmops/core"
)

// Service owns overtime records: derivation, manual entry and approval status.
type Service struct {
	Store     Store
	Counter   core.Counter
	Directory core.EmployeeDirectory // optional; validates manual entries
	Policy    Policy
	Logger    *slog.Logger
	Now       func() time.Time
}

// NewService wires a Service with the given policy.
func NewService(store Store, counter core.Counter, policy Policy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if !policy.RegularHours.IsPositive() {
		policy.RegularHours = decimal.NewFromInt(DefaultRegularHours)
	}
	return &Service{
		Store:   store,
		Counter: counter,
		Policy:  policy,
		Logger:  logger,
		Now:     time.Now,
	}
}

// CreateInput is a manually entered overtime record.
type CreateInput struct {
	EmployeeID   core.EmployeeID
	Date         time.Time
	Overtime     Duration
	RegularHours *decimal.Decimal
	Description  string
}

// Create records overtime entered by hand. The employee-day must not already have a record.
func (s *Service) Create(ctx context.Context, in CreateInput) (Record, error) {
	if in.EmployeeID == "" {
		return Record{}, core.Invalid("employee id is required")
	}
	if in.Overtime.IsZero() {
		return Record{}, core.Invalid("overtime must be greater than zero")
	}
	if s.Directory != nil {
		if _, err := s.Directory.GetEmployee(ctx, in.EmployeeID); err != nil {
			return Record{}, err
		}
	}

	regular := s.Policy.RegularHours
	if in.RegularHours != nil {
		if in.RegularHours.IsNegative() {
			return Record{}, core.Invalid("regular hours cannot be negative")
		}
		regular = *in.RegularHours
	}

	day := clock.Day(in.Date)
	n, err := s.Counter.Next(ctx, core.CounterOvertimeRef)
	if err != nil {
		return Record{}, errors.Wrap(err, "allocate overtime reference")
	}

	now := s.Now()
	rec := Record{
		ID:           uuid.NewString(),
		Ref:          NewRef(in.EmployeeID, day, n),
		EmployeeID:   in.EmployeeID,
		Date:         day,
		RegularHours: regular,
		Overtime:     FromMinutes(in.Overtime.Minutes()),
		Status:       StatusPending,
		Description:  in.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	rec.Recalculate()

	if err := s.Store.CreateOvertime(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// SetStatus moves a record to Pending, Approved or Rejected.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (Record, error) {
	if !status.Valid() {
		return Record{}, errors.Wrapf(ErrInvalidStatus, "%q", status)
	}
	rec, err := s.Store.GetOvertime(ctx, id)
	if err != nil {
		return Record{}, err
	}
	rec.Status = status
	rec.UpdatedAt = s.Now()
	if err := s.Store.UpdateOvertime(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.Store.GetOvertime(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Record, error) {
	return s.Store.ListOvertime(ctx, filter)
}

// ApprovedHours sums Approved overtime for an employee within (year, month).
func (s *Service) ApprovedHours(ctx context.Context, employeeID core.EmployeeID, year int, month time.Month) (decimal.Decimal, error) {
	recs, err := s.Store.ListOvertime(ctx, Filter{
		EmployeeID: employeeID,
		Year:       year,
		Month:      month,
		Status:     StatusApproved,
	})
	if err != nil {
		return decimal.Zero, err
	}
	return SumHours(recs), nil
}

// SumHours adds up the overtime of the given records in decimal hours.
func SumHours(recs []Record) decimal.Decimal {
	total := decimal.Zero
	for _, r := range recs {
		total = total.Add(r.Overtime.DecimalHours())
	}
	return total
}
