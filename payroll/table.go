package payroll

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PAY TABLE DEFAULTS
// =============================================================================

var (
	DefaultBasicSalary         = decimal.NewFromInt(40000)
	DefaultManagerOvertimeRate = decimal.NewFromInt(200)
	DefaultStandardRate        = decimal.NewFromInt(150)
	DefaultLowerTaxThreshold   = decimal.NewFromInt(50000)
	DefaultUpperTaxThreshold   = decimal.NewFromInt(100000)
	DefaultLowTaxRate          = decimal.RequireFromString("0.05")
	DefaultMidTaxRate          = decimal.RequireFromString("0.10")
	DefaultHighTaxRate         = decimal.RequireFromString("0.15")
	DefaultInsuranceRate       = decimal.RequireFromString("0.05")
)

// DefaultBasicSalaries is the compiled basic-salary-by-position table.
func DefaultBasicSalaries() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"Farm Manager": decimal.NewFromInt(90000),
		"Manager":      decimal.NewFromInt(80000),
		"Supervisor":   decimal.NewFromInt(60000),
		"Veterinarian": decimal.NewFromInt(70000),
		"Accountant":   decimal.NewFromInt(55000),
		"Worker":       decimal.NewFromInt(45000),
		"Farm Worker":  decimal.NewFromInt(45000),
		"Milker":       decimal.NewFromInt(42000),
		"Driver":       decimal.NewFromInt(40000),
	}
}

// DefaultManagerPositions are the positions paid at the manager overtime tier.
func DefaultManagerPositions() []string {
	return []string{"Farm Manager", "Manager", "Supervisor"}
}

// PayTable holds the position-based pay rules of a payroll run.
type PayTable struct {
	BasicSalaries    map[string]decimal.Decimal // keyed by position, case-insensitive
	DefaultBasic     decimal.Decimal
	ManagerPositions []string
	ManagerRate      decimal.Decimal // per overtime hour
	StandardRate     decimal.Decimal // per overtime hour

	LowerTaxThreshold decimal.Decimal
	UpperTaxThreshold decimal.Decimal
	LowTaxRate        decimal.Decimal
	MidTaxRate        decimal.Decimal
	HighTaxRate       decimal.Decimal
	InsuranceRate     decimal.Decimal
}

func DefaultPayTable() PayTable {
	return PayTable{
		BasicSalaries:     DefaultBasicSalaries(),
		DefaultBasic:      DefaultBasicSalary,
		ManagerPositions:  DefaultManagerPositions(),
		ManagerRate:       DefaultManagerOvertimeRate,
		StandardRate:      DefaultStandardRate,
		LowerTaxThreshold: DefaultLowerTaxThreshold,
		UpperTaxThreshold: DefaultUpperTaxThreshold,
		LowTaxRate:        DefaultLowTaxRate,
		MidTaxRate:        DefaultMidTaxRate,
		HighTaxRate:       DefaultHighTaxRate,
		InsuranceRate:     DefaultInsuranceRate,
	}
}

// BasicSalary returns the basic salary of a position, or DefaultBasic when unlisted.
func (t PayTable) BasicSalary(position string) decimal.Decimal {
	for name, amount := range t.BasicSalaries {
		if strings.EqualFold(name, strings.TrimSpace(position)) {
			return amount
		}
	}
	return t.DefaultBasic
}

// IsManager reports whether a position is paid at the manager overtime tier.
func (t PayTable) IsManager(position string) bool {
	for _, p := range t.ManagerPositions {
		if strings.EqualFold(p, strings.TrimSpace(position)) {
			return true
		}
	}
	return false
}

// OvertimeRate is the hourly overtime rate of a position.
func (t PayTable) OvertimeRate(position string) decimal.Decimal {
	if t.IsManager(position) {
		return t.ManagerRate
	}
	return t.StandardRate
}

// Tax is the tiered tax on a basic salary, rounded to whole currency.
func (t PayTable) Tax(basic decimal.Decimal) decimal.Decimal {
	rate := t.LowTaxRate
	switch {
	case basic.GreaterThan(t.UpperTaxThreshold):
		rate = t.HighTaxRate
	case basic.GreaterThan(t.LowerTaxThreshold):
		rate = t.MidTaxRate
	}
	return basic.Mul(rate).Round(0)
}

// Insurance is the flat insurance deduction on a basic salary, rounded to whole currency.
func (t PayTable) Insurance(basic decimal.Decimal) decimal.Decimal {
	return basic.Mul(t.InsuranceRate).Round(0)
}
