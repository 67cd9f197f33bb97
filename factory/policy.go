/*
Package factory provides YAML to Go pay-policy conversion.

PURPOSE:
  Converts a pay-policy document into the attendance, overtime and payroll
  policies the services run with. Farm offices change thresholds and pay
  rates without a code change: edit the document, restart the server.

WHY YAML?
  - Office staff can edit it by hand
  - JSON documents parse unchanged (JSON is a YAML subset)
  - Comments can explain local rules next to the numbers

DOCUMENT SCHEMA:
  attendance:
    late_after: "09:30"            # automatic check-in, Present up to and including
    manual_present_before: "08:00" # manual entry, Present strictly before
    manual_absent_after: "10:00"   # manual entry, Absent strictly after
    present_on_check_out: false
  overtime:
    shift_end: "17:00"
    regular_hours: 8
  payroll:
    default_basic: 40000
    basic_salaries:
      Manager: 80000
      Worker: 45000
    manager_positions: [Manager, Farm Manager]
    manager_rate: 200
    standard_rate: 150
    tax:
      lower_threshold: 50000
      upper_threshold: 100000
      low_rate: 0.05
      mid_rate: 0.10
      high_rate: 0.15
    insurance_rate: 0.05

KEY FEATURES:
  - Every field is optional; missing fields keep the compiled defaults
  - Times accept any display format the clock package reads
  - Money and rates are parsed as decimals, never floats
  - basic_salaries is merged over the default table

USAGE:
  f := factory.NewPolicyFactory()
  policy, err := f.LoadFile("config/pay-policy.yaml")

SEE ALSO:
  - attendance/policy.go, overtime/types.go, payroll/table.go: the targets
*/
package factory

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/farmops/attendance"
	"github.com/warp/farmops/clock"
	"github.com/warp/farmops/overtime"
	"github.com/warp/farmops/payroll"
)

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// Document is the YAML representation of a pay policy.
type Document struct {
	Attendance *AttendanceDoc `yaml:"attendance,omitempty" json:"attendance,omitempty"`
	Overtime   *OvertimeDoc   `yaml:"overtime,omitempty" json:"overtime,omitempty"`
	Payroll    *PayrollDoc    `yaml:"payroll,omitempty" json:"payroll,omitempty"`
}

// AttendanceDoc holds the check-in status thresholds.
type AttendanceDoc struct {
	LateAfter           string `yaml:"late_after,omitempty" json:"late_after,omitempty"`
	ManualPresentBefore string `yaml:"manual_present_before,omitempty" json:"manual_present_before,omitempty"`
	ManualAbsentAfter   string `yaml:"manual_absent_after,omitempty" json:"manual_absent_after,omitempty"`
	PresentOnCheckOut   *bool  `yaml:"present_on_check_out,omitempty" json:"present_on_check_out,omitempty"`
}

// OvertimeDoc holds the shift boundary.
type OvertimeDoc struct {
	ShiftEnd     string `yaml:"shift_end,omitempty" json:"shift_end,omitempty"`
	RegularHours string `yaml:"regular_hours,omitempty" json:"regular_hours,omitempty"`
}

// PayrollDoc holds the pay table.
type PayrollDoc struct {
	DefaultBasic     string            `yaml:"default_basic,omitempty" json:"default_basic,omitempty"`
	BasicSalaries    map[string]string `yaml:"basic_salaries,omitempty" json:"basic_salaries,omitempty"`
	ManagerPositions []string          `yaml:"manager_positions,omitempty" json:"manager_positions,omitempty"`
	ManagerRate      string            `yaml:"manager_rate,omitempty" json:"manager_rate,omitempty"`
	StandardRate     string            `yaml:"standard_rate,omitempty" json:"standard_rate,omitempty"`
	Tax              *TaxDoc           `yaml:"tax,omitempty" json:"tax,omitempty"`
	InsuranceRate    string            `yaml:"insurance_rate,omitempty" json:"insurance_rate,omitempty"`
}

// TaxDoc holds the tiered tax rules.
type TaxDoc struct {
	LowerThreshold string `yaml:"lower_threshold,omitempty" json:"lower_threshold,omitempty"`
	UpperThreshold string `yaml:"upper_threshold,omitempty" json:"upper_threshold,omitempty"`
	LowRate        string `yaml:"low_rate,omitempty" json:"low_rate,omitempty"`
	MidRate        string `yaml:"mid_rate,omitempty" json:"mid_rate,omitempty"`
	HighRate       string `yaml:"high_rate,omitempty" json:"high_rate,omitempty"`
}

// Policy is the parsed result consumed by the services.
type Policy struct {
	Attendance attendance.Policy
	Overtime   overtime.Policy
	Pay        payroll.PayTable
}

// Defaults returns the compiled policy.
func Defaults() Policy {
	return Policy{
		Attendance: attendance.DefaultPolicy(),
		Overtime:   overtime.DefaultPolicy(),
		Pay:        payroll.DefaultPayTable(),
	}
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts pay-policy documents to Go structs.
type PolicyFactory struct{}

func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// LoadFile reads and parses a document. An empty path yields the defaults.
func (f *PolicyFactory) LoadFile(path string) (Policy, error) {
	if path == "" {
		return Defaults(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, errors.Wrapf(err, "read pay policy %s", path)
	}
	return f.ParsePolicy(string(raw))
}

// ParsePolicy parses a YAML (or JSON) document.
func (f *PolicyFactory) ParsePolicy(src string) (Policy, error) {
	var doc Document
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		return Policy{}, errors.Wrap(err, "failed to parse pay policy")
	}
	return f.FromDocument(doc)
}

// FromDocument applies a document over the defaults.
func (f *PolicyFactory) FromDocument(doc Document) (Policy, error) {
	p := Defaults()
	var err error

	if a := doc.Attendance; a != nil {
		if p.Attendance.LateAfter, err = minutes("attendance.late_after", a.LateAfter, p.Attendance.LateAfter); err != nil {
			return Policy{}, err
		}
		if p.Attendance.ManualPresentBefore, err = minutes("attendance.manual_present_before", a.ManualPresentBefore, p.Attendance.ManualPresentBefore); err != nil {
			return Policy{}, err
		}
		if p.Attendance.ManualAbsentAfter, err = minutes("attendance.manual_absent_after", a.ManualAbsentAfter, p.Attendance.ManualAbsentAfter); err != nil {
			return Policy{}, err
		}
		if a.PresentOnCheckOut != nil {
			p.Attendance.PresentOnCheckOut = *a.PresentOnCheckOut
		}
		if p.Attendance.ManualPresentBefore > p.Attendance.ManualAbsentAfter {
			return Policy{}, errors.New("attendance.manual_present_before must not be after manual_absent_after")
		}
	}

	if o := doc.Overtime; o != nil {
		if p.Overtime.ShiftEnd, err = minutes("overtime.shift_end", o.ShiftEnd, p.Overtime.ShiftEnd); err != nil {
			return Policy{}, err
		}
		if p.Overtime.RegularHours, err = amount("overtime.regular_hours", o.RegularHours, p.Overtime.RegularHours); err != nil {
			return Policy{}, err
		}
	}

	if pd := doc.Payroll; pd != nil {
		if err := applyPayroll(&p.Pay, *pd); err != nil {
			return Policy{}, err
		}
	}
	return p, nil
}

func applyPayroll(t *payroll.PayTable, pd PayrollDoc) error {
	var err error
	if t.DefaultBasic, err = amount("payroll.default_basic", pd.DefaultBasic, t.DefaultBasic); err != nil {
		return err
	}
	for position, raw := range pd.BasicSalaries {
		v, err := amount("payroll.basic_salaries."+position, raw, decimal.Zero)
		if err != nil {
			return err
		}
		for existing := range t.BasicSalaries {
			if strings.EqualFold(existing, position) {
				delete(t.BasicSalaries, existing)
			}
		}
		t.BasicSalaries[position] = v
	}
	if len(pd.ManagerPositions) > 0 {
		t.ManagerPositions = pd.ManagerPositions
	}
	if t.ManagerRate, err = amount("payroll.manager_rate", pd.ManagerRate, t.ManagerRate); err != nil {
		return err
	}
	if t.StandardRate, err = amount("payroll.standard_rate", pd.StandardRate, t.StandardRate); err != nil {
		return err
	}
	if t.InsuranceRate, err = amount("payroll.insurance_rate", pd.InsuranceRate, t.InsuranceRate); err != nil {
		return err
	}
	if tx := pd.Tax; tx != nil {
		fields := []struct {
			name string
			raw  string
			dst  *decimal.Decimal
		}{
			{"payroll.tax.lower_threshold", tx.LowerThreshold, &t.LowerTaxThreshold},
			{"payroll.tax.upper_threshold", tx.UpperThreshold, &t.UpperTaxThreshold},
			{"payroll.tax.low_rate", tx.LowRate, &t.LowTaxRate},
			{"payroll.tax.mid_rate", tx.MidRate, &t.MidTaxRate},
			{"payroll.tax.high_rate", tx.HighRate, &t.HighTaxRate},
		}
		for _, fld := range fields {
			if *fld.dst, err = amount(fld.name, fld.raw, *fld.dst); err != nil {
				return err
			}
		}
	}
	if t.LowerTaxThreshold.GreaterThan(t.UpperTaxThreshold) {
		return errors.New("payroll.tax.lower_threshold must not exceed upper_threshold")
	}
	return nil
}

// ToDocument renders a policy back into its document form.
func (f *PolicyFactory) ToDocument(p Policy) Document {
	present := p.Attendance.PresentOnCheckOut
	salaries := make(map[string]string, len(p.Pay.BasicSalaries))
	for position, v := range p.Pay.BasicSalaries {
		salaries[position] = v.String()
	}
	return Document{
		Attendance: &AttendanceDoc{
			LateAfter:           hm(p.Attendance.LateAfter),
			ManualPresentBefore: hm(p.Attendance.ManualPresentBefore),
			ManualAbsentAfter:   hm(p.Attendance.ManualAbsentAfter),
			PresentOnCheckOut:   &present,
		},
		Overtime: &OvertimeDoc{
			ShiftEnd:     hm(p.Overtime.ShiftEnd),
			RegularHours: p.Overtime.RegularHours.String(),
		},
		Payroll: &PayrollDoc{
			DefaultBasic:     p.Pay.DefaultBasic.String(),
			BasicSalaries:    salaries,
			ManagerPositions: p.Pay.ManagerPositions,
			ManagerRate:      p.Pay.ManagerRate.String(),
			StandardRate:     p.Pay.StandardRate.String(),
			Tax: &TaxDoc{
				LowerThreshold: p.Pay.LowerTaxThreshold.String(),
				UpperThreshold: p.Pay.UpperTaxThreshold.String(),
				LowRate:        p.Pay.LowTaxRate.String(),
				MidRate:        p.Pay.MidTaxRate.String(),
				HighRate:       p.Pay.HighTaxRate.String(),
			},
			InsuranceRate: p.Pay.InsuranceRate.String(),
		},
	}
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func minutes(field, raw string, fallback int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	m, err := clock.MinutesOfDay(raw)
	if err != nil {
		return 0, errors.Wrap(err, field)
	}
	return m, nil
}

func amount(field, raw string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "%s: not a number", field)
	}
	if v.IsNegative() {
		return decimal.Zero, errors.Errorf("%s: must not be negative", field)
	}
	return v, nil
}

// hm renders minutes of day as "HH:MM".
func hm(m int) string {
	s := clock.FormatHM(m)
	if len(s) == 4 {
		return "0" + s
	}
	return s
}
