package overtime

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/farmops/clock"
)

// =============================================================================
// DURATION - Overtime amount, legacy decimal hours or "H:MM"
// =============================================================================

// DurationKind tags which representation a Duration was read from.
type DurationKind int

const (
	KindHoursMinutes DurationKind = iota
	KindDecimalHours
)

var minutesPerHour = decimal.NewFromInt(clock.MinutesPerHour)

// Duration is the overtime amount of a record.
//
// Older rows stored a plain decimal number of hours; current rows store an
// "H:MM" string. Both are read into this type and every computation goes
// through DecimalHours, so the two encodings never meet in arithmetic.
type Duration struct {
	kind    DurationKind
	hours   decimal.Decimal
	minutes int
}

// Hours builds a legacy decimal-hours duration.
func Hours(h decimal.Decimal) Duration {
	return Duration{kind: KindDecimalHours, hours: h}
}

// HoursMinutes builds an "H:MM" duration.
func HoursMinutes(h, m int) Duration {
	return Duration{kind: KindHoursMinutes, minutes: h*clock.MinutesPerHour + m}
}

// FromMinutes builds an "H:MM" duration from a minute count.
func FromMinutes(m int) Duration {
	if m < 0 {
		m = 0
	}
	return Duration{kind: KindHoursMinutes, minutes: m}
}

// ParseDuration reads either encoding. Empty text is a zero duration.
func ParseDuration(text string) (Duration, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return FromMinutes(0), nil
	}
	if strings.Contains(text, ":") {
		m, err := clock.ParseHM(text)
		if err != nil {
			return Duration{}, err
		}
		return FromMinutes(m), nil
	}
	h, err := decimal.NewFromString(text)
	if err != nil || h.IsNegative() {
		return Duration{}, &clock.MalformedTimeError{Input: text, Reason: "not a decimal hour count"}
	}
	return Hours(h), nil
}

func (d Duration) Kind() DurationKind { return d.kind }

// IsLegacy reports whether the value came from a decimal-hours row.
func (d Duration) IsLegacy() bool { return d.kind == KindDecimalHours }

// DecimalHours is the single normalization used for all overtime arithmetic.
func (d Duration) DecimalHours() decimal.Decimal {
	if d.kind == KindDecimalHours {
		return d.hours
	}
	return decimal.NewFromInt(int64(d.minutes)).Div(minutesPerHour)
}

// Minutes returns the duration in whole minutes (legacy hours are rounded).
func (d Duration) Minutes() int {
	if d.kind == KindDecimalHours {
		return int(d.hours.Mul(minutesPerHour).Round(0).IntPart())
	}
	return d.minutes
}

// Display renders the duration as "H:MM". This is the only form written back to storage.
func (d Duration) Display() string {
	return clock.FormatHM(d.Minutes())
}

func (d Duration) IsZero() bool { return d.Minutes() == 0 }

func (d Duration) String() string { return d.Display() }
