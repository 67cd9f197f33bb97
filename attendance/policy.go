package attendance

import "github.com/warp/farmops/clock"

// Thresholds in minutes of day.
//
// The automatic (scan) path and the manual-entry path use different cut-offs.
// Both are kept configurable; see DESIGN.md for the open question on whether
// they should converge.
var (
	DefaultLateAfter           = clock.At(9, 30)
	DefaultManualPresentBefore = clock.At(8, 0)
	DefaultManualAbsentAfter   = clock.At(10, 0)
)

// Policy holds the status rules of the state machine.
type Policy struct {
	LateAfter           int
	ManualPresentBefore int
	ManualAbsentAfter   int

	// PresentOnCheckOut standardizes status to Present once a check-out is recorded.
	// When false the status derived at check-in is kept.
	PresentOnCheckOut bool
}

func DefaultPolicy() Policy {
	return Policy{
		LateAfter:           DefaultLateAfter,
		ManualPresentBefore: DefaultManualPresentBefore,
		ManualAbsentAfter:   DefaultManualAbsentAfter,
	}
}

// CheckInStatus is the status of an automatic check-in at the given minute.
func (p Policy) CheckInStatus(minutes int) Status {
	if minutes <= p.LateAfter {
		return StatusPresent
	}
	return StatusLate
}

// ManualStatus derives the status of a manual entry from its check-in string.
// A missing or unreadable check-in means Absent.
func (p Policy) ManualStatus(checkIn string) Status {
	minutes, err := clock.MinutesOfDay(checkIn)
	if err != nil {
		return StatusAbsent
	}
	switch {
	case minutes < p.ManualPresentBefore:
		return StatusPresent
	case minutes <= p.ManualAbsentAfter:
		return StatusLate
	default:
		return StatusAbsent
	}
}
