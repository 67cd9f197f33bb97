/*
Package clock provides wall-clock and calendar arithmetic for the attendance pipeline.

PURPOSE:
  Attendance rows carry display-formatted clock times ("08:45 AM", "17:30")
  rather than timestamps. Every rule in the pipeline (late arrival, shift end,
  overtime) compares minutes-of-day, so this package is the single place that
  turns display strings into minutes and back.

ACCEPTED FORMATS:
  "H:MM AM" / "H:MM PM"  12-hour, meridiem is case-insensitive, space optional
  "HH:MM"                24-hour

12-HOUR RULE:
  PM and hour != 12  -> hour + 12
  AM and hour == 12  -> 0

FAILURE MODE:
  Unparsable input returns *MalformedTimeError. Manual entry drops the
  value with a warning; overtime derivation reports it in its outcome.

SEE ALSO:
  - calendar.go: day/month helpers
  - attendance/machine.go: status derivation from check-in minutes
  - overtime/derive.go: overtime minutes from check-out
*/
package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	MinutesPerHour = 60
	MinutesPerDay  = 24 * MinutesPerHour
)

// DisplayLayout is the layout used for check-in/check-out strings written by the pipeline.
const DisplayLayout = "03:04 PM"

// ErrMalformedTime is the sentinel behind every MalformedTimeError.
var ErrMalformedTime = errors.New("malformed time")

// MalformedTimeError reports a display time that could not be split into hour and minute.
type MalformedTimeError struct {
	Input  string
	Reason string
}

func (e *MalformedTimeError) Error() string {
	return fmt.Sprintf("malformed time %q: %s", e.Input, e.Reason)
}

func (e *MalformedTimeError) Unwrap() error {
	return ErrMalformedTime
}

func malformed(input, reason string) error {
	return &MalformedTimeError{Input: input, Reason: reason}
}

// Parse converts a display time into a 24-hour (hour, minute) pair.
func Parse(s string) (hour, minute int, err error) {
	raw := s
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, 0, malformed(raw, "empty")
	}

	meridiem := ""
	switch {
	case strings.HasSuffix(s, "AM"):
		meridiem = "AM"
	case strings.HasSuffix(s, "PM"):
		meridiem = "PM"
	}
	if meridiem != "" {
		s = strings.TrimSpace(strings.TrimSuffix(s, meridiem))
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, malformed(raw, "expected hour:minute")
	}

	hour, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, malformed(raw, "hour is not a number")
	}
	minute, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, malformed(raw, "minute is not a number")
	}
	if minute < 0 || minute > 59 {
		return 0, 0, malformed(raw, "minute out of range")
	}

	switch meridiem {
	case "":
		if hour < 0 || hour > 23 {
			return 0, 0, malformed(raw, "hour out of range")
		}
	default:
		if hour < 0 || hour > 12 {
			return 0, 0, malformed(raw, "hour out of range for 12-hour clock")
		}
		if meridiem == "PM" && hour != 12 {
			hour += 12
		}
		if meridiem == "AM" && hour == 12 {
			hour = 0
		}
	}

	return hour, minute, nil
}

// MinutesOfDay converts a display time into minutes since midnight.
func MinutesOfDay(s string) (int, error) {
	h, m, err := Parse(s)
	if err != nil {
		return 0, err
	}
	return h*MinutesPerHour + m, nil
}

// At builds minutes-of-day from an hour and minute. Used for named thresholds.
func At(hour, minute int) int {
	return hour*MinutesPerHour + minute
}

// Display formats a timestamp as a check-in/check-out display string ("08:45 AM").
func Display(t time.Time) string {
	return t.Format(DisplayLayout)
}

// Normalize re-renders any accepted display time in DisplayLayout.
func Normalize(s string) (string, error) {
	h, m, err := Parse(s)
	if err != nil {
		return "", err
	}
	return Display(time.Date(2000, time.January, 1, h, m, 0, 0, time.UTC)), nil
}

// MinutesOfTime returns the minutes since midnight of a timestamp in its own location.
func MinutesOfTime(t time.Time) int {
	return t.Hour()*MinutesPerHour + t.Minute()
}

// =============================================================================
// DURATION STRINGS ("H:MM")
// =============================================================================

// FormatHM renders a minute count as "H:MM". Negative counts render as "0:00".
func FormatHM(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%d:%02d", minutes/MinutesPerHour, minutes%MinutesPerHour)
}

// ParseHM is the inverse of FormatHM.
func ParseHM(s string) (int, error) {
	raw := s
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, malformed(raw, "expected hours:minutes")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0, malformed(raw, "hours is not a non-negative number")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, malformed(raw, "minutes out of range")
	}
	return h*MinutesPerHour + m, nil
}
