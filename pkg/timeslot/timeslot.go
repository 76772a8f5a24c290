// Package timeslot provides minute-granularity arithmetic over the ISO date
// (2006-01-02) and wall-clock time (15:04) strings the engine stores slots in.
// Zero-padded strings compare correctly with plain string ordering, which the
// repositories rely on for range queries.
package timeslot

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Window is a half-open [Start, End) wall-clock range within one date.
type Window struct {
	Start string
	End   string
}

// MinutesOf converts an HH:MM value to minutes since midnight.
func MinutesOf(value string) (int, error) {
	parsed, err := time.Parse(TimeLayout, value)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", value, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// FormatMinutes converts minutes since midnight back to HH:MM.
func FormatMinutes(total int) string {
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// ValidateRange checks that [start, end) is a well-formed window aligned to the
// given granularity in minutes.
func ValidateRange(start, end string, granularity int) error {
	startMin, err := MinutesOf(start)
	if err != nil {
		return err
	}
	endMin, err := MinutesOf(end)
	if err != nil {
		return err
	}
	if endMin <= startMin {
		return fmt.Errorf("end %q must be after start %q", end, start)
	}
	if granularity <= 0 {
		return fmt.Errorf("granularity must be positive")
	}
	if startMin%granularity != 0 || (endMin-startMin)%granularity != 0 {
		return fmt.Errorf("range %s-%s is not aligned to %d minutes", start, end, granularity)
	}
	return nil
}

// SplitWindows cuts [start, end) into consecutive granularity-sized windows.
func SplitWindows(start, end string, granularity int) ([]Window, error) {
	if err := ValidateRange(start, end, granularity); err != nil {
		return nil, err
	}
	startMin, _ := MinutesOf(start)
	endMin, _ := MinutesOf(end)

	windows := make([]Window, 0, (endMin-startMin)/granularity)
	for cursor := startMin; cursor < endMin; cursor += granularity {
		windows = append(windows, Window{
			Start: FormatMinutes(cursor),
			End:   FormatMinutes(cursor + granularity),
		})
	}
	return windows, nil
}

// Overlaps reports general interval overlap between two half-open windows:
// partial, containing, and contained overlaps all count, touching edges do not.
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	return aStart < bEnd && aEnd > bStart
}

// ParseDate validates an ISO date string.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return parsed, nil
}

// Weekday returns the weekday (0=Sunday..6=Saturday) of an ISO date.
func Weekday(date string) (int, error) {
	parsed, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return int(parsed.Weekday()), nil
}

// DatesBetween returns every ISO date in [from, to] inclusive.
func DatesBetween(from, to string) ([]string, error) {
	start, err := ParseDate(from)
	if err != nil {
		return nil, err
	}
	end, err := ParseDate(to)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("horizon end %q before start %q", to, from)
	}

	var dates []string
	for cursor := start; !cursor.After(end); cursor = cursor.AddDate(0, 0, 1) {
		dates = append(dates, cursor.Format(DateLayout))
	}
	return dates, nil
}

// CombineUTC merges an ISO date and HH:MM time into a UTC instant.
func CombineUTC(date, clock string) (time.Time, error) {
	combined, err := time.Parse(DateLayout+" "+TimeLayout, date+" "+clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date-time %q %q: %w", date, clock, err)
	}
	return combined.UTC(), nil
}
