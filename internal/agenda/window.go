package agenda

import (
	"fmt"
	"time"
)

// Day is the half-open local-time window [Start, End) of a single calendar
// day. Both bounds carry the same location.
type Day struct {
	Start time.Time
	End   time.Time
}

// Today returns the Day containing now in the given location.
func Today(now time.Time, loc *time.Location) Day {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Day{Start: start, End: start.Add(24 * time.Hour)}
}

// Window is the working-hours range within a day to which free-slot search
// is restricted.
type Window struct {
	WorkStart time.Time
	WorkEnd   time.Time
}

// NewWindow derives the work window from day plus wall-clock hour offsets
// (e.g. 8 and 21 for 08:00–21:00). Hours outside [0,24] or an inverted range
// are configuration errors.
func NewWindow(day Day, startHour, endHour int) (Window, error) {
	if startHour < 0 || startHour > 24 {
		return Window{}, &ConfigError{Field: "workday_start_hour", Reason: fmt.Sprintf("%d is outside [0,24]", startHour)}
	}
	if endHour < 0 || endHour > 24 {
		return Window{}, &ConfigError{Field: "workday_end_hour", Reason: fmt.Sprintf("%d is outside [0,24]", endHour)}
	}
	if startHour >= endHour {
		return Window{}, &ConfigError{Field: "workday_start_hour", Reason: fmt.Sprintf("start hour %d is not before end hour %d", startHour, endHour)}
	}

	loc := day.Start.Location()
	y, m, d := day.Start.Date()
	return Window{
		WorkStart: time.Date(y, m, d, startHour, 0, 0, 0, loc),
		WorkEnd:   time.Date(y, m, d, endHour, 0, 0, 0, loc),
	}, nil
}
