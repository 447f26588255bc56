package agenda

import "time"

// UntitledSummary is substituted when a feed event carries no summary.
const UntitledSummary = "(untitled)"

// Stamp is a raw timestamp as it appeared in the feed. Wall carries the
// wall-clock reading; Zoned records whether the feed supplied timezone
// information. A zoned stamp is converted into the display zone, a naive one
// is reinterpreted there (localized, not shifted).
type Stamp struct {
	Wall  time.Time
	Zoned bool
}

// In resolves the stamp in loc.
func (s Stamp) In(loc *time.Location) time.Time {
	if s.Zoned {
		return s.Wall.In(loc)
	}
	w := s.Wall
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), loc)
}

// EventTime is the time shape of a raw feed event. Exactly one of the three
// concrete shapes makes an event usable; a nil or unknown shape is discarded
// during normalization.
type EventTime interface{ isEventTime() }

// Timed is an explicit start/end pair.
type Timed struct {
	Start Stamp
	End   Stamp
}

// AllDay is a date-only entry with no end or duration. The upstream feed
// uses these as point placeholders at local midnight, not as full-day
// blocks, so they normalize to a zero-length interval and drop out.
type AllDay struct {
	Year  int
	Month time.Month
	Day   int
}

// TimedDuration is a start plus an explicit duration.
type TimedDuration struct {
	Start    Stamp
	Duration time.Duration
}

func (Timed) isEventTime()         {}
func (AllDay) isEventTime()        {}
func (TimedDuration) isEventTime() {}

// RawEvent is a feed event before normalization.
type RawEvent struct {
	Summary string
	Time    EventTime
}

// Event is a normalized event: a summary plus a day-clipped interval in the
// display timezone, with End strictly after Start.
type Event struct {
	Summary string
	Start   time.Time
	End     time.Time
}
