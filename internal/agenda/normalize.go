package agenda

import (
	"sort"
	"time"
)

// Normalize converts raw feed events into day-clipped events in loc, ordered
// by clipped start (stable, so feed order breaks ties). Events that carry no
// usable time shape or do not intersect the day are silently dropped;
// malformed feed data is routine and never an error here.
func Normalize(raw []RawEvent, day Day, loc *time.Location) []Event {
	out := make([]Event, 0, len(raw))

	for _, re := range raw {
		start, end, ok := resolveInterval(re.Time, loc)
		if !ok {
			continue
		}

		// Clip to today.
		if start.Before(day.Start) {
			start = day.Start
		}
		if end.After(day.End) {
			end = day.End
		}
		if !end.After(start) {
			continue
		}

		summary := re.Summary
		if summary == "" {
			summary = UntitledSummary
		}
		out = append(out, Event{Summary: summary, Start: start, End: end})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// resolveInterval maps each raw time shape onto a local interval. A date-only
// entry yields an instantaneous point at local midnight; the caller's
// end > start check then drops it.
func resolveInterval(t EventTime, loc *time.Location) (start, end time.Time, ok bool) {
	switch v := t.(type) {
	case Timed:
		return v.Start.In(loc), v.End.In(loc), true
	case AllDay:
		midnight := time.Date(v.Year, v.Month, v.Day, 0, 0, 0, 0, loc)
		return midnight, midnight, true
	case TimedDuration:
		s := v.Start.In(loc)
		return s, s.Add(v.Duration), true
	default:
		return time.Time{}, time.Time{}, false
	}
}
