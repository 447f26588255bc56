package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"companion/internal/agenda"
	appLog "companion/internal/log"
)

// ParseEvents parses an ICS payload into the raw event shapes the normalizer
// understands:
//
//   - DTSTART + DTEND            -> agenda.Timed
//   - date-only DTSTART, no end  -> agenda.AllDay
//   - DTSTART + DURATION         -> agenda.TimedDuration
//
// A VEVENT missing any usable combination is skipped; that is routine feed
// noise. A date/time value that is present but unparseable aborts with
// *agenda.ParseError, since it suggests the feed format changed.
func ParseEvents(body []byte) ([]agenda.RawEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	events := make([]agenda.RawEvent, 0)

	for _, ve := range cal.Events() {
		raw, ok, perr := parseVEvent(ve)
		if perr != nil {
			return nil, perr
		}
		if !ok {
			continue
		}
		events = append(events, raw)
	}

	appLog.Info("feed parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (agenda.RawEvent, bool, error) {
	var out agenda.RawEvent

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil || startProp.Value == "" {
		return out, false, nil
	}
	start, startDateOnly, err := parseStamp(startProp)
	if err != nil {
		return out, false, err
	}

	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil && endProp.Value != "" {
		end, _, err := parseStamp(endProp)
		if err != nil {
			return out, false, err
		}
		out.Time = agenda.Timed{Start: start, End: end}
		return out, true, nil
	}

	if durProp := ve.GetProperty("DURATION"); durProp != nil && durProp.Value != "" {
		dur, err := parseISODuration(durProp.Value)
		if err != nil {
			return out, false, &agenda.ParseError{Value: durProp.Value, Err: err}
		}
		out.Time = agenda.TimedDuration{Start: start, Duration: dur}
		return out, true, nil
	}

	if startDateOnly {
		w := start.Wall
		out.Time = agenda.AllDay{Year: w.Year(), Month: w.Month(), Day: w.Day()}
		return out, true, nil
	}

	// Timestamp start with neither end nor duration: unusable.
	return out, false, nil
}

// parseStamp parses a DTSTART/DTEND property into a Stamp, reporting whether
// the value was date-only. TZID and the UTC suffix mark the stamp as zoned;
// a bare local date-time stays naive so the normalizer can localize it.
func parseStamp(prop *ical.IANAProperty) (agenda.Stamp, bool, error) {
	v := strings.TrimSpace(prop.Value)
	if v == "" {
		return agenda.Stamp{}, false, &agenda.ParseError{Value: prop.Value}
	}

	dateOnly := !strings.Contains(v, "T")
	if params := prop.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			dateOnly = true
		}
	}

	if dateOnly {
		t, err := time.Parse("20060102", v)
		if err != nil {
			return agenda.Stamp{}, false, &agenda.ParseError{Value: v, Err: err}
		}
		return agenda.Stamp{Wall: t}, true, nil
	}

	// UTC form, e.g. 20250101T090000Z.
	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse("20060102T150405Z", v)
		if err != nil {
			return agenda.Stamp{}, false, &agenda.ParseError{Value: v, Err: err}
		}
		return agenda.Stamp{Wall: t.UTC(), Zoned: true}, false, nil
	}

	wall, err := time.Parse("20060102T150405", v)
	if err != nil {
		return agenda.Stamp{}, false, &agenda.ParseError{Value: v, Err: err}
	}

	// TZID parameter makes the stamp zoned. An unknown TZID degrades to a
	// naive stamp rather than failing the run.
	if params := prop.ICalParameters; params != nil {
		if tzs, ok := params["TZID"]; ok && len(tzs) > 0 && tzs[0] != "" {
			loc, lerr := time.LoadLocation(tzs[0])
			if lerr != nil {
				appLog.Debug("unknown TZID, treating stamp as naive", "tzid", tzs[0])
				return agenda.Stamp{Wall: wall}, false, nil
			}
			zoned := time.Date(wall.Year(), wall.Month(), wall.Day(),
				wall.Hour(), wall.Minute(), wall.Second(), 0, loc)
			return agenda.Stamp{Wall: zoned, Zoned: true}, false, nil
		}
	}

	return agenda.Stamp{Wall: wall}, false, nil
}

// parseISODuration parses the subset of RFC 5545 DURATION values seen in
// calendar feeds: [+-]P[nW][nD][T[nH][nM][nS]].
func parseISODuration(v string) (time.Duration, error) {
	s := strings.TrimSpace(strings.ToUpper(v))
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("duration %q does not start with P", v)
	}
	s = s[1:]

	var total time.Duration
	inTime := false
	num := 0
	haveNum := false

	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			num = num*10 + int(r-'0')
			haveNum = true
		case r == 'T':
			inTime = true
		default:
			if !haveNum {
				return 0, fmt.Errorf("duration %q: designator %q without a value", v, string(r))
			}
			var unit time.Duration
			switch {
			case r == 'W' && !inTime:
				unit = 7 * 24 * time.Hour
			case r == 'D' && !inTime:
				unit = 24 * time.Hour
			case r == 'H' && inTime:
				unit = time.Hour
			case r == 'M' && inTime:
				unit = time.Minute
			case r == 'S' && inTime:
				unit = time.Second
			default:
				return 0, fmt.Errorf("duration %q: unexpected designator %q", v, string(r))
			}
			total += time.Duration(num) * unit
			num = 0
			haveNum = false
		}
	}
	if haveNum {
		return 0, fmt.Errorf("duration %q: trailing value without designator", v)
	}
	if neg {
		total = -total
	}
	return total, nil
}
