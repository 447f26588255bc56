package agenda

import (
	"testing"
	"time"
)

func wall(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestNormalize_TimedEvent(t *testing.T) {
	day := testDay(t)
	y, m, d := day.Start.Date()

	raw := []RawEvent{{
		Summary: "standup",
		Time: Timed{
			Start: Stamp{Wall: wall(y, m, d, 9, 0)},
			End:   Stamp{Wall: wall(y, m, d, 9, 30)},
		},
	}}

	events := Normalize(raw, day, testLoc)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Summary != "standup" {
		t.Errorf("expected summary standup, got %q", ev.Summary)
	}
	if !ev.Start.Equal(at(day, 9, 0)) || !ev.End.Equal(at(day, 9, 30)) {
		t.Errorf("expected 09:00–09:30 local, got %s–%s",
			ev.Start.Format("15:04"), ev.End.Format("15:04"))
	}
}

func TestNormalize_NaiveStampIsLocalizedNotShifted(t *testing.T) {
	day := testDay(t)
	y, m, d := day.Start.Date()

	// The wall reading 14:00 carries no zone information; it must come out
	// as 14:00 in the display zone regardless of the Wall's carrier zone.
	raw := []RawEvent{{
		Summary: "naive",
		Time: Timed{
			Start: Stamp{Wall: wall(y, m, d, 14, 0), Zoned: false},
			End:   Stamp{Wall: wall(y, m, d, 15, 0), Zoned: false},
		},
	}}

	events := Normalize(raw, day, testLoc)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if !events[0].Start.Equal(at(day, 14, 0)) {
		t.Errorf("naive stamp was shifted: got %s, want 14:00",
			events[0].Start.Format("15:04"))
	}
}

func TestNormalize_ZonedStampIsConverted(t *testing.T) {
	day := testDay(t)
	y, m, d := day.Start.Date()

	// 20:00 UTC is 14:00 at UTC-6.
	raw := []RawEvent{{
		Summary: "zoned",
		Time: Timed{
			Start: Stamp{Wall: wall(y, m, d, 20, 0), Zoned: true},
			End:   Stamp{Wall: wall(y, m, d, 21, 0), Zoned: true},
		},
	}}

	events := Normalize(raw, day, testLoc)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if !events[0].Start.Equal(at(day, 14, 0)) || !events[0].End.Equal(at(day, 15, 0)) {
		t.Errorf("expected 14:00–15:00 local, got %s–%s",
			events[0].Start.Format("15:04"), events[0].End.Format("15:04"))
	}
}

func TestNormalize_StartPlusDuration(t *testing.T) {
	day := testDay(t)
	y, m, d := day.Start.Date()

	raw := []RawEvent{{
		Summary: "review",
		Time: TimedDuration{
			Start:    Stamp{Wall: wall(y, m, d, 10, 0)},
			Duration: 90 * time.Minute,
		},
	}}

	events := Normalize(raw, day, testLoc)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if !events[0].End.Equal(at(day, 11, 30)) {
		t.Errorf("expected end 11:30, got %s", events[0].End.Format("15:04"))
	}
}

func TestNormalize_AllDayIsPointAndDropped(t *testing.T) {
	day := testDay(t)
	y, m, d := day.Start.Date()

	// A date-only entry for today is instantaneous at local midnight and
	// must not block the day.
	raw := []RawEvent{{
		Summary: "birthday",
		Time:    AllDay{Year: y, Month: m, Day: d},
	}}

	events := Normalize(raw, day, testLoc)
	if len(events) != 0 {
		t.Fatalf("all-day placeholder leaked into normalized events: %+v", events)
	}
}

func TestNormalize_MissingShapeDiscarded(t *testing.T) {
	day := testDay(t)
	y, m, d := day.Start.Date()

	raw := []RawEvent{
		{Summary: "no time shape"},
		{Summary: "keep", Time: Timed{
			Start: Stamp{Wall: wall(y, m, d, 12, 0)},
			End:   Stamp{Wall: wall(y, m, d, 13, 0)},
		}},
	}

	events := Normalize(raw, day, testLoc)
	if len(events) != 1 || events[0].Summary != "keep" {
		t.Fatalf("expected only the usable event, got %+v", events)
	}
}

func TestNormalize_ClipsToDay(t *testing.T) {
	day := testDay(t)
	y, m, d := day.Start.Date()

	raw := []RawEvent{
		// Overnight from yesterday into 02:00 today.
		{Summary: "overnight", Time: Timed{
			Start: Stamp{Wall: wall(y, m, d-1, 22, 0)},
			End:   Stamp{Wall: wall(y, m, d, 2, 0)},
		}},
		// Entirely tomorrow.
		{Summary: "tomorrow", Time: Timed{
			Start: Stamp{Wall: wall(y, m, d+1, 9, 0)},
			End:   Stamp{Wall: wall(y, m, d+1, 10, 0)},
		}},
	}

	events := Normalize(raw, day, testLoc)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Summary != "overnight" {
		t.Fatalf("expected overnight event, got %q", ev.Summary)
	}
	if !ev.Start.Equal(day.Start) {
		t.Errorf("start not clipped to day start: %s", ev.Start)
	}
	if !ev.End.Equal(at(day, 2, 0)) {
		t.Errorf("expected end 02:00, got %s", ev.End.Format("15:04"))
	}
}

func TestNormalize_SortedStable(t *testing.T) {
	day := testDay(t)
	y, m, d := day.Start.Date()

	mk := func(summary string, sh int) RawEvent {
		return RawEvent{Summary: summary, Time: Timed{
			Start: Stamp{Wall: wall(y, m, d, sh, 0)},
			End:   Stamp{Wall: wall(y, m, d, sh+1, 0)},
		}}
	}

	raw := []RawEvent{mk("late", 16), mk("first-tie", 9), mk("second-tie", 9)}
	events := Normalize(raw, day, testLoc)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Summary != "first-tie" || events[1].Summary != "second-tie" || events[2].Summary != "late" {
		t.Errorf("unexpected order: %q, %q, %q",
			events[0].Summary, events[1].Summary, events[2].Summary)
	}
}

func TestNormalize_EmptySummaryGetsPlaceholder(t *testing.T) {
	day := testDay(t)
	y, m, d := day.Start.Date()

	raw := []RawEvent{{Time: Timed{
		Start: Stamp{Wall: wall(y, m, d, 12, 0)},
		End:   Stamp{Wall: wall(y, m, d, 13, 0)},
	}}}

	events := Normalize(raw, day, testLoc)
	if len(events) != 1 || events[0].Summary != UntitledSummary {
		t.Fatalf("expected placeholder summary, got %+v", events)
	}
}

func TestNormalize_ZeroDurationDiscarded(t *testing.T) {
	day := testDay(t)
	y, m, d := day.Start.Date()

	raw := []RawEvent{
		{Summary: "zero", Time: TimedDuration{Start: Stamp{Wall: wall(y, m, d, 12, 0)}}},
		{Summary: "inverted", Time: Timed{
			Start: Stamp{Wall: wall(y, m, d, 13, 0)},
			End:   Stamp{Wall: wall(y, m, d, 12, 0)},
		}},
	}

	events := Normalize(raw, day, testLoc)
	if len(events) != 0 {
		t.Fatalf("degenerate intervals must be dropped, got %+v", events)
	}
}
