package ics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"companion/internal/agenda"
)

func calBody(events ...string) []byte {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n")
	for _, ev := range events {
		b.WriteString("BEGIN:VEVENT\r\n")
		b.WriteString(ev)
		b.WriteString("END:VEVENT\r\n")
	}
	b.WriteString("END:VCALENDAR\r\n")
	return []byte(b.String())
}

func TestParseEvents_TimedEvent(t *testing.T) {
	body := calBody("UID:1\r\nSUMMARY:Standup\r\nDTSTART:20260312T090000\r\nDTEND:20260312T093000\r\n")

	events, err := ParseEvents(body)
	if err != nil {
		t.Fatalf("ParseEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Summary != "Standup" {
		t.Errorf("expected summary Standup, got %q", ev.Summary)
	}
	timed, ok := ev.Time.(agenda.Timed)
	if !ok {
		t.Fatalf("expected Timed shape, got %T", ev.Time)
	}
	if timed.Start.Zoned || timed.End.Zoned {
		t.Errorf("bare local date-times must stay naive")
	}
	if timed.Start.Wall.Hour() != 9 || timed.Start.Wall.Minute() != 0 {
		t.Errorf("unexpected start wall clock: %s", timed.Start.Wall)
	}
}

func TestParseEvents_UTCStampIsZoned(t *testing.T) {
	body := calBody("UID:2\r\nSUMMARY:Call\r\nDTSTART:20260312T150000Z\r\nDTEND:20260312T160000Z\r\n")

	events, err := ParseEvents(body)
	if err != nil {
		t.Fatalf("ParseEvents failed: %v", err)
	}
	timed, ok := events[0].Time.(agenda.Timed)
	if !ok {
		t.Fatalf("expected Timed shape, got %T", events[0].Time)
	}
	if !timed.Start.Zoned {
		t.Errorf("UTC-suffixed stamp must be zoned")
	}
	want := time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC)
	if !timed.Start.Wall.Equal(want) {
		t.Errorf("expected %s, got %s", want, timed.Start.Wall)
	}
}

func TestParseEvents_DateOnlyBecomesAllDay(t *testing.T) {
	body := calBody("UID:3\r\nSUMMARY:Birthday\r\nDTSTART;VALUE=DATE:20260312\r\n")

	events, err := ParseEvents(body)
	if err != nil {
		t.Fatalf("ParseEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ad, ok := events[0].Time.(agenda.AllDay)
	if !ok {
		t.Fatalf("expected AllDay shape, got %T", events[0].Time)
	}
	if ad.Year != 2026 || ad.Month != time.March || ad.Day != 12 {
		t.Errorf("unexpected date: %+v", ad)
	}
}

func TestParseEvents_DurationShape(t *testing.T) {
	body := calBody("UID:4\r\nSUMMARY:Focus\r\nDTSTART:20260312T100000\r\nDURATION:PT1H30M\r\n")

	events, err := ParseEvents(body)
	if err != nil {
		t.Fatalf("ParseEvents failed: %v", err)
	}
	td, ok := events[0].Time.(agenda.TimedDuration)
	if !ok {
		t.Fatalf("expected TimedDuration shape, got %T", events[0].Time)
	}
	if td.Duration != 90*time.Minute {
		t.Errorf("expected 90m duration, got %s", td.Duration)
	}
}

func TestParseEvents_UnusableEventSkipped(t *testing.T) {
	body := calBody(
		"UID:5\r\nSUMMARY:No times at all\r\n",
		"UID:6\r\nSUMMARY:Start only\r\nDTSTART:20260312T100000\r\n",
		"UID:7\r\nSUMMARY:Keep\r\nDTSTART:20260312T100000\r\nDTEND:20260312T110000\r\n",
	)

	events, err := ParseEvents(body)
	if err != nil {
		t.Fatalf("ParseEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].Summary != "Keep" {
		t.Fatalf("expected only the usable event, got %+v", events)
	}
}

func TestParseEvents_BadDateValueAborts(t *testing.T) {
	body := calBody("UID:8\r\nSUMMARY:Broken\r\nDTSTART:not-a-date\r\nDTEND:20260312T110000\r\n")

	_, err := ParseEvents(body)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	var perr *agenda.ParseError
	if !errors.As(err, &perr) {
		t.Errorf("expected *agenda.ParseError, got %T (%v)", err, err)
	}
}

func TestParseISODuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"PT1H", time.Hour, true},
		{"PT1H30M", 90 * time.Minute, true},
		{"P1D", 24 * time.Hour, true},
		{"P1DT2H", 26 * time.Hour, true},
		{"P2W", 14 * 24 * time.Hour, true},
		{"-PT15M", -15 * time.Minute, true},
		{"PT45S", 45 * time.Second, true},
		{"1H", 0, false},
		{"PT", 0, true}, // empty but well-formed: zero duration
		{"PTXH", 0, false},
	}
	for _, tc := range cases {
		got, err := parseISODuration(tc.in)
		if tc.ok && err != nil {
			t.Errorf("%q: unexpected error %v", tc.in, err)
			continue
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("%q: expected error", tc.in)
			}
			continue
		}
		if got != tc.want {
			t.Errorf("%q: expected %s, got %s", tc.in, tc.want, got)
		}
	}
}
