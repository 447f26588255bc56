package report

import (
	"strings"
	"testing"
	"time"

	"companion/internal/agenda"
	"companion/internal/market"
	"companion/internal/news"
)

func sampleData(t *testing.T) Data {
	t.Helper()
	loc := time.FixedZone("UTC-6", -6*60*60)
	day := agenda.Today(time.Date(2026, 3, 12, 10, 0, 0, 0, loc), loc)

	events := []agenda.Event{
		{Summary: "Standup", Start: day.Start.Add(9 * time.Hour), End: day.Start.Add(10 * time.Hour)},
	}
	slots := []agenda.Slot{
		{Start: day.Start.Add(11 * time.Hour), End: day.Start.Add(13 * time.Hour)},
	}
	items := []news.Item{
		{Title: "AI thing", Link: "https://example.com/1", Source: "Example", Topic: "AI",
			Published: time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC)},
		{Title: "Old general thing", Link: "https://example.com/2", Source: "Example", Topic: "General"},
	}
	prices := map[string][]market.Quote{
		"SPY": {
			{Date: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), Close: 100},
			{Date: time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), Close: 110},
		},
	}
	stats := market.AllStats(prices, 14)

	return Build(events, slots, items, prices, stats, 14,
		time.Date(2026, 3, 12, 10, 0, 0, 0, loc), "UTC-6")
}

func TestBuild(t *testing.T) {
	d := sampleData(t)

	if len(d.Events) != 1 || d.Events[0].Time != "09:00" {
		t.Errorf("unexpected events: %+v", d.Events)
	}
	if len(d.Slots) != 1 || d.Slots[0] != "11:00–13:00" {
		t.Errorf("unexpected slots: %+v", d.Slots)
	}
	if len(d.NewsGroups) != 2 || d.NewsGroups[0].Topic != "AI" {
		t.Errorf("AI topic must lead the news groups: %+v", d.NewsGroups)
	}
	if len(d.Markets) != 1 || d.Markets[0].Ticker != "SPY" {
		t.Fatalf("unexpected markets: %+v", d.Markets)
	}
	if d.Markets[0].PctClass != "up" {
		t.Errorf("expected up class, got %s", d.Markets[0].PctClass)
	}
	if d.Markets[0].Points == "" {
		t.Errorf("expected sparkline points for a 2-point series")
	}
}

func TestRender(t *testing.T) {
	html, err := Render(sampleData(t))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	out := string(html)

	for _, want := range []string{
		`data-ready="true"`,
		"11:00–13:00",
		"Standup",
		"SPY",
		"AI thing",
		"https://example.com/1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered report missing %q", want)
		}
	}
}

func TestRender_EmptySections(t *testing.T) {
	d := Data{GeneratedAt: "2026-03-12 10:00", Timezone: "UTC-6"}
	html, err := Render(d)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	out := string(html)
	for _, want := range []string{"No events today", "No study blocks", "No market data", "No recent articles."} {
		if !strings.Contains(out, want) {
			t.Errorf("empty report missing %q", want)
		}
	}
}

func TestSparklinePoints_Degenerate(t *testing.T) {
	if got := sparklinePoints(nil, 14); got != "" {
		t.Errorf("expected empty points for nil series, got %q", got)
	}
	one := []market.Quote{{Close: 10}}
	if got := sparklinePoints(one, 14); got != "" {
		t.Errorf("expected empty points for single-point series, got %q", got)
	}
	flat := []market.Quote{{Close: 10}, {Close: 10}}
	if got := sparklinePoints(flat, 14); got == "" {
		t.Errorf("flat series must still produce points")
	}
}
