package ics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	ical "github.com/arran4/golang-ical"

	"companion/internal/agenda"
	appLog "companion/internal/log"
)

// WriteStudyBlocks writes an ICS file containing one "Study block" VEVENT
// per free slot, so the blocks can be subscribed to from a calendar client.
// Nothing is written when slots is empty; the returned path is "" in that
// case.
func WriteStudyBlocks(slots []agenda.Slot, path string) (string, error) {
	if len(slots) == 0 {
		return "", nil
	}
	if path == "" {
		return "", fmt.Errorf("study ICS path is empty")
	}

	cal := ical.NewCalendar()
	cal.SetProductId("-//DailyCompanion//EN")
	cal.SetMethod(ical.MethodPublish)

	now := time.Now().UTC()
	for _, s := range slots {
		uid := fmt.Sprintf("study-%d@companion", s.Start.UTC().Unix())
		ev := cal.AddEvent(uid)
		ev.SetDtStampTime(now)
		ev.SetStartAt(s.Start.UTC())
		ev.SetEndAt(s.End.UTC())
		ev.SetSummary("Study block")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	if err := os.WriteFile(path, []byte(cal.Serialize()), 0o644); err != nil {
		return "", err
	}

	appLog.Info("study blocks written", "path", path, "count", len(slots))
	return path, nil
}
