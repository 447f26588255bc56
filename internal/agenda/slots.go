package agenda

import (
	"sort"
	"time"
)

// Slot is a maximal busy-free range inside the work window that meets the
// minimum duration threshold.
type Slot struct {
	Start time.Time
	End   time.Time
}

// String formats the slot as "HH:MM–HH:MM" in 24-hour local time.
func (s Slot) String() string {
	return s.Start.Format("15:04") + "–" + s.End.Format("15:04")
}

// Minutes returns the slot length in whole minutes.
func (s Slot) Minutes() int {
	return int(s.End.Sub(s.Start) / time.Minute)
}

type interval struct {
	start time.Time
	end   time.Time
}

// FreeSlots computes the free study blocks inside w given the normalized
// events of the day. Slots never overlap each other or any busy interval,
// always lie within the window, and are at least minMinutes long. With no
// events the whole window is the single candidate slot.
func FreeSlots(events []Event, w Window, minMinutes int) ([]Slot, error) {
	if minMinutes <= 0 {
		return nil, &ConfigError{Field: "min_block_minutes", Reason: "must be positive"}
	}

	// Project each busy interval into the work window. Degenerate results
	// at the window edges are expected and skipped.
	busy := make([]interval, 0, len(events))
	for _, ev := range events {
		s, e := ev.Start, ev.End
		if s.Before(w.WorkStart) {
			s = w.WorkStart
		}
		if e.After(w.WorkEnd) {
			e = w.WorkEnd
		}
		if !e.After(s) {
			continue
		}
		busy = append(busy, interval{start: s, end: e})
	}

	// Input arrives mostly sorted from Normalize, but clipping can reorder
	// boundary cases, so re-sort defensively.
	sort.SliceStable(busy, func(i, j int) bool { return busy[i].start.Before(busy[j].start) })

	minLen := time.Duration(minMinutes) * time.Minute
	slots := make([]Slot, 0, len(busy)+1)

	cursor := w.WorkStart
	for _, b := range mergeBusy(busy) {
		if b.start.After(cursor) && b.start.Sub(cursor) >= minLen {
			slots = append(slots, Slot{Start: cursor, End: b.start})
		}
		if b.end.After(cursor) {
			cursor = b.end
		}
	}
	if w.WorkEnd.After(cursor) && w.WorkEnd.Sub(cursor) >= minLen {
		slots = append(slots, Slot{Start: cursor, End: w.WorkEnd})
	}

	return slots, nil
}

// mergeBusy folds sorted intervals into a disjoint list: a growing list of
// closed intervals plus one open one. Touching intervals (next start equals
// current end) merge, since a zero-length gap is never free time.
func mergeBusy(sorted []interval) []interval {
	merged := make([]interval, 0, len(sorted))

	var cur interval
	open := false
	for _, iv := range sorted {
		if !open {
			cur, open = iv, true
			continue
		}
		if iv.start.After(cur.end) {
			merged = append(merged, cur)
			cur = iv
			continue
		}
		if iv.end.After(cur.end) {
			cur.end = iv.end
		}
	}
	if open {
		merged = append(merged, cur)
	}
	return merged
}
