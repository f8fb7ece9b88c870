package hours

import (
	"testing"
	"time"
)

func TestParseWindows(t *testing.T) {
	ws, err := ParseWindows("13:30-17:00, 09:00-12:30")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(ws) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(ws))
	}
	// Sorted by start.
	if ws[0].Start != 9*60 || ws[0].End != 12*60+30 {
		t.Fatalf("unexpected first window %+v", ws[0])
	}
	if ws[1].Start != 13*60+30 || ws[1].End != 17*60 {
		t.Fatalf("unexpected second window %+v", ws[1])
	}
}

func TestParseWindows_Invalid(t *testing.T) {
	for _, raw := range []string{"0900-1700", "17:00-09:00", "09:00"} {
		if _, err := ParseWindows(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestCovers(t *testing.T) {
	w := Weekdays([]Window{{Start: 9 * 60, End: 17 * 60}})

	if !w.Covers(time.Monday, 9*60, 9*60+30) {
		t.Fatalf("first cell of the window should be covered")
	}
	if !w.Covers(time.Friday, 16*60+30, 17*60) {
		t.Fatalf("last cell of the window should be covered")
	}
	if w.Covers(time.Monday, 8*60+30, 9*60) {
		t.Fatalf("cell before opening should not be covered")
	}
	if w.Covers(time.Monday, 16*60+45, 17*60+15) {
		t.Fatalf("cell straddling closing should not be covered")
	}
	if w.Covers(time.Saturday, 10*60, 10*60+30) {
		t.Fatalf("non-working day should not be covered")
	}
}

func TestFromDayStrings(t *testing.T) {
	w, err := FromDayStrings(map[string][]string{
		"monday":  {"09:00-12:00", "13:00-17:00"},
		"tuesday": {},
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(w[time.Monday]) != 2 {
		t.Fatalf("expected 2 monday windows, got %d", len(w[time.Monday]))
	}
	if _, ok := w[time.Tuesday]; ok {
		t.Fatalf("empty day should be absent (non-working)")
	}
	if _, err := FromDayStrings(map[string][]string{"moonday": {"09:00-17:00"}}); err == nil {
		t.Fatalf("expected unknown weekday error")
	}
}
