package selection

import (
	"testing"
	"time"

	"github.com/theramind/availability/internal/grid"
	"github.com/theramind/availability/internal/model"
)

func formatIndex(t *testing.T) *grid.Index {
	t.Helper()
	g, err := grid.NewGranularity(30)
	if err != nil {
		t.Fatalf("granularity: %v", err)
	}
	ix, err := grid.NewIndex("2026-01-28", "UTC", g)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	return ix
}

func TestDescribe_SingleDay(t *testing.T) {
	ix := formatIndex(t)
	sel := Selection{AnchorDay: 0, AnchorIndex: 20, CurrentDay: 0, CurrentIndex: 21, DayIndices: []int{0}}

	p := Describe(ix, sel, "ther-1", model.SessionClinic)
	if p.Display != "10:00 AM - 11:00 AM" {
		t.Fatalf("unexpected display %q", p.Display)
	}
	if p.SessionType != model.SessionClinic || p.TherapistID != "ther-1" || p.Timezone != "UTC" {
		t.Fatalf("unexpected proposal metadata %+v", p)
	}
	if len(p.Ranges) != 1 {
		t.Fatalf("expected 1 range, got %d", len(p.Ranges))
	}
	wantStart := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 1, 28, 11, 0, 0, 0, time.UTC)
	if !p.Ranges[0].StartTime.Equal(wantStart) || !p.Ranges[0].EndTime.Equal(wantEnd) {
		t.Fatalf("unexpected range %+v", p.Ranges[0])
	}
}

func TestDescribe_ThroughLastCellUsesSentinel(t *testing.T) {
	ix := formatIndex(t)
	sel := Selection{AnchorDay: 0, AnchorIndex: 46, CurrentDay: 0, CurrentIndex: 47, DayIndices: []int{0}}

	p := Describe(ix, sel, "ther-1", model.SessionVirtual)
	if p.Display != "11:00 PM - 11:59 PM" {
		t.Fatalf("unexpected display %q", p.Display)
	}
	wantEnd := time.Date(2026, 1, 28, 23, 59, 59, 999_000_000, time.UTC)
	if !p.Ranges[0].EndTime.Equal(wantEnd) {
		t.Fatalf("range must end at the same day's sentinel, got %s", p.Ranges[0].EndTime)
	}
	if p.Ranges[0].EndTime.Day() != 28 {
		t.Fatalf("sentinel must not spill into the next day")
	}
}

func TestDescribe_MultiDay(t *testing.T) {
	ix := formatIndex(t)
	// Dragged upward through three days; traversal order is preserved.
	sel := Selection{AnchorDay: 2, AnchorIndex: 22, CurrentDay: 0, CurrentIndex: 20, DayIndices: []int{2, 1, 0}}

	p := Describe(ix, sel, "ther-1", model.SessionVirtual)
	if len(p.Ranges) != 3 {
		t.Fatalf("expected 3 ranges, got %d", len(p.Ranges))
	}
	for i, wantDay := range []int{30, 29, 28} {
		r := p.Ranges[i]
		if r.StartTime.Day() != wantDay {
			t.Fatalf("range %d: expected day %d, got %s", i, wantDay, r.StartTime)
		}
		if r.StartTime.Hour() != 10 || r.EndTime.Hour() != 11 || r.EndTime.Minute() != 30 {
			t.Fatalf("range %d: every day spans the same slot indices, got %+v", i, r)
		}
	}
}
