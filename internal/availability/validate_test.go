package availability

import (
	"errors"
	"testing"
	"time"

	"github.com/theramind/availability/internal/grid"
	"github.com/theramind/availability/internal/model"
)

func testIndex(t *testing.T, mins int) *grid.Index {
	t.Helper()
	g, err := grid.NewGranularity(mins)
	if err != nil {
		t.Fatalf("granularity: %v", err)
	}
	ix, err := grid.NewIndex("2026-01-28", "UTC", g)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	return ix
}

func TestValidate_ZeroLength(t *testing.T) {
	ix := testIndex(t, 30)
	now := time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC)

	err := Validate(ix, []int{0}, 20, 20, nil, model.SessionVirtual, now)
	if !errors.Is(err, ErrZeroLength) {
		t.Fatalf("expected zero-length rejection, got %v", err)
	}
	if err := Validate(ix, nil, 20, 20, nil, model.SessionVirtual, now); !errors.Is(err, ErrZeroLength) {
		t.Fatalf("expected zero-length for empty day list, got %v", err)
	}
}

func TestValidate_PastTime(t *testing.T) {
	ix := testIndex(t, 15)
	now := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)

	// Span starting 09:00 is in the past.
	err := Validate(ix, []int{0}, 36, 40, nil, model.SessionVirtual, now)
	if !errors.Is(err, ErrPastTime) {
		t.Fatalf("expected past-time rejection, got %v", err)
	}
	// A span starting exactly at now is rejected too (start <= now).
	err = Validate(ix, []int{0}, 40, 44, nil, model.SessionVirtual, now)
	if !errors.Is(err, ErrPastTime) {
		t.Fatalf("expected past-time rejection at now, got %v", err)
	}
	// One step into the future is fine.
	if err := Validate(ix, []int{0}, 41, 44, nil, model.SessionVirtual, now); err != nil {
		t.Fatalf("expected future span to pass, got %v", err)
	}
}

func TestValidate_Overlap(t *testing.T) {
	ix := testIndex(t, 15)
	now := time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC)
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	existing := []model.Slot{slotAt(model.SessionVirtual, day, 10, 0, 10, 30)}

	// 09:45-10:15 crosses the booked 10:00-10:30.
	err := Validate(ix, []int{0}, 39, 41, existing, model.SessionVirtual, now)
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected overlap rejection, got %v", err)
	}
	// 10:30-11:00 is adjacent, not overlapping.
	if err := Validate(ix, []int{0}, 42, 44, existing, model.SessionVirtual, now); err != nil {
		t.Fatalf("expected adjacent span to pass, got %v", err)
	}
	// Same span in the other session type does not conflict.
	if err := Validate(ix, []int{0}, 39, 41, existing, model.SessionClinic, now); err != nil {
		t.Fatalf("expected clinic span to pass, got %v", err)
	}
}

func TestValidate_RuleOrder(t *testing.T) {
	// A span that is both past and overlapping must report past time: rules
	// are checked in a fixed order and the first failure wins.
	ix := testIndex(t, 15)
	now := time.Date(2026, 1, 28, 12, 0, 0, 0, time.UTC)
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	existing := []model.Slot{slotAt(model.SessionVirtual, day, 10, 0, 10, 30)}

	err := Validate(ix, []int{0}, 39, 41, existing, model.SessionVirtual, now)
	if !errors.Is(err, ErrPastTime) {
		t.Fatalf("expected past-time to win over overlap, got %v", err)
	}
}

func TestValidate_MultiDayAllOrNothing(t *testing.T) {
	ix := testIndex(t, 30)
	now := time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)
	existing := []model.Slot{slotAt(model.SessionVirtual, day2, 10, 0, 10, 30)}

	// Three-day drag 10:00-11:00; the middle day conflicts, so every day is
	// rejected.
	err := Validate(ix, []int{0, 1, 2}, 20, 22, existing, model.SessionVirtual, now)
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected overlap rejection, got %v", err)
	}
	// Without the conflicting slot the same drag passes.
	if err := Validate(ix, []int{0, 1, 2}, 20, 22, nil, model.SessionVirtual, now); err != nil {
		t.Fatalf("expected clean multi-day span to pass, got %v", err)
	}
}

func TestValidate_SentinelEnd(t *testing.T) {
	ix := testIndex(t, 30)
	now := time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC)

	// A span through the last cell ends at the sentinel, still on the same
	// day, and must validate cleanly.
	if err := Validate(ix, []int{0}, 46, 48, nil, model.SessionVirtual, now); err != nil {
		t.Fatalf("expected sentinel-bounded span to pass, got %v", err)
	}
}
