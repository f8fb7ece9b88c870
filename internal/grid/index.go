package grid

import (
	"fmt"
	"time"
)

// Index maps (dayOffset, slotIndex) pairs to absolute instants and back.
// It is anchored to a reference civil date in one IANA zone. All arithmetic
// is wall-clock via time.Date normalization, so DST transitions change the
// UTC offset of an instant but never its local date attribution.
type Index struct {
	loc   *time.Location
	zone  string
	gran  Granularity
	year  int
	month time.Month
	day   int
}

// NewIndex anchors an index at referenceDate (YYYY-MM-DD) in the named IANA
// timezone. The zone is always supplied explicitly by the caller; the index
// never falls back to the device-local zone.
func NewIndex(referenceDate, timezone string, g Granularity) (*Index, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	ref, err := time.ParseInLocation("2006-01-02", referenceDate, loc)
	if err != nil {
		return nil, fmt.Errorf("parse reference date %q: %w", referenceDate, err)
	}
	return &Index{
		loc:   loc,
		zone:  timezone,
		gran:  g,
		year:  ref.Year(),
		month: ref.Month(),
		day:   ref.Day(),
	}, nil
}

func (ix *Index) Granularity() Granularity { return ix.gran }

func (ix *Index) Timezone() string { return ix.zone }

// Grid returns the single-day cell sequence for this index's granularity.
func (ix *Index) Grid() TimeGrid { return BuildGrid(ix.gran) }

// Date returns the civil date (YYYY-MM-DD) of anchor + dayOffset days.
func (ix *Index) Date(dayOffset int) string {
	return time.Date(ix.year, ix.month, ix.day+dayOffset, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// ToInstant returns the absolute instant slotIndex*granularity minutes past
// midnight of anchor + dayOffset days. slotIndex == SlotsPerDay() is the
// end-of-day sentinel and maps to 23:59:59.999 of the same day, not to
// midnight of the next; this keeps an exclusive upper bound at the last cell
// attributed to the correct day. An out-of-range slotIndex is a programmer
// error and panics rather than clamping.
func (ix *Index) ToInstant(dayOffset, slotIndex int) time.Time {
	n := ix.gran.SlotsPerDay()
	if slotIndex < 0 || slotIndex > n {
		panic(fmt.Sprintf("grid: slot index %d out of range [0, %d]", slotIndex, n))
	}
	if slotIndex == n {
		return time.Date(ix.year, ix.month, ix.day+dayOffset, 23, 59, 59, 999_000_000, ix.loc)
	}
	return time.Date(ix.year, ix.month, ix.day+dayOffset, 0, slotIndex*ix.gran.Minutes(), 0, 0, ix.loc)
}

// ToIndex is the inverse of ToInstant for boundary-aligned instants. Any
// other instant rounds down to the containing cell, so the sentinel instant
// lands in the last cell of its day.
func (ix *Index) ToIndex(t time.Time) (dayOffset, slotIndex int) {
	local := t.In(ix.loc)
	dayOffset = civilDays(ix.year, ix.month, ix.day, local.Year(), local.Month(), local.Day())
	slotIndex = (local.Hour()*60 + local.Minute()) / ix.gran.Minutes()
	return dayOffset, slotIndex
}

// CellRange returns the half-open [start, end) instant range of one cell.
// The last cell's exclusive end is the end-of-day sentinel.
func (ix *Index) CellRange(dayOffset, slotIndex int) (start, end time.Time) {
	n := ix.gran.SlotsPerDay()
	if slotIndex < 0 || slotIndex >= n {
		panic(fmt.Sprintf("grid: cell index %d out of range [0, %d)", slotIndex, n))
	}
	return ix.ToInstant(dayOffset, slotIndex), ix.ToInstant(dayOffset, slotIndex+1)
}

// SpanRange returns the half-open instant range covering the boundary span
// [startIndex, endIndex) on one day. endIndex may equal SlotsPerDay(), in
// which case the range ends at the day's sentinel instant.
func (ix *Index) SpanRange(dayOffset, startIndex, endIndex int) (start, end time.Time) {
	if endIndex < startIndex {
		panic(fmt.Sprintf("grid: inverted span [%d, %d)", startIndex, endIndex))
	}
	return ix.ToInstant(dayOffset, startIndex), ix.ToInstant(dayOffset, endIndex)
}

// civilDays counts whole calendar days between two civil dates, independent
// of zone offsets (a DST day is still one day).
func civilDays(y1 int, m1 time.Month, d1, y2 int, m2 time.Month, d2 int) int {
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}
