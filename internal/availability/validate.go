package availability

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/theramind/availability/internal/grid"
	"github.com/theramind/availability/internal/model"
)

// Legality failures surfaced to the user before any mutation is attempted.
// Match with errors.Is.
var (
	ErrZeroLength = errors.New("selection has zero length")
	ErrPastTime   = errors.New("selection starts in the past")
	ErrOverlap    = errors.New("selection overlaps an existing slot")
)

// Validate checks a normalized boundary span [startIndex, endIndex) over the
// given day offsets against existing slots and the current instant. endIndex
// may equal SlotsPerDay() (the end-of-day sentinel).
//
// Rules run in a fixed order and the first failure wins: zero-length, past
// time, overlap. Multi-day spans are all-or-nothing; a failure on any day
// rejects the whole selection so a commit never silently creates fewer slots
// than the user asked for.
func Validate(ix *grid.Index, dayOffsets []int, startIndex, endIndex int, existing []model.Slot, sessionType model.SessionType, now time.Time) error {
	if len(dayOffsets) == 0 {
		return fmt.Errorf("%w: no days selected", ErrZeroLength)
	}
	if startIndex == endIndex && len(dayOffsets) == 1 {
		return ErrZeroLength
	}

	days := append([]int(nil), dayOffsets...)
	sort.Ints(days)

	for _, day := range days {
		start, _ := ix.SpanRange(day, startIndex, endIndex)
		if !start.After(now) {
			return fmt.Errorf("%w: %s", ErrPastTime, start.Format(time.RFC3339))
		}
	}

	busy := busyIntervals(existing, sessionType)
	for _, day := range days {
		start, end := ix.SpanRange(day, startIndex, endIndex)
		if overlapsAny(Interval{Start: start, End: end}, busy) {
			return fmt.Errorf("%w on %s", ErrOverlap, ix.Date(day))
		}
	}
	return nil
}
