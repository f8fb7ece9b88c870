package availability

import (
	"time"

	"github.com/theramind/availability/internal/grid"
	"github.com/theramind/availability/internal/hours"
	"github.com/theramind/availability/internal/model"
)

// CellState classifies one grid cell. States are mutually exclusive;
// "selected" is a presentation overlay applied after base classification and
// never participates in legality checks.
type CellState string

const (
	StateAvailable    CellState = "available"
	StateBooked       CellState = "booked"
	StatePast         CellState = "past"
	StateSelected     CellState = "selected"
	StateOutsideHours CellState = "outside_working_hours"
)

// Resolver classifies grid cells for one therapist's calendar view. It is
// pure: identical inputs always produce identical states.
type Resolver struct {
	Index       *grid.Index
	Hours       hours.Weekly
	SessionType model.SessionType
}

// Classify tags a single cell given the day's existing slots and the current
// instant. Precedence: past, then booked, then outside working hours.
func (r Resolver) Classify(dayOffset, slotIndex int, existing []model.Slot, now time.Time) CellState {
	start, end := r.Index.CellRange(dayOffset, slotIndex)
	if !end.After(now) {
		return StatePast
	}
	cell := Interval{Start: start, End: end}
	if overlapsAny(cell, busyIntervals(existing, r.SessionType)) {
		return StateBooked
	}
	mins := r.Index.Granularity().Minutes()
	startMin := slotIndex * mins
	if !r.Hours.Covers(start.Weekday(), startMin, startMin+mins) {
		return StateOutsideHours
	}
	return StateAvailable
}

// WithSelection overlays the active drag range on a base state.
func WithSelection(base CellState, selected bool) CellState {
	if selected {
		return StateSelected
	}
	return base
}
