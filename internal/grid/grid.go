package grid

import "fmt"

const minutesPerDay = 24 * 60

// Granularity is a slot length in whole minutes. It must divide a day evenly
// so that every day holds the same number of cells.
type Granularity int

func NewGranularity(minutes int) (Granularity, error) {
	if minutes <= 0 || minutesPerDay%minutes != 0 {
		return 0, fmt.Errorf("granularity must be a positive divisor of %d minutes, got %d", minutesPerDay, minutes)
	}
	return Granularity(minutes), nil
}

func (g Granularity) Minutes() int { return int(g) }

func (g Granularity) SlotsPerDay() int { return minutesPerDay / int(g) }

// Cell is one discrete time unit within a day.
type Cell struct {
	Index int
	Label string
}

// TimeGrid is the ordered cell sequence for a single day. It is immutable
// once built for a given granularity.
type TimeGrid struct {
	Granularity Granularity
	Cells       []Cell
}

// BuildGrid returns the ordered cells for one day. Labels are 12-hour wall
// clock and depend only on minutes past local midnight, so the same cell
// renders identically regardless of the viewer's device zone.
func BuildGrid(g Granularity) TimeGrid {
	n := g.SlotsPerDay()
	cells := make([]Cell, n)
	for i := 0; i < n; i++ {
		cells[i] = Cell{Index: i, Label: Label(g, i)}
	}
	return TimeGrid{Granularity: g, Cells: cells}
}

// Label formats the wall-clock boundary at index i, e.g. "09:30 AM".
// i == SlotsPerDay() is the end-of-day sentinel and renders as the fixed
// string "11:59 PM" rather than a computed midnight label.
func Label(g Granularity, i int) string {
	n := g.SlotsPerDay()
	if i < 0 || i > n {
		panic(fmt.Sprintf("grid: label index %d out of range [0, %d]", i, n))
	}
	if i == n {
		return "11:59 PM"
	}
	mins := i * g.Minutes()
	h, m := mins/60, mins%60
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%02d:%02d %s", h12, m, suffix)
}
