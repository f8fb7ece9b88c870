package availability

import (
	"time"

	"github.com/theramind/availability/internal/model"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports half-open intersection: [a,b) meets [c,d) iff a < d && c < b.
// Adjacent intervals sharing a boundary do not overlap.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start.Before(o.End) && o.Start.Before(iv.End)
}

func overlapsAny(iv Interval, busy []Interval) bool {
	for _, b := range busy {
		if iv.Overlaps(b) {
			return true
		}
	}
	return false
}

// busyIntervals projects the slots of one session type onto plain intervals.
// Slots of other session types never conflict.
func busyIntervals(slots []model.Slot, sessionType model.SessionType) []Interval {
	var busy []Interval
	for _, s := range slots {
		if s.SessionType != sessionType {
			continue
		}
		if !s.EndTime.After(s.StartTime) {
			continue
		}
		busy = append(busy, Interval{Start: s.StartTime, End: s.EndTime})
	}
	return busy
}
