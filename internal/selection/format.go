package selection

import (
	"github.com/theramind/availability/internal/grid"
	"github.com/theramind/availability/internal/model"
)

// Proposal is a committed selection rendered for the confirmation
// affordance plus the gateway-ready payload.
type Proposal struct {
	Selection   Selection
	Display     string
	TherapistID string
	SessionType model.SessionType
	Timezone    string
	Ranges      []model.TimeRange
}

// Describe builds the human-readable range label and the per-day API
// ranges for a selection. The display renders "<start> - <end>"; a span
// reaching the end-of-day sentinel shows the fixed "11:59 PM" label. Ranges
// carry one entry per selected day, each spanning the same slot indices on
// that day, ending at the day's sentinel instant when the span runs through
// the last cell.
func Describe(ix *grid.Index, sel Selection, therapistID string, sessionType model.SessionType) Proposal {
	start, end := sel.Normalized()
	g := ix.Granularity()
	display := grid.Label(g, start) + " - " + grid.Label(g, end)

	ranges := make([]model.TimeRange, 0, len(sel.DayIndices))
	for _, day := range sel.DayIndices {
		from, to := ix.SpanRange(day, start, end)
		ranges = append(ranges, model.TimeRange{StartTime: from, EndTime: to})
	}

	return Proposal{
		Selection:   sel,
		Display:     display,
		TherapistID: therapistID,
		SessionType: sessionType,
		Timezone:    ix.Timezone(),
		Ranges:      ranges,
	}
}
