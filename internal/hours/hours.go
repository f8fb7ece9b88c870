package hours

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Window is one working interval within a day, half-open [Start, End) in
// minutes past local midnight.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Weekly is a therapist's working-hours envelope. A weekday with no windows
// is a non-working day.
type Weekly map[time.Weekday][]Window

// Covers reports whether the cell span [startMin, endMin) lies entirely
// inside one of the day's windows. Cells straddling a window edge are not
// covered; the envelope is a hard boundary, not a soft preference.
func (w Weekly) Covers(day time.Weekday, startMin, endMin int) bool {
	for _, win := range w[day] {
		if startMin >= win.Start && endMin <= win.End {
			return true
		}
	}
	return false
}

// ParseWindows reads a comma-separated list like "09:00-12:30,13:30-17:00".
func ParseWindows(raw string) ([]Window, error) {
	var out []Window
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		from, to, ok := strings.Cut(part, "-")
		if !ok {
			return nil, fmt.Errorf("window %q must be HH:MM-HH:MM", part)
		}
		start, err := parseClock(from)
		if err != nil {
			return nil, err
		}
		end, err := parseClock(to)
		if err != nil {
			return nil, err
		}
		if end <= start {
			return nil, fmt.Errorf("window %q must end after it starts", part)
		}
		out = append(out, Window{Start: start, End: end})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Weekdays applies the same windows Monday through Friday.
func Weekdays(ws []Window) Weekly {
	w := Weekly{}
	for day := time.Monday; day <= time.Friday; day++ {
		w[day] = ws
	}
	return w
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// FromDayStrings converts an event payload shape, lowercase weekday names to
// window lists like ["09:00-17:00"], into a Weekly envelope.
func FromDayStrings(days map[string][]string) (Weekly, error) {
	w := Weekly{}
	for name, raws := range days {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		windows, err := ParseWindows(strings.Join(raws, ","))
		if err != nil {
			return nil, fmt.Errorf("weekday %s: %w", name, err)
		}
		if len(windows) > 0 {
			w[day] = windows
		}
	}
	return w, nil
}
