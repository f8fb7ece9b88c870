package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/theramind/availability/internal/hours"
	"github.com/theramind/availability/internal/model"
)

type fakeLister struct {
	slots []model.Slot
}

func (f *fakeLister) ListOverlapping(_ context.Context, _ string, _ model.SessionType, _, _ time.Time) ([]model.Slot, error) {
	return f.slots, nil
}

type fakeHours struct {
	weekly hours.Weekly
}

func (f *fakeHours) Get(context.Context, string) (hours.Weekly, error) {
	return f.weekly, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(noopWriter{}, nil))
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestGridEndpoint(t *testing.T) {
	// 2027-01-27 is a Wednesday, safely in the future.
	day := time.Date(2027, 1, 27, 0, 0, 0, 0, time.UTC)
	lister := &fakeLister{slots: []model.Slot{{
		ID:          "slot-1",
		TherapistID: "ther-1",
		StartTime:   day.Add(10 * time.Hour),
		EndTime:     day.Add(11 * time.Hour),
		SessionType: model.SessionVirtual,
		Timezone:    "UTC",
	}}}
	h := NewAvailabilityHandler(nil, nil, lister, &fakeHours{weekly: hours.Weekdays([]hours.Window{{Start: 9 * 60, End: 17 * 60}})}, discardLogger())

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/availability/grid?therapist_id=ther-1&session_type=virtual&date=2027-01-27&days=2&granularity=60&timezone=UTC", nil)
	rec := httptest.NewRecorder()
	h.Grid(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp gridResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Days != 2 || resp.Granularity != 60 || len(resp.Grid) != 2 {
		t.Fatalf("unexpected envelope %+v", resp)
	}
	if len(resp.Grid[0].Cells) != 24 {
		t.Fatalf("expected 24 hourly cells, got %d", len(resp.Grid[0].Cells))
	}
	if resp.Grid[0].Date != "2027-01-27" || resp.Grid[1].Date != "2027-01-28" {
		t.Fatalf("unexpected dates %q %q", resp.Grid[0].Date, resp.Grid[1].Date)
	}

	cells := resp.Grid[0].Cells
	if cells[8].State != "outside_working_hours" {
		t.Fatalf("08:00 should be outside working hours, got %q", cells[8].State)
	}
	if cells[9].State != "available" {
		t.Fatalf("09:00 should be available, got %q", cells[9].State)
	}
	if cells[10].State != "booked" {
		t.Fatalf("10:00 should be booked, got %q", cells[10].State)
	}
	if cells[10].Label != "10:00 AM" {
		t.Fatalf("unexpected label %q", cells[10].Label)
	}
	// Day two carries the same booked slot list but nothing overlaps it.
	if resp.Grid[1].Cells[10].State != "available" {
		t.Fatalf("next day 10:00 should be available, got %q", resp.Grid[1].Cells[10].State)
	}
}

func TestGridEndpoint_RejectsBadParams(t *testing.T) {
	h := NewAvailabilityHandler(nil, nil, &fakeLister{}, &fakeHours{}, discardLogger())

	cases := []struct {
		name string
		url  string
	}{
		{"missing therapist", "/api/v1/availability/grid?session_type=virtual&date=2027-01-27&timezone=UTC"},
		{"bad session type", "/api/v1/availability/grid?therapist_id=t&session_type=phone&date=2027-01-27&timezone=UTC"},
		{"bad granularity", "/api/v1/availability/grid?therapist_id=t&session_type=virtual&date=2027-01-27&granularity=7&timezone=UTC"},
		{"too many days", "/api/v1/availability/grid?therapist_id=t&session_type=virtual&date=2027-01-27&days=60&timezone=UTC"},
		{"bad timezone", "/api/v1/availability/grid?therapist_id=t&session_type=virtual&date=2027-01-27&timezone=Mars/Olympus"},
		{"bad date", "/api/v1/availability/grid?therapist_id=t&session_type=virtual&date=Jan-27&timezone=UTC"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.url, nil)
		rec := httptest.NewRecorder()
		h.Grid(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == "" {
			t.Errorf("%s: expected json error body, got %s", tc.name, rec.Body.String())
		}
	}
}
