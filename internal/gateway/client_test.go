package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/theramind/availability/internal/model"
)

func TestClient_CreateSlots(t *testing.T) {
	var gotPath, gotIdemKey string
	var gotBody createSlotsRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotIdemKey = r.Header.Get("Idempotency-Key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(createSlotsResponse{Created: []wireSlot{{
			ID:          "slot-1",
			TherapistID: gotBody.TherapistID,
			StartTime:   gotBody.Ranges[0].StartTime,
			EndTime:     gotBody.Ranges[0].EndTime,
			SessionType: gotBody.SessionType,
			Timezone:    gotBody.Timezone,
		}}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	start := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 28, 23, 59, 59, 999_000_000, time.UTC)
	created, err := c.CreateSlots(context.Background(), "ther-1", model.SessionVirtual, "UTC", []model.TimeRange{{StartTime: start, EndTime: end}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if gotPath != "/api/v1/availability/slots" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotIdemKey == "" {
		t.Fatalf("expected an idempotency key header")
	}
	if gotBody.TherapistID != "ther-1" || gotBody.SessionType != "virtual" {
		t.Fatalf("unexpected request body %+v", gotBody)
	}
	// Sub-second precision survives the wire; the sentinel end must not
	// collapse to midnight.
	if !gotBody.Ranges[0].EndTime.Equal(end) {
		t.Fatalf("sentinel end mangled in transit: %s", gotBody.Ranges[0].EndTime)
	}
	if len(created) != 1 || created[0].ID != "slot-1" || created[0].SessionType != model.SessionVirtual {
		t.Fatalf("unexpected created slots %+v", created)
	}
}

func TestClient_CreateSlots_Conflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "slot overlaps an existing slot"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.CreateSlots(context.Background(), "ther-1", model.SessionVirtual, "UTC", []model.TimeRange{{
		StartTime: time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 1, 28, 11, 0, 0, 0, time.UTC),
	}})
	if err == nil {
		t.Fatalf("expected conflict error")
	}
	if !IsConflict(err) {
		t.Fatalf("expected IsConflict, got %v", err)
	}
}

func TestClient_ListSlots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("therapist_id") != "ther-1" || q.Get("session_type") != "clinic" ||
			q.Get("start_date") != "2026-01-28" || q.Get("end_date") != "2026-01-30" || q.Get("timezone") != "America/New_York" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]wireSlot{{
			ID:          "slot-2",
			TherapistID: "ther-1",
			StartTime:   time.Date(2026, 1, 28, 15, 0, 0, 0, time.UTC),
			EndTime:     time.Date(2026, 1, 28, 16, 0, 0, 0, time.UTC),
			SessionType: "clinic",
			Timezone:    "America/New_York",
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	slots, err := c.ListSlots(context.Background(), "ther-1", model.SessionClinic, "2026-01-28", "2026-01-30", "America/New_York")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(slots) != 1 || slots[0].ID != "slot-2" {
		t.Fatalf("unexpected slots %+v", slots)
	}
}

func TestClient_RemoveSlots(t *testing.T) {
	var gotIDs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body removeSlotsRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotIDs = body.IDs
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"removed":2}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if err := c.RemoveSlots(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(gotIDs) != 2 {
		t.Fatalf("unexpected ids %v", gotIDs)
	}
}
