package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/theramind/availability/internal/availability"
	"github.com/theramind/availability/internal/grid"
	"github.com/theramind/availability/internal/hours"
	"github.com/theramind/availability/internal/model"
	"github.com/theramind/availability/internal/outbox"
	"github.com/theramind/availability/internal/storage"
)

// SlotLister is the read surface the grid endpoint needs. It is satisfied by
// *storage.SlotRepository.
type SlotLister interface {
	ListOverlapping(ctx context.Context, therapistID string, sessionType model.SessionType, start, end time.Time) ([]model.Slot, error)
}

// HoursSource yields a therapist's weekly working hours. Satisfied by
// *hours.Store.
type HoursSource interface {
	Get(ctx context.Context, therapistID string) (hours.Weekly, error)
}

type AvailabilityHandler struct {
	repo       *storage.SlotRepository
	outboxRepo *outbox.Repository
	lister     SlotLister
	hours      HoursSource
	logger     *slog.Logger
}

func NewAvailabilityHandler(repo *storage.SlotRepository, outboxRepo *outbox.Repository, lister SlotLister, hoursSource HoursSource, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		repo:       repo,
		outboxRepo: outboxRepo,
		lister:     lister,
		hours:      hoursSource,
		logger:     logger,
	}
}

type wireSlot struct {
	ID          string    `json:"id"`
	TherapistID string    `json:"therapist_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	SessionType string    `json:"session_type"`
	Timezone    string    `json:"timezone"`
}

type wireRange struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type createSlotsRequest struct {
	TherapistID string      `json:"therapist_id"`
	SessionType string      `json:"session_type"`
	Timezone    string      `json:"timezone"`
	Ranges      []wireRange `json:"ranges"`
}

type createSlotsResponse struct {
	Created []wireSlot `json:"created"`
}

type removeSlotsRequest struct {
	IDs []string `json:"ids"`
}

type removeSlotsResponse struct {
	Removed int `json:"removed"`
}

type gridCell struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	State string `json:"state"`
}

type gridDay struct {
	Date  string     `json:"date"`
	Cells []gridCell `json:"cells"`
}

type gridResponse struct {
	Date        string    `json:"date"`
	Days        int       `json:"days"`
	Granularity int       `json:"granularity"`
	Timezone    string    `json:"timezone"`
	SessionType string    `json:"session_type"`
	Grid        []gridDay `json:"grid"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Create persists one committed selection as a batch of slots. The batch is
// all-or-nothing: a single overlapping range rolls back every insert and
// answers 409. Replays with a known Idempotency-Key return the stored
// response without touching the slots table.
func (h *AvailabilityHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req createSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	req.TherapistID = strings.TrimSpace(req.TherapistID)
	sessionType := model.SessionType(strings.TrimSpace(req.SessionType))
	req.Timezone = strings.TrimSpace(req.Timezone)

	if req.TherapistID == "" {
		writeError(w, http.StatusBadRequest, "therapist_id required")
		return
	}
	if !sessionType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid session_type")
		return
	}
	if req.Timezone == "" {
		writeError(w, http.StatusBadRequest, "timezone required")
		return
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		writeError(w, http.StatusBadRequest, "invalid timezone")
		return
	}
	if len(req.Ranges) == 0 {
		writeError(w, http.StatusBadRequest, "at least one range required")
		return
	}
	now := time.Now()
	for _, rng := range req.Ranges {
		if !rng.EndTime.After(rng.StartTime) {
			writeError(w, http.StatusBadRequest, "range end must be after start")
			return
		}
		if !rng.StartTime.After(now) {
			writeError(w, http.StatusBadRequest, "range start must be in the future")
			return
		}
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey != "" {
		rec, exists, err := h.repo.LockIdempotencyKey(ctx, tx, req.TherapistID, idempotencyKey)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to lock idempotency key")
			return
		}
		if exists && rec.StatusCode > 0 {
			_ = tx.Commit(ctx)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.ResponsePayload)
			return
		}
	}

	created := make([]wireSlot, 0, len(req.Ranges))
	for _, rng := range req.Ranges {
		slot, err := h.repo.Insert(ctx, tx, model.Slot{
			TherapistID: req.TherapistID,
			StartTime:   rng.StartTime,
			EndTime:     rng.EndTime,
			SessionType: sessionType,
			Timezone:    req.Timezone,
		})
		if err != nil {
			if storage.IsConflict(err) {
				writeError(w, http.StatusConflict, "slot overlaps an existing slot")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to create slot")
			return
		}

		evtPayload, err := json.Marshal(map[string]any{
			"slot_id":      slot.ID,
			"therapist_id": slot.TherapistID,
			"start_time":   slot.StartTime.Format(time.RFC3339Nano),
			"end_time":     slot.EndTime.Format(time.RFC3339Nano),
			"session_type": string(slot.SessionType),
			"timezone":     slot.Timezone,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to build event payload")
			return
		}
		if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
			AggregateType: "slot",
			AggregateID:   slot.TherapistID,
			EventType:     outbox.TopicSlotCreated,
			Payload:       evtPayload,
		}); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to write outbox event")
			return
		}

		created = append(created, toWire(slot))
	}

	respBody, err := json.Marshal(createSlotsResponse{Created: created})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build response")
		return
	}
	if idempotencyKey != "" {
		if err := h.repo.FinalizeIdempotency(ctx, tx, req.TherapistID, idempotencyKey, http.StatusCreated, respBody); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to finalize idempotency key")
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to commit")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(respBody)
}

// List returns the therapist's slots intersecting the inclusive civil-date
// window, interpreted in the requested zone.
func (h *AvailabilityHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	therapistID := strings.TrimSpace(q.Get("therapist_id"))
	sessionType := model.SessionType(strings.TrimSpace(q.Get("session_type")))
	if therapistID == "" {
		writeError(w, http.StatusBadRequest, "therapist_id required")
		return
	}
	if !sessionType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid session_type")
		return
	}

	tz := strings.TrimSpace(q.Get("timezone"))
	if tz == "" {
		writeError(w, http.StatusBadRequest, "timezone required")
		return
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid timezone")
		return
	}
	start, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(q.Get("start_date")), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date")
		return
	}
	end, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(q.Get("end_date")), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date")
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end_date before start_date")
		return
	}

	slots, err := h.lister.ListOverlapping(r.Context(), therapistID, sessionType, start, end.AddDate(0, 0, 1))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list slots")
		return
	}

	items := make([]wireSlot, 0, len(slots))
	for _, s := range slots {
		items = append(items, toWire(s))
	}
	writeJSON(w, http.StatusOK, items)
}

// Remove deletes slots by id and emits a removal event per deleted row.
// Unknown ids are skipped, so retries are harmless.
func (h *AvailabilityHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req removeSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids required")
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	removed, err := h.repo.RemoveByIDs(ctx, tx, req.IDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to remove slots")
		return
	}

	for _, slot := range removed {
		evtPayload, err := json.Marshal(map[string]any{
			"slot_id":      slot.ID,
			"therapist_id": slot.TherapistID,
			"start_time":   slot.StartTime.Format(time.RFC3339Nano),
			"end_time":     slot.EndTime.Format(time.RFC3339Nano),
			"session_type": string(slot.SessionType),
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to build event payload")
			return
		}
		if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
			AggregateType: "slot",
			AggregateID:   slot.TherapistID,
			EventType:     outbox.TopicSlotRemoved,
			Payload:       evtPayload,
		}); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to write outbox event")
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to commit")
		return
	}
	writeJSON(w, http.StatusOK, removeSlotsResponse{Removed: len(removed)})
}

// Grid classifies every cell of a multi-day time grid for rendering. Each
// cell carries its slot index, wall-clock label and resolved state.
func (h *AvailabilityHandler) Grid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	therapistID := strings.TrimSpace(q.Get("therapist_id"))
	sessionType := model.SessionType(strings.TrimSpace(q.Get("session_type")))
	if therapistID == "" {
		writeError(w, http.StatusBadRequest, "therapist_id required")
		return
	}
	if !sessionType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid session_type")
		return
	}

	granMinutes := 30
	if raw := strings.TrimSpace(q.Get("granularity")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid granularity")
			return
		}
		granMinutes = n
	}
	gran, err := grid.NewGranularity(granMinutes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid granularity")
		return
	}

	days := 7
	if raw := strings.TrimSpace(q.Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 31 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 31")
			return
		}
		days = n
	}

	tz := strings.TrimSpace(q.Get("timezone"))
	if tz == "" {
		writeError(w, http.StatusBadRequest, "timezone required")
		return
	}
	ix, err := grid.NewIndex(strings.TrimSpace(q.Get("date")), tz, gran)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date or timezone")
		return
	}

	weekly, err := h.hours.Get(r.Context(), therapistID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load working hours")
		return
	}

	windowStart := ix.ToInstant(0, 0)
	windowEnd := ix.ToInstant(days, 0)
	existing, err := h.lister.ListOverlapping(r.Context(), therapistID, sessionType, windowStart, windowEnd)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list slots")
		return
	}

	resolver := availability.Resolver{Index: ix, Hours: weekly, SessionType: sessionType}
	now := time.Now()
	n := gran.SlotsPerDay()

	out := gridResponse{
		Date:        ix.Date(0),
		Days:        days,
		Granularity: gran.Minutes(),
		Timezone:    ix.Timezone(),
		SessionType: string(sessionType),
		Grid:        make([]gridDay, 0, days),
	}
	for day := 0; day < days; day++ {
		cells := make([]gridCell, 0, n)
		for i := 0; i < n; i++ {
			cells = append(cells, gridCell{
				Index: i,
				Label: grid.Label(gran, i),
				State: string(resolver.Classify(day, i, existing, now)),
			})
		}
		out.Grid = append(out.Grid, gridDay{
			Date:  ix.Date(day),
			Cells: cells,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func toWire(s model.Slot) wireSlot {
	return wireSlot{
		ID:          s.ID,
		TherapistID: s.TherapistID,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		SessionType: string(s.SessionType),
		Timezone:    s.Timezone,
	}
}
