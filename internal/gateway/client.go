package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/theramind/availability/internal/model"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client talks to the availability API. It is the concrete
// selection.Gateway used by embedding applications; every instant crosses
// the wire as a full RFC 3339 timestamp with offset, never naive local time.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// APIError is a structured non-2xx response from the availability API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("availability api: %s (status %d)", e.Message, e.StatusCode)
}

// IsConflict reports whether the server rejected a mutation because another
// writer won the race after client-side validation passed.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
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

// ListSlots fetches the therapist's slots between two civil dates
// (inclusive) interpreted in the given zone.
func (c *Client) ListSlots(ctx context.Context, therapistID string, sessionType model.SessionType, startDate, endDate, timezone string) ([]model.Slot, error) {
	q := url.Values{}
	q.Set("therapist_id", therapistID)
	q.Set("session_type", string(sessionType))
	q.Set("start_date", startDate)
	q.Set("end_date", endDate)
	q.Set("timezone", timezone)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/availability/slots?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var out []wireSlot
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return fromWire(out), nil
}

// CreateSlots submits one committed selection. The whole batch is created
// atomically or not at all; a server-side overlap surfaces as an APIError
// with status 409 (see IsConflict). Each call carries a fresh idempotency
// key, so a retried request after a transport timeout cannot double-create.
func (c *Client) CreateSlots(ctx context.Context, therapistID string, sessionType model.SessionType, timezone string, ranges []model.TimeRange) ([]model.Slot, error) {
	body := createSlotsRequest{
		TherapistID: therapistID,
		SessionType: string(sessionType),
		Timezone:    timezone,
	}
	for _, r := range ranges {
		body.Ranges = append(body.Ranges, wireRange{StartTime: r.StartTime, EndTime: r.EndTime})
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/availability/slots", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	var out createSlotsResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return fromWire(out.Created), nil
}

// RemoveSlots deletes slots by id. Unknown ids are ignored by the server.
func (c *Client) RemoveSlots(ctx context.Context, ids []string) error {
	raw, err := json.Marshal(removeSlotsRequest{IDs: ids})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/availability/slots/remove", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Error string `json:"error"`
		}
		msg := resp.Status
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
			msg = body.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fromWire(in []wireSlot) []model.Slot {
	slots := make([]model.Slot, 0, len(in))
	for _, w := range in {
		slots = append(slots, model.Slot{
			ID:          w.ID,
			TherapistID: w.TherapistID,
			StartTime:   w.StartTime,
			EndTime:     w.EndTime,
			SessionType: model.SessionType(w.SessionType),
			Timezone:    w.Timezone,
		})
	}
	return slots
}
