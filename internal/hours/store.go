package hours

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps per-therapist working-hours envelopes in Redis, falling back
// to a service-wide default when a therapist has none configured. The
// authoritative copy lives with the practice admin screens; this store is a
// projection kept current by the working-hours event consumer.
type Store struct {
	rdb      *redis.Client
	fallback Weekly
}

func NewStore(rdb *redis.Client, fallback Weekly) *Store {
	return &Store{rdb: rdb, fallback: fallback}
}

func storeKey(therapistID string) string {
	return "availability:hours:" + therapistID
}

// wireWeekly is the Redis JSON shape: lowercase weekday name -> windows.
type wireWeekly map[string][]Window

var wireNames = map[time.Weekday]string{
	time.Sunday:    "sunday",
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
}

// Get returns the therapist's envelope, or the fallback when none is stored
// or Redis is not configured.
func (s *Store) Get(ctx context.Context, therapistID string) (Weekly, error) {
	if s.rdb == nil {
		return s.fallback, nil
	}
	raw, err := s.rdb.Get(ctx, storeKey(therapistID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return s.fallback, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load working hours: %w", err)
	}
	var wire wireWeekly
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode working hours: %w", err)
	}
	w := Weekly{}
	for name, windows := range wire {
		day, ok := weekdayNames[name]
		if !ok {
			return nil, fmt.Errorf("stored working hours contain unknown weekday %q", name)
		}
		w[day] = windows
	}
	return w, nil
}

func (s *Store) Set(ctx context.Context, therapistID string, w Weekly) error {
	if s.rdb == nil {
		return errors.New("working hours store not configured")
	}
	wire := wireWeekly{}
	for day, windows := range w {
		wire[wireNames[day]] = windows
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, storeKey(therapistID), raw, 0).Err()
}
