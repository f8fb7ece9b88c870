package model

import "time"

// SessionType partitions a therapist's calendar. Slots of different session
// types never conflict with each other.
type SessionType string

const (
	SessionVirtual SessionType = "virtual"
	SessionClinic  SessionType = "clinic"
)

func (s SessionType) Valid() bool {
	return s == SessionVirtual || s == SessionClinic
}

// Slot is one persisted availability window. Slots are created and removed
// only through the availability API; nothing mutates a slot in place.
type Slot struct {
	ID          string
	TherapistID string
	StartTime   time.Time
	EndTime     time.Time
	SessionType SessionType
	Timezone    string
	CreatedAt   time.Time
}

// TimeRange is a half-open instant range [StartTime, EndTime).
type TimeRange struct {
	StartTime time.Time
	EndTime   time.Time
}
