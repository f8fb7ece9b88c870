package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/theramind/availability/internal/model"
	"github.com/theramind/availability/libs/db"
)

// SlotRepository persists availability slots. Overlap protection is enforced
// by the database: the slots table carries an exclusion constraint over
// (therapist_id, session_type, tstzrange(start_time, end_time)), so two
// writers racing past application-level validation cannot both commit.
type SlotRepository struct {
	pool *db.Pool
}

type IdempotencyRecord struct {
	TherapistID     string
	IdempotencyKey  string
	StatusCode      int
	ResponsePayload []byte
}

func NewSlotRepository(pool *db.Pool) *SlotRepository {
	return &SlotRepository{pool: pool}
}

func (r *SlotRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// LockIdempotencyKey claims the key for this transaction. The second return
// is true when a previous request already holds the key; callers replay the
// stored response instead of re-running the mutation.
func (r *SlotRepository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, therapistID, key string) (IdempotencyRecord, bool, error) {
	rec, err := r.selectIdempotencyForUpdate(ctx, tx, therapistID, key)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO slot_idempotency_keys (therapist_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (therapist_id, idempotency_key) DO NOTHING
	`, therapistID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, tx, therapistID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, false, nil
}

func (r *SlotRepository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, therapistID, key string, statusCode int, response []byte) error {
	_, err := tx.Exec(ctx, `
		UPDATE slot_idempotency_keys
		SET status_code = $3,
			response_payload = $4,
			updated_at = now()
		WHERE therapist_id = $1 AND idempotency_key = $2
	`, therapistID, key, statusCode, response)
	return err
}

// Insert writes one slot and returns it with the generated id and created_at.
// An exclusion-constraint violation surfaces through IsConflict.
func (r *SlotRepository) Insert(ctx context.Context, tx pgx.Tx, slot model.Slot) (model.Slot, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO slots (therapist_id, start_time, end_time, session_type, timezone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, slot.TherapistID, slot.StartTime, slot.EndTime, slot.SessionType, slot.Timezone).
		Scan(&slot.ID, &slot.CreatedAt)
	if err != nil {
		return model.Slot{}, err
	}
	return slot, nil
}

// ListOverlapping returns the therapist's slots of one session type that
// intersect the half-open window [start, end), ordered by start time.
func (r *SlotRepository) ListOverlapping(ctx context.Context, therapistID string, sessionType model.SessionType, start, end time.Time) ([]model.Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, therapist_id, start_time, end_time, session_type, timezone, created_at
		FROM slots
		WHERE therapist_id = $1
			AND session_type = $2
			AND start_time < $4
			AND end_time > $3
		ORDER BY start_time ASC
	`, therapistID, sessionType, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSlots(rows)
}

// RemoveByIDs deletes the given slots and returns the rows that actually
// existed. Unknown ids are silently skipped, so removal is idempotent.
func (r *SlotRepository) RemoveByIDs(ctx context.Context, tx pgx.Tx, ids []string) ([]model.Slot, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := tx.Query(ctx, `
		DELETE FROM slots
		WHERE id = ANY($1)
		RETURNING id, therapist_id, start_time, end_time, session_type, timezone, created_at
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSlots(rows)
}

func scanSlots(rows pgx.Rows) ([]model.Slot, error) {
	var slots []model.Slot
	for rows.Next() {
		var s model.Slot
		if err := rows.Scan(&s.ID, &s.TherapistID, &s.StartTime, &s.EndTime, &s.SessionType, &s.Timezone, &s.CreatedAt); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return slots, nil
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func (r *SlotRepository) selectIdempotencyForUpdate(ctx context.Context, tx pgx.Tx, therapistID, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var responseText string
	err := tx.QueryRow(ctx, `
		SELECT therapist_id::text,
			idempotency_key,
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM slot_idempotency_keys
		WHERE therapist_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, therapistID, key).Scan(
		&rec.TherapistID,
		&rec.IdempotencyKey,
		&rec.StatusCode,
		&responseText,
	)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}
