package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/parkgo/internal/domain"
)

// ArchiveRepo keeps parking records beyond the lifetime of a lot.
type ArchiveRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ArchiveRepo) With(db DB) *ArchiveRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ArchiveRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const upsertRecord = `
INSERT INTO parking_records (
    id, lot_id, plate, vehicle_size,
    gate_id, gate_x, gate_y,
    slot_id, slot_x, slot_y, slot_size,
    check_in_at, check_out_at, fee, billed_hours, currency, prior_record_id
) VALUES (
    $1, $2, $3, $4,
    $5, $6, $7,
    $8, $9, $10, $11,
    $12, $13, $14, $15, $16, $17
)
ON CONFLICT (id) DO UPDATE SET
    check_out_at = EXCLUDED.check_out_at,
    fee          = EXCLUDED.fee,
    billed_hours = EXCLUDED.billed_hours,
    archived_at  = now()
WHERE parking_records.check_out_at IS NULL`

// SaveSession inserts a session or updates its checkout fields. A closed
// record is final: saving the open form of the same session afterwards is a
// no-op, whatever order the writes arrive in. Transient serialization
// failures are retried.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - rec: the session with the lot and currency it was billed in.
//
// Returns:
//   - error: the last database error when all attempts fail.
func (r *ArchiveRepo) SaveSession(ctx context.Context, rec domain.ArchivedSession) error {
	const op = "postgres.ArchiveRepo.SaveSession"

	db := r.handle()

	var prior *string
	if rec.PriorSessionID != "" {
		prior = &rec.PriorSessionID
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = 500 * time.Millisecond

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		_, err := db.Exec(ctx, upsertRecord,
			rec.ID, rec.LotID, rec.Vehicle.Plate, string(rec.Vehicle.Size),
			rec.Gate.ID, rec.Gate.Position.X, rec.Gate.Position.Y,
			rec.Slot.ID, rec.Slot.Position.X, rec.Slot.Position.Y, string(rec.Slot.Size),
			rec.CheckInAt, rec.CheckOutAt, rec.Fee, rec.BilledHours, rec.Currency, prior,
		)
		if err != nil && !IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(3),
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

const selectRecords = `
SELECT id, lot_id, plate, vehicle_size,
       gate_id, gate_x, gate_y,
       slot_id, slot_x, slot_y, slot_size,
       check_in_at, check_out_at, fee, billed_hours, currency,
       COALESCE(prior_record_id, '')
FROM parking_records
WHERE ($1 = '' OR plate = $1)
ORDER BY check_in_at DESC, archived_at DESC
LIMIT $2 OFFSET $3`

// ListSessions pages through archived sessions, most recent check-in first.
func (r *ArchiveRepo) ListSessions(ctx context.Context, f domain.ArchiveFilter) ([]domain.ArchivedSession, error) {
	const op = "postgres.ArchiveRepo.ListSessions"

	db := r.handle()

	rows, err := db.Query(ctx, selectRecords, f.Plate, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}
	defer rows.Close()

	out := make([]domain.ArchivedSession, 0, f.Limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

func scanRecord(row pgx.Row) (domain.ArchivedSession, error) {
	var (
		rec         domain.ArchivedSession
		vehicleSize string
		slotSize    string
		checkOut    *time.Time
		fee         *int64
	)

	err := row.Scan(
		&rec.ID, &rec.LotID, &rec.Vehicle.Plate, &vehicleSize,
		&rec.Gate.ID, &rec.Gate.Position.X, &rec.Gate.Position.Y,
		&rec.Slot.ID, &rec.Slot.Position.X, &rec.Slot.Position.Y, &slotSize,
		&rec.CheckInAt, &checkOut, &fee, &rec.BilledHours, &rec.Currency,
		&rec.PriorSessionID,
	)
	if err != nil {
		return domain.ArchivedSession{}, err
	}

	rec.Vehicle.Size = domain.Size(vehicleSize)
	rec.Slot.Size = domain.Size(slotSize)
	rec.CheckOutAt = checkOut
	rec.Fee = fee

	if !rec.Slot.Size.Valid() || !rec.Vehicle.Size.Valid() {
		return domain.ArchivedSession{}, errors.New("archived record has an unknown size")
	}

	return rec, nil
}
