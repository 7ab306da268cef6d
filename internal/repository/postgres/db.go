package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

// RunTx runs fn in a read-committed transaction and commits when fn succeeds.
func (s *Store) RunTx(
	ctx context.Context,
	fn func(ctx context.Context, tx DB) error,
) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS parking_records (
    id              TEXT PRIMARY KEY,
    lot_id          TEXT        NOT NULL,
    plate           TEXT        NOT NULL,
    vehicle_size    TEXT        NOT NULL,
    gate_id         TEXT        NOT NULL,
    gate_x          INT         NOT NULL,
    gate_y          INT         NOT NULL,
    slot_id         TEXT        NOT NULL,
    slot_x          INT         NOT NULL,
    slot_y          INT         NOT NULL,
    slot_size       TEXT        NOT NULL,
    check_in_at     TIMESTAMPTZ NOT NULL,
    check_out_at    TIMESTAMPTZ,
    fee             BIGINT,
    billed_hours    INT         NOT NULL DEFAULT 0,
    currency        TEXT        NOT NULL,
    prior_record_id TEXT,
    archived_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS parking_records_plate_idx
    ON parking_records (plate, check_in_at DESC);

CREATE INDEX IF NOT EXISTS parking_records_check_in_idx
    ON parking_records (check_in_at DESC);
`

// EnsureSchema creates the archive tables when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const op = "postgres.Store.EnsureSchema"

	err := s.RunTx(ctx, func(ctx context.Context, tx DB) error {
		_, err := tx.Exec(ctx, schema)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (s *Store) Archive() *ArchiveRepo { return &ArchiveRepo{pool: s.pool} }
