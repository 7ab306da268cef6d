package facility

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kirinyoku/parkgo/internal/allocator"
	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/repository/memory"
	"github.com/kirinyoku/parkgo/internal/telemetry"
	"github.com/kirinyoku/parkgo/internal/topology"
	"github.com/kirinyoku/parkgo/internal/uow"
)

type Config struct {
	MaxDimension int
	Location     *time.Location
	Now          func() time.Time
}

// LotCache drops cached lot snapshots.
type LotCache interface {
	InvalidateLot(ctx context.Context, gen uint64) error
}

// Publisher announces committed lot changes to other instances and clients.
type Publisher interface {
	PublishLotChanged(ctx context.Context, ev domain.LotEvent) error
}

// Archive keeps sessions beyond the lifetime of the lot.
type Archive interface {
	SaveSession(ctx context.Context, s domain.ArchivedSession) error
}

type Limiter interface {
	Allow(ctx context.Context, suffix string) (bool, int64, time.Duration, error)
}

// Deps are the optional side-effect ports. Nil members are skipped.
type Deps struct {
	Cache   LotCache
	Events  Publisher
	Archive Archive
	Limiter Limiter
}

// Service is the only writer of the lot. Every mutation runs inside one
// unit of work; side effects run after the lot lock is released.
type Service struct {
	store   *memory.Store
	uow     *uow.UoW
	alloc   *allocator.Allocator
	deps    Deps
	cfg     Config
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *instruments
}

func New(
	store *memory.Store,
	alloc *allocator.Allocator,
	deps Deps,
	tel *telemetry.Provider,
	logger *slog.Logger,
	cfg Config,
) (*Service, error) {
	const op = "service.facility.New"

	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = topology.DefaultMaxDimension
	}

	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if alloc == nil {
		alloc = allocator.New(nil)
	}

	if tel == nil {
		tel = telemetry.Noop()
	}

	if logger == nil {
		logger = slog.Default()
	}

	m, err := newInstruments(tel.Meter())
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Service{
		store:   store,
		uow:     uow.NewUoW(store),
		alloc:   alloc,
		deps:    deps,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "facility")),
		tracer:  tel.Tracer(),
		metrics: m,
	}, nil
}

type CreateLotParams struct {
	Width        int
	Height       int
	AutoPopulate bool
	GateSize     int
}

// CreateLot creates the single live lot.
//
// Parameters:
//   - ctx: request-scoped context.
//   - p: dimensions and auto-population settings.
//
// Returns:
//   - domain.LotSnapshot: the fresh lot.
//   - error: facility.ErrInvalidDimensions if a dimension is out of range.
//   - error: facility.ErrInvalidGateSize if auto-population is requested with a gate size below 1.
//   - error: facility.ErrLotAlreadyExists if a lot is already live.
func (s *Service) CreateLot(ctx context.Context, p CreateLotParams) (snap domain.LotSnapshot, err error) {
	const op = "service.facility.CreateLot"

	ctx, done := s.observe(ctx, "create_lot",
		attribute.Int("lot.width", p.Width),
		attribute.Int("lot.height", p.Height),
		attribute.Bool("lot.auto_populate", p.AutoPopulate),
	)
	defer func() { done(err) }()

	lot, err := topology.New(p.Width, p.Height, s.cfg.MaxDimension)
	if err != nil {
		return domain.LotSnapshot{}, wrap(op, err)
	}

	if p.AutoPopulate {
		if err := lot.Populate(p.GateSize); err != nil {
			return domain.LotSnapshot{}, wrap(op, err)
		}
	}

	err = s.uow.Do(ctx, func(ctx context.Context, tx *memory.Tx, after func(uow.AfterCommit)) error {
		if err := tx.Create(lot); err != nil {
			return wrap(op, err)
		}

		snap = lot.Snapshot()

		after(s.publish(tx.Generation(), domain.LotEvent{Kind: domain.LotCreated, LotID: lot.ID()}))

		return nil
	})
	if err != nil {
		return domain.LotSnapshot{}, err
	}

	return snap, nil
}

// ResetLot frees every slot and clears the session history, keeping the
// gates and slots in place.
func (s *Service) ResetLot(ctx context.Context) (snap domain.LotSnapshot, err error) {
	const op = "service.facility.ResetLot"

	ctx, done := s.observe(ctx, "reset_lot")
	defer func() { done(err) }()

	err = s.uow.Do(ctx, func(ctx context.Context, tx *memory.Tx, after func(uow.AfterCommit)) error {
		lot, err := tx.Lot()
		if err != nil {
			return wrap(op, err)
		}

		occupied, _ := lot.Occupancy()

		if err := tx.Reset(); err != nil {
			return wrap(op, err)
		}

		snap = lot.Snapshot()

		s.metrics.occupancy.Add(ctx, -int64(occupied))
		after(s.publish(tx.Generation(), domain.LotEvent{Kind: domain.LotReset, LotID: lot.ID()}))

		return nil
	})
	if err != nil {
		return domain.LotSnapshot{}, err
	}

	return snap, nil
}

// DeleteLot removes the live lot and its session history.
func (s *Service) DeleteLot(ctx context.Context) (err error) {
	const op = "service.facility.DeleteLot"

	ctx, done := s.observe(ctx, "delete_lot")
	defer func() { done(err) }()

	return s.uow.Do(ctx, func(ctx context.Context, tx *memory.Tx, after func(uow.AfterCommit)) error {
		lot, err := tx.Lot()
		if err != nil {
			return wrap(op, err)
		}

		occupied, _ := lot.Occupancy()
		id := lot.ID()

		if err := tx.Drop(); err != nil {
			return wrap(op, err)
		}

		s.metrics.occupancy.Add(ctx, -int64(occupied))
		after(s.publish(tx.Generation(), domain.LotEvent{Kind: domain.LotDeleted, LotID: id}))

		return nil
	})
}

// AddGate places a gate on the border of the live lot.
//
// Returns:
//   - domain.Gate: the created gate.
//   - error: facility.ErrLotNotFound if no lot exists.
//   - error: facility.ErrOutOfBounds, facility.ErrNotOnBorder or facility.ErrPositionOccupied.
func (s *Service) AddGate(ctx context.Context, pos domain.Position) (gate domain.Gate, err error) {
	const op = "service.facility.AddGate"

	ctx, done := s.observe(ctx, "add_gate",
		attribute.Int("gate.x", pos.X),
		attribute.Int("gate.y", pos.Y),
	)
	defer func() { done(err) }()

	err = s.uow.Do(ctx, func(ctx context.Context, tx *memory.Tx, after func(uow.AfterCommit)) error {
		lot, err := tx.Lot()
		if err != nil {
			return wrap(op, err)
		}

		gate, err = lot.AddGate(pos)
		if err != nil {
			return wrap(op, err)
		}

		after(s.publish(tx.Generation(), domain.LotEvent{Kind: domain.GateAdded, LotID: lot.ID()}))

		return nil
	})
	if err != nil {
		return domain.Gate{}, err
	}

	return gate, nil
}

// AddSlot places an empty slot inside the border of the live lot.
func (s *Service) AddSlot(ctx context.Context, pos domain.Position, size string) (slot domain.Slot, err error) {
	const op = "service.facility.AddSlot"

	ctx, done := s.observe(ctx, "add_slot",
		attribute.Int("slot.x", pos.X),
		attribute.Int("slot.y", pos.Y),
		attribute.String("slot.size", size),
	)
	defer func() { done(err) }()

	sz, err := domain.ParseSize(size)
	if err != nil {
		return domain.Slot{}, fmt.Errorf("%s:%w: %w", op, ErrInvalidVehicleSize, err)
	}

	err = s.uow.Do(ctx, func(ctx context.Context, tx *memory.Tx, after func(uow.AfterCommit)) error {
		lot, err := tx.Lot()
		if err != nil {
			return wrap(op, err)
		}

		slot, err = lot.AddSlot(pos, sz)
		if err != nil {
			return wrap(op, err)
		}

		after(s.publish(tx.Generation(), domain.LotEvent{Kind: domain.SlotAdded, LotID: lot.ID()}))

		return nil
	})
	if err != nil {
		return domain.Slot{}, err
	}

	return slot, nil
}

type ParkParams struct {
	Plate  string
	Size   string
	GateID string
	// At defaults to the service clock when nil.
	At *time.Time
}

// Park assigns the nearest compatible free slot to a vehicle entering
// through the given gate and opens its session. Slot reservation and session
// creation commit together.
//
// Parameters:
//   - ctx: request-scoped context.
//   - p: vehicle, entry gate and check-in time.
//   - rlKey: rate limit bucket of the caller; empty disables the check.
//
// Returns:
//   - domain.Session: the open session.
//   - error: facility.ErrLotNotFound if no lot exists.
//   - error: facility.ErrGateNotFound if the gate does not exist.
//   - error: facility.ErrVehicleAlreadyParked if the plate has an open session.
//   - error: facility.ErrNoAvailableSlot if no compatible slot is free.
//   - error: facility.RateLimitedError if the caller exceeded its quota.
func (s *Service) Park(ctx context.Context, p ParkParams, rlKey string) (sess domain.Session, err error) {
	const op = "service.facility.Park"

	plate := normalizePlate(p.Plate)

	ctx, done := s.observe(ctx, "park",
		attribute.String("vehicle.plate", plate),
		attribute.String("vehicle.size", p.Size),
		attribute.String("gate.id", p.GateID),
	)
	defer func() { done(err) }()

	if plate == "" {
		return domain.Session{}, fmt.Errorf("%s:%w", op, ErrInvalidPlate)
	}

	size, err := domain.ParseSize(p.Size)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%s:%w: %w", op, ErrInvalidVehicleSize, err)
	}

	if err := s.allow(ctx, rlKey); err != nil {
		return domain.Session{}, fmt.Errorf("%s:%w", op, err)
	}

	at := s.timestamp(p.At)
	vehicle := domain.Vehicle{Plate: plate, Size: size}

	err = s.uow.Do(ctx, func(ctx context.Context, tx *memory.Tx, after func(uow.AfterCommit)) error {
		lot, err := tx.Lot()
		if err != nil {
			return wrap(op, err)
		}

		led, err := tx.Ledger()
		if err != nil {
			return wrap(op, err)
		}

		gate, err := lot.Gate(p.GateID)
		if err != nil {
			return wrap(op, err)
		}

		if led.IsParked(plate) {
			return fmt.Errorf("%s:%w", op, ErrVehicleAlreadyParked)
		}

		slot, err := s.alloc.Reserve(lot, gate, vehicle)
		if err != nil {
			return wrap(op, err)
		}

		sess, err = led.Open(vehicle, gate, slot, at)
		if err != nil {
			_ = lot.Release(slot.ID)
			return wrap(op, err)
		}

		s.metrics.occupancy.Add(ctx, 1)

		archived := domain.ArchivedSession{
			Session:  sess,
			LotID:    lot.ID(),
			Currency: s.store.Rules().Currency,
		}
		after(s.archive(archived))
		after(s.publish(tx.Generation(), domain.LotEvent{Kind: domain.VehicleParked, LotID: lot.ID(), Plate: plate}))

		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("slot.id", sess.Slot.ID),
		attribute.String("slot.size", string(sess.Slot.Size)),
	)

	return sess, nil
}

type UnparkParams struct {
	Plate string
	At    *time.Time
}

// Unpark closes the open session of a vehicle, bills it and frees its slot.
//
// Returns:
//   - domain.Session: the closed session with its fee.
//   - error: facility.ErrLotNotFound if no lot exists.
//   - error: facility.ErrVehicleNotParked if the plate has no open session.
//   - error: facility.ErrInvalidTimeRange if the check-out precedes the check-in.
func (s *Service) Unpark(ctx context.Context, p UnparkParams) (sess domain.Session, err error) {
	const op = "service.facility.Unpark"

	plate := normalizePlate(p.Plate)

	ctx, done := s.observe(ctx, "unpark", attribute.String("vehicle.plate", plate))
	defer func() { done(err) }()

	if plate == "" {
		return domain.Session{}, fmt.Errorf("%s:%w", op, ErrInvalidPlate)
	}

	at := s.timestamp(p.At)

	err = s.uow.Do(ctx, func(ctx context.Context, tx *memory.Tx, after func(uow.AfterCommit)) error {
		lot, err := tx.Lot()
		if err != nil {
			return wrap(op, err)
		}

		led, err := tx.Ledger()
		if err != nil {
			return wrap(op, err)
		}

		sess, err = led.Close(plate, at)
		if err != nil {
			return wrap(op, err)
		}

		s.metrics.occupancy.Add(ctx, -1)
		if sess.Fee != nil {
			s.metrics.fees.Add(ctx, *sess.Fee, metric.WithAttributes(
				attribute.String("slot_size", string(sess.Slot.Size)),
			))
		}

		archived := domain.ArchivedSession{
			Session:  sess,
			LotID:    lot.ID(),
			Currency: s.store.Rules().Currency,
		}
		after(s.archive(archived))
		after(s.publish(tx.Generation(), domain.LotEvent{Kind: domain.VehicleUnparked, LotID: lot.ID(), Plate: plate}))

		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}

	if sess.Fee != nil {
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("session.fee", *sess.Fee))
	}

	return sess, nil
}

func (s *Service) allow(ctx context.Context, rlKey string) error {
	if s.deps.Limiter == nil || rlKey == "" {
		return nil
	}

	ok, _, retry, err := s.deps.Limiter.Allow(ctx, rlKey)
	if err != nil {
		// fail open
		s.logger.WarnContext(ctx, "rate limiter unavailable", slog.Any("error", err))
		return nil
	}

	if !ok {
		return RateLimitedError{RetryAfter: retry}
	}

	return nil
}

func (s *Service) timestamp(at *time.Time) time.Time {
	t := s.cfg.Now()
	if at != nil {
		t = *at
	}

	return t.In(s.cfg.Location).Truncate(time.Second)
}

// publish returns the hook that drops the snapshot cached for the superseded
// generation and announces ev.
func (s *Service) publish(gen uint64, ev domain.LotEvent) uow.AfterCommit {
	return func(ctx context.Context) {
		if ev.At.IsZero() {
			ev.At = s.cfg.Now().In(s.cfg.Location).Truncate(time.Second)
		}

		if s.deps.Cache != nil {
			if err := s.deps.Cache.InvalidateLot(ctx, gen); err != nil {
				s.logger.WarnContext(ctx, "lot cache invalidation failed", slog.Any("error", err))
			}
		}

		if s.deps.Events != nil {
			if err := s.deps.Events.PublishLotChanged(ctx, ev); err != nil {
				s.logger.WarnContext(ctx, "lot change publish failed",
					slog.String("kind", string(ev.Kind)),
					slog.Any("error", err),
				)
			}
		}
	}
}

func (s *Service) archive(rec domain.ArchivedSession) uow.AfterCommit {
	return func(ctx context.Context) {
		if s.deps.Archive == nil {
			return
		}

		if err := s.deps.Archive.SaveSession(ctx, rec); err != nil {
			s.logger.WarnContext(ctx, "session archive failed",
				slog.String("session_id", rec.ID),
				slog.Any("error", err),
			)
		}
	}
}

func normalizePlate(p string) string {
	return strings.ToUpper(strings.TrimSpace(p))
}
