package facility

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/fee"
	"github.com/kirinyoku/parkgo/internal/repository/memory"
)

type fakeCache struct {
	InvalidateLotFunc func(ctx context.Context, gen uint64) error
	calls             atomic.Int32
}

func (f *fakeCache) InvalidateLot(ctx context.Context, gen uint64) error {
	f.calls.Add(1)
	if f.InvalidateLotFunc != nil {
		return f.InvalidateLotFunc(ctx, gen)
	}
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.LotEvent
}

func (f *fakePublisher) PublishLotChanged(_ context.Context, ev domain.LotEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) kinds() []domain.LotEventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.LotEventKind, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.Kind)
	}
	return out
}

type fakeArchive struct {
	SaveSessionFunc func(ctx context.Context, s domain.ArchivedSession) error
	mu              sync.Mutex
	saved           []domain.ArchivedSession
}

func (f *fakeArchive) SaveSession(ctx context.Context, s domain.ArchivedSession) error {
	if f.SaveSessionFunc != nil {
		if err := f.SaveSessionFunc(ctx, s); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, s)
	return nil
}

type fakeLimiter struct {
	AllowFunc func(ctx context.Context, suffix string) (bool, int64, time.Duration, error)
}

func (f *fakeLimiter) Allow(ctx context.Context, suffix string) (bool, int64, time.Duration, error) {
	return f.AllowFunc(ctx, suffix)
}

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := t0.Add(d)
	return &t
}

func newService(t *testing.T, deps Deps) (*Service, *memory.Store) {
	t.Helper()

	calc, err := fee.New(domain.FeeRules{
		Currency:   "USD",
		FlatRate:   domain.FlatRate{Hourly: 20, Daily: 300, MaxHours: 3},
		NormalRate: domain.NormalRate{SlotSize: domain.SlotSizeRates{Small: 15, Medium: 20, Large: 30}},
	})
	require.NoError(t, err)

	store := memory.NewStore(calc)
	svc, err := New(store, nil, deps, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{
		MaxDimension: 10,
		Location:     time.UTC,
		Now:          func() time.Time { return t0 },
	})
	require.NoError(t, err)

	return svc, store
}

func gateAt(t *testing.T, snap domain.LotSnapshot, x, y int) string {
	t.Helper()
	for _, g := range snap.Gates {
		if g.Position == (domain.Position{X: x, Y: y}) {
			return g.ID
		}
	}
	t.Fatalf("no gate at (%d,%d)", x, y)
	return ""
}

func TestCreateLot(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, Deps{})

	snap, err := svc.CreateLot(ctx, CreateLotParams{Width: 4, Height: 4, AutoPopulate: true, GateSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Width)
	assert.Len(t, snap.Gates, 6)
	assert.Len(t, snap.Slots, 4)

	_, err = svc.CreateLot(ctx, CreateLotParams{Width: 4, Height: 4})
	assert.ErrorIs(t, err, ErrLotAlreadyExists)
}

func TestCreateLot_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, Deps{})

	_, err := svc.CreateLot(ctx, CreateLotParams{Width: 1, Height: 4})
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = svc.CreateLot(ctx, CreateLotParams{Width: 4, Height: 11})
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = svc.CreateLot(ctx, CreateLotParams{Width: 4, Height: 4, AutoPopulate: true, GateSize: 0})
	assert.ErrorIs(t, err, ErrInvalidGateSize)

	// a failed create leaves no lot behind
	snap, err := svc.CreateLot(ctx, CreateLotParams{Width: 3, Height: 3})
	require.NoError(t, err)
	assert.Empty(t, snap.Gates)
	assert.Empty(t, snap.Slots)
}

func TestOperationsWithoutLot(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, Deps{})

	_, err := svc.ResetLot(ctx)
	assert.ErrorIs(t, err, ErrLotNotFound)

	assert.ErrorIs(t, svc.DeleteLot(ctx), ErrLotNotFound)

	_, err = svc.AddGate(ctx, domain.Position{X: 0, Y: 0})
	assert.ErrorIs(t, err, ErrLotNotFound)

	_, err = svc.Park(ctx, ParkParams{Plate: "A", Size: "small", GateID: "g"}, "")
	assert.ErrorIs(t, err, ErrLotNotFound)

	_, err = svc.Unpark(ctx, UnparkParams{Plate: "A"})
	assert.ErrorIs(t, err, ErrLotNotFound)
}

func TestAddGateAndSlot(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, Deps{})

	_, err := svc.CreateLot(ctx, CreateLotParams{Width: 5, Height: 5})
	require.NoError(t, err)

	g, err := svc.AddGate(ctx, domain.Position{X: 0, Y: 2})
	require.NoError(t, err)
	assert.NotEmpty(t, g.ID)

	_, err = svc.AddGate(ctx, domain.Position{X: 0, Y: 2})
	assert.ErrorIs(t, err, ErrPositionOccupied)

	_, err = svc.AddGate(ctx, domain.Position{X: 2, Y: 2})
	assert.ErrorIs(t, err, ErrNotOnBorder)

	_, err = svc.AddGate(ctx, domain.Position{X: 5, Y: 0})
	assert.ErrorIs(t, err, ErrOutOfBounds)

	s, err := svc.AddSlot(ctx, domain.Position{X: 2, Y: 2}, "Medium")
	require.NoError(t, err)
	assert.Equal(t, domain.SizeMedium, s.Size)

	_, err = svc.AddSlot(ctx, domain.Position{X: 0, Y: 1}, "small")
	assert.ErrorIs(t, err, ErrNotInterior)

	_, err = svc.AddSlot(ctx, domain.Position{X: 1, Y: 1}, "huge")
	assert.ErrorIs(t, err, ErrInvalidVehicleSize)

	sess, err := svc.Park(ctx, ParkParams{Plate: "ab-1", Size: "small", GateID: g.ID}, "")
	require.NoError(t, err)
	assert.Equal(t, s.ID, sess.Slot.ID)
	assert.Equal(t, "AB-1", sess.Vehicle.Plate)
}

func TestParkUnpark(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, Deps{})

	snap, err := svc.CreateLot(ctx, CreateLotParams{Width: 4, Height: 4, AutoPopulate: true, GateSize: 2})
	require.NoError(t, err)
	gate := gateAt(t, snap, 0, 0)

	sess, err := svc.Park(ctx, ParkParams{Plate: "AB-123", Size: "small", GateID: gate, At: at(0)}, "")
	require.NoError(t, err)
	assert.Equal(t, domain.Position{X: 1, Y: 1}, sess.Slot.Position)
	assert.Equal(t, t0, sess.CheckInAt)
	assert.Nil(t, sess.Fee)

	_, err = svc.Park(ctx, ParkParams{Plate: "ab-123", Size: "small", GateID: gate}, "")
	assert.ErrorIs(t, err, ErrVehicleAlreadyParked)

	_, err = svc.Unpark(ctx, UnparkParams{Plate: "AB-123", At: at(-time.Minute)})
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	closed, err := svc.Unpark(ctx, UnparkParams{Plate: "AB-123", At: at(5*time.Hour + 500*time.Millisecond)})
	require.NoError(t, err)
	require.NotNil(t, closed.Fee)
	assert.Equal(t, int64(90), *closed.Fee)
	assert.Equal(t, t0.Add(5*time.Hour), *closed.CheckOutAt)

	_, err = svc.Unpark(ctx, UnparkParams{Plate: "AB-123"})
	assert.ErrorIs(t, err, ErrVehicleNotParked)

	again, err := svc.Park(ctx, ParkParams{Plate: "AB-123", Size: "small", GateID: gate, At: at(6 * time.Hour)}, "")
	require.NoError(t, err)
	assert.Equal(t, sess.Slot.ID, again.Slot.ID)
	assert.Equal(t, sess.ID, again.PriorSessionID)

	_, err = svc.Park(ctx, ParkParams{Plate: "X", Size: "small", GateID: "missing"}, "")
	assert.ErrorIs(t, err, ErrGateNotFound)

	_, err = svc.Park(ctx, ParkParams{Plate: "X", Size: "bus", GateID: gate}, "")
	assert.ErrorIs(t, err, ErrInvalidVehicleSize)

	_, err = svc.Park(ctx, ParkParams{Plate: "  ", Size: "small", GateID: gate}, "")
	assert.ErrorIs(t, err, ErrInvalidPlate)

	err = store.View(ctx, func(r memory.Reader) error {
		assert.Len(t, r.Sessions(), 2)
		return nil
	})
	require.NoError(t, err)
}

func TestPark_NoAvailableSlotLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, Deps{})

	snap, err := svc.CreateLot(ctx, CreateLotParams{Width: 4, Height: 4, AutoPopulate: true, GateSize: 2})
	require.NoError(t, err)
	gate := gateAt(t, snap, 0, 0)

	_, err = svc.Park(ctx, ParkParams{Plate: "L1", Size: "large", GateID: gate}, "")
	require.NoError(t, err)

	_, err = svc.Park(ctx, ParkParams{Plate: "L2", Size: "large", GateID: gate}, "")
	assert.ErrorIs(t, err, ErrNoAvailableSlot)

	err = store.View(ctx, func(r memory.Reader) error {
		assert.Len(t, r.Sessions(), 1)
		snap, err := r.Snapshot()
		require.NoError(t, err)
		occupied := 0
		for _, s := range snap.Slots {
			if s.Occupied() {
				occupied++
			}
		}
		assert.Equal(t, 1, occupied)
		return nil
	})
	require.NoError(t, err)
}

func TestPark_ConcurrentRaceForLastSlot(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, Deps{})

	snap, err := svc.CreateLot(ctx, CreateLotParams{Width: 3, Height: 3, AutoPopulate: true, GateSize: 1})
	require.NoError(t, err)
	require.Len(t, snap.Slots, 1)

	const n = 64
	var (
		wg      sync.WaitGroup
		won     atomic.Int32
		noSlot  atomic.Int32
		unknown atomic.Int32
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			gate := snap.Gates[i%len(snap.Gates)].ID
			_, err := svc.Park(ctx, ParkParams{Plate: fmt.Sprintf("P%02d", i), Size: "small", GateID: gate}, "")
			switch {
			case err == nil:
				won.Add(1)
			case errors.Is(err, ErrNoAvailableSlot):
				noSlot.Add(1)
			default:
				unknown.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), won.Load())
	assert.Equal(t, int32(n-1), noSlot.Load())
	assert.Zero(t, unknown.Load())

	err = store.View(ctx, func(r memory.Reader) error {
		assert.Len(t, r.Sessions(), 1)
		return nil
	})
	require.NoError(t, err)
}

func TestParkUnpark_ConcurrentNeverShareSlots(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, Deps{})

	snap, err := svc.CreateLot(ctx, CreateLotParams{Width: 6, Height: 6, AutoPopulate: true, GateSize: 3})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				plate := fmt.Sprintf("W%d-%d", w, i%3)
				gate := snap.Gates[(w+i)%len(snap.Gates)].ID
				if _, err := svc.Park(ctx, ParkParams{Plate: plate, Size: string(domain.Sizes[i%3]), GateID: gate}, ""); err != nil {
					continue
				}
				if i%2 == 0 {
					_, _ = svc.Unpark(ctx, UnparkParams{Plate: plate, At: at(time.Duration(i) * time.Hour)})
				}
			}
		}(w)
	}
	wg.Wait()

	err = store.View(ctx, func(r memory.Reader) error {
		bySlot := make(map[string]string)
		for _, s := range r.Sessions() {
			if s.Status() != domain.SessionOpen {
				continue
			}
			prev, dup := bySlot[s.Slot.ID]
			assert.False(t, dup, "slot %s held by %s and %s", s.Slot.ID, prev, s.Vehicle.Plate)
			bySlot[s.Slot.ID] = s.Vehicle.Plate
			assert.True(t, s.Vehicle.Size.FitsIn(s.Slot.Size))
		}

		lot, err := r.Snapshot()
		require.NoError(t, err)
		occupied := 0
		for _, s := range lot.Slots {
			if s.Occupied() {
				occupied++
				assert.Equal(t, s.Vehicle.Plate, bySlot[s.ID])
			}
		}
		assert.Equal(t, len(bySlot), occupied)
		return nil
	})
	require.NoError(t, err)
}

func TestResetAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, Deps{})

	snap, err := svc.CreateLot(ctx, CreateLotParams{Width: 4, Height: 4, AutoPopulate: true, GateSize: 2})
	require.NoError(t, err)

	_, err = svc.Park(ctx, ParkParams{Plate: "A", Size: "small", GateID: snap.Gates[0].ID}, "")
	require.NoError(t, err)

	reset, err := svc.ResetLot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Gates, reset.Gates)
	for _, s := range reset.Slots {
		assert.False(t, s.Occupied())
	}

	err = store.View(ctx, func(r memory.Reader) error {
		assert.Empty(t, r.Sessions())
		return nil
	})
	require.NoError(t, err)

	// the plate is free again after reset
	_, err = svc.Park(ctx, ParkParams{Plate: "A", Size: "small", GateID: snap.Gates[0].ID}, "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLot(ctx))
	assert.ErrorIs(t, svc.DeleteLot(ctx), ErrLotNotFound)

	_, err = svc.CreateLot(ctx, CreateLotParams{Width: 2, Height: 2})
	assert.NoError(t, err)
}

func TestSideEffectsRunAfterCommit(t *testing.T) {
	ctx := context.Background()
	cache := &fakeCache{}
	pub := &fakePublisher{}
	arch := &fakeArchive{}
	svc, _ := newService(t, Deps{Cache: cache, Events: pub, Archive: arch})

	snap, err := svc.CreateLot(ctx, CreateLotParams{Width: 4, Height: 4, AutoPopulate: true, GateSize: 2})
	require.NoError(t, err)

	_, err = svc.Park(ctx, ParkParams{Plate: "A", Size: "small", GateID: snap.Gates[0].ID, At: at(0)}, "")
	require.NoError(t, err)

	_, err = svc.Park(ctx, ParkParams{Plate: "A", Size: "small", GateID: snap.Gates[0].ID}, "")
	require.Error(t, err)

	closed, err := svc.Unpark(ctx, UnparkParams{Plate: "A", At: at(time.Hour)})
	require.NoError(t, err)

	_, err = svc.ResetLot(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteLot(ctx))

	assert.Equal(t, []domain.LotEventKind{
		domain.LotCreated,
		domain.VehicleParked,
		domain.VehicleUnparked,
		domain.LotReset,
		domain.LotDeleted,
	}, pub.kinds())
	assert.Equal(t, int32(5), cache.calls.Load())

	require.Len(t, arch.saved, 2)
	assert.Nil(t, arch.saved[0].Fee)
	assert.Equal(t, closed.ID, arch.saved[1].ID)
	assert.Equal(t, int64(20), *arch.saved[1].Fee)
	assert.Equal(t, "USD", arch.saved[1].Currency)
	assert.Equal(t, snap.ID, arch.saved[1].LotID)
}

func TestSideEffectFailuresDoNotFailOperation(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	svc, _ := newService(t, Deps{
		Cache:   &fakeCache{InvalidateLotFunc: func(context.Context, uint64) error { return boom }},
		Archive: &fakeArchive{SaveSessionFunc: func(context.Context, domain.ArchivedSession) error { return boom }},
	})

	snap, err := svc.CreateLot(ctx, CreateLotParams{Width: 4, Height: 4, AutoPopulate: true, GateSize: 2})
	require.NoError(t, err)

	_, err = svc.Park(ctx, ParkParams{Plate: "A", Size: "small", GateID: snap.Gates[0].ID}, "")
	assert.NoError(t, err)
}

func TestPark_RateLimited(t *testing.T) {
	ctx := context.Background()
	var seen string
	limiter := &fakeLimiter{AllowFunc: func(_ context.Context, suffix string) (bool, int64, time.Duration, error) {
		seen = suffix
		return false, 61, 2 * time.Second, nil
	}}
	svc, _ := newService(t, Deps{Limiter: limiter})

	snap, err := svc.CreateLot(ctx, CreateLotParams{Width: 4, Height: 4, AutoPopulate: true, GateSize: 2})
	require.NoError(t, err)

	_, err = svc.Park(ctx, ParkParams{Plate: "A", Size: "small", GateID: snap.Gates[0].ID}, "ip:10.0.0.1")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, "ip:10.0.0.1", seen)

	var rl RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 2*time.Second, rl.RetryAfter)

	// no key, no check
	_, err = svc.Park(ctx, ParkParams{Plate: "A", Size: "small", GateID: snap.Gates[0].ID}, "")
	assert.NoError(t, err)
}

func TestPark_LimiterOutageFailsOpen(t *testing.T) {
	ctx := context.Background()
	limiter := &fakeLimiter{AllowFunc: func(context.Context, string) (bool, int64, time.Duration, error) {
		return false, 0, 0, errors.New("connection refused")
	}}
	svc, _ := newService(t, Deps{Limiter: limiter})

	snap, err := svc.CreateLot(ctx, CreateLotParams{Width: 4, Height: 4, AutoPopulate: true, GateSize: 2})
	require.NoError(t, err)

	_, err = svc.Park(ctx, ParkParams{Plate: "A", Size: "small", GateID: snap.Gates[0].ID}, "ip:1")
	assert.NoError(t, err)
}

func TestPark_DefaultsToServiceClock(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, Deps{})
	svc.cfg.Now = func() time.Time { return t0.Add(1500 * time.Millisecond) }

	snap, err := svc.CreateLot(ctx, CreateLotParams{Width: 4, Height: 4, AutoPopulate: true, GateSize: 2})
	require.NoError(t, err)

	sess, err := svc.Park(ctx, ParkParams{Plate: "A", Size: "small", GateID: snap.Gates[0].ID}, "")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Second), sess.CheckInAt)
}
