package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/fee"
	"github.com/kirinyoku/parkgo/internal/repository/memory"
	redisrepo "github.com/kirinyoku/parkgo/internal/repository/redis"
	"github.com/kirinyoku/parkgo/internal/topology"
)

type fakeArchive struct {
	ListSessionsFunc func(ctx context.Context, f domain.ArchiveFilter) ([]domain.ArchivedSession, error)
}

func (f *fakeArchive) ListSessions(ctx context.Context, filter domain.ArchiveFilter) ([]domain.ArchivedSession, error) {
	return f.ListSessionsFunc(ctx, filter)
}

var rules = domain.FeeRules{
	Currency:   "USD",
	FlatRate:   domain.FlatRate{Hourly: 20, Daily: 300, MaxHours: 3},
	NormalRate: domain.NormalRate{SlotSize: domain.SlotSizeRates{Small: 15, Medium: 20, Large: 30}},
}

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	calc, err := fee.New(rules)
	require.NoError(t, err)
	return memory.NewStore(calc)
}

func seed(t *testing.T, store *memory.Store) domain.LotSnapshot {
	t.Helper()
	var snap domain.LotSnapshot
	err := store.RunTx(context.Background(), func(ctx context.Context, tx *memory.Tx) error {
		lot, err := topology.New(4, 4, 10)
		require.NoError(t, err)
		require.NoError(t, lot.Populate(2))
		require.NoError(t, tx.Create(lot))

		led, err := tx.Ledger()
		require.NoError(t, err)

		gates := lot.Snapshot().Gates
		t0 := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
		for i, plate := range []string{"AA-1", "BB-2", "AA-1"} {
			v := domain.Vehicle{Plate: plate, Size: domain.SizeSmall}
			free := lot.FreeSlots()
			slot, err := lot.Occupy(free[0].ID, v)
			require.NoError(t, err)
			_, err = led.Open(v, gates[0], slot, t0.Add(time.Duration(i)*time.Hour))
			require.NoError(t, err)
			if i == 0 {
				_, err = led.Close(plate, t0.Add(30*time.Minute))
				require.NoError(t, err)
			}
		}

		snap = lot.Snapshot()
		return nil
	})
	require.NoError(t, err)
	return snap
}

func TestGetLot(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	svc := New(store, nil, nil, Config{})

	_, err := svc.GetLot(ctx)
	assert.ErrorIs(t, err, ErrLotNotFound)

	want := seed(t, store)
	got, err := svc.GetLot(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func occupied(snap domain.LotSnapshot) int {
	n := 0
	for _, s := range snap.Slots {
		if s.Occupied() {
			n++
		}
	}
	return n
}

func TestGetLot_CachedSnapshotFollowsCommits(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cache := redisrepo.New(rdb)
	store := newStore(t)
	svc := New(store, cache, nil, Config{LotTTL: time.Minute})

	seed(t, store)

	// A reader misses the cache and loads its snapshot, then a park commits
	// and invalidates before the reader writes the snapshot back.
	stale, err := redisrepo.GetOrSetJSON(ctx, cache, redisrepo.KeyLotSnapshot(store.Generation()), time.Minute,
		func(ctx context.Context) (domain.LotSnapshot, error) {
			var snap domain.LotSnapshot
			require.NoError(t, store.View(ctx, func(r memory.Reader) error {
				var err error
				snap, err = r.Snapshot()
				return err
			}))

			var superseded uint64
			require.NoError(t, store.RunTx(ctx, func(ctx context.Context, tx *memory.Tx) error {
				lot, err := tx.Lot()
				require.NoError(t, err)
				superseded = tx.Generation()
				_, err = lot.Occupy(lot.FreeSlots()[0].ID, domain.Vehicle{Plate: "CC-3", Size: domain.SizeSmall})
				return err
			}))
			require.NoError(t, cache.InvalidateLot(ctx, superseded))

			return snap, nil
		})
	require.NoError(t, err)
	require.Equal(t, 2, occupied(stale))

	got, err := svc.GetLot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, occupied(got))
}

func TestGetGate(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	svc := New(store, nil, nil, Config{})

	_, err := svc.GetGate(ctx, "any")
	assert.ErrorIs(t, err, ErrLotNotFound)

	snap := seed(t, store)
	g, err := svc.GetGate(ctx, snap.Gates[1].ID)
	require.NoError(t, err)
	assert.Equal(t, snap.Gates[1], g)

	_, err = svc.GetGate(ctx, "missing")
	assert.ErrorIs(t, err, ErrGateNotFound)
}

func TestRecords(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	svc := New(store, nil, nil, Config{})

	empty, err := svc.ListRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	seed(t, store)

	all, err := svc.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "AA-1", all[0].Vehicle.Plate)
	assert.Equal(t, "BB-2", all[1].Vehicle.Plate)
	assert.Equal(t, all[2].ID, all[0].PriorSessionID)

	mine, err := svc.VehicleRecords(ctx, " aa-1 ")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	none, err := svc.VehicleRecords(ctx, "ZZ")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFeeRules(t *testing.T) {
	svc := New(newStore(t), nil, nil, Config{})
	assert.Equal(t, rules, svc.FeeRules(context.Background()))
}

func TestArchivedRecords(t *testing.T) {
	ctx := context.Background()

	disabled := New(newStore(t), nil, nil, Config{})
	_, err := disabled.ArchivedRecords(ctx, "", 10, 0)
	assert.ErrorIs(t, err, ErrArchiveDisabled)

	var seen domain.ArchiveFilter
	arch := &fakeArchive{ListSessionsFunc: func(_ context.Context, f domain.ArchiveFilter) ([]domain.ArchivedSession, error) {
		seen = f
		return []domain.ArchivedSession{{LotID: "lot"}}, nil
	}}
	svc := New(newStore(t), nil, arch, Config{DefaultPageSize: 20, MaxPageSize: 100})

	out, err := svc.ArchivedRecords(ctx, "ab-1", 0, 5)
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, domain.ArchiveFilter{Plate: "AB-1", Limit: 20, Offset: 5}, seen)

	_, err = svc.ArchivedRecords(ctx, "", 1000, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, seen.Limit)

	_, err = svc.ArchivedRecords(ctx, "", 10, -1)
	assert.ErrorIs(t, err, ErrInvalidPageParam)

	boom := errors.New("boom")
	arch.ListSessionsFunc = func(context.Context, domain.ArchiveFilter) ([]domain.ArchivedSession, error) {
		return nil, boom
	}
	_, err = svc.ArchivedRecords(ctx, "", 10, 0)
	assert.ErrorIs(t, err, boom)
}
