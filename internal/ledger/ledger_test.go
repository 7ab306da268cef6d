package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/fee"
)

type fakeReleaser struct {
	ReleaseFunc func(slotID string) error
	released    []string
}

func (f *fakeReleaser) Release(slotID string) error {
	if f.ReleaseFunc != nil {
		if err := f.ReleaseFunc(slotID); err != nil {
			return err
		}
	}
	f.released = append(f.released, slotID)
	return nil
}

func newLedger(t *testing.T, r SlotReleaser) *Ledger {
	t.Helper()
	calc, err := fee.New(domain.FeeRules{
		Currency:   "USD",
		FlatRate:   domain.FlatRate{Hourly: 20, Daily: 300, MaxHours: 3},
		NormalRate: domain.NormalRate{SlotSize: domain.SlotSizeRates{Small: 15, Medium: 20, Large: 30}},
	})
	require.NoError(t, err)
	return New(calc, r)
}

var (
	t0   = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	gate = domain.Gate{ID: "g1", Position: domain.Position{X: 0, Y: 0}}
	car  = domain.Vehicle{Plate: "AB-123", Size: domain.SizeSmall}
)

func slot(id string) domain.Slot {
	return domain.Slot{ID: id, Position: domain.Position{X: 1, Y: 1}, Size: domain.SizeSmall}
}

func TestOpenClose(t *testing.T) {
	r := &fakeReleaser{}
	l := newLedger(t, r)

	s, err := l.Open(car, gate, slot("s1"), t0)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionOpen, s.Status())
	assert.Empty(t, s.PriorSessionID)
	assert.True(t, l.IsParked(car.Plate))
	assert.Equal(t, 1, l.OpenCount())

	closed, err := l.Close(car.Plate, t0.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.SessionClosed, closed.Status())
	require.NotNil(t, closed.Fee)
	assert.Equal(t, int64(90), *closed.Fee)
	assert.Equal(t, 5, closed.BilledHours)
	assert.Equal(t, []string{"s1"}, r.released)
	assert.False(t, l.IsParked(car.Plate))
	assert.Zero(t, l.OpenCount())
}

func TestOpen_AlreadyParked(t *testing.T) {
	l := newLedger(t, &fakeReleaser{})

	_, err := l.Open(car, gate, slot("s1"), t0)
	require.NoError(t, err)

	_, err = l.Open(car, gate, slot("s2"), t0.Add(time.Minute))
	assert.ErrorIs(t, err, ErrVehicleAlreadyParked)
	assert.Len(t, l.List(), 1)
}

func TestClose_NotParked(t *testing.T) {
	l := newLedger(t, &fakeReleaser{})

	_, err := l.Close("nobody", t0)
	assert.ErrorIs(t, err, ErrVehicleNotParked)
}

func TestClose_InvalidTimeRangeLeavesSessionOpen(t *testing.T) {
	r := &fakeReleaser{}
	l := newLedger(t, r)

	_, err := l.Open(car, gate, slot("s1"), t0)
	require.NoError(t, err)

	_, err = l.Close(car.Plate, t0.Add(-time.Second))
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
	assert.True(t, l.IsParked(car.Plate))
	assert.Empty(t, r.released)

	active, ok := l.Active(car.Plate)
	require.True(t, ok)
	assert.Nil(t, active.Fee)
}

func TestClose_ReleaseFailureLeavesSessionOpen(t *testing.T) {
	boom := errors.New("boom")
	l := newLedger(t, &fakeReleaser{ReleaseFunc: func(string) error { return boom }})

	_, err := l.Open(car, gate, slot("s1"), t0)
	require.NoError(t, err)

	_, err = l.Close(car.Plate, t0.Add(time.Hour))
	assert.ErrorIs(t, err, boom)
	assert.True(t, l.IsParked(car.Plate))
}

func TestReparkLinksPriorSession(t *testing.T) {
	l := newLedger(t, &fakeReleaser{})

	first, err := l.Open(car, gate, slot("s1"), t0)
	require.NoError(t, err)
	_, err = l.Close(car.Plate, t0.Add(time.Hour))
	require.NoError(t, err)

	second, err := l.Open(car, gate, slot("s1"), t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.PriorSessionID)

	_, err = l.Close(car.Plate, t0.Add(3*time.Hour))
	require.NoError(t, err)

	third, err := l.Open(car, gate, slot("s1"), t0.Add(4*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, second.ID, third.PriorSessionID)
}

func TestList_MostRecentFirst(t *testing.T) {
	l := newLedger(t, &fakeReleaser{})

	a, err := l.Open(domain.Vehicle{Plate: "A", Size: domain.SizeSmall}, gate, slot("s1"), t0.Add(time.Hour))
	require.NoError(t, err)
	b, err := l.Open(domain.Vehicle{Plate: "B", Size: domain.SizeSmall}, gate, slot("s2"), t0)
	require.NoError(t, err)
	c, err := l.Open(domain.Vehicle{Plate: "C", Size: domain.SizeSmall}, gate, slot("s3"), t0.Add(time.Hour))
	require.NoError(t, err)

	got := l.List()
	require.Len(t, got, 3)
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, []string{got[0].ID, got[1].ID, got[2].ID})

	byPlate := l.ListByPlate("B")
	require.Len(t, byPlate, 1)
	assert.Equal(t, b.ID, byPlate[0].ID)
	assert.Empty(t, l.ListByPlate("Z"))
}

func TestList_ReturnsCopies(t *testing.T) {
	l := newLedger(t, &fakeReleaser{})

	_, err := l.Open(car, gate, slot("s1"), t0)
	require.NoError(t, err)
	_, err = l.Close(car.Plate, t0.Add(time.Hour))
	require.NoError(t, err)

	got := l.List()
	*got[0].Fee = 9999

	again := l.List()
	assert.Equal(t, int64(20), *again[0].Fee)
}

func TestClear(t *testing.T) {
	l := newLedger(t, &fakeReleaser{})

	_, err := l.Open(car, gate, slot("s1"), t0)
	require.NoError(t, err)

	l.Clear()
	assert.Empty(t, l.List())
	assert.False(t, l.IsParked(car.Plate))

	s, err := l.Open(car, gate, slot("s1"), t0)
	require.NoError(t, err)
	assert.Empty(t, s.PriorSessionID)
}
