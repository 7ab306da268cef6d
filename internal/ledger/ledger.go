package ledger

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/fee"
)

// SlotReleaser returns an occupied slot to the free pool.
type SlotReleaser interface {
	Release(slotID string) error
}

// Ledger is the append-only session history of one lot. At most one session
// per plate is open at any time.
//
// Ledger is not safe for concurrent use; the owning store serializes access.
type Ledger struct {
	calc  *fee.Calculator
	slots SlotReleaser

	sessions   []*domain.Session
	open       map[string]*domain.Session
	lastClosed map[string]string

	newID func() string
}

func New(calc *fee.Calculator, slots SlotReleaser) *Ledger {
	return &Ledger{
		calc:       calc,
		slots:      slots,
		open:       make(map[string]*domain.Session),
		lastClosed: make(map[string]string),
		newID:      uuid.NewString,
	}
}

func (l *Ledger) IsParked(plate string) bool {
	_, ok := l.open[plate]
	return ok
}

// Open starts a session for v in slot, entered through gate at checkInAt.
//
// Returns:
//   - domain.Session: the open session, linked to the plate's last closed session.
//   - error: ledger.ErrVehicleAlreadyParked if the plate has an open session.
func (l *Ledger) Open(v domain.Vehicle, gate domain.Gate, slot domain.Slot, checkInAt time.Time) (domain.Session, error) {
	const op = "ledger.Ledger.Open"

	if l.IsParked(v.Plate) {
		return domain.Session{}, fmt.Errorf("%s:%w: %s", op, ErrVehicleAlreadyParked, v.Plate)
	}

	slot.Vehicle = nil

	s := &domain.Session{
		ID:             l.newID(),
		Vehicle:        v,
		Gate:           gate,
		Slot:           slot,
		CheckInAt:      checkInAt,
		PriorSessionID: l.lastClosed[v.Plate],
	}

	l.sessions = append(l.sessions, s)
	l.open[v.Plate] = s

	return *s, nil
}

// Close bills and closes the open session of plate and releases its slot.
// Nothing is mutated when an error is returned.
//
// Returns:
//   - domain.Session: the closed session with its fee.
//   - error: ledger.ErrVehicleNotParked if the plate has no open session.
//   - error: ledger.ErrInvalidTimeRange if checkOutAt precedes the check-in.
func (l *Ledger) Close(plate string, checkOutAt time.Time) (domain.Session, error) {
	const op = "ledger.Ledger.Close"

	s, ok := l.open[plate]
	if !ok {
		return domain.Session{}, fmt.Errorf("%s:%w: %s", op, ErrVehicleNotParked, plate)
	}

	charge, err := l.calc.Compute(s.CheckInAt, checkOutAt, s.Slot.Size)
	if err != nil {
		if errors.Is(err, fee.ErrInvalidTimeRange) {
			return domain.Session{}, fmt.Errorf("%s:%w", op, ErrInvalidTimeRange)
		}
		return domain.Session{}, fmt.Errorf("%s:%w", op, err)
	}

	if err := l.slots.Release(s.Slot.ID); err != nil {
		return domain.Session{}, fmt.Errorf("%s:%w", op, err)
	}

	out := checkOutAt
	amount := charge.Amount
	s.CheckOutAt = &out
	s.Fee = &amount
	s.BilledHours = charge.Hours

	delete(l.open, plate)
	l.lastClosed[plate] = s.ID

	return copySession(s), nil
}

// List returns every session, most recent check-in first. Sessions checked
// in at the same instant are ordered newest first.
func (l *Ledger) List() []domain.Session {
	return l.collect(func(*domain.Session) bool { return true })
}

func (l *Ledger) ListByPlate(plate string) []domain.Session {
	return l.collect(func(s *domain.Session) bool { return s.Vehicle.Plate == plate })
}

// Active returns the open session of plate, if any.
func (l *Ledger) Active(plate string) (domain.Session, bool) {
	s, ok := l.open[plate]
	if !ok {
		return domain.Session{}, false
	}
	return copySession(s), true
}

func (l *Ledger) OpenCount() int {
	return len(l.open)
}

// Clear drops the whole history without touching slots.
func (l *Ledger) Clear() {
	l.sessions = nil
	l.open = make(map[string]*domain.Session)
	l.lastClosed = make(map[string]string)
}

func (l *Ledger) collect(keep func(*domain.Session) bool) []domain.Session {
	out := make([]domain.Session, 0, len(l.sessions))
	for i := len(l.sessions) - 1; i >= 0; i-- {
		if keep(l.sessions[i]) {
			out = append(out, copySession(l.sessions[i]))
		}
	}

	slices.SortStableFunc(out, func(a, b domain.Session) int {
		return b.CheckInAt.Compare(a.CheckInAt)
	})

	return out
}

func copySession(s *domain.Session) domain.Session {
	cp := *s
	if s.CheckOutAt != nil {
		t := *s.CheckOutAt
		cp.CheckOutAt = &t
	}
	if s.Fee != nil {
		f := *s.Fee
		cp.Fee = &f
	}
	return cp
}
