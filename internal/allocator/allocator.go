package allocator

import (
	"errors"
	"fmt"

	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/topology"
)

var ErrNoAvailableSlot = errors.New("no available slot")

// Strategy picks one slot out of the free, size-compatible candidates for a
// vehicle entering at the given position.
type Strategy interface {
	Select(candidates []domain.Slot, from domain.Position) (domain.Slot, bool)
}

// Nearest selects the slot with the smallest Manhattan distance to the
// entry, breaking ties by row-major position.
type Nearest struct{}

func (Nearest) Select(candidates []domain.Slot, from domain.Position) (domain.Slot, bool) {
	var (
		best  domain.Slot
		bestD = -1
	)

	for _, s := range candidates {
		d := s.Position.Manhattan(from)
		if bestD < 0 || d < bestD || (d == bestD && s.Position.Before(best.Position)) {
			best, bestD = s, d
		}
	}

	return best, bestD >= 0
}

type Allocator struct {
	strategy Strategy
}

// New returns an allocator using s, or Nearest when s is nil.
func New(s Strategy) *Allocator {
	if s == nil {
		s = Nearest{}
	}
	return &Allocator{strategy: s}
}

// FindSlotForEntry returns the slot a vehicle of the given size should take
// when it enters through gate. It does not reserve the slot.
func (a *Allocator) FindSlotForEntry(lot *topology.Lot, gate domain.Gate, size domain.Size) (domain.Slot, error) {
	const op = "allocator.FindSlotForEntry"

	free := lot.FreeSlots()
	candidates := free[:0]
	for _, s := range free {
		if size.FitsIn(s.Size) {
			candidates = append(candidates, s)
		}
	}

	slot, ok := a.strategy.Select(candidates, gate.Position)
	if !ok {
		return domain.Slot{}, fmt.Errorf("%s:%w: size=%s gate=%s", op, ErrNoAvailableSlot, size, gate.ID)
	}

	return slot, nil
}

// Reserve finds a slot for the vehicle and marks it occupied in one step.
// Callers must hold the lot's write lock.
func (a *Allocator) Reserve(lot *topology.Lot, gate domain.Gate, v domain.Vehicle) (domain.Slot, error) {
	const op = "allocator.Reserve"

	slot, err := a.FindSlotForEntry(lot, gate, v.Size)
	if err != nil {
		return domain.Slot{}, err
	}

	taken, err := lot.Occupy(slot.ID, v)
	if err != nil {
		return domain.Slot{}, fmt.Errorf("%s:%w", op, err)
	}

	return taken, nil
}
