package topology

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/kirinyoku/parkgo/internal/domain"
)

const (
	MinDimension        = 2
	DefaultMaxDimension = 10
)

// Lot is the rectangular grid of one facility. Gates sit on border cells,
// slots on interior cells, and no two of them share a position.
//
// Lot is not safe for concurrent use; the owning store serializes access.
type Lot struct {
	id     string
	width  int
	height int

	gates []*domain.Gate
	slots []*domain.Slot

	gatesByID map[string]*domain.Gate
	slotsByID map[string]*domain.Slot
	taken     map[domain.Position]struct{}

	newID func() string
}

// New creates an empty width x height lot.
//
// Parameters:
//   - width, height: grid dimensions, each within [MinDimension, maxDimension].
//   - maxDimension: upper bound; values below MinDimension fall back to DefaultMaxDimension.
//
// Returns:
//   - *Lot: the empty lot.
//   - error: topology.ErrInvalidDimensions if a dimension is out of range.
func New(width, height, maxDimension int) (*Lot, error) {
	const op = "topology.New"

	if maxDimension < MinDimension {
		maxDimension = DefaultMaxDimension
	}

	if width < MinDimension || height < MinDimension || width > maxDimension || height > maxDimension {
		return nil, fmt.Errorf(
			"%s:%w: %dx%d not within %d..%d",
			op, ErrInvalidDimensions, width, height, MinDimension, maxDimension,
		)
	}

	return &Lot{
		id:        uuid.NewString(),
		width:     width,
		height:    height,
		gatesByID: make(map[string]*domain.Gate),
		slotsByID: make(map[string]*domain.Slot),
		taken:     make(map[domain.Position]struct{}),
		newID:     uuid.NewString,
	}, nil
}

func (l *Lot) ID() string  { return l.id }
func (l *Lot) Width() int  { return l.width }
func (l *Lot) Height() int { return l.height }

func (l *Lot) Contains(p domain.Position) bool {
	return p.X >= 0 && p.X < l.width && p.Y >= 0 && p.Y < l.height
}

func (l *Lot) OnBorder(p domain.Position) bool {
	return l.Contains(p) && (p.X == 0 || p.X == l.width-1 || p.Y == 0 || p.Y == l.height-1)
}

// AddGate places a gate on a border cell.
//
// Returns:
//   - domain.Gate: the created gate.
//   - error: topology.ErrOutOfBounds, topology.ErrNotOnBorder or topology.ErrPositionOccupied.
func (l *Lot) AddGate(p domain.Position) (domain.Gate, error) {
	const op = "topology.Lot.AddGate"

	if !l.Contains(p) {
		return domain.Gate{}, fmt.Errorf("%s:%w: %s", op, ErrOutOfBounds, p)
	}

	if !l.OnBorder(p) {
		return domain.Gate{}, fmt.Errorf("%s:%w: %s", op, ErrNotOnBorder, p)
	}

	if _, ok := l.taken[p]; ok {
		return domain.Gate{}, fmt.Errorf("%s:%w: %s", op, ErrPositionOccupied, p)
	}

	g := &domain.Gate{ID: l.newID(), Position: p}
	l.gates = append(l.gates, g)
	l.gatesByID[g.ID] = g
	l.taken[p] = struct{}{}

	return *g, nil
}

// AddSlot places an empty slot of the given size on an interior cell.
//
// Returns:
//   - domain.Slot: the created slot.
//   - error: topology.ErrInvalidSlotSize, topology.ErrOutOfBounds,
//     topology.ErrNotInterior or topology.ErrPositionOccupied.
func (l *Lot) AddSlot(p domain.Position, size domain.Size) (domain.Slot, error) {
	const op = "topology.Lot.AddSlot"

	if !size.Valid() {
		return domain.Slot{}, fmt.Errorf("%s:%w: %q", op, ErrInvalidSlotSize, size)
	}

	if !l.Contains(p) {
		return domain.Slot{}, fmt.Errorf("%s:%w: %s", op, ErrOutOfBounds, p)
	}

	if l.OnBorder(p) {
		return domain.Slot{}, fmt.Errorf("%s:%w: %s", op, ErrNotInterior, p)
	}

	if _, ok := l.taken[p]; ok {
		return domain.Slot{}, fmt.Errorf("%s:%w: %s", op, ErrPositionOccupied, p)
	}

	s := &domain.Slot{ID: l.newID(), Position: p, Size: size}
	l.slots = append(l.slots, s)
	l.slotsByID[s.ID] = s
	l.taken[p] = struct{}{}

	return *s, nil
}

func (l *Lot) Gate(id string) (domain.Gate, error) {
	const op = "topology.Lot.Gate"

	g, ok := l.gatesByID[id]
	if !ok {
		return domain.Gate{}, fmt.Errorf("%s:%w: %s", op, ErrGateNotFound, id)
	}

	return *g, nil
}

func (l *Lot) Slot(id string) (domain.Slot, error) {
	const op = "topology.Lot.Slot"

	s, ok := l.slotsByID[id]
	if !ok {
		return domain.Slot{}, fmt.Errorf("%s:%w: %s", op, ErrSlotNotFound, id)
	}

	return copySlot(s), nil
}

// FreeSlots returns copies of every unoccupied slot in creation order.
func (l *Lot) FreeSlots() []domain.Slot {
	out := make([]domain.Slot, 0, len(l.slots))
	for _, s := range l.slots {
		if s.Vehicle == nil {
			out = append(out, *s)
		}
	}
	return out
}

// Occupy marks a free slot as taken by v.
func (l *Lot) Occupy(slotID string, v domain.Vehicle) (domain.Slot, error) {
	const op = "topology.Lot.Occupy"

	s, ok := l.slotsByID[slotID]
	if !ok {
		return domain.Slot{}, fmt.Errorf("%s:%w: %s", op, ErrSlotNotFound, slotID)
	}

	if s.Vehicle != nil {
		return domain.Slot{}, fmt.Errorf("%s:%w: %s", op, ErrSlotOccupied, slotID)
	}

	s.Vehicle = &v

	return copySlot(s), nil
}

// Release frees an occupied slot.
func (l *Lot) Release(slotID string) error {
	const op = "topology.Lot.Release"

	s, ok := l.slotsByID[slotID]
	if !ok {
		return fmt.Errorf("%s:%w: %s", op, ErrSlotNotFound, slotID)
	}

	if s.Vehicle == nil {
		return fmt.Errorf("%s:%w: %s", op, ErrSlotFree, slotID)
	}

	s.Vehicle = nil

	return nil
}

// Reset frees every slot and keeps gates and slots in place.
func (l *Lot) Reset() {
	for _, s := range l.slots {
		s.Vehicle = nil
	}
}

func (l *Lot) Occupancy() (occupied, total int) {
	for _, s := range l.slots {
		if s.Vehicle != nil {
			occupied++
		}
	}
	return occupied, len(l.slots)
}

// Snapshot returns a deep copy of the lot.
func (l *Lot) Snapshot() domain.LotSnapshot {
	snap := domain.LotSnapshot{
		ID:     l.id,
		Width:  l.width,
		Height: l.height,
		Gates:  make([]domain.Gate, 0, len(l.gates)),
		Slots:  make([]domain.Slot, 0, len(l.slots)),
	}

	for _, g := range l.gates {
		snap.Gates = append(snap.Gates, *g)
	}

	for _, s := range l.slots {
		snap.Slots = append(snap.Slots, copySlot(s))
	}

	return snap
}

func copySlot(s *domain.Slot) domain.Slot {
	cp := *s
	if s.Vehicle != nil {
		v := *s.Vehicle
		cp.Vehicle = &v
	}
	return cp
}
