package topology

import (
	"fmt"

	"github.com/kirinyoku/parkgo/internal/domain"
)

// BorderWalk returns every border cell of a width x height grid, clockwise
// from (0,0): top row, right column, bottom row, left column.
func BorderWalk(width, height int) []domain.Position {
	if width < 1 || height < 1 {
		return nil
	}

	if width == 1 || height == 1 {
		out := make([]domain.Position, 0, width*height)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out = append(out, domain.Position{X: x, Y: y})
			}
		}
		return out
	}

	out := make([]domain.Position, 0, 2*(width+height)-4)

	for x := 0; x < width; x++ {
		out = append(out, domain.Position{X: x, Y: 0})
	}
	for y := 1; y < height; y++ {
		out = append(out, domain.Position{X: width - 1, Y: y})
	}
	for x := width - 2; x >= 0; x-- {
		out = append(out, domain.Position{X: x, Y: height - 1})
	}
	for y := height - 2; y >= 1; y-- {
		out = append(out, domain.Position{X: 0, Y: y})
	}

	return out
}

// Populate fills an empty lot. Walking the border clockwise from (0,0), the
// first cell and then every gateSize-th cell becomes a gate. Interior cells
// become slots in row-major order with sizes cycling small, medium, large.
//
// Returns:
//   - error: topology.ErrInvalidGateSize if gateSize < 1.
func (l *Lot) Populate(gateSize int) error {
	const op = "topology.Lot.Populate"

	if gateSize < 1 {
		return fmt.Errorf("%s:%w: %d", op, ErrInvalidGateSize, gateSize)
	}

	for i, p := range BorderWalk(l.width, l.height) {
		if i%gateSize != 0 {
			continue
		}

		if _, ok := l.taken[p]; ok {
			continue
		}

		if _, err := l.AddGate(p); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
	}

	n := 0
	for y := 1; y < l.height-1; y++ {
		for x := 1; x < l.width-1; x++ {
			p := domain.Position{X: x, Y: y}
			if _, ok := l.taken[p]; ok {
				continue
			}

			if _, err := l.AddSlot(p, domain.Sizes[n%len(domain.Sizes)]); err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}
			n++
		}
	}

	return nil
}
