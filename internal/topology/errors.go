package topology

import "errors"

var (
	ErrInvalidDimensions = errors.New("invalid lot dimensions")
	ErrInvalidGateSize   = errors.New("gate size must be at least 1")
	ErrInvalidSlotSize   = errors.New("invalid slot size")
	ErrOutOfBounds       = errors.New("position is outside the lot")
	ErrNotOnBorder       = errors.New("gate must be on the lot border")
	ErrNotInterior       = errors.New("slot must be inside the lot border")
	ErrPositionOccupied  = errors.New("position already holds a gate or slot")
	ErrGateNotFound      = errors.New("gate not found")
	ErrSlotNotFound      = errors.New("slot not found")
	ErrSlotOccupied      = errors.New("slot is occupied")
	ErrSlotFree          = errors.New("slot is not occupied")
)
