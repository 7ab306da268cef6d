package facility

import (
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/parkgo/internal/allocator"
	"github.com/kirinyoku/parkgo/internal/ledger"
	"github.com/kirinyoku/parkgo/internal/repository"
	"github.com/kirinyoku/parkgo/internal/topology"
)

var (
	ErrInvalidDimensions    = errors.New("invalid lot dimensions")
	ErrInvalidGateSize      = errors.New("invalid gate size")
	ErrInvalidVehicleSize   = errors.New("invalid size")
	ErrInvalidPlate         = errors.New("plate number is required")
	ErrLotAlreadyExists     = errors.New("parking lot already exists")
	ErrLotNotFound          = errors.New("parking lot not found")
	ErrOutOfBounds          = errors.New("position is outside the parking lot")
	ErrNotOnBorder          = errors.New("gate must be placed on the border")
	ErrNotInterior          = errors.New("slot must be placed inside the border")
	ErrPositionOccupied     = errors.New("position is already occupied")
	ErrGateNotFound         = errors.New("gate not found")
	ErrNoAvailableSlot      = errors.New("no available slot for this vehicle")
	ErrVehicleAlreadyParked = errors.New("vehicle is already parked")
	ErrVehicleNotParked     = errors.New("vehicle is not parked")
	ErrInvalidTimeRange     = errors.New("check-out time precedes check-in time")
	ErrRateLimited          = errors.New("rate limited")
)

// RateLimitedError is returned by Park when the caller exceeded its quota.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}

func (e RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

var kinds = []struct {
	from error
	to   error
}{
	{topology.ErrInvalidDimensions, ErrInvalidDimensions},
	{topology.ErrInvalidGateSize, ErrInvalidGateSize},
	{topology.ErrInvalidSlotSize, ErrInvalidVehicleSize},
	{topology.ErrOutOfBounds, ErrOutOfBounds},
	{topology.ErrNotOnBorder, ErrNotOnBorder},
	{topology.ErrNotInterior, ErrNotInterior},
	{topology.ErrPositionOccupied, ErrPositionOccupied},
	{topology.ErrGateNotFound, ErrGateNotFound},
	{allocator.ErrNoAvailableSlot, ErrNoAvailableSlot},
	{ledger.ErrVehicleAlreadyParked, ErrVehicleAlreadyParked},
	{ledger.ErrVehicleNotParked, ErrVehicleNotParked},
	{ledger.ErrInvalidTimeRange, ErrInvalidTimeRange},
	{repository.ErrNotFound, ErrLotNotFound},
	{repository.ErrConflict, ErrLotAlreadyExists},
}

// wrap prefixes err with op and attaches the matching service-level kind so
// callers can match on either.
func wrap(op string, err error) error {
	for _, k := range kinds {
		if errors.Is(err, k.from) {
			return fmt.Errorf("%s:%w: %w", op, k.to, err)
		}
	}

	return fmt.Errorf("%s:%w", op, err)
}
