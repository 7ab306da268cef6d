package ledger

import "errors"

var (
	ErrVehicleAlreadyParked = errors.New("vehicle already parked")
	ErrVehicleNotParked     = errors.New("vehicle not parked")
	ErrInvalidTimeRange     = errors.New("check-out precedes check-in")
)
