package fee

import "errors"

var (
	ErrInvalidTimeRange = errors.New("check-out precedes check-in")
	ErrInvalidRules     = errors.New("invalid fee rules")
	ErrUnknownSize      = errors.New("unknown slot size")
)
