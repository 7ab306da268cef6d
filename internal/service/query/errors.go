package query

import (
	"errors"
)

var (
	ErrLotNotFound      = errors.New("parking lot not found")
	ErrGateNotFound     = errors.New("gate not found")
	ErrArchiveDisabled  = errors.New("record archive is not configured")
	ErrInvalidPageParam = errors.New("invalid paging parameters")
)
