package domain

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the wall-clock layout shared with the browser client.
const TimeLayout = "2006-01-02 15:04:05"

type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// Sizes lists every size class in ascending order.
var Sizes = []Size{SizeSmall, SizeMedium, SizeLarge}

func ParseSize(s string) (Size, error) {
	size := Size(strings.ToLower(strings.TrimSpace(s)))
	if !size.Valid() {
		return "", fmt.Errorf("unknown size %q", s)
	}

	return size, nil
}

func (s Size) Valid() bool {
	return s.Rank() >= 0
}

// Rank orders sizes small < medium < large. Unknown sizes rank -1.
func (s Size) Rank() int {
	switch s {
	case SizeSmall:
		return 0
	case SizeMedium:
		return 1
	case SizeLarge:
		return 2
	default:
		return -1
	}
}

// FitsIn reports whether a vehicle of size s may occupy a slot of the given size.
func (s Size) FitsIn(slot Size) bool {
	return s.Valid() && slot.Valid() && s.Rank() <= slot.Rank()
}

type Position struct {
	X int
	Y int
}

// Before orders positions row-major: y ascending, then x ascending.
func (p Position) Before(o Position) bool {
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.X < o.X
}

func (p Position) Manhattan(o Position) int {
	return abs(p.X-o.X) + abs(p.Y-o.Y)
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

type Vehicle struct {
	Plate string
	Size  Size
}

type Gate struct {
	ID       string
	Position Position
}

type Slot struct {
	ID       string
	Position Position
	Size     Size
	Vehicle  *Vehicle
}

func (s Slot) Occupied() bool {
	return s.Vehicle != nil
}

type LotSnapshot struct {
	ID     string
	Width  int
	Height int
	Gates  []Gate
	Slots  []Slot
}

type SessionStatus string

const (
	SessionOpen   SessionStatus = "open"
	SessionClosed SessionStatus = "closed"
)

type Session struct {
	ID             string
	Vehicle        Vehicle
	Gate           Gate
	Slot           Slot
	CheckInAt      time.Time
	CheckOutAt     *time.Time
	Fee            *int64
	BilledHours    int
	PriorSessionID string
}

func (s Session) Status() SessionStatus {
	if s.CheckOutAt != nil {
		return SessionClosed
	}
	return SessionOpen
}

type FlatRate struct {
	Hourly   int64 `json:"hourly"`
	Daily    int64 `json:"daily"`
	MaxHours int   `json:"max_hours"`
}

type SlotSizeRates struct {
	Small  int64 `json:"small"`
	Medium int64 `json:"medium"`
	Large  int64 `json:"large"`
}

type NormalRate struct {
	SlotSize SlotSizeRates `json:"slot_size"`
}

// For returns the per-hour normal rate of a slot size.
func (r NormalRate) For(size Size) int64 {
	switch size {
	case SizeMedium:
		return r.SlotSize.Medium
	case SizeLarge:
		return r.SlotSize.Large
	default:
		return r.SlotSize.Small
	}
}

type FeeRules struct {
	Currency   string     `json:"currency"`
	FlatRate   FlatRate   `json:"flat_rate"`
	NormalRate NormalRate `json:"normal_rate"`
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

type LotEventKind string

const (
	LotCreated      LotEventKind = "lot_created"
	LotReset        LotEventKind = "lot_reset"
	LotDeleted      LotEventKind = "lot_deleted"
	GateAdded       LotEventKind = "gate_added"
	SlotAdded       LotEventKind = "slot_added"
	VehicleParked   LotEventKind = "vehicle_parked"
	VehicleUnparked LotEventKind = "vehicle_unparked"
)

// LotEvent announces a committed change of the live lot.
type LotEvent struct {
	Kind  LotEventKind `json:"kind"`
	LotID string       `json:"lot_id"`
	Plate string       `json:"plate,omitempty"`
	At    time.Time    `json:"at"`
}

// ArchivedSession is a session as kept in the long-term record archive,
// which outlives the lot it was recorded in.
type ArchivedSession struct {
	Session
	LotID    string
	Currency string
}

type ArchiveFilter struct {
	Plate  string
	Limit  int
	Offset int
}
