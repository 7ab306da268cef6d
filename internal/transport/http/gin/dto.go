package httpgin

import (
	"time"

	"github.com/kirinyoku/parkgo/internal/domain"
)

type CreateLotRequest struct {
	Width        *int `json:"width" binding:"required"`
	Height       *int `json:"height" binding:"required"`
	AutoPopulate bool `json:"auto_populate"`
	GateSize     int  `json:"gate_size"`
}

type CreateGateRequest struct {
	X *int `json:"x" binding:"required"`
	Y *int `json:"y" binding:"required"`
}

type CreateSlotRequest struct {
	X    *int   `json:"x" binding:"required"`
	Y    *int   `json:"y" binding:"required"`
	Size string `json:"size" binding:"required"`
}

type ParkRequest struct {
	PlateNumber string `json:"plate_number" binding:"required,max=32"`
	Size        string `json:"size" binding:"required"`
	GateID      string `json:"gate_id" binding:"required"`
	TimeAt      string `json:"time_at"`
}

type UnparkRequest struct {
	PlateNumber string `json:"plate_number" binding:"required,max=32"`
	TimeAt      string `json:"time_at"`
}

type ErrorResponse struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

type PositionResponse struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type VehicleResponse struct {
	ID   string `json:"id"`
	Size string `json:"size"`
}

type GateResponse struct {
	ID       string           `json:"id"`
	Position PositionResponse `json:"position"`
}

type SlotResponse struct {
	ID       string           `json:"id"`
	Position PositionResponse `json:"position"`
	Size     string           `json:"size"`
	Vehicle  *VehicleResponse `json:"vehicle"`
}

type LotResponse struct {
	ID          string         `json:"id"`
	TotalWidth  int            `json:"total_width"`
	TotalHeight int            `json:"total_height"`
	Gates       []GateResponse `json:"gates"`
	Slots       []SlotResponse `json:"slots"`
}

type DurationResponse struct {
	Days  int `json:"days"`
	Hours int `json:"hours"`
}

type RecordResponse struct {
	ID           string            `json:"id"`
	CheckInAt    string            `json:"check_in_at"`
	CheckOutAt   *string           `json:"check_out_at"`
	Fee          *int64            `json:"fee"`
	Duration     *DurationResponse `json:"duration"`
	Slot         SlotResponse      `json:"slot"`
	Vehicle      VehicleResponse   `json:"vehicle"`
	Gate         GateResponse      `json:"gate"`
	PrevRecordID *string           `json:"prev_record_id"`
}

type ArchivedRecordResponse struct {
	RecordResponse
	LotID    string `json:"lot_id"`
	Currency string `json:"currency"`
}

func toPosition(p domain.Position) PositionResponse {
	return PositionResponse{X: p.X, Y: p.Y}
}

func toVehicle(v domain.Vehicle) VehicleResponse {
	return VehicleResponse{ID: v.Plate, Size: string(v.Size)}
}

func toGate(g domain.Gate) GateResponse {
	return GateResponse{ID: g.ID, Position: toPosition(g.Position)}
}

func toSlot(s domain.Slot) SlotResponse {
	out := SlotResponse{
		ID:       s.ID,
		Position: toPosition(s.Position),
		Size:     string(s.Size),
	}
	if s.Vehicle != nil {
		v := toVehicle(*s.Vehicle)
		out.Vehicle = &v
	}
	return out
}

func toLot(l domain.LotSnapshot) LotResponse {
	out := LotResponse{
		ID:          l.ID,
		TotalWidth:  l.Width,
		TotalHeight: l.Height,
		Gates:       make([]GateResponse, 0, len(l.Gates)),
		Slots:       make([]SlotResponse, 0, len(l.Slots)),
	}
	for _, g := range l.Gates {
		out.Gates = append(out.Gates, toGate(g))
	}
	for _, s := range l.Slots {
		out.Slots = append(out.Slots, toSlot(s))
	}
	return out
}

// toRecord renders a session in the client's wall-clock layout. Open
// sessions have no check-out, fee or duration.
func toRecord(s domain.Session, loc *time.Location) RecordResponse {
	out := RecordResponse{
		ID:        s.ID,
		CheckInAt: s.CheckInAt.In(loc).Format(domain.TimeLayout),
		Fee:       s.Fee,
		Slot:      toSlot(s.Slot),
		Vehicle:   toVehicle(s.Vehicle),
		Gate:      toGate(s.Gate),
	}

	if s.CheckOutAt != nil {
		out.CheckOutAt = ptr(s.CheckOutAt.In(loc).Format(domain.TimeLayout))
		out.Duration = &DurationResponse{
			Days:  s.BilledHours / 24,
			Hours: s.BilledHours % 24,
		}
	}

	if s.PriorSessionID != "" {
		out.PrevRecordID = ptr(s.PriorSessionID)
	}

	return out
}

func toRecords(list []domain.Session, loc *time.Location) []RecordResponse {
	out := make([]RecordResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toRecord(s, loc))
	}
	return out
}

func toArchivedRecords(list []domain.ArchivedSession, loc *time.Location) []ArchivedRecordResponse {
	out := make([]ArchivedRecordResponse, 0, len(list))
	for _, s := range list {
		out = append(out, ArchivedRecordResponse{
			RecordResponse: toRecord(s.Session, loc),
			LotID:          s.LotID,
			Currency:       s.Currency,
		})
	}
	return out
}

// parseTimeAt parses an optional client timestamp. Empty means now.
func parseTimeAt(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	t, err := time.ParseInLocation(domain.TimeLayout, s, loc)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func ptr[T any](v T) *T {
	return &v
}
