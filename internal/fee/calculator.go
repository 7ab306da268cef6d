package fee

import (
	"fmt"
	"time"

	"github.com/kirinyoku/parkgo/internal/domain"
)

const hoursPerDay = 24

// Charge is the outcome of billing one stay.
type Charge struct {
	Amount int64
	Hours  int
}

// Calculator bills stays against a fixed, validated set of fee rules.
type Calculator struct {
	rules domain.FeeRules
}

func New(rules domain.FeeRules) (*Calculator, error) {
	const op = "fee.New"

	if err := Validate(rules); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Calculator{rules: rules}, nil
}

func (c *Calculator) Rules() domain.FeeRules {
	return c.rules
}

// Compute bills the stay between checkIn and checkOut in a slot of the given size.
//
// Parameters:
//   - checkIn, checkOut: boundaries of the stay.
//   - size: size class of the occupied slot.
//
// Returns:
//   - Charge: the amount and the number of billed hours.
//   - error: fee.ErrInvalidTimeRange if checkOut precedes checkIn.
//   - error: fee.ErrUnknownSize if size is not a known size class.
func (c *Calculator) Compute(checkIn, checkOut time.Time, size domain.Size) (Charge, error) {
	const op = "fee.Calculator.Compute"

	if checkOut.Before(checkIn) {
		return Charge{}, fmt.Errorf("%s:%w", op, ErrInvalidTimeRange)
	}

	if !size.Valid() {
		return Charge{}, fmt.Errorf("%s:%w", op, ErrUnknownSize)
	}

	hours := BillableHours(checkOut.Sub(checkIn))

	return Charge{Amount: amountFor(hours, size, c.rules), Hours: hours}, nil
}

// ComputeFee is the stateless form of Calculator.Compute. The rules are
// validated on every call.
func ComputeFee(checkIn, checkOut time.Time, size domain.Size, rules domain.FeeRules) (int64, error) {
	c, err := New(rules)
	if err != nil {
		return 0, err
	}

	charge, err := c.Compute(checkIn, checkOut, size)
	if err != nil {
		return 0, err
	}

	return charge.Amount, nil
}

// BillableHours rounds a duration up to whole hours. Negative durations bill zero.
func BillableHours(d time.Duration) int {
	if d <= 0 {
		return 0
	}

	hours := d / time.Hour
	if d%time.Hour != 0 {
		hours++
	}

	return int(hours)
}

// DayPrice is what one complete 24-hour block beyond the flat window costs:
// the daily rate or 24 normal hours, whichever is lower.
func DayPrice(size domain.Size, rules domain.FeeRules) int64 {
	return min(rules.FlatRate.Daily, hoursPerDay*rules.NormalRate.For(size))
}

func amountFor(hours int, size domain.Size, rules domain.FeeRules) int64 {
	flat := rules.FlatRate
	if hours <= flat.MaxHours {
		return flat.Hourly * int64(hours)
	}

	amount := flat.Hourly * int64(flat.MaxHours)

	rest := hours - flat.MaxHours
	days := rest / hoursPerDay
	tail := rest % hoursPerDay

	dayPrice := DayPrice(size, rules)
	amount += int64(days) * dayPrice

	// the partial day never costs more than a full one
	amount += min(int64(tail)*rules.NormalRate.For(size), dayPrice)

	return amount
}

// Validate checks that rules can be used for billing.
func Validate(rules domain.FeeRules) error {
	switch {
	case rules.Currency == "":
		return fmt.Errorf("%w: currency is required", ErrInvalidRules)
	case rules.FlatRate.Hourly < 0, rules.FlatRate.Daily < 0:
		return fmt.Errorf("%w: flat rates must not be negative", ErrInvalidRules)
	case rules.FlatRate.MaxHours < 0:
		return fmt.Errorf("%w: max_hours must not be negative", ErrInvalidRules)
	}

	for _, size := range domain.Sizes {
		if rules.NormalRate.For(size) < 0 {
			return fmt.Errorf("%w: normal rate for %s must not be negative", ErrInvalidRules, size)
		}
	}

	return nil
}
