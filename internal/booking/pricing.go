package booking

import (
	"github.com/shopspring/decimal"
)

// PriceScale is the number of fraction digits money is stored with
const PriceScale = 2

// TotalPrice multiplies the per-participant unit price by the party size.
// The product is rounded half away from zero to PriceScale digits, which
// is what the NUMERIC(10,2) column would do on insert anyway.
func TotalPrice(unit decimal.Decimal, participants int) (decimal.Decimal, error) {
	if unit.IsNegative() {
		return decimal.Zero, Validationf("unit price must not be negative, got %s", unit.String())
	}
	if err := validateParticipants(participants); err != nil {
		return decimal.Zero, err
	}
	return unit.Mul(decimal.NewFromInt(int64(participants))).Round(PriceScale), nil
}
