package db

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Numeric columns are selected as ::text and parsed here so decimal values
// never pass through float64.

func ParseDecimal(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse numeric %q: %w", raw, err)
	}
	return d, nil
}

func ParseDecimalPtr(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := ParseDecimal(*raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// DecimalArg converts an optional decimal into a query argument.
func DecimalArg(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
