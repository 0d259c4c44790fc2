package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTaxRate applies whenever the settings row is missing or unreadable.
var DefaultTaxRate = decimal.RequireFromString("0.075")

type Settings struct {
	TaxRate   decimal.Decimal `json:"taxRate"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func DefaultSettings() *Settings {
	return &Settings{TaxRate: DefaultTaxRate, UpdatedAt: time.Now().UTC()}
}
