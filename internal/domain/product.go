package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID              string                 `json:"id"`
	Key             string                 `json:"key"`
	SKU             string                 `json:"sku"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description,omitempty"`
	Price           decimal.Decimal        `json:"price"`
	DiscountedPrice *decimal.Decimal       `json:"discountedPrice,omitempty"`
	Currency        string                 `json:"currency"`
	Attributes      map[string]interface{} `json:"attributes,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
}

// StockLevel is the tracked quantity of one product variant. Empty Size and
// Color describe the product-level row.
type StockLevel struct {
	ProductID string    `json:"productId"`
	Size      string    `json:"size,omitempty"`
	Color     string    `json:"color,omitempty"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Availability answers an inventory check. AvailableQuantity is nil when the
// variant is not tracked.
type Availability struct {
	Available         bool `json:"available"`
	AvailableQuantity *int `json:"availableQuantity,omitempty"`
}
