package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CartLineItem is one distinct (product, size, color) entry in a cart. The same
// shape is used by the server cart, the local store and the wire.
type CartLineItem struct {
	ID                  string           `json:"id"`
	ProductID           string           `json:"productId"`
	Quantity            int              `json:"quantity"`
	Size                string           `json:"size,omitempty"`
	Color               string           `json:"color,omitempty"`
	UnitPrice           decimal.Decimal  `json:"unitPrice"`
	DiscountedUnitPrice *decimal.Decimal `json:"discountedUnitPrice,omitempty"`
	Name                string           `json:"name,omitempty"`
	IsLocalOnly         bool             `json:"isLocalOnly,omitempty"`
	AddedAt             time.Time        `json:"addedAt"`
}

// LineKey identifies a line for merge and dedup purposes.
type LineKey struct {
	ProductID string
	Size      string
	Color     string
}

func KeyOf(productID, size, color string) LineKey {
	return LineKey{
		ProductID: strings.TrimSpace(productID),
		Size:      strings.TrimSpace(size),
		Color:     strings.TrimSpace(color),
	}
}

func (i CartLineItem) Key() LineKey {
	return KeyOf(i.ProductID, i.Size, i.Color)
}

// EffectiveUnitPrice prefers the discounted snapshot when present.
func (i CartLineItem) EffectiveUnitPrice() decimal.Decimal {
	if i.DiscountedUnitPrice != nil {
		return *i.DiscountedUnitPrice
	}
	return i.UnitPrice
}

func (i CartLineItem) LineTotal() decimal.Decimal {
	return i.EffectiveUnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartContents is the canonical item list returned by the cart service.
type CartContents struct {
	Items      []CartLineItem `json:"items"`
	SavedItems []CartLineItem `json:"savedItems"`
}

// Normalize replaces nil slices so the wire form always carries arrays.
func (c CartContents) Normalize() CartContents {
	if c.Items == nil {
		c.Items = []CartLineItem{}
	}
	if c.SavedItems == nil {
		c.SavedItems = []CartLineItem{}
	}
	return c
}

type StockStatus string

const (
	InStock    StockStatus = "in_stock"
	LowStock   StockStatus = "low_stock"
	OutOfStock StockStatus = "out_of_stock"
)

// ClassifyStock maps an available quantity to a status. Quantities at or
// below lowThreshold are low stock.
func ClassifyStock(available, lowThreshold int) StockStatus {
	switch {
	case available <= 0:
		return OutOfStock
	case available <= lowThreshold:
		return LowStock
	default:
		return InStock
	}
}

// WishlistItem is a product parked in a customer's wishlist.
type WishlistItem struct {
	ProductID string    `json:"productId"`
	AddedAt   time.Time `json:"addedAt"`
}
