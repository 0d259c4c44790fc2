package cartsync

import (
	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

// Pricing holds the store rules used to derive totals.
type Pricing struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingCost      decimal.Decimal
	LowStockThreshold     int
}

func DefaultPricing() Pricing {
	return Pricing{
		FreeShippingThreshold: decimal.NewFromInt(100),
		FlatShippingCost:      decimal.RequireFromString("5.99"),
		LowStockThreshold:     5,
	}
}

type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	Tax          decimal.Decimal `json:"tax"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
}

// Shipping is free strictly above the threshold and zero for an empty cart.
func (p Pricing) Shipping(items []domain.CartLineItem, subtotal decimal.Decimal) decimal.Decimal {
	if len(items) == 0 || subtotal.GreaterThan(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.FlatShippingCost
}

// ComputeTotals derives every money figure from the item list. Tax is rounded
// to cents and the total never goes below zero. A coupon whose minimum
// purchase is no longer met contributes nothing.
func ComputeTotals(items []domain.CartLineItem, coupon *domain.Coupon, taxRate decimal.Decimal, p Pricing) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	shipping := p.Shipping(items, subtotal)
	tax := subtotal.Mul(taxRate).Round(2)

	discount := decimal.Zero
	if coupon != nil && len(items) > 0 && !subtotal.LessThan(coupon.MinPurchase) {
		discount = coupon.DiscountFor(subtotal, shipping)
	}

	total := subtotal.Add(shipping).Add(tax).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return Totals{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Tax:          tax,
		Discount:     discount,
		Total:        total,
	}
}
