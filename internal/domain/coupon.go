package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CouponType string

const (
	CouponPercentage CouponType = "percentage"
	CouponFixed      CouponType = "fixed"
	CouponShipping   CouponType = "shipping"
)

func (t CouponType) Valid() bool {
	switch t {
	case CouponPercentage, CouponFixed, CouponShipping:
		return true
	}
	return false
}

type Coupon struct {
	ID          string           `json:"id,omitempty"`
	Code        string           `json:"code"`
	Type        CouponType       `json:"type"`
	Value       decimal.Decimal  `json:"value"`
	MaxDiscount *decimal.Decimal `json:"maxDiscount,omitempty"`
	MinPurchase decimal.Decimal  `json:"minPurchase"`
	UsageLimit  *int             `json:"usageLimit,omitempty"`
	UsedCount   int              `json:"usedCount"`
	Active      bool             `json:"active"`
	ExpiresAt   *time.Time       `json:"expiresAt,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// NormalizeCouponCode trims and upper-cases a user-supplied code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CouponResult is the outcome of validating a code against a cart.
type CouponResult struct {
	Valid             bool             `json:"valid"`
	Code              string           `json:"code,omitempty"`
	Discount          *decimal.Decimal `json:"discount,omitempty"`
	Message           string           `json:"message"`
	AlreadyUsed       bool             `json:"alreadyUsed,omitempty"`
	LimitReached      bool             `json:"limitReached,omitempty"`
	MinPurchaseNotMet bool             `json:"minPurchaseNotMet,omitempty"`
	Coupon            *Coupon          `json:"coupon,omitempty"`
}

const (
	MsgCouponApplied      = "Coupon applied successfully"
	MsgCouponInvalid      = "Invalid coupon code"
	MsgCouponExpired      = "This coupon has expired"
	MsgCouponAlreadyUsed  = "You have already used this coupon"
	MsgCouponLimitReached = "This coupon has reached its usage limit"
)

func minPurchaseMessage(min decimal.Decimal) string {
	return "Minimum purchase of $" + min.StringFixed(2) + " required for this coupon"
}

// DiscountFor computes the discount the coupon grants on the given amounts.
// The result is rounded to cents and never exceeds subtotal + shipping.
func (c Coupon) DiscountFor(subtotal, shipping decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.Type {
	case CouponPercentage:
		d = subtotal.Mul(c.Value).Div(decimal.NewFromInt(100))
		if c.MaxDiscount != nil && d.GreaterThan(*c.MaxDiscount) {
			d = *c.MaxDiscount
		}
	case CouponFixed:
		d = c.Value
	case CouponShipping:
		d = shipping
	}
	if d.IsNegative() {
		d = decimal.Zero
	}
	ceiling := subtotal.Add(shipping)
	if d.GreaterThan(ceiling) {
		d = ceiling
	}
	return d.Round(2)
}

// EvaluateCoupon checks the coupon's declared rules against a cart. The
// alreadyUsed flag is supplied by the caller since only the server tracks
// per-customer usage.
func EvaluateCoupon(c Coupon, subtotal, shipping decimal.Decimal, alreadyUsed bool, now time.Time) CouponResult {
	res := CouponResult{Code: c.Code}
	switch {
	case !c.Active:
		res.Message = MsgCouponInvalid
		return res
	case c.ExpiresAt != nil && now.After(*c.ExpiresAt):
		res.Message = MsgCouponExpired
		return res
	case alreadyUsed:
		res.AlreadyUsed = true
		res.Message = MsgCouponAlreadyUsed
		return res
	case c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit:
		res.LimitReached = true
		res.Message = MsgCouponLimitReached
		return res
	case subtotal.LessThan(c.MinPurchase):
		res.MinPurchaseNotMet = true
		res.Message = minPurchaseMessage(c.MinPurchase)
		return res
	}
	discount := c.DiscountFor(subtotal, shipping)
	coupon := c
	res.Valid = true
	res.Discount = &discount
	res.Message = MsgCouponApplied
	res.Coupon = &coupon
	return res
}
