package cartsync

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain"
	"storefront/internal/logging"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CouponAPI is the coupon surface of the storefront API.
type CouponAPI interface {
	ApplyCoupon(ctx context.Context, code string, subtotal, shipping decimal.Decimal) (domain.CouponResult, error)
	PublicCoupon(ctx context.Context, code string) (domain.Coupon, error)
}

// legacyCoupons are honored only when the resolver is built with legacy
// codes enabled and the server knows nothing better.
var legacyCoupons = map[string]domain.Coupon{
	"DISCOUNT10": {Code: "DISCOUNT10", Type: domain.CouponPercentage, Value: decimal.NewFromInt(10), Active: true},
	"DISCOUNT20": {Code: "DISCOUNT20", Type: domain.CouponPercentage, Value: decimal.NewFromInt(20), Active: true},
	"FREESHIP":   {Code: "FREESHIP", Type: domain.CouponShipping, Active: true},
}

// CouponResolver validates a code, preferring the server's verdict and
// falling back to evaluating public coupon rules locally.
type CouponResolver struct {
	api    CouponAPI
	legacy bool
	now    func() time.Time
	logger *zap.SugaredLogger
}

func NewCouponResolver(api CouponAPI, legacy bool, logger *zap.SugaredLogger) *CouponResolver {
	return &CouponResolver{api: api, legacy: legacy, now: time.Now, logger: logging.OrNop(logger)}
}

// Apply returns the verdict for code. An invalid verdict is a result, not an
// error; the error is reserved for input problems and unreachable servers.
// On a valid result, Coupon carries the rules used to recompute the discount.
func (r *CouponResolver) Apply(ctx context.Context, code string, subtotal, shipping decimal.Decimal, authenticated bool) (domain.CouponResult, error) {
	code = domain.NormalizeCouponCode(code)
	if code == "" {
		return domain.CouponResult{}, newError(KindInvalidInput, "Please enter a coupon code", nil)
	}

	if authenticated && r.api != nil {
		res, err := r.api.ApplyCoupon(ctx, code, subtotal, shipping)
		if err == nil {
			if res.Valid {
				return withRules(res, code), nil
			}
			if isUnknownCode(res) {
				return r.legacyOr(code, subtotal, shipping, res), nil
			}
			return res, nil
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			return domain.CouponResult{}, classify(err)
		}
		r.logger.Warnw("coupons: server apply failed, falling back to public lookup", "code", code, "error", err)
	}

	var lookupErr error
	if r.api != nil {
		c, err := r.api.PublicCoupon(ctx, code)
		if err == nil {
			return domain.EvaluateCoupon(c, subtotal, shipping, false, r.now()), nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			return r.legacyOr(code, subtotal, shipping, domain.CouponResult{Code: code, Message: domain.MsgCouponInvalid}), nil
		}
		lookupErr = err
		r.logger.Warnw("coupons: public lookup failed", "code", code, "error", err)
	}

	if _, ok := r.legacyCoupon(code); ok {
		return r.legacyOr(code, subtotal, shipping, domain.CouponResult{}), nil
	}
	if lookupErr == nil {
		return domain.CouponResult{Code: code, Message: domain.MsgCouponInvalid}, nil
	}
	return domain.CouponResult{}, classify(lookupErr)
}

func (r *CouponResolver) legacyCoupon(code string) (domain.Coupon, bool) {
	if !r.legacy {
		return domain.Coupon{}, false
	}
	c, ok := legacyCoupons[code]
	return c, ok
}

func (r *CouponResolver) legacyOr(code string, subtotal, shipping decimal.Decimal, fallback domain.CouponResult) domain.CouponResult {
	c, ok := r.legacyCoupon(code)
	if !ok {
		return fallback
	}
	r.logger.Infow("coupons: applying legacy code", "code", code)
	return domain.EvaluateCoupon(c, subtotal, shipping, false, r.now())
}

// isUnknownCode reports a plain "invalid code" verdict with no specific
// reason attached.
func isUnknownCode(res domain.CouponResult) bool {
	return !res.Valid && !res.AlreadyUsed && !res.LimitReached && !res.MinPurchaseNotMet &&
		res.Message == domain.MsgCouponInvalid
}

// withRules makes sure a valid result carries coupon rules. A server that
// only returns an amount is treated as a fixed discount.
func withRules(res domain.CouponResult, code string) domain.CouponResult {
	if res.Code == "" {
		res.Code = code
	}
	if res.Coupon == nil {
		amount := decimal.Zero
		if res.Discount != nil {
			amount = *res.Discount
		}
		res.Coupon = &domain.Coupon{Code: res.Code, Type: domain.CouponFixed, Value: amount, Active: true}
	}
	return res
}
