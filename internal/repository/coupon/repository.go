package coupon

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

// ErrLimitReached is returned by Redeem when the coupon has no uses left.
var ErrLimitReached = errors.New("coupon usage limit reached")

type Repository interface {
	// GetByCode looks a coupon up case-insensitively.
	GetByCode(ctx context.Context, code string) (domain.Coupon, error)
	HasUsed(ctx context.Context, couponID, customerID string) (bool, error)
	// Redeem records a usage and bumps used_count atomically. Returns
	// ErrAlreadyExists when the customer already redeemed the coupon and
	// ErrLimitReached when usage_limit is exhausted.
	Redeem(ctx context.Context, couponID, customerID string) error
	Upsert(ctx context.Context, c domain.Coupon) (domain.Coupon, error)
}
