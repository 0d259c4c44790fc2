package coupon

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain"
	"storefront/internal/logging"
	couponrepo "storefront/internal/repository/coupon"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type repo interface {
	GetByCode(ctx context.Context, code string) (domain.Coupon, error)
	HasUsed(ctx context.Context, couponID, customerID string) (bool, error)
	Redeem(ctx context.Context, couponID, customerID string) error
}

// Service validates coupon codes against a cart's subtotal and shipping.
type Service struct {
	repo   repo
	logger *zap.SugaredLogger
	now    func() time.Time
}

func New(r repo, logger *zap.SugaredLogger) *Service {
	return &Service{repo: r, logger: logging.OrNop(logger), now: time.Now}
}

// EvaluateInput is the body of validate and apply requests.
type EvaluateInput struct {
	Code         string          `json:"code" validate:"required"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
}

// Validate is read-only: it reports what Apply would do without recording usage.
func (s *Service) Validate(ctx context.Context, customerID string, in EvaluateInput) (domain.CouponResult, error) {
	_, res, err := s.evaluate(ctx, customerID, in)
	return res, err
}

// Apply validates the code and records the customer's usage. A concurrent
// redemption by the same customer is reported as already used, and losing
// the race for the last use as limit reached.
func (s *Service) Apply(ctx context.Context, customerID string, in EvaluateInput) (domain.CouponResult, error) {
	c, res, err := s.evaluate(ctx, customerID, in)
	if err != nil || !res.Valid {
		return res, err
	}
	if err := s.repo.Redeem(ctx, c.ID, customerID); err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			return domain.CouponResult{Code: c.Code, AlreadyUsed: true, Message: domain.MsgCouponAlreadyUsed}, nil
		case errors.Is(err, couponrepo.ErrLimitReached):
			return domain.CouponResult{Code: c.Code, LimitReached: true, Message: domain.MsgCouponLimitReached}, nil
		}
		return domain.CouponResult{}, err
	}
	s.logger.Infof("coupon service: applied code=%s customer_id=%s discount=%s", c.Code, customerID, res.Discount)
	return res, nil
}

// Lookup returns a coupon's public rules so a client can evaluate it without
// an account.
func (s *Service) Lookup(ctx context.Context, code string) (domain.Coupon, error) {
	if domain.NormalizeCouponCode(code) == "" {
		return domain.Coupon{}, domain.ErrNotFound
	}
	c, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return domain.Coupon{}, err
	}
	c.ID = ""
	return c, nil
}

func (s *Service) evaluate(ctx context.Context, customerID string, in EvaluateInput) (domain.Coupon, domain.CouponResult, error) {
	in.Code = domain.NormalizeCouponCode(in.Code)
	if err := domain.Validate(in); err != nil {
		return domain.Coupon{}, domain.CouponResult{}, err
	}
	if in.Subtotal.IsNegative() || in.ShippingCost.IsNegative() {
		return domain.Coupon{}, domain.CouponResult{}, domain.ErrInvalidInput
	}

	c, err := s.repo.GetByCode(ctx, in.Code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Coupon{}, domain.CouponResult{Code: in.Code, Message: domain.MsgCouponInvalid}, nil
		}
		return domain.Coupon{}, domain.CouponResult{}, err
	}
	used, err := s.repo.HasUsed(ctx, c.ID, customerID)
	if err != nil {
		return domain.Coupon{}, domain.CouponResult{}, err
	}
	res := domain.EvaluateCoupon(c, in.Subtotal, in.ShippingCost, used, s.now())
	if res.Coupon != nil {
		res.Coupon.ID = ""
	}
	return c, res, nil
}
