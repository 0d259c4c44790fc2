package settings

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/logging"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var maxTaxRate = decimal.RequireFromString("0.5")

type repo interface {
	Get(ctx context.Context) (domain.Settings, error)
	Update(ctx context.Context, s domain.Settings) (domain.Settings, error)
}

// Service exposes the store-wide settings.
type Service struct {
	repo     repo
	fallback decimal.Decimal
	logger   *zap.SugaredLogger
}

// New returns a Service that reports fallbackRate until a rate is stored.
func New(r repo, fallbackRate decimal.Decimal, logger *zap.SugaredLogger) *Service {
	return &Service{repo: r, fallback: fallbackRate, logger: logging.OrNop(logger)}
}

// Get never fails: a missing or unreadable row yields the fallback rate.
func (s *Service) Get(ctx context.Context) domain.Settings {
	current, err := s.repo.Get(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warnf("settings service: read failed, using default tax rate: %v", err)
		}
		def := domain.DefaultSettings()
		def.TaxRate = s.fallback
		return *def
	}
	return current
}

type UpdateInput struct {
	TaxRate *decimal.Decimal `json:"taxRate"`
}

func (s *Service) Update(ctx context.Context, in UpdateInput) (domain.Settings, error) {
	if in.TaxRate == nil {
		return domain.Settings{}, fmt.Errorf("%w: taxRate required", domain.ErrInvalidInput)
	}
	if in.TaxRate.IsNegative() || in.TaxRate.GreaterThan(maxTaxRate) {
		return domain.Settings{}, fmt.Errorf("%w: tax rate must be between 0 and %s", domain.ErrInvalidInput, maxTaxRate)
	}
	return s.repo.Update(ctx, domain.Settings{TaxRate: *in.TaxRate})
}
