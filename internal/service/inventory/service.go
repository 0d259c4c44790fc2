package inventory

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain"
)

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type stockRepo interface {
	Get(ctx context.Context, productID, size, color string) (*domain.StockLevel, error)
}

// Service answers availability questions for a product variant.
type Service struct {
	products productRepo
	stock    stockRepo
}

func New(products productRepo, stock stockRepo) *Service {
	return &Service{products: products, stock: stock}
}

// CheckInput is the query accepted by Check.
type CheckInput struct {
	ProductID string `validate:"required"`
	Size      string
	Color     string
	Quantity  int `validate:"gte=1"`
}

// Check reports whether Quantity units are available. Untracked products are
// always available and carry no AvailableQuantity.
func (s *Service) Check(ctx context.Context, in CheckInput) (domain.Availability, error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	if err := domain.Validate(in); err != nil {
		return domain.Availability{}, err
	}
	if _, err := s.products.GetByID(ctx, in.ProductID); err != nil {
		return domain.Availability{}, err
	}

	level, err := s.stock.Get(ctx, in.ProductID, strings.TrimSpace(in.Size), strings.TrimSpace(in.Color))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Availability{Available: true}, nil
		}
		return domain.Availability{}, err
	}
	qty := level.Quantity
	if qty < 0 {
		qty = 0
	}
	return domain.Availability{
		Available:         qty >= in.Quantity,
		AvailableQuantity: &qty,
	}, nil
}
