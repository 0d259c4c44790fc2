package inventory

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	// Get returns the stock row for the variant, falling back to the
	// product-level row. ErrNotFound means the product is not tracked.
	Get(ctx context.Context, productID, size, color string) (*domain.StockLevel, error)
	Set(ctx context.Context, level domain.StockLevel) error
}
