package wishlist

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	List(ctx context.Context, customerID string) ([]domain.WishlistItem, error)
	// Add is idempotent per (customer, product).
	Add(ctx context.Context, customerID, productID string) error
	Remove(ctx context.Context, customerID, productID string) error
}
