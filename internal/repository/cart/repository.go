package cart

import (
	"context"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

// LineInput describes a line to merge into a cart list.
type LineInput struct {
	ProductID           string
	Size                string
	Color               string
	Quantity            int
	UnitPrice           decimal.Decimal
	DiscountedUnitPrice *decimal.Decimal
}

type Repository interface {
	// EnsureActive returns the customer's active cart id, creating it if needed.
	EnsureActive(ctx context.Context, customerID string) (string, error)
	Contents(ctx context.Context, cartID string) (domain.CartContents, error)
	// AddLine merges by (product, size, color) within the active or saved list.
	AddLine(ctx context.Context, cartID string, in LineInput, saved bool) error
	// UpdateLine sets quantity and variant; quantity < 1 deletes the line.
	// Returns ErrNotFound when the line does not exist.
	UpdateLine(ctx context.Context, cartID, lineID string, quantity int, size, color string) error
	RemoveLine(ctx context.Context, cartID, lineID string) (bool, error)
	// Clear deletes every active (non-saved) line.
	Clear(ctx context.Context, cartID string) error
	// SetSaved moves a line between the active and saved lists.
	SetSaved(ctx context.Context, cartID, lineID string, saved bool) error
}
