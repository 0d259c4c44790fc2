package settings

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	// Get returns ErrNotFound when no settings row has been written yet.
	Get(ctx context.Context) (domain.Settings, error)
	Update(ctx context.Context, s domain.Settings) (domain.Settings, error)
}
