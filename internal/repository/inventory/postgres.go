package inventory

import (
	"context"
	"errors"

	"storefront/internal/domain"
	"storefront/internal/logging"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.SugaredLogger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.SugaredLogger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger)}
}

func (r *postgresRepo) Get(ctx context.Context, productID, size, color string) (*domain.StockLevel, error) {
	// Exact variant first, then the product-level ('', '') row.
	const q = `
SELECT product_id::text, size, color, quantity, updated_at
FROM inventory
WHERE product_id = $1
  AND ((size = $2 AND color = $3) OR (size = '' AND color = ''))
ORDER BY (size = $2 AND color = $3) DESC
LIMIT 1
`
	var lvl domain.StockLevel
	err := r.pool.QueryRow(ctx, q, productID, size, color).Scan(&lvl.ProductID, &lvl.Size, &lvl.Color, &lvl.Quantity, &lvl.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Errorf("inventory repo: get product_id=%s size=%s color=%s error=%v", productID, size, color, err)
		return nil, err
	}
	return &lvl, nil
}

func (r *postgresRepo) Set(ctx context.Context, level domain.StockLevel) error {
	const q = `
INSERT INTO inventory (product_id, size, color, quantity, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (product_id, size, color) DO UPDATE
SET quantity = EXCLUDED.quantity,
    updated_at = now()
`
	if _, err := r.pool.Exec(ctx, q, level.ProductID, level.Size, level.Color, level.Quantity); err != nil {
		r.logger.Errorf("inventory repo: set product_id=%s error=%v", level.ProductID, err)
		return err
	}
	return nil
}
