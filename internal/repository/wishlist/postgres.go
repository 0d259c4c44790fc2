package wishlist

import (
	"context"

	"storefront/internal/domain"
	"storefront/internal/logging"

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

func (r *postgresRepo) List(ctx context.Context, customerID string) ([]domain.WishlistItem, error) {
	rows, err := r.pool.Query(ctx, `
SELECT product_id::text, created_at
FROM wishlist_items
WHERE customer_id = $1
ORDER BY created_at ASC
`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.WishlistItem{}
	for rows.Next() {
		var it domain.WishlistItem
		if err := rows.Scan(&it.ProductID, &it.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *postgresRepo) Add(ctx context.Context, customerID, productID string) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO wishlist_items (customer_id, product_id)
VALUES ($1, $2)
ON CONFLICT (customer_id, product_id) DO NOTHING
`, customerID, productID)
	return err
}

func (r *postgresRepo) Remove(ctx context.Context, customerID, productID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM wishlist_items WHERE customer_id = $1 AND product_id = $2`, customerID, productID)
	return err
}
