package cart

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/logging"

	"github.com/google/uuid"
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

func (r *postgresRepo) EnsureActive(ctx context.Context, customerID string) (string, error) {
	const maxAttempts = 2
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var id string
		err := r.pool.QueryRow(ctx, `
SELECT id::text FROM carts
WHERE customer_id = $1 AND state = 'active'
ORDER BY created_at DESC
LIMIT 1
`, customerID).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", err
		}

		err = r.pool.QueryRow(ctx, `
INSERT INTO carts (customer_id, state)
VALUES ($1, 'active')
RETURNING id::text
`, customerID).Scan(&id)
		if err == nil {
			r.logger.Infof("cart repo: created cart id=%s customer_id=%s", id, customerID)
			return id, nil
		}
		// A concurrent request created the active cart first; read it back.
		if db.IsUniqueViolation(err) {
			continue
		}
		return "", fmt.Errorf("create cart: %w", err)
	}
	return "", fmt.Errorf("ensure active cart: cart not found after conflict")
}

func (r *postgresRepo) Contents(ctx context.Context, cartID string) (domain.CartContents, error) {
	const q = `
SELECT l.id::text, l.product_id::text, l.quantity, l.size, l.color, l.unit_price::text,
       l.discounted_unit_price::text, p.name, l.saved, l.created_at
FROM cart_lines l
JOIN products p ON p.id = l.product_id
WHERE l.cart_id = $1
ORDER BY l.created_at ASC, l.id ASC
`
	rows, err := r.pool.Query(ctx, q, cartID)
	if err != nil {
		return domain.CartContents{}, err
	}
	defer rows.Close()

	out := domain.CartContents{}.Normalize()
	for rows.Next() {
		var (
			item       domain.CartLineItem
			unitPrice  string
			discounted *string
			saved      bool
		)
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity, &item.Size, &item.Color, &unitPrice, &discounted, &item.Name, &saved, &item.AddedAt); err != nil {
			return domain.CartContents{}, err
		}
		if item.UnitPrice, err = db.ParseDecimal(unitPrice); err != nil {
			return domain.CartContents{}, err
		}
		if item.DiscountedUnitPrice, err = db.ParseDecimalPtr(discounted); err != nil {
			return domain.CartContents{}, err
		}
		if saved {
			out.SavedItems = append(out.SavedItems, item)
		} else {
			out.Items = append(out.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.CartContents{}, err
	}
	return out, nil
}

func (r *postgresRepo) AddLine(ctx context.Context, cartID string, in LineInput, saved bool) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Merging through the unique identity key keeps two concurrent first
	// adds from racing past each other.
	if _, err := tx.Exec(ctx, `
INSERT INTO cart_lines (cart_id, product_id, size, color, quantity, unit_price, discounted_unit_price, saved)
VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8)
ON CONFLICT (cart_id, product_id, size, color, saved) DO UPDATE
SET quantity = cart_lines.quantity + EXCLUDED.quantity, updated_at = now()
`, cartID, in.ProductID, in.Size, in.Color, in.Quantity, in.UnitPrice.String(), db.DecimalArg(in.DiscountedUnitPrice), saved); err != nil {
		return err
	}

	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) UpdateLine(ctx context.Context, cartID, lineID string, quantity int, size, color string) error {
	if _, err := uuid.Parse(lineID); err != nil {
		return domain.ErrNotFound
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	current, err := lockLine(ctx, tx, cartID, lineID)
	if err != nil {
		return err
	}

	if quantity <= 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE id = $1`, lineID); err != nil {
			return err
		}
		if err := touchCart(ctx, tx, cartID); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}

	if size != current.size || color != current.color {
		// Changing variant onto an identity that already has a line folds the
		// quantity into that line instead of creating a duplicate.
		var targetID string
		var targetQty int
		err := tx.QueryRow(ctx, `
SELECT id::text, quantity
FROM cart_lines
WHERE cart_id = $1 AND product_id = $2 AND size = $3 AND color = $4 AND saved = $5 AND id <> $6
FOR UPDATE
`, cartID, current.productID, size, color, current.saved, lineID).Scan(&targetID, &targetQty)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if err == nil {
			if _, err := tx.Exec(ctx, `UPDATE cart_lines SET quantity = $1, updated_at = now() WHERE id = $2`, targetQty+quantity, targetID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE id = $1`, lineID); err != nil {
				return err
			}
			if err := touchCart(ctx, tx, cartID); err != nil {
				return err
			}
			return tx.Commit(ctx)
		}
	}

	if _, err := tx.Exec(ctx, `
UPDATE cart_lines
SET quantity = $1, size = $2, color = $3, updated_at = now()
WHERE id = $4
`, quantity, size, color, lineID); err != nil {
		return err
	}
	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) RemoveLine(ctx context.Context, cartID, lineID string) (bool, error) {
	if _, err := uuid.Parse(lineID); err != nil {
		return false, nil
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_lines WHERE id = $1 AND cart_id = $2`, lineID, cartID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *postgresRepo) Clear(ctx context.Context, cartID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1 AND saved = false`, cartID)
	if err != nil {
		return err
	}
	r.logger.Infof("cart repo: cleared cart id=%s lines=%d", cartID, cmd.RowsAffected())
	return nil
}

func (r *postgresRepo) SetSaved(ctx context.Context, cartID, lineID string, saved bool) error {
	if _, err := uuid.Parse(lineID); err != nil {
		return domain.ErrNotFound
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	current, err := lockLine(ctx, tx, cartID, lineID)
	if err != nil {
		return err
	}
	if current.saved == saved {
		return tx.Commit(ctx)
	}

	var targetID string
	var targetQty int
	err = tx.QueryRow(ctx, `
SELECT id::text, quantity
FROM cart_lines
WHERE cart_id = $1 AND product_id = $2 AND size = $3 AND color = $4 AND saved = $5
FOR UPDATE
`, cartID, current.productID, current.size, current.color, saved).Scan(&targetID, &targetQty)
	switch {
	case err == nil:
		if _, err := tx.Exec(ctx, `UPDATE cart_lines SET quantity = $1, updated_at = now() WHERE id = $2`, targetQty+current.quantity, targetID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE id = $1`, lineID); err != nil {
			return err
		}
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := tx.Exec(ctx, `UPDATE cart_lines SET saved = $1, updated_at = now() WHERE id = $2`, saved, lineID); err != nil {
			return err
		}
	default:
		return err
	}

	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type lockedLine struct {
	productID string
	size      string
	color     string
	quantity  int
	saved     bool
}

func lockLine(ctx context.Context, tx pgx.Tx, cartID, lineID string) (lockedLine, error) {
	var l lockedLine
	err := tx.QueryRow(ctx, `
SELECT product_id::text, size, color, quantity, saved
FROM cart_lines
WHERE id = $1 AND cart_id = $2
FOR UPDATE
`, lineID, cartID).Scan(&l.productID, &l.size, &l.color, &l.quantity, &l.saved)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return l, domain.ErrNotFound
		}
		return l, err
	}
	return l, nil
}

func touchCart(ctx context.Context, tx pgx.Tx, cartID string) error {
	_, err := tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID)
	return err
}
