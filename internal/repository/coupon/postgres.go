package coupon

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/db"
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

const couponColumns = `id::text, code, type, value::text, max_discount::text, min_purchase::text,
       usage_limit, used_count, active, expires_at, created_at`

func (r *postgresRepo) GetByCode(ctx context.Context, code string) (domain.Coupon, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE upper(code) = upper($1)`, domain.NormalizeCouponCode(code))
	c, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Coupon{}, domain.ErrNotFound
		}
		return domain.Coupon{}, err
	}
	return c, nil
}

func (r *postgresRepo) HasUsed(ctx context.Context, couponID, customerID string) (bool, error) {
	var used bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM coupon_usages WHERE coupon_id = $1 AND customer_id = $2)
`, couponID, customerID).Scan(&used)
	return used, err
}

func (r *postgresRepo) Redeem(ctx context.Context, couponID, customerID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// The guarded update locks the coupon row, so concurrent redemptions
	// see each other's increments.
	cmd, err := tx.Exec(ctx, `
UPDATE coupons SET used_count = used_count + 1
WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`, couponID)
	if err != nil {
		return fmt.Errorf("bump coupon usage: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrLimitReached
	}
	if _, err := tx.Exec(ctx, `INSERT INTO coupon_usages (coupon_id, customer_id) VALUES ($1, $2)`, couponID, customerID); err != nil {
		if db.IsUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert coupon usage: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	r.logger.Infof("coupon repo: redeemed coupon_id=%s customer_id=%s", couponID, customerID)
	return nil
}

func (r *postgresRepo) Upsert(ctx context.Context, c domain.Coupon) (domain.Coupon, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO coupons (code, type, value, max_discount, min_purchase, usage_limit, active, expires_at)
VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6, $7, $8)
ON CONFLICT ((upper(code))) DO UPDATE SET
    type = EXCLUDED.type,
    value = EXCLUDED.value,
    max_discount = EXCLUDED.max_discount,
    min_purchase = EXCLUDED.min_purchase,
    usage_limit = EXCLUDED.usage_limit,
    active = EXCLUDED.active,
    expires_at = EXCLUDED.expires_at
RETURNING `+couponColumns,
		domain.NormalizeCouponCode(c.Code), string(c.Type), c.Value.String(), db.DecimalArg(c.MaxDiscount),
		c.MinPurchase.String(), c.UsageLimit, c.Active, c.ExpiresAt)
	return scanCoupon(row)
}

func scanCoupon(row pgx.Row) (domain.Coupon, error) {
	var (
		c           domain.Coupon
		typ         string
		value       string
		maxDiscount *string
		minPurchase string
		err         error
	)
	if err = row.Scan(&c.ID, &c.Code, &typ, &value, &maxDiscount, &minPurchase, &c.UsageLimit, &c.UsedCount, &c.Active, &c.ExpiresAt, &c.CreatedAt); err != nil {
		return domain.Coupon{}, err
	}
	c.Type = domain.CouponType(typ)
	if c.Value, err = db.ParseDecimal(value); err != nil {
		return domain.Coupon{}, err
	}
	if c.MaxDiscount, err = db.ParseDecimalPtr(maxDiscount); err != nil {
		return domain.Coupon{}, err
	}
	if c.MinPurchase, err = db.ParseDecimal(minPurchase); err != nil {
		return domain.Coupon{}, err
	}
	return c, nil
}
