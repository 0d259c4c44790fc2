package settings

import (
	"context"
	"errors"

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

func (r *postgresRepo) Get(ctx context.Context) (domain.Settings, error) {
	return scanSettings(r.pool.QueryRow(ctx, `SELECT tax_rate::text, updated_at FROM settings WHERE id = 1`))
}

func (r *postgresRepo) Update(ctx context.Context, s domain.Settings) (domain.Settings, error) {
	out, err := scanSettings(r.pool.QueryRow(ctx, `
INSERT INTO settings (id, tax_rate, updated_at)
VALUES (1, $1::numeric, now())
ON CONFLICT (id) DO UPDATE SET tax_rate = EXCLUDED.tax_rate, updated_at = now()
RETURNING tax_rate::text, updated_at
`, s.TaxRate.String()))
	if err != nil {
		return domain.Settings{}, err
	}
	r.logger.Infof("settings repo: tax rate set to %s", out.TaxRate)
	return out, nil
}

func scanSettings(row pgx.Row) (domain.Settings, error) {
	var (
		s    domain.Settings
		rate string
	)
	if err := row.Scan(&rate, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Settings{}, domain.ErrNotFound
		}
		return domain.Settings{}, err
	}
	var err error
	if s.TaxRate, err = db.ParseDecimal(rate); err != nil {
		return domain.Settings{}, err
	}
	return s, nil
}
