// Package dbtest provides a migrated Postgres pool for integration tests.
// Tests are skipped when TEST_DB_DSN is not set.
package dbtest

import (
	"context"
	"os"
	"testing"

	"storefront/internal/migrate"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Pool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set; skipping postgres integration test")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	Reset(ctx, t, pool)
	return pool
}

func Reset(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE wishlist_items, coupon_usages, coupons, settings, cart_lines, carts, tokens, customers, inventory, products RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

// InsertProduct creates a product row and returns its id.
func InsertProduct(ctx context.Context, t *testing.T, pool *pgxpool.Pool, key, price string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `
INSERT INTO products (key, sku, name, price, currency)
VALUES ($1, upper($1), initcap($1), $2::numeric, 'USD')
RETURNING id::text`, key, price).Scan(&id)
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}
	return id
}

// InsertCustomer creates a customer row and returns its id.
func InsertCustomer(ctx context.Context, t *testing.T, pool *pgxpool.Pool, email string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `INSERT INTO customers (email, password_hash) VALUES ($1, 'x') RETURNING id::text`, email).Scan(&id)
	if err != nil {
		t.Fatalf("insert customer: %v", err)
	}
	return id
}
