package main

import (
	"context"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logging"
	couponrepo "storefront/internal/repository/coupon"
	inventoryrepo "storefront/internal/repository/inventory"
	productrepo "storefront/internal/repository/product"
	settingsrepo "storefront/internal/repository/settings"
	"storefront/internal/seed"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.New(cfg.LogLevel, "seed")
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	deps := seed.Deps{
		Products: productrepo.NewPostgres(pool, logger),
		Stock:    inventoryrepo.NewPostgres(pool, logger),
		Coupons:  couponrepo.NewPostgres(pool, logger),
		Settings: settingsrepo.NewPostgres(pool, logger),
	}
	if err := seed.Apply(ctx, deps, logger); err != nil {
		logger.Fatalf("seed apply: %v", err)
	}

	logger.Info("seed applied")
}
