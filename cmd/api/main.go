package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/httpserver"
	"storefront/internal/localstore"
	"storefront/internal/logging"
	cartrepo "storefront/internal/repository/cart"
	couponrepo "storefront/internal/repository/coupon"
	customerrepo "storefront/internal/repository/customer"
	inventoryrepo "storefront/internal/repository/inventory"
	productrepo "storefront/internal/repository/product"
	settingsrepo "storefront/internal/repository/settings"
	tokenrepo "storefront/internal/repository/token"
	wishlistrepo "storefront/internal/repository/wishlist"
	cartsvc "storefront/internal/service/cart"
	couponsvc "storefront/internal/service/coupon"
	customersvc "storefront/internal/service/customer"
	inventorysvc "storefront/internal/service/inventory"
	productsvc "storefront/internal/service/product"
	settingssvc "storefront/internal/service/settings"
	wishlistsvc "storefront/internal/service/wishlist"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.New(cfg.LogLevel, "api")
	defer logger.Sync()

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = localstore.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatalf("connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	productRepo := productrepo.NewPostgres(dbpool, logger)
	stockRepo := inventoryrepo.NewPostgres(dbpool, logger)
	customerRepo := customerrepo.NewPostgres(dbpool, logger)
	tokenRepo := tokenrepo.NewPostgres(dbpool)
	cartRepo := cartrepo.NewPostgres(dbpool, logger)
	couponRepo := couponrepo.NewPostgres(dbpool, logger)
	settingsRepo := settingsrepo.NewPostgres(dbpool, logger)
	wishlistRepo := wishlistrepo.NewPostgres(dbpool, logger)

	customerSvc := customersvc.New(customerRepo, tokenRepo)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		CustomerSvc:  customerSvc,
		ProductSvc:   productsvc.New(productRepo, logger),
		InventorySvc: inventorysvc.New(productRepo, stockRepo),
		SettingsSvc:  settingssvc.New(settingsRepo, cfg.DefaultTaxRate, logger),
		CartSvc:      cartsvc.New(cartRepo, productRepo, logger),
		CouponSvc:    couponsvc.New(couponRepo, logger),
		WishlistSvc:  wishlistsvc.New(wishlistRepo, productRepo),
	}, httpserver.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		Redis:              redisClient,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	purgeCtx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()
	go purgeTokens(purgeCtx, customerSvc, logger)

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Infof("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Errorf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	} else {
		logger.Info("server stopped")
	}
}

// purgeTokens drops expired access and refresh tokens once an hour.
func purgeTokens(ctx context.Context, svc *customersvc.Service, logger *zap.SugaredLogger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpiredTokens(ctx)
			if err != nil {
				logger.Warnw("tokens: purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Infow("tokens: purged expired", "count", n)
			}
		}
	}
}
