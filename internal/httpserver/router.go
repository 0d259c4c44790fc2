package httpserver

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
	couponsvc "storefront/internal/service/coupon"
	customersvc "storefront/internal/service/customer"
	inventorysvc "storefront/internal/service/inventory"
	settingssvc "storefront/internal/service/settings"
	wishlistsvc "storefront/internal/service/wishlist"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type customerService interface {
	Signup(ctx context.Context, in customersvc.SignupInput) (*domain.Customer, error)
	Login(ctx context.Context, email, password string) (*domain.Customer, string, string, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.Customer, string, string, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	LookupByToken(ctx context.Context, token string) (*domain.Customer, error)
	AccessTTLSeconds() int
}

type productService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type inventoryService interface {
	Check(ctx context.Context, in inventorysvc.CheckInput) (domain.Availability, error)
}

type settingsService interface {
	Get(ctx context.Context) domain.Settings
	Update(ctx context.Context, in settingssvc.UpdateInput) (domain.Settings, error)
}

type cartService interface {
	Get(ctx context.Context, customerID string) (domain.CartContents, error)
	AddItem(ctx context.Context, customerID string, in cartsvc.AddItemInput) (domain.CartContents, error)
	AddSaved(ctx context.Context, customerID string, in cartsvc.AddItemInput) (domain.CartContents, error)
	UpdateItem(ctx context.Context, customerID, lineID string, in cartsvc.UpdateItemInput) (domain.CartContents, error)
	RemoveItem(ctx context.Context, customerID, lineID string) (domain.CartContents, error)
	Clear(ctx context.Context, customerID string) (domain.CartContents, error)
	SaveForLater(ctx context.Context, customerID, lineID string) (domain.CartContents, error)
	MoveToCart(ctx context.Context, customerID, savedID string) (domain.CartContents, error)
	RemoveSaved(ctx context.Context, customerID, savedID string) (domain.CartContents, error)
}

type couponService interface {
	Validate(ctx context.Context, customerID string, in couponsvc.EvaluateInput) (domain.CouponResult, error)
	Apply(ctx context.Context, customerID string, in couponsvc.EvaluateInput) (domain.CouponResult, error)
	Lookup(ctx context.Context, code string) (domain.Coupon, error)
}

type wishlistService interface {
	List(ctx context.Context, customerID string) ([]domain.WishlistItem, error)
	Add(ctx context.Context, customerID string, in wishlistsvc.AddInput) ([]domain.WishlistItem, error)
	Remove(ctx context.Context, customerID, productID string) ([]domain.WishlistItem, error)
}

// Deps carries the services the router dispatches to.
type Deps struct {
	CustomerSvc  customerService
	ProductSvc   productService
	InventorySvc inventoryService
	SettingsSvc  settingsService
	CartSvc      cartService
	CouponSvc    couponService
	WishlistSvc  wishlistService
}

func (d Deps) validate() error {
	switch {
	case d.CustomerSvc == nil:
		return errors.New("customer service required")
	case d.ProductSvc == nil:
		return errors.New("product service required")
	case d.InventorySvc == nil:
		return errors.New("inventory service required")
	case d.SettingsSvc == nil:
		return errors.New("settings service required")
	case d.CartSvc == nil:
		return errors.New("cart service required")
	case d.CouponSvc == nil:
		return errors.New("coupon service required")
	case d.WishlistSvc == nil:
		return errors.New("wishlist service required")
	}
	return nil
}

// Options tunes the middleware stack.
type Options struct {
	CORSAllowedOrigins []string
	// RateLimitPerSecond caps requests per client IP; 0 disables limiting.
	RateLimitPerSecond int
	// Redis backs the rate limiter when set; otherwise limits are per process.
	Redis *redis.Client
}

type handlers struct {
	deps   Deps
	logger *zap.SugaredLogger
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.SugaredLogger, db *pgxpool.Pool, deps Deps, opts Options) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery(), corsMiddleware(opts.CORSAllowedOrigins))
	if limiter := rateLimiter(opts); limiter != nil {
		router.Use(limiter)
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(readinessChecks(db, opts.Redis)))

	h := &handlers{deps: deps, logger: logger}
	auth := authMiddleware(deps.CustomerSvc)

	api := router.Group("/api")
	api.POST("/auth/signup", h.signup)
	api.POST("/auth/login", h.login)
	api.POST("/auth/refresh", h.refresh)
	api.POST("/auth/logout", auth, h.logout)
	api.GET("/me", auth, h.me)

	api.GET("/products", h.listProducts)
	api.GET("/products/:id", h.getProduct)
	api.GET("/inventory/check", h.checkInventory)

	api.GET("/settings", h.getSettings)
	api.PUT("/settings", auth, h.updateSettings)

	api.GET("/coupons/public/:code", h.lookupCoupon)
	coupons := api.Group("/coupons", auth)
	coupons.POST("/validate", h.validateCoupon)
	coupons.POST("/apply", h.applyCoupon)

	cart := api.Group("/cart", auth)
	cart.GET("", h.getCart)
	cart.DELETE("", h.clearCart)
	cart.POST("/items", h.addCartItem)
	cart.PUT("/items/:id", h.updateCartItem)
	cart.DELETE("/items/:id", h.removeCartItem)
	cart.POST("/items/:id/save", h.saveForLater)
	cart.POST("/saved", h.addSavedItem)
	cart.POST("/saved/:id/move", h.moveToCart)
	cart.DELETE("/saved/:id", h.removeSavedItem)

	wishlist := api.Group("/wishlist", auth)
	wishlist.GET("", h.listWishlist)
	wishlist.POST("/items", h.addWishlistItem)
	wishlist.DELETE("/items/:productId", h.removeWishlistItem)

	return router, nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"X-Rate-Limit-Limit", "X-Rate-Limit-Remaining", "X-Rate-Limit-Reset"},
		MaxAge:        12 * time.Hour,
	}
	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func rateLimiter(opts Options) gin.HandlerFunc {
	if opts.RateLimitPerSecond <= 0 {
		return nil
	}
	var store ratelimit.Store
	if opts.Redis != nil {
		store = ratelimit.RedisStore(&ratelimit.RedisOptions{
			RedisClient: opts.Redis,
			Rate:        time.Second,
			Limit:       uint(opts.RateLimitPerSecond),
		})
	} else {
		store = ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
			Rate:  time.Second,
			Limit: uint(opts.RateLimitPerSecond),
		})
	}
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			c.AbortWithStatusJSON(429, gin.H{
				"error":   "rate_limited",
				"message": "Too many requests. Try again in " + time.Until(info.ResetTime).Round(time.Millisecond).String(),
			})
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
}
