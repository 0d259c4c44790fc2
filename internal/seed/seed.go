package seed

import (
	"context"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/logging"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type StockWriter interface {
	Set(ctx context.Context, level domain.StockLevel) error
}

type CouponWriter interface {
	Upsert(ctx context.Context, c domain.Coupon) (domain.Coupon, error)
}

type SettingsWriter interface {
	Update(ctx context.Context, s domain.Settings) (domain.Settings, error)
}

type Deps struct {
	Products ProductWriter
	Stock    StockWriter
	Coupons  CouponWriter
	Settings SettingsWriter
}

type stockSeed struct {
	Size     string
	Color    string
	Quantity int
}

type productSeed struct {
	Key         string
	SKU         string
	Name        string
	Description string
	Price       string
	Discounted  string
	Stock       []stockSeed
}

var products = []productSeed{
	{
		Key:         "demo-tee",
		SKU:         "SKU-DEMO-TEE",
		Name:        "Demo T-Shirt",
		Description: "Soft cotton tee for demo purposes",
		Price:       "20.00",
		Stock: []stockSeed{
			{Size: "S", Color: "black", Quantity: 12},
			{Size: "M", Color: "black", Quantity: 4},
			{Size: "L", Color: "black", Quantity: 0},
		},
	},
	{
		Key:         "demo-hoodie",
		SKU:         "SKU-DEMO-HOODIE",
		Name:        "Demo Hoodie",
		Description: "Heavyweight fleece hoodie",
		Price:       "55.00",
		Discounted:  "45.00",
		Stock:       []stockSeed{{Quantity: 25}},
	},
	{
		Key:         "demo-mug",
		SKU:         "SKU-DEMO-MUG",
		Name:        "Demo Mug",
		Description: "Ceramic mug with demo logo",
		Price:       "12.99",
	},
}

func coupons() []domain.Coupon {
	maxTwenty := decimal.NewFromInt(20)
	limit := 100
	return []domain.Coupon{
		{Code: "DISCOUNT10", Type: domain.CouponPercentage, Value: decimal.NewFromInt(10), Active: true},
		{Code: "DISCOUNT20", Type: domain.CouponPercentage, Value: decimal.NewFromInt(20), Active: true},
		{Code: "FREESHIP", Type: domain.CouponShipping, Active: true},
		{Code: "SAVE50", Type: domain.CouponPercentage, Value: decimal.NewFromInt(50), MaxDiscount: &maxTwenty, MinPurchase: decimal.NewFromInt(30), Active: true},
		{Code: "WELCOME5", Type: domain.CouponFixed, Value: decimal.NewFromInt(5), UsageLimit: &limit, Active: true},
	}
}

// Apply writes demo catalog, stock, coupons and settings. It is idempotent
// since every writer upserts.
func Apply(ctx context.Context, deps Deps, logger *zap.SugaredLogger) error {
	logger = logging.OrNop(logger)
	for _, p := range products {
		saved, err := deps.Products.Upsert(ctx, domain.Product{
			Key:             p.Key,
			SKU:             p.SKU,
			Name:            p.Name,
			Description:     p.Description,
			Price:           decimal.RequireFromString(p.Price),
			DiscountedPrice: optionalPrice(p.Discounted),
			Currency:        "USD",
		})
		if err != nil {
			return fmt.Errorf("upsert product %s: %w", p.Key, err)
		}
		for _, s := range p.Stock {
			level := domain.StockLevel{ProductID: saved.ID, Size: s.Size, Color: s.Color, Quantity: s.Quantity}
			if err := deps.Stock.Set(ctx, level); err != nil {
				return fmt.Errorf("set stock %s: %w", p.Key, err)
			}
		}
		logger.Infof("seed: product key=%s id=%s", p.Key, saved.ID)
	}

	for _, c := range coupons() {
		if _, err := deps.Coupons.Upsert(ctx, c); err != nil {
			return fmt.Errorf("upsert coupon %s: %w", c.Code, err)
		}
		logger.Infof("seed: coupon code=%s", c.Code)
	}

	if _, err := deps.Settings.Update(ctx, domain.Settings{TaxRate: domain.DefaultTaxRate}); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

func optionalPrice(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	d := decimal.RequireFromString(s)
	return &d
}
