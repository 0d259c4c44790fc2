package seed

import (
	"context"
	"testing"

	"storefront/internal/domain"
)

type recorder struct {
	products []domain.Product
	stock    []domain.StockLevel
	coupons  []domain.Coupon
	settings []domain.Settings
}

func (r *recorder) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	p.ID = "id-" + p.Key
	r.products = append(r.products, p)
	return &p, nil
}

func (r *recorder) Set(_ context.Context, level domain.StockLevel) error {
	r.stock = append(r.stock, level)
	return nil
}

func (r *recorder) Update(_ context.Context, s domain.Settings) (domain.Settings, error) {
	r.settings = append(r.settings, s)
	return s, nil
}

type couponRecorder struct{ r *recorder }

func (c couponRecorder) Upsert(_ context.Context, coupon domain.Coupon) (domain.Coupon, error) {
	c.r.coupons = append(c.r.coupons, coupon)
	return coupon, nil
}

func TestApply(t *testing.T) {
	r := &recorder{}
	err := Apply(context.Background(), Deps{Products: r, Stock: r, Coupons: couponRecorder{r}, Settings: r}, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(r.products) != 3 || len(r.stock) != 4 {
		t.Fatalf("expected 3 products and 4 stock rows, got %d/%d", len(r.products), len(r.stock))
	}
	if r.stock[0].ProductID != "id-demo-tee" {
		t.Fatalf("stock should reference the upserted product id, got %+v", r.stock[0])
	}
	codes := map[string]bool{}
	for _, c := range r.coupons {
		if !c.Type.Valid() {
			t.Fatalf("invalid coupon type %+v", c)
		}
		codes[c.Code] = true
	}
	for _, want := range []string{"DISCOUNT10", "DISCOUNT20", "FREESHIP", "SAVE50"} {
		if !codes[want] {
			t.Fatalf("expected coupon %s to be seeded", want)
		}
	}
	if len(r.settings) != 1 || !r.settings[0].TaxRate.Equal(domain.DefaultTaxRate) {
		t.Fatalf("expected default tax rate to be written, got %+v", r.settings)
	}
}
