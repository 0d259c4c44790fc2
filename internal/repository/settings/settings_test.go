package settings

import (
	"context"
	"testing"

	"storefront/internal/db/dbtest"
	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

func TestPostgres_GetAndUpdate(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)

	if _, err := repo.Get(ctx); err != domain.ErrNotFound {
		t.Fatalf("expected not found before first write, got %v", err)
	}

	rate := decimal.RequireFromString("0.0825")
	if _, err := repo.Update(ctx, domain.Settings{TaxRate: rate}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.TaxRate.Equal(rate) {
		t.Fatalf("expected %s, got %s", rate, got.TaxRate)
	}
}
