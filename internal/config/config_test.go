package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", "does-not-exist.env")
	cfg := FromEnv()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.HTTPAddr)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected shutdown timeout %s", cfg.ShutdownTimeout)
	}
	if cfg.DefaultTaxRate.String() != "0.075" {
		t.Fatalf("unexpected tax rate %s", cfg.DefaultTaxRate)
	}
	if cfg.FlatShippingCost.String() != "5.99" || cfg.FreeShippingThreshold.String() != "100" {
		t.Fatalf("unexpected shipping config %s %s", cfg.FlatShippingCost, cfg.FreeShippingThreshold)
	}
	if cfg.LegacyCouponsEnabled {
		t.Fatalf("legacy coupons must default to disabled")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ENV_FILE", "does-not-exist.env")
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("DEFAULT_TAX_RATE", "0.2")
	t.Setenv("LEGACY_COUPONS_ENABLED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOW_STOCK_THRESHOLD", "not-a-number")

	cfg := FromEnv()
	if cfg.HTTPAddr != ":9000" || cfg.ShutdownTimeout != 3*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.DefaultTaxRate.String() != "0.2" || !cfg.LegacyCouponsEnabled {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.LowStockThreshold != 5 {
		t.Fatalf("invalid int should fall back to default, got %d", cfg.LowStockThreshold)
	}
}
