package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

func TestProducts(t *testing.T) {
	deps := stubDeps()
	deps.ProductSvc = &stubProductService{products: []domain.Product{{ID: "p1", Name: "Shirt", Price: decimal.RequireFromString("20.00")}}}
	router := newTestRouter(t, deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Fatalf("unexpected list response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/p1", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"name":"Shirt"`) {
		t.Fatalf("unexpected get response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCheckInventory(t *testing.T) {
	four := 4
	inv := &stubInventoryService{result: domain.Availability{Available: false, AvailableQuantity: &four}}
	deps := stubDeps()
	deps.InventorySvc = inv
	router := newTestRouter(t, deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/inventory/check?productId=p1&size=M&color=Red&quantity=10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if inv.last.ProductID != "p1" || inv.last.Size != "M" || inv.last.Color != "Red" || inv.last.Quantity != 10 {
		t.Fatalf("unexpected check input %+v", inv.last)
	}
	if !strings.Contains(rec.Body.String(), `"availableQuantity":4`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/inventory/check?productId=p1&quantity=ten", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric quantity, got %d", rec.Code)
	}
}

func TestSettings(t *testing.T) {
	settings := &stubSettingsService{current: domain.Settings{TaxRate: decimal.RequireFromString("0.075")}}
	deps := stubDeps()
	deps.SettingsSvc = settings
	router := newTestRouter(t, deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"taxRate":"0.075"`) {
		t.Fatalf("unexpected settings response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{"taxRate":0.08}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPut, "/api/settings", `{"taxRate":0.08}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if settings.lastUpdate.TaxRate == nil || !settings.lastUpdate.TaxRate.Equal(decimal.RequireFromString("0.08")) {
		t.Fatalf("unexpected update %+v", settings.lastUpdate)
	}
}
