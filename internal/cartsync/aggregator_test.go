package cartsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

func TestAddToCartMergesSameVariant(t *testing.T) {
	h := newHarness(t, false)
	h.add(t, "p1", 2)
	res := h.add(t, "p1", 3)

	if len(res.Cart.Items) != 1 || res.Cart.Items[0].Quantity != 5 {
		t.Fatalf("expected one line with qty 5, got %+v", res.Cart.Items)
	}
	if !res.Cart.Items[0].IsLocalOnly {
		t.Fatalf("anonymous lines should be local-only")
	}
	if res.Cart.ItemCount != 5 {
		t.Fatalf("expected item count 5, got %d", res.Cart.ItemCount)
	}
}

func TestRemoveFromCartIsIdempotent(t *testing.T) {
	h := newHarness(t, false)
	res := h.add(t, "p1", 1)
	h.add(t, "p2", 1)
	id := res.Cart.Items[0].ID

	ctx := context.Background()
	first, err := h.agg.RemoveFromCart(ctx, id)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	second, err := h.agg.RemoveFromCart(ctx, id)
	if err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if len(first.Items) != 1 || len(second.Items) != 1 || second.Items[0].ProductID != "p2" {
		t.Fatalf("expected only p2 to remain, got %+v / %+v", first.Items, second.Items)
	}
	if !first.Total.Equal(second.Total) {
		t.Fatalf("totals changed on repeated remove: %s vs %s", first.Total, second.Total)
	}
}

func TestAddToCartClampsToAvailableStock(t *testing.T) {
	h := newHarness(t, false)
	h.inventory.stock["p1"] = 4

	res := h.add(t, "p1", 10)
	if len(res.Cart.Items) != 1 || res.Cart.Items[0].Quantity != 4 {
		t.Fatalf("expected qty clamped to 4, got %+v", res.Cart.Items)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Kind != WarnPartialAvailability || res.Warnings[0].Granted != 4 {
		t.Fatalf("expected a partial availability warning, got %+v", res.Warnings)
	}
	if res.Cart.Items[0].Status != domain.LowStock {
		t.Fatalf("expected low stock status, got %q", res.Cart.Items[0].Status)
	}
}

func TestAddToCartOutOfStockLeavesCartUnchanged(t *testing.T) {
	h := newHarness(t, false)
	h.add(t, "p2", 1)
	h.inventory.stock["p1"] = 0

	res, err := h.agg.AddToCart(context.Background(), "p1", 1, "", "")
	if !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	if len(res.Cart.Items) != 1 || res.Cart.Items[0].ProductID != "p2" {
		t.Fatalf("cart should be unchanged, got %+v", res.Cart.Items)
	}
}

func TestAddToCartCountsQuantityAlreadyInCart(t *testing.T) {
	h := newHarness(t, false)
	h.inventory.stock["p1"] = 4
	h.add(t, "p1", 3)

	res := h.add(t, "p1", 3)
	if res.Cart.Items[0].Quantity != 4 || len(res.Warnings) != 1 {
		t.Fatalf("expected qty 4 with warning, got %+v %+v", res.Cart.Items, res.Warnings)
	}
	if _, err := h.agg.AddToCart(context.Background(), "p1", 1, "", ""); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock once stock is used up, got %v", err)
	}
}

func TestInventoryFailureIsAdvisory(t *testing.T) {
	h := newHarness(t, false)
	h.inventory.err = errUnreachable

	res := h.add(t, "p1", 10)
	if res.Cart.Items[0].Quantity != 10 || len(res.Warnings) != 0 {
		t.Fatalf("expected optimistic add of 10, got %+v", res)
	}
}

func TestAddToCartRejectsBadInput(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	if _, err := h.agg.AddToCart(ctx, "", 1, "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty product, got %v", err)
	}
	if _, err := h.agg.AddToCart(ctx, "p1", 0, "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for qty 0, got %v", err)
	}
	if _, err := h.agg.AddToCart(ctx, "nope", 1, "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown product, got %v", err)
	}
}

func TestUpdateCartItem(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	res := h.add(t, "p1", 2)
	id := res.Cart.Items[0].ID

	if res, err := h.agg.UpdateCartItem(ctx, "missing", 3, nil, nil); err != nil || len(res.Cart.Items) != 1 {
		t.Fatalf("unknown id should be a no-op, got %+v %v", res.Cart.Items, err)
	}

	size := "L"
	res, err := h.agg.UpdateCartItem(ctx, id, 3, &size, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.Cart.Items[0].Quantity != 3 || res.Cart.Items[0].Size != "L" {
		t.Fatalf("unexpected line after update %+v", res.Cart.Items[0])
	}

	res, err = h.agg.UpdateCartItem(ctx, id, 0, nil, nil)
	if err != nil {
		t.Fatalf("update to 0: %v", err)
	}
	if len(res.Cart.Items) != 0 {
		t.Fatalf("qty 0 should remove the line, got %+v", res.Cart.Items)
	}
}

func TestSaveForLaterRoundTrip(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	id := h.add(t, "p1", 2).Cart.Items[0].ID

	cart, err := h.agg.SaveForLater(ctx, id)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(cart.Items) != 0 || len(cart.SavedItems) != 1 {
		t.Fatalf("expected line in saved list, got %+v", cart)
	}
	assertMoney(t, "subtotal excludes saved items", cart.Subtotal, "0")

	cart, err = h.agg.MoveToCartFromSaved(ctx, cart.SavedItems[0].ID)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if len(cart.Items) != 1 || len(cart.SavedItems) != 0 || cart.Items[0].Quantity != 2 {
		t.Fatalf("expected line back in cart, got %+v", cart)
	}

	cart, _ = h.agg.SaveForLater(ctx, cart.Items[0].ID)
	cart, err = h.agg.RemoveSaved(ctx, cart.SavedItems[0].ID)
	if err != nil || len(cart.SavedItems) != 0 {
		t.Fatalf("expected saved list empty, got %+v %v", cart.SavedItems, err)
	}
}

func TestClearCartDropsCouponKeepsSaved(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	h.coupons.publicErr = errUnreachable
	id := h.add(t, "p2", 1).Cart.Items[0].ID
	h.agg.SaveForLater(ctx, id)
	h.add(t, "p1", 1)
	if _, err := h.agg.ApplyCoupon(ctx, "FREESHIP"); err != nil {
		t.Fatalf("apply: %v", err)
	}

	cart, err := h.agg.OrderPlaced(ctx)
	if err != nil {
		t.Fatalf("order placed: %v", err)
	}
	if len(cart.Items) != 0 || cart.AppliedCoupon != "" || cart.LastModified != nil {
		t.Fatalf("expected empty cart without coupon, got %+v", cart)
	}
	if len(cart.SavedItems) != 1 {
		t.Fatalf("saved items should survive clear, got %+v", cart.SavedItems)
	}
}

func TestLegacyDiscount10(t *testing.T) {
	h := newHarness(t, true)
	h.coupons.publicErr = errUnreachable
	h.add(t, "p1", 3)

	res, err := h.agg.ApplyCoupon(context.Background(), "discount10")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !res.Valid {
		t.Fatalf("expected valid legacy coupon, got %+v", res)
	}
	cart := h.agg.Cart()
	assertMoney(t, "subtotal", cart.Subtotal, "60")
	assertMoney(t, "discount", cart.Discount, "6")
	assertMoney(t, "shipping", cart.ShippingCost, "5.99")
	assertMoney(t, "tax", cart.Tax, "4.5")
	assertMoney(t, "total", cart.Total, "64.49")
	if cart.AppliedCoupon != "DISCOUNT10" {
		t.Fatalf("expected DISCOUNT10 applied, got %q", cart.AppliedCoupon)
	}
}

func TestLegacyCodesDisabledByDefault(t *testing.T) {
	h := newHarness(t, false)
	h.add(t, "p1", 1)

	res, err := h.agg.ApplyCoupon(context.Background(), "DISCOUNT10")
	if !errors.Is(err, ErrInvalidCoupon) || res.Valid {
		t.Fatalf("expected invalid coupon, got %+v %v", res, err)
	}
	if h.agg.Cart().AppliedCoupon != "" {
		t.Fatalf("no coupon should be applied")
	}
}

func TestPercentageCouponRespectsCap(t *testing.T) {
	h := newHarness(t, false)
	maxTwenty := money("20")
	h.coupons.public["SAVE50"] = domain.Coupon{
		Code: "SAVE50", Type: domain.CouponPercentage, Value: money("50"), MaxDiscount: &maxTwenty, Active: true,
	}
	h.add(t, "p3", 1)

	res, err := h.agg.ApplyCoupon(context.Background(), "SAVE50")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	assertMoney(t, "result discount", *res.Discount, "20")
	assertMoney(t, "cart discount", h.agg.Cart().Discount, "20")
}

func TestDiscountRecomputedOnEveryRead(t *testing.T) {
	h := newHarness(t, false)
	h.coupons.public["TEN"] = domain.Coupon{Code: "TEN", Type: domain.CouponPercentage, Value: money("10"), Active: true}
	h.add(t, "p1", 1)
	if _, err := h.agg.ApplyCoupon(context.Background(), "TEN"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	assertMoney(t, "discount before", h.agg.Cart().Discount, "2")

	res := h.add(t, "p2", 1)
	assertMoney(t, "discount after", res.Cart.Discount, "7")

	cart := h.agg.RemoveCoupon()
	assertMoney(t, "discount removed", cart.Discount, "0")
}

func TestServerCouponVerdictIsNotOverridden(t *testing.T) {
	h := newHarness(t, true)
	h.session.set(true)
	h.coupons.applyRes = domain.CouponResult{Code: "DISCOUNT10", AlreadyUsed: true, Message: domain.MsgCouponAlreadyUsed}
	h.add(t, "p1", 1)

	res, err := h.agg.ApplyCoupon(context.Background(), "DISCOUNT10")
	if !errors.Is(err, ErrInvalidCoupon) {
		t.Fatalf("expected ErrInvalidCoupon, got %v", err)
	}
	var e *Error
	if !errors.As(err, &e) || e.Message != domain.MsgCouponAlreadyUsed {
		t.Fatalf("expected already-used message, got %v", err)
	}
	if !res.AlreadyUsed || h.coupons.publicCalls != 0 {
		t.Fatalf("server verdict should be final, got %+v (public calls %d)", res, h.coupons.publicCalls)
	}
}

func TestCouponFallsBackToPublicLookup(t *testing.T) {
	h := newHarness(t, false)
	h.session.set(true)
	h.coupons.applyErr = errUnreachable
	h.coupons.public["FIVE"] = domain.Coupon{Code: "FIVE", Type: domain.CouponFixed, Value: money("5"), Active: true}
	h.add(t, "p1", 1)

	res, err := h.agg.ApplyCoupon(context.Background(), "five")
	if err != nil || !res.Valid {
		t.Fatalf("expected fallback to succeed, got %+v %v", res, err)
	}
	if h.coupons.applyCalls != 1 || h.coupons.publicCalls != 1 {
		t.Fatalf("expected one server and one public call, got %d/%d", h.coupons.applyCalls, h.coupons.publicCalls)
	}
	assertMoney(t, "discount", h.agg.Cart().Discount, "5")
}

func TestCouponUnreachableIsNetworkFailure(t *testing.T) {
	h := newHarness(t, false)
	h.coupons.publicErr = errUnreachable
	h.add(t, "p1", 1)

	if _, err := h.agg.ApplyCoupon(context.Background(), "ANY"); !errors.Is(err, ErrNetworkFailure) {
		t.Fatalf("expected ErrNetworkFailure, got %v", err)
	}
}

func TestRemoteFailureIsNetworkFailure(t *testing.T) {
	h := newHarness(t, false)
	h.session.set(true)
	h.server.err = errUnreachable

	_, err := h.agg.AddToCart(context.Background(), "p1", 1, "", "")
	if !errors.Is(err, ErrNetworkFailure) {
		t.Fatalf("expected ErrNetworkFailure, got %v", err)
	}
	if _, err := h.agg.Load(context.Background()); !errors.Is(err, ErrNetworkFailure) {
		t.Fatalf("expected ErrNetworkFailure on load, got %v", err)
	}
}

func TestLoginSyncsLocalStateOnce(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	h.add(t, "p1", 1)
	h.add(t, "p2", 2)
	h.add(t, "p3", 1)
	if err := h.local.Wishlist().Add(ctx, "p2"); err != nil {
		t.Fatalf("wishlist add: %v", err)
	}

	h.session.set(true)
	for i := 0; i < 3; i++ {
		if _, err := h.agg.HandleAuthChange(ctx, true); err != nil {
			t.Fatalf("login event %d: %v", i, err)
		}
	}

	if h.server.addCalls != 3 {
		t.Fatalf("expected exactly 3 AddItem calls, got %d", h.server.addCalls)
	}
	if h.server.wishlistCalls != 1 {
		t.Fatalf("expected 1 wishlist call, got %d", h.server.wishlistCalls)
	}
	local, _ := h.local.Cart().GetItems(ctx)
	wish, _ := h.local.Wishlist().Items(ctx)
	if len(local) != 0 || len(wish) != 0 {
		t.Fatalf("local store should be empty after sync, cart=%+v wishlist=%+v", local, wish)
	}

	cart := h.agg.Cart()
	if !cart.Authenticated || len(cart.Items) != 3 || cart.ItemCount != 4 {
		t.Fatalf("expected server cart with 3 lines, got %+v", cart)
	}
	for _, it := range cart.Items {
		if it.IsLocalOnly {
			t.Fatalf("server lines should not be local-only: %+v", it)
		}
	}
}

func TestLoginDropsLinesServerRejects(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	h.add(t, "p1", 1)
	h.server.err = errUnreachable

	h.session.set(true)
	report, err := h.bridge.Sync(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if report.CartFailed != 1 || report.CartSynced != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	local, _ := h.local.Cart().GetItems(ctx)
	if len(local) != 0 {
		t.Fatalf("failed lines are dropped, got %+v", local)
	}
}

func TestLogoutFallsBackToLocalAndRearmsSync(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	h.add(t, "p1", 1)
	h.session.set(true)
	h.agg.HandleAuthChange(ctx, true)

	h.session.set(false)
	cart, err := h.agg.HandleAuthChange(ctx, false)
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if cart.Authenticated || len(cart.Items) != 0 {
		t.Fatalf("expected empty anonymous cart, got %+v", cart)
	}

	h.add(t, "p2", 1)
	h.session.set(true)
	h.agg.HandleAuthChange(ctx, true)
	if h.server.addCalls != 2 {
		t.Fatalf("second login should sync again, got %d AddItem calls", h.server.addCalls)
	}
}

func TestTaxRateFromSettings(t *testing.T) {
	h := newHarness(t, false)
	h.agg.deps.Settings = settingsFunc(func(context.Context) (decimal.Decimal, error) {
		return money("0.1"), nil
	})
	h.add(t, "p1", 1)
	cart, err := h.agg.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertMoney(t, "tax", cart.Tax, "2")

	h.agg.deps.Settings = settingsFunc(func(context.Context) (decimal.Decimal, error) {
		return decimal.Zero, errUnreachable
	})
	cart, _ = h.agg.Load(context.Background())
	assertMoney(t, "tax keeps last rate", cart.Tax, "2")
}

type settingsFunc func(context.Context) (decimal.Decimal, error)

func (f settingsFunc) TaxRate(ctx context.Context) (decimal.Decimal, error) { return f(ctx) }

// gatedBackend holds the first Update until release is closed.
type gatedBackend struct {
	CartBackend
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (g *gatedBackend) Update(ctx context.Context, id string, qty int, size, color *string) (domain.CartContents, error) {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()
	if first {
		contents, err := g.CartBackend.Load(ctx)
		close(g.entered)
		<-g.release
		for i := range contents.Items {
			if contents.Items[i].ID == id {
				contents.Items[i].Quantity = qty
			}
		}
		return contents, err
	}
	return g.CartBackend.Update(ctx, id, qty, size, color)
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	id := h.add(t, "p1", 1).Cart.Items[0].ID

	gate := &gatedBackend{
		CartBackend: h.agg.deps.Local,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	h.agg.deps.Local = gate

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.agg.UpdateCartItem(ctx, id, 5, nil, nil)
	}()
	<-gate.entered

	res, err := h.agg.UpdateCartItem(ctx, id, 2, nil, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.Cart.Items[0].Quantity != 2 {
		t.Fatalf("expected qty 2, got %d", res.Cart.Items[0].Quantity)
	}

	close(gate.release)
	<-done
	if got := h.agg.Cart().Items[0].Quantity; got != 2 {
		t.Fatalf("stale response overwrote newer state: qty %d", got)
	}
}

// slowAddBackend holds the first Add until release is closed. With
// writeFirst the write lands before the hold, so the held response is an
// old snapshot; otherwise the write happens after the hold and the response
// is the newest state.
type slowAddBackend struct {
	CartBackend
	writeFirst bool
	mu         sync.Mutex
	calls      int
	entered    chan struct{}
	release    chan struct{}
}

func (g *slowAddBackend) Add(ctx context.Context, productID string, qty int, size, color string) (domain.CartContents, error) {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()
	if !first {
		return g.CartBackend.Add(ctx, productID, qty, size, color)
	}
	if g.writeFirst {
		contents, err := g.CartBackend.Add(ctx, productID, qty, size, color)
		close(g.entered)
		<-g.release
		return contents, err
	}
	close(g.entered)
	<-g.release
	return g.CartBackend.Add(ctx, productID, qty, size, color)
}

func TestOverlappingAddsForDifferentLinesBothSurvive(t *testing.T) {
	for _, writeFirst := range []bool{false, true} {
		h := newHarness(t, false)
		ctx := context.Background()
		gate := &slowAddBackend{
			CartBackend: h.agg.deps.Local,
			writeFirst:  writeFirst,
			entered:     make(chan struct{}),
			release:     make(chan struct{}),
		}
		h.agg.deps.Local = gate

		var slow Result
		var slowErr error
		done := make(chan struct{})
		go func() {
			defer close(done)
			slow, slowErr = h.agg.AddToCart(ctx, "p1", 1, "", "")
		}()
		<-gate.entered

		h.add(t, "p2", 1)
		close(gate.release)
		<-done

		if slowErr != nil {
			t.Fatalf("writeFirst=%v: add p1: %v", writeFirst, slowErr)
		}
		if n := len(slow.Cart.Items); n != 2 {
			t.Fatalf("writeFirst=%v: expected the p1 result to show both lines, got %d", writeFirst, n)
		}
		stored, err := h.local.Cart().GetItems(ctx)
		if err != nil {
			t.Fatalf("read local cart: %v", err)
		}
		view := h.agg.Cart()
		if len(view.Items) != len(stored) || len(stored) != 2 {
			t.Fatalf("writeFirst=%v: view has %d lines, store has %d", writeFirst, len(view.Items), len(stored))
		}
	}
}

func TestRejectedTokenAsksToSignInAgain(t *testing.T) {
	h := newHarness(t, false)
	h.session.set(true)
	h.server.err = fmt.Errorf("GET /api/cart: %w", domain.ErrUnauthorized)

	_, err := h.agg.Load(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if errors.Is(err, ErrNetworkFailure) {
		t.Fatalf("a rejected token is not a network failure")
	}
	var e *Error
	if !errors.As(err, &e) || e.Message != ErrUnauthorized.Message {
		t.Fatalf("expected sign-in message, got %v", err)
	}
}
