package cartsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront/internal/domain"
	"storefront/internal/logging"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AuthState reports whether the shopper is signed in.
type AuthState interface {
	Authenticated() bool
}

// SettingsSource supplies the store-wide tax rate.
type SettingsSource interface {
	TaxRate(ctx context.Context) (decimal.Decimal, error)
}

type Deps struct {
	Session   AuthState
	Local     CartBackend
	Remote    CartBackend
	Inventory InventoryOracle
	Coupons   *CouponResolver
	Settings  SettingsSource
	Bridge    *Bridge
}

// Line is a cart line with its last known stock picture.
type Line struct {
	domain.CartLineItem
	LineStock
}

// Cart is the derived view handed to callers, recomputed on every read.
type Cart struct {
	Items      []Line                `json:"items"`
	SavedItems []domain.CartLineItem `json:"savedItems"`
	Totals
	TaxRate       decimal.Decimal `json:"taxRate"`
	AppliedCoupon string          `json:"appliedCoupon,omitempty"`
	ItemCount     int             `json:"itemCount"`
	Authenticated bool            `json:"authenticated"`
	LastModified  *time.Time      `json:"lastModified,omitempty"`
}

// Result is the outcome of a mutation that may carry warnings.
type Result struct {
	Cart     Cart
	Warnings []Warning
}

// Aggregator owns the shopper's cart state. All mutations go through its
// methods; backend calls run without the lock held, so each request carries
// a ticket. A response for a line that was touched again is dropped; one
// that merely arrived out of order triggers a reload.
type Aggregator struct {
	deps    Deps
	pricing Pricing
	logger  *zap.SugaredLogger

	mu           sync.Mutex
	taxRate      decimal.Decimal
	items        []domain.CartLineItem
	saved        []domain.CartLineItem
	stock        map[string]LineStock
	coupon       *domain.Coupon
	lastModified *time.Time
	issued       uint64
	applied      uint64
	epoch        uint64
	generations  map[string]uint64
}

func New(deps Deps, pricing Pricing, defaultTaxRate decimal.Decimal, logger *zap.SugaredLogger) *Aggregator {
	return &Aggregator{
		deps:        deps,
		pricing:     pricing,
		logger:      logging.OrNop(logger),
		taxRate:     defaultTaxRate,
		stock:       make(map[string]LineStock),
		generations: make(map[string]uint64),
	}
}

type ticket struct {
	seq  uint64
	line string
	gen  uint64
}

func (a *Aggregator) issue(line string) ticket {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.issued++
	t := ticket{seq: a.issued, line: line}
	if line != "" {
		a.generations[line]++
		t.gen = a.generations[line]
	}
	return t
}

type outcome int

const (
	committed outcome = iota
	// superseded: the same line was touched again, or state was reset.
	superseded
	// outOfOrder: a response issued later already landed, so this snapshot
	// may be older or newer than the view.
	outOfOrder
)

// commit installs contents when t still owns the view.
func (a *Aggregator) commit(t ticket, contents domain.CartContents) outcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t.seq <= a.epoch || (t.line != "" && a.generations[t.line] != t.gen) {
		a.logger.Debugw("cartsync: discarding superseded response", "seq", t.seq, "line", t.line)
		return superseded
	}
	if t.seq < a.applied {
		return outOfOrder
	}
	a.applied = t.seq
	contents = contents.Normalize()
	a.items = contents.Items
	a.saved = contents.SavedItems

	live := make(map[string]bool, len(a.items))
	for _, it := range a.items {
		live[it.ID] = true
	}
	for id := range a.stock {
		if !live[id] {
			delete(a.stock, id)
		}
	}
	now := time.Now().UTC()
	a.lastModified = &now
	return committed
}

// settle commits the response of a mutation. A snapshot that arrived out of
// order is replaced by a fresh read of the backend.
func (a *Aggregator) settle(ctx context.Context, t ticket, contents domain.CartContents) bool {
	switch a.commit(t, contents) {
	case committed:
		return true
	case superseded:
		return false
	}
	a.logger.Infow("cartsync: response arrived out of order, reloading", "seq", t.seq, "line", t.line)
	rt := a.issue("")
	fresh, err := a.backend().Load(ctx)
	if err != nil {
		a.logger.Warnw("cartsync: reload after out-of-order response failed", "error", err)
		return false
	}
	return a.commit(rt, fresh) == committed
}

// reset drops in-memory state and makes every in-flight response stale.
func (a *Aggregator) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.issued++
	a.epoch = a.issued
	a.applied = a.issued
	a.items, a.saved = nil, nil
	a.stock = make(map[string]LineStock)
	a.coupon = nil
	a.lastModified = nil
}

func (a *Aggregator) authenticated() bool {
	return a.deps.Session != nil && a.deps.Session.Authenticated()
}

func (a *Aggregator) backend() CartBackend {
	if a.authenticated() && a.deps.Remote != nil {
		return a.deps.Remote
	}
	return a.deps.Local
}

// Load reads the cart from the active backend, refreshes the tax rate and
// the stock picture of every line.
func (a *Aggregator) Load(ctx context.Context) (Cart, error) {
	t := a.issue("")
	contents, err := a.backend().Load(ctx)
	if err != nil {
		return a.Cart(), classify(err)
	}
	if a.deps.Settings != nil {
		rate, err := a.deps.Settings.TaxRate(ctx)
		if err != nil {
			a.logger.Warnw("cartsync: tax rate unavailable, keeping current", "error", err)
		} else {
			a.mu.Lock()
			a.taxRate = rate
			a.mu.Unlock()
		}
	}
	if a.commit(t, contents) == committed {
		for _, it := range contents.Items {
			a.refreshStock(ctx, it)
		}
	}
	return a.Cart(), nil
}

func (a *Aggregator) refreshStock(ctx context.Context, it domain.CartLineItem) {
	if a.deps.Inventory == nil {
		return
	}
	av, err := a.deps.Inventory.CheckInventory(ctx, it.ProductID, it.Size, it.Color, it.Quantity)
	if err != nil {
		a.logger.Warnw("cartsync: inventory check failed", "product_id", it.ProductID, "error", err)
		return
	}
	a.setStock(it.ID, stockFrom(av, a.pricing.LowStockThreshold))
}

func (a *Aggregator) setStock(lineID string, s LineStock) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, it := range a.items {
		if it.ID == lineID {
			a.stock[lineID] = s
			return
		}
	}
}

// check asks the oracle whether want more units of key fit next to inCart.
func (a *Aggregator) check(ctx context.Context, key domain.LineKey, inCart, want int) (domain.Availability, error) {
	if a.deps.Inventory == nil {
		return domain.Availability{Available: true}, nil
	}
	av, err := a.deps.Inventory.CheckInventory(ctx, key.ProductID, key.Size, key.Color, inCart+want)
	if err != nil {
		a.logger.Warnw("cartsync: inventory check failed, proceeding", "product_id", key.ProductID, "error", err)
	}
	return av, err
}

func (a *Aggregator) quantityOf(key domain.LineKey, excludeID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, it := range a.items {
		if it.ID != excludeID && it.Key() == key {
			n += it.Quantity
		}
	}
	return n
}

func (a *Aggregator) findItem(id string) (domain.CartLineItem, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, it := range a.items {
		if it.ID == id {
			return it, true
		}
	}
	return domain.CartLineItem{}, false
}

func (a *Aggregator) lineFor(key domain.LineKey) (domain.CartLineItem, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, it := range a.items {
		if it.Key() == key {
			return it, true
		}
	}
	return domain.CartLineItem{}, false
}

func partialWarning(productID string, requested, granted int) Warning {
	return Warning{
		Kind:      WarnPartialAvailability,
		Message:   fmt.Sprintf("Only %d of %d could be added", granted, requested),
		ProductID: productID,
		Requested: requested,
		Granted:   granted,
	}
}

// AddToCart adds quantity units of a variant. When stock is short the
// quantity is clamped and a warning returned; with nothing left the call
// fails with ErrOutOfStock and the cart is unchanged.
func (a *Aggregator) AddToCart(ctx context.Context, productID string, quantity int, size, color string) (Result, error) {
	key := domain.KeyOf(productID, size, color)
	if key.ProductID == "" || quantity < 1 {
		return Result{Cart: a.Cart()}, newError(KindInvalidInput, "Product and a quantity of at least 1 are required", nil)
	}

	inCart := a.quantityOf(key, "")
	av, checkErr := a.check(ctx, key, inCart, quantity)
	granted, ok := grant(av, checkErr, inCart, quantity)
	if !ok {
		return Result{Cart: a.Cart()}, newError(KindOutOfStock, ErrOutOfStock.Message, nil)
	}
	var warnings []Warning
	if granted < quantity {
		warnings = append(warnings, partialWarning(key.ProductID, quantity, granted))
	}

	t := a.issue("add:" + key.ProductID + "|" + key.Size + "|" + key.Color)
	contents, err := a.backend().Add(ctx, key.ProductID, granted, key.Size, key.Color)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Result{Cart: a.Cart()}, newError(KindInvalidInput, "Product not found", err)
		}
		return Result{Cart: a.Cart()}, classify(err)
	}
	if a.settle(ctx, t, contents) && checkErr == nil {
		if line, ok := a.lineFor(key); ok {
			a.setStock(line.ID, stockFrom(av, a.pricing.LowStockThreshold))
		}
	}
	return Result{Cart: a.Cart(), Warnings: warnings}, nil
}

// UpdateCartItem sets a line's quantity and optionally its size or color. A
// quantity below 1 removes the line; an unknown id is a no-op.
func (a *Aggregator) UpdateCartItem(ctx context.Context, id string, quantity int, size, color *string) (Result, error) {
	line, found := a.findItem(id)
	if !found {
		return Result{Cart: a.Cart()}, nil
	}
	if quantity < 1 {
		cart, err := a.RemoveFromCart(ctx, id)
		return Result{Cart: cart}, err
	}

	target := line.Key()
	if size != nil {
		target.Size = domain.KeyOf("", *size, "").Size
	}
	if color != nil {
		target.Color = domain.KeyOf("", "", *color).Color
	}
	variantChanged := target != line.Key()

	granted := quantity
	var warnings []Warning
	var av domain.Availability
	var checkErr error
	if variantChanged || quantity > line.Quantity {
		others := a.quantityOf(target, id)
		av, checkErr = a.check(ctx, target, others, quantity)
		var ok bool
		granted, ok = grant(av, checkErr, others, quantity)
		if !ok {
			return Result{Cart: a.Cart()}, newError(KindOutOfStock, ErrOutOfStock.Message, nil)
		}
		if granted < quantity {
			warnings = append(warnings, partialWarning(target.ProductID, quantity, granted))
		}
	}

	t := a.issue(id)
	contents, err := a.backend().Update(ctx, id, granted, size, color)
	if err != nil {
		return Result{Cart: a.Cart()}, classify(err)
	}
	if a.settle(ctx, t, contents) && (variantChanged || quantity > line.Quantity) && checkErr == nil {
		if updated, ok := a.lineFor(target); ok {
			a.setStock(updated.ID, stockFrom(av, a.pricing.LowStockThreshold))
		}
	}
	return Result{Cart: a.Cart(), Warnings: warnings}, nil
}

// lineOp runs a backend call keyed on one line id.
func (a *Aggregator) lineOp(ctx context.Context, id string, op func(context.Context, string) (domain.CartContents, error)) (Cart, error) {
	t := a.issue(id)
	contents, err := op(ctx, id)
	if err != nil {
		return a.Cart(), classify(err)
	}
	a.settle(ctx, t, contents)
	return a.Cart(), nil
}

// RemoveFromCart is idempotent: removing an absent line succeeds.
func (a *Aggregator) RemoveFromCart(ctx context.Context, id string) (Cart, error) {
	return a.lineOp(ctx, id, a.backend().Remove)
}

func (a *Aggregator) SaveForLater(ctx context.Context, id string) (Cart, error) {
	return a.lineOp(ctx, id, a.backend().SaveForLater)
}

func (a *Aggregator) MoveToCartFromSaved(ctx context.Context, id string) (Cart, error) {
	return a.lineOp(ctx, id, a.backend().MoveToCart)
}

func (a *Aggregator) RemoveSaved(ctx context.Context, id string) (Cart, error) {
	return a.lineOp(ctx, id, a.backend().RemoveSaved)
}

// ClearCart empties the active list and forgets the applied coupon. Saved
// items are kept.
func (a *Aggregator) ClearCart(ctx context.Context) (Cart, error) {
	t := a.issue("")
	contents, err := a.backend().Clear(ctx)
	if err != nil {
		return a.Cart(), classify(err)
	}
	a.settle(ctx, t, contents)
	a.mu.Lock()
	a.coupon = nil
	a.lastModified = nil
	a.mu.Unlock()
	return a.Cart(), nil
}

// OrderPlaced resets the cart after a successful checkout.
func (a *Aggregator) OrderPlaced(ctx context.Context) (Cart, error) {
	a.logger.Infow("cartsync: order placed, clearing cart")
	return a.ClearCart(ctx)
}

// ApplyCoupon validates code against the current cart. On success the coupon
// rules are kept and the discount is recomputed on every read. A rejected
// code returns the verdict together with an ErrInvalidCoupon.
func (a *Aggregator) ApplyCoupon(ctx context.Context, code string) (domain.CouponResult, error) {
	if a.deps.Coupons == nil {
		return domain.CouponResult{}, newError(KindNetworkFailure, "Coupons are unavailable", nil)
	}
	a.mu.Lock()
	totals := ComputeTotals(a.items, nil, a.taxRate, a.pricing)
	a.mu.Unlock()

	res, err := a.deps.Coupons.Apply(ctx, code, totals.Subtotal, totals.ShippingCost, a.authenticated())
	if err != nil {
		return res, err
	}
	if !res.Valid || res.Coupon == nil {
		msg := res.Message
		if msg == "" {
			msg = domain.MsgCouponInvalid
		}
		return res, newError(KindInvalidCoupon, msg, nil)
	}
	rules := *res.Coupon
	a.mu.Lock()
	a.coupon = &rules
	a.mu.Unlock()
	a.logger.Infow("cartsync: coupon applied", "code", rules.Code)
	return res, nil
}

func (a *Aggregator) RemoveCoupon() Cart {
	a.mu.Lock()
	a.coupon = nil
	a.mu.Unlock()
	return a.Cart()
}

// HandleAuthChange reacts to a login or logout. On login, local state is
// pushed to the server once before the server cart is loaded. On logout the
// aggregator falls back to the local store.
func (a *Aggregator) HandleAuthChange(ctx context.Context, authenticated bool) (Cart, error) {
	if b := a.deps.Bridge; b != nil {
		if authenticated {
			report, err := b.Sync(ctx)
			if err != nil {
				a.logger.Warnw("cartsync: local sync failed", "error", err)
			} else if !report.Skipped {
				a.logger.Infow("cartsync: local state synced",
					"cart", report.CartSynced, "saved", report.SavedSynced, "wishlist", report.WishlistSynced,
					"failed", report.Failed())
			}
		} else if err := b.Reset(ctx); err != nil {
			a.logger.Warnw("cartsync: reset local state failed", "error", err)
		}
	}
	a.reset()
	return a.Load(ctx)
}

// Cart returns a fresh view of the current state.
func (a *Aggregator) Cart() Cart {
	a.mu.Lock()
	defer a.mu.Unlock()

	totals := ComputeTotals(a.items, a.coupon, a.taxRate, a.pricing)
	view := Cart{
		Items:         make([]Line, 0, len(a.items)),
		SavedItems:    append([]domain.CartLineItem{}, a.saved...),
		Totals:        totals,
		TaxRate:       a.taxRate,
		Authenticated: a.authenticated(),
	}
	for _, it := range a.items {
		view.Items = append(view.Items, Line{CartLineItem: it, LineStock: a.stock[it.ID]})
		view.ItemCount += it.Quantity
	}
	if a.coupon != nil {
		view.AppliedCoupon = a.coupon.Code
	}
	if a.lastModified != nil {
		ts := *a.lastModified
		view.LastModified = &ts
	}
	return view
}
