package cartsync

import (
	"context"
	"errors"
	"sync"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/localstore"

	"github.com/shopspring/decimal"
)

var errUnreachable = errors.New("dial tcp: connection refused")

type fakeSession struct {
	mu     sync.Mutex
	authed bool
}

func (s *fakeSession) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authed
}

func (s *fakeSession) set(authed bool) {
	s.mu.Lock()
	s.authed = authed
	s.mu.Unlock()
}

// serverSide marks lines as persisted by the server.
func serverSide(contents domain.CartContents, err error) (domain.CartContents, error) {
	for i := range contents.Items {
		contents.Items[i].IsLocalOnly = false
	}
	for i := range contents.SavedItems {
		contents.SavedItems[i].IsLocalOnly = false
	}
	return contents, err
}

type fakeProducts map[string]*domain.Product

func (f fakeProducts) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	p, ok := f[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func catalog() fakeProducts {
	return fakeProducts{
		"p1": {ID: "p1", Name: "Tee", Price: decimal.RequireFromString("20.00")},
		"p2": {ID: "p2", Name: "Hoodie", Price: decimal.RequireFromString("50.00")},
		"p3": {ID: "p3", Name: "Jacket", Price: decimal.RequireFromString("100.00")},
	}
}

// fakeServer emulates the cart API on top of its own local store.
type fakeServer struct {
	mu            sync.Mutex
	cart          CartBackend
	wishlist      []string
	addCalls      int
	savedCalls    int
	wishlistCalls int
	err           error
}

func newFakeServer(products ProductSource) *fakeServer {
	store := localstore.New(localstore.NewMemoryKV(), "server")
	return &fakeServer{cart: NewLocalBackend(store, products)}
}

func (f *fakeServer) fail() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeServer) GetCart(ctx context.Context) (domain.CartContents, error) {
	if err := f.fail(); err != nil {
		return domain.CartContents{}, err
	}
	return serverSide(f.cart.Load(ctx))
}

func (f *fakeServer) AddItem(ctx context.Context, productID string, quantity int, size, color string) (domain.CartContents, error) {
	f.mu.Lock()
	f.addCalls++
	f.mu.Unlock()
	if err := f.fail(); err != nil {
		return domain.CartContents{}, err
	}
	return serverSide(f.cart.Add(ctx, productID, quantity, size, color))
}

func (f *fakeServer) AddSaved(ctx context.Context, productID string, quantity int, size, color string) (domain.CartContents, error) {
	f.mu.Lock()
	f.savedCalls++
	f.mu.Unlock()
	if err := f.fail(); err != nil {
		return domain.CartContents{}, err
	}
	contents, err := f.cart.Add(ctx, productID, quantity, size, color)
	if err != nil {
		return contents, err
	}
	for _, it := range contents.Items {
		if it.Key() == domain.KeyOf(productID, size, color) {
			return serverSide(f.cart.SaveForLater(ctx, it.ID))
		}
	}
	return contents, nil
}

func (f *fakeServer) UpdateItem(ctx context.Context, id string, quantity int, size, color *string) (domain.CartContents, error) {
	if err := f.fail(); err != nil {
		return domain.CartContents{}, err
	}
	return serverSide(f.cart.Update(ctx, id, quantity, size, color))
}

func (f *fakeServer) RemoveItem(ctx context.Context, id string) (domain.CartContents, error) {
	if err := f.fail(); err != nil {
		return domain.CartContents{}, err
	}
	return serverSide(f.cart.Remove(ctx, id))
}

func (f *fakeServer) ClearCart(ctx context.Context) (domain.CartContents, error) {
	if err := f.fail(); err != nil {
		return domain.CartContents{}, err
	}
	return serverSide(f.cart.Clear(ctx))
}

func (f *fakeServer) SaveForLater(ctx context.Context, id string) (domain.CartContents, error) {
	if err := f.fail(); err != nil {
		return domain.CartContents{}, err
	}
	return serverSide(f.cart.SaveForLater(ctx, id))
}

func (f *fakeServer) MoveToCart(ctx context.Context, id string) (domain.CartContents, error) {
	if err := f.fail(); err != nil {
		return domain.CartContents{}, err
	}
	return serverSide(f.cart.MoveToCart(ctx, id))
}

func (f *fakeServer) RemoveSaved(ctx context.Context, id string) (domain.CartContents, error) {
	if err := f.fail(); err != nil {
		return domain.CartContents{}, err
	}
	return serverSide(f.cart.RemoveSaved(ctx, id))
}

func (f *fakeServer) AddWishlist(_ context.Context, productID string) ([]domain.WishlistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wishlistCalls++
	if f.err != nil {
		return nil, f.err
	}
	f.wishlist = append(f.wishlist, productID)
	out := make([]domain.WishlistItem, 0, len(f.wishlist))
	for _, id := range f.wishlist {
		out = append(out, domain.WishlistItem{ProductID: id})
	}
	return out, nil
}

// fakeInventory tracks stock per product; untracked products are always
// available.
type fakeInventory struct {
	mu    sync.Mutex
	stock map[string]int
	err   error
}

func (f *fakeInventory) CheckInventory(_ context.Context, productID, _, _ string, quantity int) (domain.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Availability{}, f.err
	}
	q, ok := f.stock[productID]
	if !ok {
		return domain.Availability{Available: true}, nil
	}
	return domain.Availability{Available: q >= quantity, AvailableQuantity: &q}, nil
}

type fakeCoupons struct {
	applyRes    domain.CouponResult
	applyErr    error
	applyCalls  int
	public      map[string]domain.Coupon
	publicErr   error
	publicCalls int
}

func (f *fakeCoupons) ApplyCoupon(_ context.Context, code string, subtotal, shipping decimal.Decimal) (domain.CouponResult, error) {
	f.applyCalls++
	return f.applyRes, f.applyErr
}

func (f *fakeCoupons) PublicCoupon(_ context.Context, code string) (domain.Coupon, error) {
	f.publicCalls++
	if f.publicErr != nil {
		return domain.Coupon{}, f.publicErr
	}
	c, ok := f.public[code]
	if !ok {
		return domain.Coupon{}, domain.ErrNotFound
	}
	return c, nil
}

type harness struct {
	session   *fakeSession
	local     *localstore.Store
	server    *fakeServer
	inventory *fakeInventory
	coupons   *fakeCoupons
	bridge    *Bridge
	agg       *Aggregator
}

func newHarness(t *testing.T, legacy bool) *harness {
	t.Helper()
	products := catalog()
	h := &harness{
		session:   &fakeSession{},
		local:     localstore.New(localstore.NewMemoryKV(), "test"),
		server:    newFakeServer(products),
		inventory: &fakeInventory{stock: map[string]int{}},
		coupons:   &fakeCoupons{public: map[string]domain.Coupon{}},
	}
	h.bridge = NewBridge(h.local, h.server, nil)
	h.agg = New(Deps{
		Session:   h.session,
		Local:     NewLocalBackend(h.local, products),
		Remote:    NewRemoteBackend(h.server),
		Inventory: h.inventory,
		Coupons:   NewCouponResolver(h.coupons, legacy, nil),
		Bridge:    h.bridge,
	}, DefaultPricing(), decimal.RequireFromString("0.075"), nil)
	return h
}

func (h *harness) add(t *testing.T, productID string, qty int) Result {
	t.Helper()
	res, err := h.agg.AddToCart(context.Background(), productID, qty, "", "")
	if err != nil {
		t.Fatalf("add %s x%d: %v", productID, qty, err)
	}
	return res
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(money(want)) {
		t.Fatalf("%s: expected %s, got %s", label, want, got.String())
	}
}
