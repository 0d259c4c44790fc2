package httpserver

import (
	"context"
	"io"
	"testing"

	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
	couponsvc "storefront/internal/service/coupon"
	customersvc "storefront/internal/service/customer"
	inventorysvc "storefront/internal/service/inventory"
	settingssvc "storefront/internal/service/settings"
	wishlistsvc "storefront/internal/service/wishlist"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func logDiscard() *zap.SugaredLogger {
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.AddSync(io.Discard), zap.DebugLevel)
	return zap.New(core).Sugar()
}

type stubCustomerAuthSvc struct {
	customer  *domain.Customer
	loginErr  error
	signErr   error
	meErr     error
	lastToken string

	refreshErr  error
	lastRefresh string
	revoked     []string
}

func (s *stubCustomerAuthSvc) Signup(_ context.Context, _ customersvc.SignupInput) (*domain.Customer, error) {
	return s.customer, s.signErr
}

func (s *stubCustomerAuthSvc) Login(_ context.Context, _ string, _ string) (*domain.Customer, string, string, error) {
	return s.customer, "access", "refresh", s.loginErr
}

func (s *stubCustomerAuthSvc) Refresh(_ context.Context, refreshToken string) (*domain.Customer, string, string, error) {
	s.lastRefresh = refreshToken
	return s.customer, "access2", "refresh2", s.refreshErr
}

func (s *stubCustomerAuthSvc) Logout(_ context.Context, accessToken, refreshToken string) error {
	s.revoked = append(s.revoked, accessToken, refreshToken)
	return nil
}

func (s *stubCustomerAuthSvc) LookupByToken(_ context.Context, token string) (*domain.Customer, error) {
	s.lastToken = token
	return s.customer, s.meErr
}

func (s *stubCustomerAuthSvc) AccessTTLSeconds() int {
	return 3600
}

type stubProductService struct {
	products []domain.Product
	err      error
}

func (s *stubProductService) List(_ context.Context) ([]domain.Product, error) {
	return s.products, s.err
}

func (s *stubProductService) Get(_ context.Context, id string) (*domain.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			clone := p
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

type stubInventoryService struct {
	result domain.Availability
	err    error
	last   inventorysvc.CheckInput
}

func (s *stubInventoryService) Check(_ context.Context, in inventorysvc.CheckInput) (domain.Availability, error) {
	s.last = in
	return s.result, s.err
}

type stubSettingsService struct {
	current    domain.Settings
	updateErr  error
	lastUpdate settingssvc.UpdateInput
}

func (s *stubSettingsService) Get(_ context.Context) domain.Settings {
	return s.current
}

func (s *stubSettingsService) Update(_ context.Context, in settingssvc.UpdateInput) (domain.Settings, error) {
	s.lastUpdate = in
	if s.updateErr != nil {
		return domain.Settings{}, s.updateErr
	}
	return domain.Settings{TaxRate: *in.TaxRate}, nil
}

type stubCartService struct {
	contents       domain.CartContents
	err            error
	lastCustomerID string
	lastLineID     string
	lastAdd        cartsvc.AddItemInput
	lastUpdate     cartsvc.UpdateItemInput
	lastOp         string
}

func (s *stubCartService) record(op, customerID, lineID string) (domain.CartContents, error) {
	s.lastOp = op
	s.lastCustomerID = customerID
	s.lastLineID = lineID
	return s.contents, s.err
}

func (s *stubCartService) Get(_ context.Context, customerID string) (domain.CartContents, error) {
	return s.record("get", customerID, "")
}

func (s *stubCartService) AddItem(_ context.Context, customerID string, in cartsvc.AddItemInput) (domain.CartContents, error) {
	s.lastAdd = in
	return s.record("add", customerID, "")
}

func (s *stubCartService) AddSaved(_ context.Context, customerID string, in cartsvc.AddItemInput) (domain.CartContents, error) {
	s.lastAdd = in
	return s.record("addSaved", customerID, "")
}

func (s *stubCartService) UpdateItem(_ context.Context, customerID, lineID string, in cartsvc.UpdateItemInput) (domain.CartContents, error) {
	s.lastUpdate = in
	return s.record("update", customerID, lineID)
}

func (s *stubCartService) RemoveItem(_ context.Context, customerID, lineID string) (domain.CartContents, error) {
	return s.record("remove", customerID, lineID)
}

func (s *stubCartService) Clear(_ context.Context, customerID string) (domain.CartContents, error) {
	return s.record("clear", customerID, "")
}

func (s *stubCartService) SaveForLater(_ context.Context, customerID, lineID string) (domain.CartContents, error) {
	return s.record("save", customerID, lineID)
}

func (s *stubCartService) MoveToCart(_ context.Context, customerID, savedID string) (domain.CartContents, error) {
	return s.record("move", customerID, savedID)
}

func (s *stubCartService) RemoveSaved(_ context.Context, customerID, savedID string) (domain.CartContents, error) {
	return s.record("removeSaved", customerID, savedID)
}

type stubCouponService struct {
	result     domain.CouponResult
	coupon     domain.Coupon
	err        error
	lastInput  couponsvc.EvaluateInput
	applyCalls int
}

func (s *stubCouponService) Validate(_ context.Context, _ string, in couponsvc.EvaluateInput) (domain.CouponResult, error) {
	s.lastInput = in
	return s.result, s.err
}

func (s *stubCouponService) Apply(_ context.Context, _ string, in couponsvc.EvaluateInput) (domain.CouponResult, error) {
	s.applyCalls++
	s.lastInput = in
	return s.result, s.err
}

func (s *stubCouponService) Lookup(_ context.Context, _ string) (domain.Coupon, error) {
	return s.coupon, s.err
}

type stubWishlistService struct {
	items       []domain.WishlistItem
	lastProduct string
}

func (s *stubWishlistService) List(_ context.Context, _ string) ([]domain.WishlistItem, error) {
	return s.items, nil
}

func (s *stubWishlistService) Add(_ context.Context, _ string, in wishlistsvc.AddInput) ([]domain.WishlistItem, error) {
	s.lastProduct = in.ProductID
	return s.items, nil
}

func (s *stubWishlistService) Remove(_ context.Context, _ string, productID string) ([]domain.WishlistItem, error) {
	s.lastProduct = productID
	return s.items, nil
}

func stubDeps() Deps {
	return Deps{
		CustomerSvc:  &stubCustomerAuthSvc{customer: &domain.Customer{ID: "cust-id", Email: "me@example.com"}},
		ProductSvc:   &stubProductService{},
		InventorySvc: &stubInventoryService{},
		SettingsSvc:  &stubSettingsService{current: domain.Settings{TaxRate: decimal.RequireFromString("0.075")}},
		CartSvc:      &stubCartService{},
		CouponSvc:    &stubCouponService{},
		WishlistSvc:  &stubWishlistService{},
	}
}

func newTestRouter(t *testing.T, deps Deps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router, err := buildRouter(logDiscard(), nil, deps, Options{})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router
}
