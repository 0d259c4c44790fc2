package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

type LoginResult struct {
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
	TokenType    string           `json:"tokenType"`
	ExpiresIn    int              `json:"expiresIn"`
	Customer     *domain.Customer `json:"customer"`
}

type SignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

func (c *Client) Signup(ctx context.Context, in SignupRequest) (*domain.Customer, error) {
	var out struct {
		Customer *domain.Customer `json:"customer"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", false, in, &out); err != nil {
		return nil, err
	}
	return out.Customer, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", false, body, &out)
	return out, err
}

// Refresh trades a refresh token for a new pair. The old token is spent.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (LoginResult, error) {
	var out LoginResult
	body := map[string]string{"refreshToken": refreshToken}
	err := c.do(ctx, http.MethodPost, "/api/auth/refresh", false, body, &out)
	return out, err
}

// Logout revokes the current access token and refreshToken when non-empty.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	var body interface{}
	if refreshToken != "" {
		body = map[string]string{"refreshToken": refreshToken}
	}
	return c.do(ctx, http.MethodPost, "/api/auth/logout", true, body, nil)
}

func (c *Client) Me(ctx context.Context) (*domain.Customer, error) {
	var out struct {
		Customer *domain.Customer `json:"customer"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/me", true, nil, &out); err != nil {
		return nil, err
	}
	return out.Customer, nil
}

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var out struct {
		Results []domain.Product `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/products", false, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var out domain.Product
	if err := c.do(ctx, http.MethodGet, "/api/products/"+escape(id), false, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CheckInventory(ctx context.Context, productID, size, color string, quantity int) (domain.Availability, error) {
	q := url.Values{}
	q.Set("productId", productID)
	q.Set("quantity", strconv.Itoa(quantity))
	if size != "" {
		q.Set("size", size)
	}
	if color != "" {
		q.Set("color", color)
	}
	var out domain.Availability
	err := c.do(ctx, http.MethodGet, "/api/inventory/check?"+q.Encode(), false, nil, &out)
	return out, err
}

func (c *Client) Settings(ctx context.Context) (domain.Settings, error) {
	var out domain.Settings
	err := c.do(ctx, http.MethodGet, "/api/settings", false, nil, &out)
	return out, err
}

// TaxRate reads the store-wide tax rate.
func (c *Client) TaxRate(ctx context.Context) (decimal.Decimal, error) {
	s, err := c.Settings(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return s.TaxRate, nil
}

func (c *Client) UpdateTaxRate(ctx context.Context, rate decimal.Decimal) (domain.Settings, error) {
	var out domain.Settings
	err := c.do(ctx, http.MethodPut, "/api/settings", true, map[string]decimal.Decimal{"taxRate": rate}, &out)
	return out, err
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

type updateItemRequest struct {
	Quantity int     `json:"quantity"`
	Size     *string `json:"size,omitempty"`
	Color    *string `json:"color,omitempty"`
}

func (c *Client) cart(ctx context.Context, method, path string, body interface{}) (domain.CartContents, error) {
	var out domain.CartContents
	if err := c.do(ctx, method, "/api/cart"+path, true, body, &out); err != nil {
		return domain.CartContents{}, err
	}
	return out.Normalize(), nil
}

func (c *Client) GetCart(ctx context.Context) (domain.CartContents, error) {
	return c.cart(ctx, http.MethodGet, "", nil)
}

func (c *Client) AddItem(ctx context.Context, productID string, quantity int, size, color string) (domain.CartContents, error) {
	return c.cart(ctx, http.MethodPost, "/items", addItemRequest{productID, quantity, size, color})
}

func (c *Client) AddSaved(ctx context.Context, productID string, quantity int, size, color string) (domain.CartContents, error) {
	return c.cart(ctx, http.MethodPost, "/saved", addItemRequest{productID, quantity, size, color})
}

func (c *Client) UpdateItem(ctx context.Context, id string, quantity int, size, color *string) (domain.CartContents, error) {
	return c.cart(ctx, http.MethodPut, "/items/"+escape(id), updateItemRequest{quantity, size, color})
}

func (c *Client) RemoveItem(ctx context.Context, id string) (domain.CartContents, error) {
	return c.cart(ctx, http.MethodDelete, "/items/"+escape(id), nil)
}

func (c *Client) ClearCart(ctx context.Context) (domain.CartContents, error) {
	return c.cart(ctx, http.MethodDelete, "", nil)
}

func (c *Client) SaveForLater(ctx context.Context, id string) (domain.CartContents, error) {
	return c.cart(ctx, http.MethodPost, "/items/"+escape(id)+"/save", nil)
}

func (c *Client) MoveToCart(ctx context.Context, id string) (domain.CartContents, error) {
	return c.cart(ctx, http.MethodPost, "/saved/"+escape(id)+"/move", nil)
}

func (c *Client) RemoveSaved(ctx context.Context, id string) (domain.CartContents, error) {
	return c.cart(ctx, http.MethodDelete, "/saved/"+escape(id), nil)
}

type couponRequest struct {
	Code         string          `json:"code"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
}

func (c *Client) ValidateCoupon(ctx context.Context, code string, subtotal, shipping decimal.Decimal) (domain.CouponResult, error) {
	var out domain.CouponResult
	err := c.do(ctx, http.MethodPost, "/api/coupons/validate", true, couponRequest{code, subtotal, shipping}, &out)
	return out, err
}

func (c *Client) ApplyCoupon(ctx context.Context, code string, subtotal, shipping decimal.Decimal) (domain.CouponResult, error) {
	var out domain.CouponResult
	err := c.do(ctx, http.MethodPost, "/api/coupons/apply", true, couponRequest{code, subtotal, shipping}, &out)
	return out, err
}

// PublicCoupon fetches a coupon's rules without authentication.
func (c *Client) PublicCoupon(ctx context.Context, code string) (domain.Coupon, error) {
	var out domain.Coupon
	err := c.do(ctx, http.MethodGet, "/api/coupons/public/"+escape(code), false, nil, &out)
	return out, err
}

func (c *Client) Wishlist(ctx context.Context) ([]domain.WishlistItem, error) {
	var out struct {
		Items []domain.WishlistItem `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/wishlist", true, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) AddWishlist(ctx context.Context, productID string) ([]domain.WishlistItem, error) {
	var out struct {
		Items []domain.WishlistItem `json:"items"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/wishlist/items", true, map[string]string{"productId": productID}, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) RemoveWishlist(ctx context.Context, productID string) ([]domain.WishlistItem, error) {
	var out struct {
		Items []domain.WishlistItem `json:"items"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/wishlist/items/"+escape(productID), true, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}
