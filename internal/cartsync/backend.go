package cartsync

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/localstore"
)

// CartBackend is where cart mutations are persisted. Every call returns the
// canonical item list after the mutation. Operations on an unknown line id
// are no-ops that return the current contents.
type CartBackend interface {
	Load(ctx context.Context) (domain.CartContents, error)
	Add(ctx context.Context, productID string, quantity int, size, color string) (domain.CartContents, error)
	Update(ctx context.Context, id string, quantity int, size, color *string) (domain.CartContents, error)
	Remove(ctx context.Context, id string) (domain.CartContents, error)
	Clear(ctx context.Context) (domain.CartContents, error)
	SaveForLater(ctx context.Context, id string) (domain.CartContents, error)
	MoveToCart(ctx context.Context, id string) (domain.CartContents, error)
	RemoveSaved(ctx context.Context, id string) (domain.CartContents, error)
}

// CartAPI is the authenticated cart surface of the storefront API.
type CartAPI interface {
	GetCart(ctx context.Context) (domain.CartContents, error)
	AddItem(ctx context.Context, productID string, quantity int, size, color string) (domain.CartContents, error)
	UpdateItem(ctx context.Context, id string, quantity int, size, color *string) (domain.CartContents, error)
	RemoveItem(ctx context.Context, id string) (domain.CartContents, error)
	ClearCart(ctx context.Context) (domain.CartContents, error)
	SaveForLater(ctx context.Context, id string) (domain.CartContents, error)
	MoveToCart(ctx context.Context, id string) (domain.CartContents, error)
	RemoveSaved(ctx context.Context, id string) (domain.CartContents, error)
}

// ProductSource supplies the price snapshot for lines created offline.
type ProductSource interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type remoteBackend struct {
	api CartAPI
}

// NewRemoteBackend persists the cart through the API.
func NewRemoteBackend(api CartAPI) CartBackend {
	return &remoteBackend{api: api}
}

func (r *remoteBackend) Load(ctx context.Context) (domain.CartContents, error) {
	return r.api.GetCart(ctx)
}

func (r *remoteBackend) Add(ctx context.Context, productID string, quantity int, size, color string) (domain.CartContents, error) {
	return r.api.AddItem(ctx, productID, quantity, size, color)
}

func (r *remoteBackend) Update(ctx context.Context, id string, quantity int, size, color *string) (domain.CartContents, error) {
	return r.orReload(ctx)(r.api.UpdateItem(ctx, id, quantity, size, color))
}

func (r *remoteBackend) Remove(ctx context.Context, id string) (domain.CartContents, error) {
	return r.orReload(ctx)(r.api.RemoveItem(ctx, id))
}

func (r *remoteBackend) Clear(ctx context.Context) (domain.CartContents, error) {
	return r.api.ClearCart(ctx)
}

func (r *remoteBackend) SaveForLater(ctx context.Context, id string) (domain.CartContents, error) {
	return r.orReload(ctx)(r.api.SaveForLater(ctx, id))
}

func (r *remoteBackend) MoveToCart(ctx context.Context, id string) (domain.CartContents, error) {
	return r.orReload(ctx)(r.api.MoveToCart(ctx, id))
}

func (r *remoteBackend) RemoveSaved(ctx context.Context, id string) (domain.CartContents, error) {
	return r.orReload(ctx)(r.api.RemoveSaved(ctx, id))
}

// orReload turns a not-found answer into a fresh read of the cart.
func (r *remoteBackend) orReload(ctx context.Context) func(domain.CartContents, error) (domain.CartContents, error) {
	return func(contents domain.CartContents, err error) (domain.CartContents, error) {
		if errors.Is(err, domain.ErrNotFound) {
			return r.api.GetCart(ctx)
		}
		return contents, err
	}
}

type localBackend struct {
	store    *localstore.Store
	products ProductSource
}

// NewLocalBackend persists the cart in the local store. Prices are
// snapshotted from products when a line is first added.
func NewLocalBackend(store *localstore.Store, products ProductSource) CartBackend {
	return &localBackend{store: store, products: products}
}

func (l *localBackend) Load(ctx context.Context) (domain.CartContents, error) {
	items, err := l.store.Cart().GetItems(ctx)
	if err != nil {
		return domain.CartContents{}, err
	}
	saved, err := l.store.Saved().GetItems(ctx)
	if err != nil {
		return domain.CartContents{}, err
	}
	return domain.CartContents{Items: items, SavedItems: saved}, nil
}

func (l *localBackend) Add(ctx context.Context, productID string, quantity int, size, color string) (domain.CartContents, error) {
	if l.products == nil {
		return domain.CartContents{}, errors.New("product source unavailable")
	}
	product, err := l.products.GetProduct(ctx, strings.TrimSpace(productID))
	if err != nil {
		return domain.CartContents{}, err
	}
	item := domain.CartLineItem{
		ProductID:           product.ID,
		Quantity:            quantity,
		Size:                size,
		Color:               color,
		UnitPrice:           product.Price,
		DiscountedUnitPrice: product.DiscountedPrice,
		Name:                product.Name,
		IsLocalOnly:         true,
		AddedAt:             time.Now().UTC(),
	}
	if _, err := l.store.Cart().AddItem(ctx, item); err != nil {
		return domain.CartContents{}, err
	}
	return l.Load(ctx)
}

func (l *localBackend) Update(ctx context.Context, id string, quantity int, size, color *string) (domain.CartContents, error) {
	if _, err := l.store.Cart().UpdateItem(ctx, id, quantity, size, color); err != nil {
		return domain.CartContents{}, err
	}
	return l.Load(ctx)
}

func (l *localBackend) Remove(ctx context.Context, id string) (domain.CartContents, error) {
	if _, _, err := l.store.Cart().RemoveItem(ctx, id); err != nil {
		return domain.CartContents{}, err
	}
	return l.Load(ctx)
}

func (l *localBackend) Clear(ctx context.Context) (domain.CartContents, error) {
	if err := l.store.Cart().Clear(ctx); err != nil {
		return domain.CartContents{}, err
	}
	return l.Load(ctx)
}

func (l *localBackend) SaveForLater(ctx context.Context, id string) (domain.CartContents, error) {
	return l.move(ctx, l.store.Cart(), l.store.Saved(), id)
}

func (l *localBackend) MoveToCart(ctx context.Context, id string) (domain.CartContents, error) {
	return l.move(ctx, l.store.Saved(), l.store.Cart(), id)
}

func (l *localBackend) RemoveSaved(ctx context.Context, id string) (domain.CartContents, error) {
	if _, _, err := l.store.Saved().RemoveItem(ctx, id); err != nil {
		return domain.CartContents{}, err
	}
	return l.Load(ctx)
}

func (l *localBackend) move(ctx context.Context, from, to *localstore.List, id string) (domain.CartContents, error) {
	line, ok, err := from.RemoveItem(ctx, id)
	if err != nil {
		return domain.CartContents{}, err
	}
	if ok {
		if _, err := to.AddItem(ctx, line); err != nil {
			return domain.CartContents{}, err
		}
	}
	return l.Load(ctx)
}
