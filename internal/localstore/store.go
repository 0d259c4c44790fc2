package localstore

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	cartKey     = "cart"
	savedKey    = "savedItems"
	wishlistKey = "wishlist"
)

// Store groups the fixed lists kept for one slot.
type Store struct {
	kv   KV
	slot string
}

func New(kv KV, slot string) *Store {
	slot = strings.TrimSpace(slot)
	if slot == "" {
		slot = "guest"
	}
	return &Store{kv: kv, slot: slot}
}

// Cart is the active item list.
func (s *Store) Cart() *List {
	return &List{kv: s.kv, key: s.slot + ":" + cartKey}
}

// Saved is the saved-for-later list.
func (s *Store) Saved() *List {
	return &List{kv: s.kv, key: s.slot + ":" + savedKey}
}

func (s *Store) Wishlist() *Wishlist {
	return &Wishlist{kv: s.kv, key: s.slot + ":" + wishlistKey}
}

// NewLineID returns a time-ordered id for a line created without a server.
func NewLineID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "local-" + uuid.NewString()
	}
	return "local-" + id.String()
}

// List is an ordered sequence of line items stored under one key. Every
// mutation is a read followed by a single write; concurrent writers to the
// same slot are last-write-wins.
type List struct {
	kv  KV
	key string
}

func (l *List) GetItems(ctx context.Context) ([]domain.CartLineItem, error) {
	raw, ok, err := l.kv.Get(ctx, l.key)
	if err != nil {
		return nil, err
	}
	items := []domain.CartLineItem{}
	if !ok || len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrapf(err, "decode %s", l.key)
	}
	return items, nil
}

func (l *List) SetItems(ctx context.Context, items []domain.CartLineItem) error {
	if items == nil {
		items = []domain.CartLineItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return errors.Wrapf(err, "encode %s", l.key)
	}
	return l.kv.Set(ctx, l.key, raw)
}

// AddItem increments the line with the same (product, size, color) or
// appends item. It returns the resulting line. No quantity cap is applied.
func (l *List) AddItem(ctx context.Context, item domain.CartLineItem) (domain.CartLineItem, error) {
	items, err := l.GetItems(ctx)
	if err != nil {
		return domain.CartLineItem{}, err
	}
	key := item.Key()
	for i := range items {
		if items[i].Key() == key {
			items[i].Quantity += item.Quantity
			merged := items[i]
			return merged, l.SetItems(ctx, items)
		}
	}
	item.ProductID, item.Size, item.Color = key.ProductID, key.Size, key.Color
	if item.ID == "" {
		item.ID = NewLineID()
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}
	items = append(items, item)
	return item, l.SetItems(ctx, items)
}

// UpdateItem sets quantity and, when non-nil, size and color of the line with
// id. A quantity below 1 removes the line. A variant change onto an identity
// already present folds the quantity into that line. ok is false when no line
// has id.
func (l *List) UpdateItem(ctx context.Context, id string, quantity int, size, color *string) (bool, error) {
	items, err := l.GetItems(ctx)
	if err != nil {
		return false, err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return false, nil
	}
	if quantity < 1 {
		return true, l.SetItems(ctx, append(items[:idx], items[idx+1:]...))
	}

	line := items[idx]
	if size != nil {
		line.Size = strings.TrimSpace(*size)
	}
	if color != nil {
		line.Color = strings.TrimSpace(*color)
	}
	line.Quantity = quantity

	for i := range items {
		if i != idx && items[i].Key() == line.Key() {
			items[i].Quantity += quantity
			return true, l.SetItems(ctx, append(items[:idx], items[idx+1:]...))
		}
	}
	items[idx] = line
	return true, l.SetItems(ctx, items)
}

// RemoveItem returns the removed line, if any. Removing an absent id is a
// no-op.
func (l *List) RemoveItem(ctx context.Context, id string) (domain.CartLineItem, bool, error) {
	items, err := l.GetItems(ctx)
	if err != nil {
		return domain.CartLineItem{}, false, err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return domain.CartLineItem{}, false, nil
	}
	removed := items[idx]
	return removed, true, l.SetItems(ctx, append(items[:idx], items[idx+1:]...))
}

func (l *List) Clear(ctx context.Context) error {
	return l.kv.Delete(ctx, l.key)
}

func indexOf(items []domain.CartLineItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// Wishlist is a set of product ids kept in insertion order.
type Wishlist struct {
	kv  KV
	key string
}

func (w *Wishlist) Items(ctx context.Context) ([]domain.WishlistItem, error) {
	raw, ok, err := w.kv.Get(ctx, w.key)
	if err != nil {
		return nil, err
	}
	items := []domain.WishlistItem{}
	if !ok || len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrapf(err, "decode %s", w.key)
	}
	return items, nil
}

func (w *Wishlist) Add(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	items, err := w.Items(ctx)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.ProductID == productID {
			return nil
		}
	}
	return w.set(ctx, append(items, domain.WishlistItem{ProductID: productID, AddedAt: time.Now().UTC()}))
}

func (w *Wishlist) Remove(ctx context.Context, productID string) error {
	items, err := w.Items(ctx)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, it := range items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	return w.set(ctx, kept)
}

func (w *Wishlist) Clear(ctx context.Context) error {
	return w.kv.Delete(ctx, w.key)
}

func (w *Wishlist) set(ctx context.Context, items []domain.WishlistItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return errors.Wrapf(err, "encode %s", w.key)
	}
	return w.kv.Set(ctx, w.key, raw)
}
