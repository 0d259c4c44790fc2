package wishlist

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain"
)

type memoryRepo struct {
	items map[string][]string
}

func (r *memoryRepo) List(_ context.Context, customerID string) ([]domain.WishlistItem, error) {
	out := []domain.WishlistItem{}
	for _, id := range r.items[customerID] {
		out = append(out, domain.WishlistItem{ProductID: id})
	}
	return out, nil
}

func (r *memoryRepo) Add(_ context.Context, customerID, productID string) error {
	for _, id := range r.items[customerID] {
		if id == productID {
			return nil
		}
	}
	r.items[customerID] = append(r.items[customerID], productID)
	return nil
}

func (r *memoryRepo) Remove(_ context.Context, customerID, productID string) error {
	kept := r.items[customerID][:0]
	for _, id := range r.items[customerID] {
		if id != productID {
			kept = append(kept, id)
		}
	}
	r.items[customerID] = kept
	return nil
}

type stubProducts struct {
	known map[string]bool
}

func (s *stubProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	if !s.known[id] {
		return nil, domain.ErrNotFound
	}
	return &domain.Product{ID: id}, nil
}

func TestAddAndRemove(t *testing.T) {
	svc := New(&memoryRepo{items: map[string][]string{}}, &stubProducts{known: map[string]bool{"p1": true}})
	ctx := context.Background()

	items, err := svc.Add(ctx, "c1", AddInput{ProductID: " p1 "})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	items, _ = svc.Add(ctx, "c1", AddInput{ProductID: "p1"})
	if len(items) != 1 || items[0].ProductID != "p1" {
		t.Fatalf("expected single wishlist entry, got %+v", items)
	}

	items, err = svc.Remove(ctx, "c1", "p1")
	if err != nil || len(items) != 0 {
		t.Fatalf("expected empty wishlist, got %+v %v", items, err)
	}
	if _, err := svc.Remove(ctx, "c1", "p1"); err != nil {
		t.Fatalf("second remove should be a no-op, got %v", err)
	}
}

func TestAdd_Rejects(t *testing.T) {
	svc := New(&memoryRepo{items: map[string][]string{}}, &stubProducts{known: map[string]bool{}})
	if _, err := svc.Add(context.Background(), "c1", AddInput{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := svc.Add(context.Background(), "c1", AddInput{ProductID: "ghost"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
