package wishlist

import (
	"context"
	"strings"

	"storefront/internal/domain"
)

type repo interface {
	List(ctx context.Context, customerID string) ([]domain.WishlistItem, error)
	Add(ctx context.Context, customerID, productID string) error
	Remove(ctx context.Context, customerID, productID string) error
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type Service struct {
	repo     repo
	products productRepo
}

func New(r repo, products productRepo) *Service {
	return &Service{repo: r, products: products}
}

type AddInput struct {
	ProductID string `json:"productId" validate:"required"`
}

func (s *Service) List(ctx context.Context, customerID string) ([]domain.WishlistItem, error) {
	return s.repo.List(ctx, customerID)
}

func (s *Service) Add(ctx context.Context, customerID string, in AddInput) ([]domain.WishlistItem, error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	if _, err := s.products.GetByID(ctx, in.ProductID); err != nil {
		return nil, err
	}
	if err := s.repo.Add(ctx, customerID, in.ProductID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, customerID)
}

// Remove is a no-op when the product is not in the wishlist.
func (s *Service) Remove(ctx context.Context, customerID, productID string) ([]domain.WishlistItem, error) {
	if err := s.repo.Remove(ctx, customerID, strings.TrimSpace(productID)); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, customerID)
}
