package cart

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/logging"
	cartrepo "storefront/internal/repository/cart"

	"go.uber.org/zap"
)

// Service manages the authenticated customer's server-side cart. Every
// mutation returns the canonical item list.
type Service struct {
	repo        cartRepo
	productRepo productRepo
	logger      *zap.SugaredLogger
}

type cartRepo interface {
	EnsureActive(ctx context.Context, customerID string) (string, error)
	Contents(ctx context.Context, cartID string) (domain.CartContents, error)
	AddLine(ctx context.Context, cartID string, in cartrepo.LineInput, saved bool) error
	UpdateLine(ctx context.Context, cartID, lineID string, quantity int, size, color string) error
	RemoveLine(ctx context.Context, cartID, lineID string) (bool, error)
	Clear(ctx context.Context, cartID string) error
	SetSaved(ctx context.Context, cartID, lineID string, saved bool) error
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

func New(repo cartRepo, productRepo productRepo, logger *zap.SugaredLogger) *Service {
	return &Service{repo: repo, productRepo: productRepo, logger: logging.OrNop(logger)}
}

type AddItemInput struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// UpdateItemInput leaves size or color unchanged when nil.
type UpdateItemInput struct {
	Quantity int     `json:"quantity"`
	Size     *string `json:"size,omitempty"`
	Color    *string `json:"color,omitempty"`
}

func (s *Service) Get(ctx context.Context, customerID string) (domain.CartContents, error) {
	cartID, err := s.repo.EnsureActive(ctx, customerID)
	if err != nil {
		return domain.CartContents{}, err
	}
	return s.repo.Contents(ctx, cartID)
}

// AddItem merges into the line with the same (product, size, color) or
// appends a new one. Prices are snapshotted from the catalog.
func (s *Service) AddItem(ctx context.Context, customerID string, in AddItemInput) (domain.CartContents, error) {
	return s.add(ctx, customerID, in, false)
}

// AddSaved puts an item straight into the saved-for-later list.
func (s *Service) AddSaved(ctx context.Context, customerID string, in AddItemInput) (domain.CartContents, error) {
	return s.add(ctx, customerID, in, true)
}

func (s *Service) add(ctx context.Context, customerID string, in AddItemInput, saved bool) (domain.CartContents, error) {
	key := domain.KeyOf(in.ProductID, in.Size, in.Color)
	in.ProductID = key.ProductID
	if err := domain.Validate(in); err != nil {
		return domain.CartContents{}, err
	}
	if s.productRepo == nil {
		return domain.CartContents{}, errors.New("product repository unavailable")
	}
	product, err := s.productRepo.GetByID(ctx, key.ProductID)
	if err != nil {
		return domain.CartContents{}, err
	}
	cartID, err := s.repo.EnsureActive(ctx, customerID)
	if err != nil {
		return domain.CartContents{}, err
	}
	line := cartrepo.LineInput{
		ProductID:           product.ID,
		Size:                key.Size,
		Color:               key.Color,
		Quantity:            in.Quantity,
		UnitPrice:           product.Price,
		DiscountedUnitPrice: product.DiscountedPrice,
	}
	if err := s.repo.AddLine(ctx, cartID, line, saved); err != nil {
		return domain.CartContents{}, err
	}
	return s.repo.Contents(ctx, cartID)
}

// UpdateItem changes quantity and optionally variant of an active line. A
// quantity below 1 removes the line.
func (s *Service) UpdateItem(ctx context.Context, customerID, lineID string, in UpdateItemInput) (domain.CartContents, error) {
	cartID, err := s.repo.EnsureActive(ctx, customerID)
	if err != nil {
		return domain.CartContents{}, err
	}
	current, err := s.repo.Contents(ctx, cartID)
	if err != nil {
		return domain.CartContents{}, err
	}
	line, ok := findLine(current.Items, lineID)
	if !ok {
		return domain.CartContents{}, domain.ErrNotFound
	}
	size, color := line.Size, line.Color
	if in.Size != nil {
		size = strings.TrimSpace(*in.Size)
	}
	if in.Color != nil {
		color = strings.TrimSpace(*in.Color)
	}
	if err := s.repo.UpdateLine(ctx, cartID, lineID, in.Quantity, size, color); err != nil {
		return domain.CartContents{}, err
	}
	return s.repo.Contents(ctx, cartID)
}

// RemoveItem succeeds whether or not the line still exists.
func (s *Service) RemoveItem(ctx context.Context, customerID, lineID string) (domain.CartContents, error) {
	cartID, err := s.repo.EnsureActive(ctx, customerID)
	if err != nil {
		return domain.CartContents{}, err
	}
	removed, err := s.repo.RemoveLine(ctx, cartID, lineID)
	if err != nil {
		return domain.CartContents{}, err
	}
	if !removed {
		s.logger.Debugf("cart service: remove of absent line id=%s cart_id=%s", lineID, cartID)
	}
	return s.repo.Contents(ctx, cartID)
}

func (s *Service) Clear(ctx context.Context, customerID string) (domain.CartContents, error) {
	cartID, err := s.repo.EnsureActive(ctx, customerID)
	if err != nil {
		return domain.CartContents{}, err
	}
	if err := s.repo.Clear(ctx, cartID); err != nil {
		return domain.CartContents{}, err
	}
	return s.repo.Contents(ctx, cartID)
}

func (s *Service) SaveForLater(ctx context.Context, customerID, lineID string) (domain.CartContents, error) {
	return s.move(ctx, customerID, lineID, true)
}

func (s *Service) MoveToCart(ctx context.Context, customerID, savedID string) (domain.CartContents, error) {
	return s.move(ctx, customerID, savedID, false)
}

func (s *Service) move(ctx context.Context, customerID, lineID string, saved bool) (domain.CartContents, error) {
	cartID, err := s.repo.EnsureActive(ctx, customerID)
	if err != nil {
		return domain.CartContents{}, err
	}
	current, err := s.repo.Contents(ctx, cartID)
	if err != nil {
		return domain.CartContents{}, err
	}
	source := current.Items
	if !saved {
		source = current.SavedItems
	}
	if _, ok := findLine(source, lineID); !ok {
		return domain.CartContents{}, domain.ErrNotFound
	}
	if err := s.repo.SetSaved(ctx, cartID, lineID, saved); err != nil {
		return domain.CartContents{}, err
	}
	return s.repo.Contents(ctx, cartID)
}

// RemoveSaved succeeds whether or not the saved line still exists.
func (s *Service) RemoveSaved(ctx context.Context, customerID, savedID string) (domain.CartContents, error) {
	cartID, err := s.repo.EnsureActive(ctx, customerID)
	if err != nil {
		return domain.CartContents{}, err
	}
	current, err := s.repo.Contents(ctx, cartID)
	if err != nil {
		return domain.CartContents{}, err
	}
	if _, ok := findLine(current.SavedItems, savedID); ok {
		if _, err := s.repo.RemoveLine(ctx, cartID, savedID); err != nil {
			return domain.CartContents{}, err
		}
		return s.repo.Contents(ctx, cartID)
	}
	return current, nil
}

func findLine(items []domain.CartLineItem, id string) (domain.CartLineItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return domain.CartLineItem{}, false
}
