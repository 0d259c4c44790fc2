package product

import (
	"context"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/logging"
	productrepo "storefront/internal/repository/product"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service serves the read side of the catalog.
type Service struct {
	repo   productrepo.Repository
	logger *zap.SugaredLogger
}

func New(repo productrepo.Repository, logger *zap.SugaredLogger) *Service {
	return &Service{repo: repo, logger: logging.OrNop(logger)}
}

func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// Get looks a product up by id. Ids that are not UUIDs cannot exist, so they
// are reported as not found without touching the store.
func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		s.logger.Debugw("product service: malformed id", "id", id)
		return nil, domain.ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}
