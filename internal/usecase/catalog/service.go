package catalog

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/werent/review-platform/internal/domain"
	"github.com/werent/review-platform/internal/pkg/logger"
	pkgvalidator "github.com/werent/review-platform/internal/pkg/validator"
)

// SummaryCache caches product review summaries.
type SummaryCache interface {
	GetSummary(ctx context.Context, productID uuid.UUID) (*domain.ReviewSummary, error)
	SetSummary(ctx context.Context, productID uuid.UUID, summary *domain.ReviewSummary) error
	InvalidateProduct(ctx context.Context, productID uuid.UUID) error
}

// Service handles catalog business logic
type Service struct {
	repo     domain.ProductRepository
	media    domain.MediaStore
	cache    SummaryCache
	validate *validator.Validate
	logger   *logger.Logger
}

// NewService creates a new catalog service
func NewService(repo domain.ProductRepository, media domain.MediaStore, cache SummaryCache, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		media:    media,
		cache:    cache,
		validate: pkgvalidator.Get(),
		logger:   log,
	}
}

// Create creates a new product, uploading the optional image first. A failed
// upload aborts the creation; a failed insert deletes the uploaded image so
// no orphaned blob remains.
func (s *Service) Create(ctx context.Context, product *domain.Product, image *domain.MediaBlob) error {
	if err := s.validate.Struct(product); err != nil {
		s.logger.Error("Product validation failed", err)
		return domain.ErrInvalidInput
	}

	var stored *domain.StoredMedia
	if image != nil {
		if image.Category != domain.CategoryImage {
			return domain.ErrInvalidInput
		}

		var err error
		stored, err = s.media.Store(ctx, *image)
		if err != nil {
			s.logger.Error("Failed to upload product image", err)
			return domain.ErrUpstream
		}
		product.ImageURL = &stored.URL
	}

	if err := s.repo.Create(ctx, product); err != nil {
		if stored != nil {
			if delErr := s.media.Delete(ctx, stored.DeleteHandle); delErr != nil {
				s.logger.Warnf("Failed to delete orphaned product image %s: %v", stored.DeleteHandle, delErr)
			}
		}
		s.logger.Error("Failed to create product", err)
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	}).Info("Product created successfully")

	return nil
}

// GetByID retrieves a product by ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == domain.ErrNotFound {
			s.logger.Debugf("Product not found: %s", id)
		} else {
			s.logger.Error("Failed to get product", err)
		}
		return nil, err
	}

	return product, nil
}

// List retrieves a page of products matching the query
func (s *Service) List(ctx context.Context, q domain.ProductQuery) ([]*domain.Product, int, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}

	products, total, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list products", err)
		return nil, 0, err
	}

	return products, total, nil
}

// ReviewSummary returns the product aggregate plus the fit distribution,
// served from cache when possible
func (s *Service) ReviewSummary(ctx context.Context, productID uuid.UUID) (*domain.ReviewSummary, error) {
	summary, err := s.cache.GetSummary(ctx, productID)
	if err == nil {
		s.logger.Debugf("Cache hit for product %s summary", productID)
		return summary, nil
	}

	summary, err = s.repo.Summary(ctx, productID)
	if err != nil {
		if err == domain.ErrNotFound {
			s.logger.Debugf("Product not found: %s", productID)
		} else {
			s.logger.Error("Failed to get review summary", err)
		}
		return nil, err
	}

	if err := s.cache.SetSummary(ctx, productID, summary); err != nil {
		s.logger.Warnf("Failed to cache summary for product %s: %v", productID, err)
	}

	return summary, nil
}

// RecomputeAggregate re-derives the product aggregate from its review set
func (s *Service) RecomputeAggregate(ctx context.Context, productID uuid.UUID) error {
	if err := s.repo.RecomputeAggregate(ctx, productID); err != nil {
		s.logger.Error("Failed to recompute product aggregate", err)
		return err
	}

	if err := s.cache.InvalidateProduct(ctx, productID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %s: %v", productID, err)
	}

	return nil
}
