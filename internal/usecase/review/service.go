package review

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/werent/review-platform/internal/domain"
	"github.com/werent/review-platform/internal/pkg/logger"
	pkgvalidator "github.com/werent/review-platform/internal/pkg/validator"
	"github.com/werent/review-platform/internal/repository/cache"
)

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// ReviewCache caches review listing pages per product.
type ReviewCache interface {
	GetReviewsPage(ctx context.Context, productID uuid.UUID, q domain.ReviewQuery) (*cache.ReviewPage, error)
	SetReviewsPage(ctx context.Context, productID uuid.UUID, q domain.ReviewQuery, page *cache.ReviewPage) error
	InvalidateProduct(ctx context.Context, productID uuid.UUID) error
}

// ReviewEvent represents an event related to a review
type ReviewEvent struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	ProductID uuid.UUID `json:"product_id"`
	ReviewID  uuid.UUID `json:"review_id"`
}

// HelpfulResult reports the outcome of a helpful-ledger mutation.
type HelpfulResult struct {
	IsHelpful    bool `json:"isHelpful"`
	HelpfulCount int  `json:"helpfulCount"`
}

// Service handles review business logic: the query engine, staged media
// creation and the helpful ledger.
type Service struct {
	repo      domain.ReviewRepository
	helpful   domain.HelpfulRepository
	media     domain.MediaStore
	cache     ReviewCache
	publisher EventPublisher
	validate  *validator.Validate
	logger    *logger.Logger
}

// NewService creates a new review service
func NewService(
	repo domain.ReviewRepository,
	helpful domain.HelpfulRepository,
	media domain.MediaStore,
	reviewCache ReviewCache,
	publisher EventPublisher,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		helpful:   helpful,
		media:     media,
		cache:     reviewCache,
		publisher: publisher,
		validate:  pkgvalidator.Get(),
		logger:    log,
	}
}

// Create validates and persists a review. Media blobs are staged into the
// media store before anything is written; if any upload fails, the ones that
// already succeeded are deleted and nothing is persisted. Only after every
// upload succeeds are the review, its media rows and the product aggregate
// committed as one unit.
func (s *Service) Create(ctx context.Context, review *domain.Review, blobs []domain.MediaBlob) (*domain.Review, error) {
	if err := s.validate.Struct(review); err != nil {
		s.logger.Error("Review validation failed", err)
		return nil, domain.ErrInvalidInput
	}
	if review.Fit != nil && !review.Fit.Valid() {
		return nil, domain.ErrInvalidInput
	}
	for _, blob := range blobs {
		if blob.Category != domain.CategoryImage && blob.Category != domain.CategoryVideo {
			return nil, domain.ErrInvalidInput
		}
	}

	// No uploads for a product that is not there. The transactional lookup in
	// repo.Create still covers a product deleted after this check.
	exists, err := s.repo.ProductExists(ctx, review.ProductID)
	if err != nil {
		s.logger.Error("Failed to check product existence", err)
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotFound
	}

	uploaded, err := s.stageUploads(ctx, blobs)
	if err != nil {
		return nil, err
	}

	media := make([]*domain.Media, len(uploaded))
	for i, u := range uploaded {
		mediaType := domain.MediaPhoto
		if blobs[i].Category == domain.CategoryVideo {
			mediaType = domain.MediaVideo
		}
		media[i] = &domain.Media{
			Type:         mediaType,
			URL:          u.URL,
			DeleteHandle: u.DeleteHandle,
		}
	}

	if err := s.repo.Create(ctx, review, media); err != nil {
		s.rollbackUploads(ctx, uploaded)
		if err == domain.ErrNotFound {
			return nil, err
		}
		s.logger.Error("Failed to create review", err)
		return nil, err
	}

	if err := s.cache.InvalidateProduct(ctx, review.ProductID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %s: %v", review.ProductID, err)
	}

	s.publishEvent("review.created", review)

	s.logger.WithFields(map[string]interface{}{
		"review_id":  review.ID,
		"product_id": review.ProductID,
		"rating":     review.Rating,
		"media":      len(media),
	}).Info("Review created successfully")

	return review, nil
}

// stageUploads pushes every blob to the media store, deleting the already
// uploaded ones when any upload fails.
func (s *Service) stageUploads(ctx context.Context, blobs []domain.MediaBlob) ([]*domain.StoredMedia, error) {
	uploaded := make([]*domain.StoredMedia, 0, len(blobs))
	for _, blob := range blobs {
		stored, err := s.media.Store(ctx, blob)
		if err != nil {
			s.logger.Error("Media upload failed, rolling back staged uploads", err)
			s.rollbackUploads(ctx, uploaded)
			return nil, domain.ErrUpstream
		}
		uploaded = append(uploaded, stored)
	}
	return uploaded, nil
}

func (s *Service) rollbackUploads(ctx context.Context, uploaded []*domain.StoredMedia) {
	for _, stored := range uploaded {
		if err := s.media.Delete(ctx, stored.DeleteHandle); err != nil {
			s.logger.Warnf("Failed to delete staged upload %s: %v", stored.DeleteHandle, err)
		}
	}
}

// GetByID retrieves a review by ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == domain.ErrNotFound {
			s.logger.Debugf("Review not found: %s", id)
		} else {
			s.logger.Error("Failed to get review", err)
		}
		return nil, err
	}

	return review, nil
}

// ListByProduct retrieves a filtered, sorted page of reviews with caching
func (s *Service) ListByProduct(ctx context.Context, productID uuid.UUID, q domain.ReviewQuery) ([]*domain.Review, int, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	if q.SortBy == "" {
		q.SortBy = domain.ReviewSortNewest
	}

	if page, err := s.cache.GetReviewsPage(ctx, productID, q); err == nil {
		s.logger.Debugf("Cache hit for product %s reviews (page=%d, limit=%d)", productID, q.Page, q.Limit)
		return page.Reviews, page.Total, nil
	}

	reviews, total, err := s.repo.ListByProduct(ctx, productID, q)
	if err != nil {
		if err == domain.ErrNotFound {
			s.logger.Debugf("Product not found: %s", productID)
		} else {
			s.logger.Error("Failed to list reviews", err)
		}
		return nil, 0, err
	}

	if err := s.cache.SetReviewsPage(ctx, productID, q, &cache.ReviewPage{Reviews: reviews, Total: total}); err != nil {
		s.logger.Warnf("Failed to cache reviews for product %s: %v", productID, err)
	}

	return reviews, total, nil
}

// Delete removes a review, its stored media blobs and refreshes the aggregate
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete review", err)
		return err
	}

	// Media rows are gone with the review; the blobs need explicit cleanup.
	for _, m := range review.Media {
		if err := s.media.Delete(ctx, m.DeleteHandle); err != nil {
			s.logger.Warnf("Failed to delete media blob %s: %v", m.DeleteHandle, err)
		}
	}

	if err := s.cache.InvalidateProduct(ctx, review.ProductID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %s: %v", review.ProductID, err)
	}

	s.publishEvent("review.deleted", review)

	s.logger.WithFields(map[string]interface{}{
		"review_id":  id,
		"product_id": review.ProductID,
	}).Info("Review deleted successfully")

	return nil
}

// ToggleHelpful flips the caller's helpful mark on a review and reports the
// resulting state with the fresh count.
func (s *Service) ToggleHelpful(ctx context.Context, reviewID, userID uuid.UUID) (*HelpfulResult, error) {
	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	marked, err := s.helpful.Toggle(ctx, reviewID, userID)
	if err != nil {
		s.logger.Error("Failed to toggle helpful mark", err)
		return nil, err
	}

	count, err := s.helpful.Count(ctx, reviewID)
	if err != nil {
		s.logger.Error("Failed to count helpful marks", err)
		return nil, err
	}

	// Helpful counts appear in cached listings.
	if err := s.cache.InvalidateProduct(ctx, review.ProductID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %s: %v", review.ProductID, err)
	}

	return &HelpfulResult{IsHelpful: marked, HelpfulCount: count}, nil
}

// DeleteHelpful unconditionally removes the caller's helpful mark, reporting
// not-found when no mark exists for the pair.
func (s *Service) DeleteHelpful(ctx context.Context, reviewID, userID uuid.UUID) (*HelpfulResult, error) {
	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	if err := s.helpful.Delete(ctx, reviewID, userID); err != nil {
		if err == domain.ErrNotFound {
			s.logger.Debugf("Helpful mark not found for review %s", reviewID)
		} else {
			s.logger.Error("Failed to delete helpful mark", err)
		}
		return nil, err
	}

	count, err := s.helpful.Count(ctx, reviewID)
	if err != nil {
		s.logger.Error("Failed to count helpful marks", err)
		return nil, err
	}

	if err := s.cache.InvalidateProduct(ctx, review.ProductID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %s: %v", review.ProductID, err)
	}

	return &HelpfulResult{IsHelpful: false, HelpfulCount: count}, nil
}

// HelpfulCount returns the number of helpful marks on a review
func (s *Service) HelpfulCount(ctx context.Context, reviewID uuid.UUID) (int, error) {
	if _, err := s.repo.GetByID(ctx, reviewID); err != nil {
		return 0, err
	}

	return s.helpful.Count(ctx, reviewID)
}

// publishEvent publishes a review event (non-blocking)
func (s *Service) publishEvent(eventType string, review *domain.Review) {
	event := ReviewEvent{
		EventType: eventType,
		Timestamp: time.Now(),
		ProductID: review.ProductID,
		ReviewID:  review.ID,
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal event for review %s", review.ID)
		return
	}

	// Publish in background to avoid blocking
	go func() {
		if err := s.publisher.Publish(context.Background(), "reviews.events", data); err != nil {
			s.logger.Errorf(err, "Failed to publish event for review %s", review.ID)
		}
	}()
}
