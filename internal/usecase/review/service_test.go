package review

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/werent/review-platform/internal/domain"
	"github.com/werent/review-platform/internal/pkg/logger"
	"github.com/werent/review-platform/internal/repository/cache"
)

// MockReviewRepository is a mock implementation of domain.ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) ProductExists(ctx context.Context, productID uuid.UUID) (bool, error) {
	args := m.Called(ctx, productID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReviewRepository) Create(ctx context.Context, review *domain.Review, media []*domain.Media) error {
	args := m.Called(ctx, review, media)
	return args.Error(0)
}

func (m *MockReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID, q domain.ReviewQuery) ([]*domain.Review, int, error) {
	args := m.Called(ctx, productID, q)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Review), args.Int(1), args.Error(2)
}

func (m *MockReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockHelpfulRepository is a mock implementation of domain.HelpfulRepository
type MockHelpfulRepository struct {
	mock.Mock
}

func (m *MockHelpfulRepository) Toggle(ctx context.Context, reviewID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, reviewID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockHelpfulRepository) Delete(ctx context.Context, reviewID, userID uuid.UUID) error {
	args := m.Called(ctx, reviewID, userID)
	return args.Error(0)
}

func (m *MockHelpfulRepository) Count(ctx context.Context, reviewID uuid.UUID) (int, error) {
	args := m.Called(ctx, reviewID)
	return args.Int(0), args.Error(1)
}

// MockMediaStore is a mock implementation of domain.MediaStore
type MockMediaStore struct {
	mock.Mock
}

func (m *MockMediaStore) Store(ctx context.Context, blob domain.MediaBlob) (*domain.StoredMedia, error) {
	args := m.Called(ctx, blob)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StoredMedia), args.Error(1)
}

func (m *MockMediaStore) Delete(ctx context.Context, deleteHandle string) error {
	args := m.Called(ctx, deleteHandle)
	return args.Error(0)
}

// MockReviewCache is a mock implementation of ReviewCache
type MockReviewCache struct {
	mock.Mock
}

func (m *MockReviewCache) GetReviewsPage(ctx context.Context, productID uuid.UUID, q domain.ReviewQuery) (*cache.ReviewPage, error) {
	args := m.Called(ctx, productID, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cache.ReviewPage), args.Error(1)
}

func (m *MockReviewCache) SetReviewsPage(ctx context.Context, productID uuid.UUID, q domain.ReviewQuery, page *cache.ReviewPage) error {
	args := m.Called(ctx, productID, q, page)
	return args.Error(0)
}

func (m *MockReviewCache) InvalidateProduct(ctx context.Context, productID uuid.UUID) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

type serviceMocks struct {
	repo      *MockReviewRepository
	helpful   *MockHelpfulRepository
	media     *MockMediaStore
	cache     *MockReviewCache
	publisher *MockEventPublisher
}

func newTestService() (*Service, *serviceMocks) {
	m := &serviceMocks{
		repo:      new(MockReviewRepository),
		helpful:   new(MockHelpfulRepository),
		media:     new(MockMediaStore),
		cache:     new(MockReviewCache),
		publisher: new(MockEventPublisher),
	}
	svc := NewService(m.repo, m.helpful, m.media, m.cache, m.publisher, logger.New("test"))
	return svc, m
}

func validReview() *domain.Review {
	return &domain.Review{
		ProductID: uuid.New(),
		UserID:    uuid.New(),
		Rating:    5,
		Content:   "Great product, fits perfectly!",
	}
}

func TestService_Create_Success(t *testing.T) {
	svc, m := newTestService()

	review := validReview()

	m.repo.On("ProductExists", mock.Anything, review.ProductID).Return(true, nil)
	m.repo.On("Create", mock.Anything, review, mock.Anything).Return(nil)
	m.cache.On("InvalidateProduct", mock.Anything, review.ProductID).Return(nil)
	m.publisher.On("Publish", mock.Anything, "reviews.events", mock.Anything).Return(nil).Maybe()

	created, err := svc.Create(context.Background(), review, nil)

	assert.NoError(t, err)
	assert.Equal(t, review, created)
	m.repo.AssertExpectations(t)
	m.cache.AssertExpectations(t)
}

func TestService_Create_ContentTooShort(t *testing.T) {
	svc, m := newTestService()

	review := validReview()
	review.Content = "Too short" // 9 characters

	_, err := svc.Create(context.Background(), review, nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	m.repo.AssertNotCalled(t, "Create")
}

func TestService_Create_ContentAtMinLength(t *testing.T) {
	svc, m := newTestService()

	review := validReview()
	review.Content = "Just right" // 10 characters

	m.repo.On("ProductExists", mock.Anything, review.ProductID).Return(true, nil)
	m.repo.On("Create", mock.Anything, review, mock.Anything).Return(nil)
	m.cache.On("InvalidateProduct", mock.Anything, review.ProductID).Return(nil)
	m.publisher.On("Publish", mock.Anything, "reviews.events", mock.Anything).Return(nil).Maybe()

	_, err := svc.Create(context.Background(), review, nil)

	assert.NoError(t, err)
	m.repo.AssertExpectations(t)
}

func TestService_Create_RatingOutOfRange(t *testing.T) {
	svc, m := newTestService()

	for _, rating := range []int{0, 6, -1} {
		review := validReview()
		review.Rating = rating

		_, err := svc.Create(context.Background(), review, nil)

		assert.ErrorIs(t, err, domain.ErrInvalidInput, "rating %d should be rejected", rating)
	}
	m.repo.AssertNotCalled(t, "Create")
}

func TestService_Create_ContentTooLong(t *testing.T) {
	svc, m := newTestService()

	review := validReview()
	review.Content = strings.Repeat("a", 1001)

	_, err := svc.Create(context.Background(), review, nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	m.repo.AssertNotCalled(t, "Create")
}

func TestService_Create_InvalidFit(t *testing.T) {
	svc, m := newTestService()

	review := validReview()
	badFit := domain.FitType("MEDIUM")
	review.Fit = &badFit

	_, err := svc.Create(context.Background(), review, nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	m.repo.AssertNotCalled(t, "Create")
}

func TestService_Create_MeasurementOutOfRange(t *testing.T) {
	svc, m := newTestService()

	review := validReview()
	waist := 49
	review.Waist = &waist

	_, err := svc.Create(context.Background(), review, nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	m.repo.AssertNotCalled(t, "Create")
}

func TestService_Create_WithMedia(t *testing.T) {
	svc, m := newTestService()

	review := validReview()
	blobs := []domain.MediaBlob{
		{Filename: "a.jpg", ContentType: "image/jpeg", Category: domain.CategoryImage},
		{Filename: "b.mp4", ContentType: "video/mp4", Category: domain.CategoryVideo},
	}

	m.media.On("Store", mock.Anything, blobs[0]).
		Return(&domain.StoredMedia{URL: "http://cdn/a.jpg", DeleteHandle: "a"}, nil)
	m.media.On("Store", mock.Anything, blobs[1]).
		Return(&domain.StoredMedia{URL: "http://cdn/b.mp4", DeleteHandle: "b"}, nil)
	m.repo.On("ProductExists", mock.Anything, review.ProductID).Return(true, nil)
	m.repo.On("Create", mock.Anything, review, mock.MatchedBy(func(media []*domain.Media) bool {
		return len(media) == 2 &&
			media[0].Type == domain.MediaPhoto &&
			media[1].Type == domain.MediaVideo
	})).Return(nil)
	m.cache.On("InvalidateProduct", mock.Anything, review.ProductID).Return(nil)
	m.publisher.On("Publish", mock.Anything, "reviews.events", mock.Anything).Return(nil).Maybe()

	_, err := svc.Create(context.Background(), review, blobs)

	assert.NoError(t, err)
	m.media.AssertExpectations(t)
	m.repo.AssertExpectations(t)
}

func TestService_Create_ProductNotFound_SkipsUploads(t *testing.T) {
	svc, m := newTestService()

	review := validReview()
	blobs := []domain.MediaBlob{
		{Filename: "a.jpg", ContentType: "image/jpeg", Category: domain.CategoryImage},
	}

	m.repo.On("ProductExists", mock.Anything, review.ProductID).Return(false, nil)

	_, err := svc.Create(context.Background(), review, blobs)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	m.media.AssertNotCalled(t, "Store")
	m.repo.AssertNotCalled(t, "Create")
}

func TestService_Create_SecondUploadFails_RollsBackFirst(t *testing.T) {
	svc, m := newTestService()

	review := validReview()
	blobs := []domain.MediaBlob{
		{Filename: "a.jpg", ContentType: "image/jpeg", Category: domain.CategoryImage},
		{Filename: "b.jpg", ContentType: "image/jpeg", Category: domain.CategoryImage},
	}

	m.repo.On("ProductExists", mock.Anything, review.ProductID).Return(true, nil)
	m.media.On("Store", mock.Anything, blobs[0]).
		Return(&domain.StoredMedia{URL: "http://cdn/a.jpg", DeleteHandle: "a"}, nil)
	m.media.On("Store", mock.Anything, blobs[1]).
		Return(nil, assert.AnError)
	m.media.On("Delete", mock.Anything, "a").Return(nil)

	_, err := svc.Create(context.Background(), review, blobs)

	assert.ErrorIs(t, err, domain.ErrUpstream)
	m.media.AssertExpectations(t)
	m.repo.AssertNotCalled(t, "Create")
	m.cache.AssertNotCalled(t, "InvalidateProduct")
}

func TestService_Create_RepoFails_RollsBackUploads(t *testing.T) {
	svc, m := newTestService()

	review := validReview()
	blobs := []domain.MediaBlob{
		{Filename: "a.jpg", ContentType: "image/jpeg", Category: domain.CategoryImage},
	}

	m.media.On("Store", mock.Anything, blobs[0]).
		Return(&domain.StoredMedia{URL: "http://cdn/a.jpg", DeleteHandle: "a"}, nil)
	m.repo.On("ProductExists", mock.Anything, review.ProductID).Return(true, nil)
	m.repo.On("Create", mock.Anything, review, mock.Anything).Return(domain.ErrNotFound)
	m.media.On("Delete", mock.Anything, "a").Return(nil)

	_, err := svc.Create(context.Background(), review, blobs)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	m.media.AssertExpectations(t)
}

func TestService_ListByProduct_CacheHit(t *testing.T) {
	svc, m := newTestService()

	productID := uuid.New()
	cached := &cache.ReviewPage{
		Reviews: []*domain.Review{{ID: uuid.New(), Rating: 5}},
		Total:   1,
	}

	m.cache.On("GetReviewsPage", mock.Anything, productID, mock.Anything).Return(cached, nil)

	reviews, total, err := svc.ListByProduct(context.Background(), productID, domain.ReviewQuery{})

	assert.NoError(t, err)
	assert.Equal(t, cached.Reviews, reviews)
	assert.Equal(t, 1, total)
	m.repo.AssertNotCalled(t, "ListByProduct")
}

func TestService_ListByProduct_CacheMiss(t *testing.T) {
	svc, m := newTestService()

	productID := uuid.New()
	reviews := []*domain.Review{{ID: uuid.New(), Rating: 4}}

	m.cache.On("GetReviewsPage", mock.Anything, productID, mock.Anything).Return(nil, assert.AnError)
	m.repo.On("ListByProduct", mock.Anything, productID, mock.Anything).Return(reviews, 1, nil)
	m.cache.On("SetReviewsPage", mock.Anything, productID, mock.Anything, mock.Anything).Return(nil)

	got, total, err := svc.ListByProduct(context.Background(), productID, domain.ReviewQuery{})

	assert.NoError(t, err)
	assert.Equal(t, reviews, got)
	assert.Equal(t, 1, total)
	m.repo.AssertExpectations(t)
	m.cache.AssertExpectations(t)
}

func TestService_ListByProduct_AppliesDefaults(t *testing.T) {
	svc, m := newTestService()

	productID := uuid.New()

	m.cache.On("GetReviewsPage", mock.Anything, productID, mock.Anything).Return(nil, assert.AnError)
	m.repo.On("ListByProduct", mock.Anything, productID, mock.MatchedBy(func(q domain.ReviewQuery) bool {
		return q.Page == 1 && q.Limit == 10 && q.SortBy == domain.ReviewSortNewest
	})).Return([]*domain.Review{}, 0, nil)
	m.cache.On("SetReviewsPage", mock.Anything, productID, mock.Anything, mock.Anything).Return(nil)

	_, _, err := svc.ListByProduct(context.Background(), productID, domain.ReviewQuery{})

	assert.NoError(t, err)
	m.repo.AssertExpectations(t)
}

func TestService_ListByProduct_ProductNotFound(t *testing.T) {
	svc, m := newTestService()

	productID := uuid.New()

	m.cache.On("GetReviewsPage", mock.Anything, productID, mock.Anything).Return(nil, assert.AnError)
	m.repo.On("ListByProduct", mock.Anything, productID, mock.Anything).Return(nil, 0, domain.ErrNotFound)

	_, _, err := svc.ListByProduct(context.Background(), productID, domain.ReviewQuery{})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_Delete_Success(t *testing.T) {
	svc, m := newTestService()

	review := validReview()
	review.ID = uuid.New()
	review.Media = []*domain.Media{{DeleteHandle: "blob-key"}}

	m.repo.On("GetByID", mock.Anything, review.ID).Return(review, nil)
	m.repo.On("Delete", mock.Anything, review.ID).Return(nil)
	m.media.On("Delete", mock.Anything, "blob-key").Return(nil)
	m.cache.On("InvalidateProduct", mock.Anything, review.ProductID).Return(nil)
	m.publisher.On("Publish", mock.Anything, "reviews.events", mock.Anything).Return(nil).Maybe()

	err := svc.Delete(context.Background(), review.ID)

	assert.NoError(t, err)
	m.repo.AssertExpectations(t)
	m.media.AssertExpectations(t)
}

func TestService_Delete_NotFound(t *testing.T) {
	svc, m := newTestService()

	id := uuid.New()
	m.repo.On("GetByID", mock.Anything, id).Return(nil, domain.ErrNotFound)

	err := svc.Delete(context.Background(), id)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	m.repo.AssertNotCalled(t, "Delete")
}

func TestService_ToggleHelpful_Alternates(t *testing.T) {
	svc, m := newTestService()

	review := validReview()
	review.ID = uuid.New()
	userID := uuid.New()

	m.repo.On("GetByID", mock.Anything, review.ID).Return(review, nil)
	m.cache.On("InvalidateProduct", mock.Anything, review.ProductID).Return(nil)

	// First toggle marks
	m.helpful.On("Toggle", mock.Anything, review.ID, userID).Return(true, nil).Once()
	m.helpful.On("Count", mock.Anything, review.ID).Return(1, nil).Once()

	result, err := svc.ToggleHelpful(context.Background(), review.ID, userID)
	assert.NoError(t, err)
	assert.True(t, result.IsHelpful)
	assert.Equal(t, 1, result.HelpfulCount)

	// Second toggle unmarks
	m.helpful.On("Toggle", mock.Anything, review.ID, userID).Return(false, nil).Once()
	m.helpful.On("Count", mock.Anything, review.ID).Return(0, nil).Once()

	result, err = svc.ToggleHelpful(context.Background(), review.ID, userID)
	assert.NoError(t, err)
	assert.False(t, result.IsHelpful)
	assert.Equal(t, 0, result.HelpfulCount)

	m.helpful.AssertExpectations(t)
}

func TestService_ToggleHelpful_ReviewNotFound(t *testing.T) {
	svc, m := newTestService()

	reviewID := uuid.New()
	m.repo.On("GetByID", mock.Anything, reviewID).Return(nil, domain.ErrNotFound)

	_, err := svc.ToggleHelpful(context.Background(), reviewID, uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
	m.helpful.AssertNotCalled(t, "Toggle")
}

func TestService_DeleteHelpful_Success(t *testing.T) {
	svc, m := newTestService()

	review := validReview()
	review.ID = uuid.New()
	userID := uuid.New()

	m.repo.On("GetByID", mock.Anything, review.ID).Return(review, nil)
	m.helpful.On("Delete", mock.Anything, review.ID, userID).Return(nil)
	m.helpful.On("Count", mock.Anything, review.ID).Return(2, nil)
	m.cache.On("InvalidateProduct", mock.Anything, review.ProductID).Return(nil)

	result, err := svc.DeleteHelpful(context.Background(), review.ID, userID)

	assert.NoError(t, err)
	assert.False(t, result.IsHelpful)
	assert.Equal(t, 2, result.HelpfulCount)
}

func TestService_DeleteHelpful_MarkNotFound(t *testing.T) {
	svc, m := newTestService()

	review := validReview()
	review.ID = uuid.New()
	userID := uuid.New()

	m.repo.On("GetByID", mock.Anything, review.ID).Return(review, nil)
	m.helpful.On("Delete", mock.Anything, review.ID, userID).Return(domain.ErrNotFound)

	_, err := svc.DeleteHelpful(context.Background(), review.ID, userID)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	m.helpful.AssertNotCalled(t, "Count")
}

func TestService_HelpfulCount(t *testing.T) {
	svc, m := newTestService()

	review := validReview()
	review.ID = uuid.New()

	m.repo.On("GetByID", mock.Anything, review.ID).Return(review, nil)
	m.helpful.On("Count", mock.Anything, review.ID).Return(7, nil)

	count, err := svc.HelpfulCount(context.Background(), review.ID)

	assert.NoError(t, err)
	assert.Equal(t, 7, count)
}
