package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/werent/review-platform/internal/domain"
)

func newReviewTest(t *testing.T) (*ReviewRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewReviewRepository(sqlxDB), mock, func() { _ = db.Close() }
}

func TestReviewRepository_ProductExists(t *testing.T) {
	repo, mock, cleanup := newReviewTest(t)
	defer cleanup()

	productID := uuid.New()

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM products WHERE id = \$1\)`).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.ProductExists(context.Background(), productID)

	assert.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Create_MediaKeepUploadOrder(t *testing.T) {
	repo, mock, cleanup := newReviewTest(t)
	defer cleanup()

	rev := &domain.Review{
		ProductID: uuid.New(),
		UserID:    uuid.New(),
		Rating:    5,
		Content:   "Great product, fits perfectly!",
	}
	media := []*domain.Media{
		{Type: domain.MediaPhoto, URL: "http://cdn/first.jpg", DeleteHandle: "first"},
		{Type: domain.MediaVideo, URL: "http://cdn/second.mp4", DeleteHandle: "second"},
	}

	reviewID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM products WHERE id = \$1 FOR UPDATE`).
		WithArgs(rev.ProductID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(rev.ProductID.String()))
	mock.ExpectQuery("INSERT INTO reviews").
		WithArgs(rev.ProductID, rev.UserID, 5, rev.Content, nil, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(reviewID.String(), time.Now()))
	mock.ExpectQuery("INSERT INTO review_media").
		WithArgs(reviewID, string(domain.MediaPhoto), media[0].URL, "first", 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectQuery("INSERT INTO review_media").
		WithArgs(reviewID, string(domain.MediaVideo), media[1].URL, "second", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectExec("UPDATE products").
		WithArgs(rev.ProductID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT id, name, avatar_url FROM users").
		WithArgs(rev.UserID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "avatar_url"}).AddRow(rev.UserID.String(), "Alice", nil))

	err := repo.Create(context.Background(), rev, media)

	assert.NoError(t, err)
	require.Len(t, rev.Media, 2)
	assert.Equal(t, "first", rev.Media[0].DeleteHandle)
	assert.Equal(t, "second", rev.Media[1].DeleteHandle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetByID_MediaOrderedByPosition(t *testing.T) {
	repo, mock, cleanup := newReviewTest(t)
	defer cleanup()

	reviewID := uuid.New()
	userID := uuid.New()

	reviewColumns := []string{
		"id", "product_id", "user_id", "rating", "content", "waist", "bust", "hips", "fit",
		"created_at", "edited_at", "helpful_count", "author_name", "author_avatar_url",
	}
	mock.ExpectQuery("FROM reviews r").
		WithArgs(reviewID).
		WillReturnRows(sqlmock.NewRows(reviewColumns).AddRow(
			reviewID.String(), uuid.New().String(), userID.String(), 4, "Fits like a glove.",
			nil, nil, nil, nil, time.Now(), nil, 0, "Alice", nil,
		))
	mock.ExpectQuery(`FROM review_media(.|\n)+ORDER BY position`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "review_id", "type", "url", "delete_handle"}).
			AddRow(uuid.New().String(), reviewID.String(), "PHOTO", "http://cdn/first.jpg", "first").
			AddRow(uuid.New().String(), reviewID.String(), "VIDEO", "http://cdn/second.mp4", "second"))

	rev, err := repo.GetByID(context.Background(), reviewID)

	require.NoError(t, err)
	require.Len(t, rev.Media, 2)
	assert.Equal(t, "first", rev.Media[0].DeleteHandle)
	assert.Equal(t, "second", rev.Media[1].DeleteHandle)
	assert.NoError(t, mock.ExpectationsWereMet())
}
