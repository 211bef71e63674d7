//go:build integration
// +build integration

package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/werent/review-platform/internal/config"
	"github.com/werent/review-platform/internal/domain"
	"github.com/werent/review-platform/internal/pkg/database"
	"github.com/werent/review-platform/internal/pkg/logger"
	"github.com/werent/review-platform/internal/repository/postgres"
	"github.com/werent/review-platform/internal/worker"
)

func strPtr(s string) *string {
	return &s
}

// TestRatingWorker_EndToEnd verifies the worker self-corrects aggregate
// drift: the product row is forced stale, an event is published, and the
// worker recomputes both the rating and the review count from the reviews
// table.
func TestRatingWorker_EndToEnd(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	log := logger.New(cfg.Env)

	db, err := database.WaitForDB(cfg, 5, 2*time.Second)
	require.NoError(t, err)
	defer db.Close()

	nc, err := nats.Connect(cfg.NATS.URL)
	require.NoError(t, err)
	defer nc.Close()

	calculator := worker.NewCalculator(db, log)
	ratingWorker := worker.NewRatingWorker(calculator, log)

	_, err = nc.Subscribe("reviews.events", func(msg *nats.Msg) {
		_ = ratingWorker.HandleEvent(msg.Data)
	})
	require.NoError(t, err)

	productRepo := postgres.NewProductRepository(db)
	reviewRepo := postgres.NewReviewRepository(db)

	ctx := context.Background()

	userID := uuid.New()
	_, err = db.Exec(
		`INSERT INTO users (id, email, name, api_token) VALUES ($1, $2, $3, $4)`,
		userID, userID.String()+"@example.com", "Worker Test User", uuid.NewString(),
	)
	require.NoError(t, err)

	product := &domain.Product{
		ID:          uuid.New(),
		Name:        "Worker Test Product",
		Description: strPtr("Aggregate recompute target"),
		Price:       99.99,
	}
	err = productRepo.Create(ctx, product)
	require.NoError(t, err)

	defer func() {
		_, _ = db.Exec(`DELETE FROM reviews WHERE product_id = $1`, product.ID)
		_, _ = db.Exec(`DELETE FROM products WHERE id = $1`, product.ID)
		_, _ = db.Exec(`DELETE FROM users WHERE id = $1`, userID)
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = ratingWorker.Shutdown(shutdownCtx)
	}()

	ratings := []int{5, 4, 5, 3, 5} // mean 4.4
	for _, rating := range ratings {
		rev := &domain.Review{
			ProductID: product.ID,
			UserID:    userID,
			Rating:    rating,
			Content:   "Worker integration review.",
		}
		err = reviewRepo.Create(ctx, rev, nil)
		require.NoError(t, err)
	}

	// Force the aggregate stale, then let the worker rebuild it
	_, err = db.Exec(`UPDATE products SET overall_rating = 0, total_reviews = 0 WHERE id = $1`, product.ID)
	require.NoError(t, err)

	event := worker.ReviewEvent{
		EventType: "review.created",
		ProductID: product.ID,
		ReviewID:  uuid.New(),
		Timestamp: time.Now(),
	}
	eventData, _ := json.Marshal(event)
	require.NoError(t, nc.Publish("reviews.events", eventData))

	// Debounce window plus processing time
	time.Sleep(2 * time.Second)

	updated, err := productRepo.GetByID(ctx, product.ID)
	require.NoError(t, err)

	assert.InDelta(t, 4.4, updated.OverallRating, 0.01)
	assert.Equal(t, len(ratings), updated.TotalReviews)
}

// TestRatingWorker_Debounce publishes a burst of events for one product and
// expects a single consistent aggregate afterwards.
func TestRatingWorker_Debounce(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	log := logger.New(cfg.Env)

	db, err := database.WaitForDB(cfg, 5, 2*time.Second)
	require.NoError(t, err)
	defer db.Close()

	nc, err := nats.Connect(cfg.NATS.URL)
	require.NoError(t, err)
	defer nc.Close()

	calculator := worker.NewCalculator(db, log)
	ratingWorker := worker.NewRatingWorker(calculator, log)

	_, err = nc.Subscribe("reviews.events", func(msg *nats.Msg) {
		_ = ratingWorker.HandleEvent(msg.Data)
	})
	require.NoError(t, err)

	productRepo := postgres.NewProductRepository(db)
	reviewRepo := postgres.NewReviewRepository(db)

	ctx := context.Background()

	userID := uuid.New()
	_, err = db.Exec(
		`INSERT INTO users (id, email, name, api_token) VALUES ($1, $2, $3, $4)`,
		userID, userID.String()+"@example.com", "Debounce Test User", uuid.NewString(),
	)
	require.NoError(t, err)

	product := &domain.Product{
		ID:    uuid.New(),
		Name:  "Debounce Test Product",
		Price: 10,
	}
	require.NoError(t, productRepo.Create(ctx, product))

	defer func() {
		_, _ = db.Exec(`DELETE FROM reviews WHERE product_id = $1`, product.ID)
		_, _ = db.Exec(`DELETE FROM products WHERE id = $1`, product.ID)
		_, _ = db.Exec(`DELETE FROM users WHERE id = $1`, userID)
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = ratingWorker.Shutdown(shutdownCtx)
	}()

	rev := &domain.Review{
		ProductID: product.ID,
		UserID:    userID,
		Rating:    4,
		Content:   "Debounce integration review.",
	}
	require.NoError(t, reviewRepo.Create(ctx, rev, nil))

	for i := 0; i < 10; i++ {
		event := worker.ReviewEvent{
			EventType: "review.created",
			ProductID: product.ID,
			ReviewID:  uuid.New(),
			Timestamp: time.Now(),
		}
		eventData, _ := json.Marshal(event)
		require.NoError(t, nc.Publish("reviews.events", eventData))
	}

	time.Sleep(2 * time.Second)

	updated, err := productRepo.GetByID(ctx, product.ID)
	require.NoError(t, err)

	assert.InDelta(t, 4.0, updated.OverallRating, 0.01)
	assert.Equal(t, 1, updated.TotalReviews)
}
