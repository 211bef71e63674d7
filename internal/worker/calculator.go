package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/werent/review-platform/internal/pkg/logger"
)

// Calculator recomputes product review aggregates from database state
type Calculator struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewCalculator creates a new aggregate calculator
func NewCalculator(db *sqlx.DB, logger *logger.Logger) *Calculator {
	return &Calculator{
		db:     db,
		logger: logger,
	}
}

// CalculateAndUpdate recomputes overall rating and review count for a product
// Uses full recalculation for simplicity and self-correction: any drift left
// by a missed event is fixed by the next one
func (c *Calculator) CalculateAndUpdate(ctx context.Context, productID uuid.UUID) error {
	query := `
		UPDATE products
		SET
			overall_rating = COALESCE(
				(SELECT ROUND(AVG(rating)::numeric, 1)
				 FROM reviews
				 WHERE product_id = $1),
				0
			),
			total_reviews = (SELECT COUNT(*) FROM reviews WHERE product_id = $1),
			updated_at = $2
		WHERE id = $1
	`

	result, err := c.db.ExecContext(ctx, query, productID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update product aggregates: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	// Product not found - not an error, just log
	if rowsAffected == 0 {
		c.logger.WithFields(map[string]any{
			"product_id": productID.String(),
		}).Info("Product not found, skipping aggregate update")
		return nil
	}

	c.logger.WithFields(map[string]any{
		"product_id": productID.String(),
	}).Info("Successfully updated product aggregates")

	return nil
}

// GetCurrentRating retrieves the current overall rating for verification (used in tests)
func (c *Calculator) GetCurrentRating(ctx context.Context, productID uuid.UUID) (float64, error) {
	var rating float64
	query := `SELECT overall_rating FROM products WHERE id = $1`

	err := c.db.GetContext(ctx, &rating, query, productID)
	if err != nil {
		return 0, fmt.Errorf("failed to get current rating: %w", err)
	}

	return rating, nil
}
