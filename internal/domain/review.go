package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FitType is subjective sizing feedback attached to a review.
type FitType string

const (
	FitSmall FitType = "SMALL"
	FitTrue  FitType = "TRUE"
	FitLarge FitType = "LARGE"
)

// Valid reports whether f is one of the three known fit values.
func (f FitType) Valid() bool {
	switch f {
	case FitSmall, FitTrue, FitLarge:
		return true
	}
	return false
}

// ReviewAuthor is the public identity subset rendered with a review.
type ReviewAuthor struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	AvatarURL *string   `json:"avatarUrl" db:"avatar_url"`
}

// Measurement holds the optional body measurements supplied with a review.
// Each field is independently optional.
type Measurement struct {
	Waist *int `json:"waist" validate:"omitempty,min=50,max=150"`
	Bust  *int `json:"bust" validate:"omitempty,min=60,max=150"`
	Hips  *int `json:"hips" validate:"omitempty,min=60,max=160"`
}

// Review represents a product review. HelpfulCount is computed from the
// helpful ledger on every read, never stored on the review row.
type Review struct {
	ID           uuid.UUID     `json:"id"`
	ProductID    uuid.UUID     `json:"product_id" validate:"required"`
	UserID       uuid.UUID     `json:"-" validate:"required"`
	Rating       int           `json:"rating" validate:"required,min=1,max=5"`
	Content      string        `json:"content" validate:"required,min=10,max=1000"`
	Waist        *int          `json:"-" validate:"omitempty,min=50,max=150"`
	Bust         *int          `json:"-" validate:"omitempty,min=60,max=150"`
	Hips         *int          `json:"-" validate:"omitempty,min=60,max=160"`
	Fit          *FitType      `json:"fit"`
	HelpfulCount int           `json:"helpfulCount"`
	CreatedAt    time.Time     `json:"createdAt"`
	EditedAt     *time.Time    `json:"editedAt"`
	Author       *ReviewAuthor `json:"user,omitempty"`
	Media        []*Media      `json:"media"`
}

// UserMeasurement groups the optional measurements for rendering.
func (r *Review) UserMeasurement() Measurement {
	return Measurement{Waist: r.Waist, Bust: r.Bust, Hips: r.Hips}
}

// ReviewSort is a review ordering key.
type ReviewSort string

const (
	// ReviewSortNewest orders by creation timestamp descending.
	ReviewSortNewest ReviewSort = "newest"

	// ReviewSortHelpful orders by helpful-mark count descending with
	// creation timestamp descending as tie-break.
	ReviewSortHelpful ReviewSort = "helpful"
)

// ReviewQuery is the canonical review listing query produced by the query
// normalization step at the HTTP boundary. Empty Ratings or Fits mean
// unfiltered; all present predicates are combined with AND.
type ReviewQuery struct {
	Page     int
	Limit    int
	Ratings  []int
	Fits     []FitType
	HasMedia bool
	SortBy   ReviewSort
}

// ReviewRepository defines the interface for review data access
type ReviewRepository interface {
	// ProductExists reports whether the product can receive reviews
	ProductExists(ctx context.Context, productID uuid.UUID) (bool, error)

	// Create persists a review together with its media children and
	// recomputes the owning product's aggregate, all in one transaction.
	// Returns ErrNotFound when the product does not exist.
	Create(ctx context.Context, review *Review, media []*Media) error

	// GetByID retrieves a review by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)

	// ListByProduct retrieves a page of reviews for a product (with author,
	// media and helpful counts resolved) plus the total match count.
	// Returns ErrNotFound when the product does not exist.
	ListByProduct(ctx context.Context, productID uuid.UUID, q ReviewQuery) ([]*Review, int, error)

	// Delete removes a review and recomputes the product aggregate
	Delete(ctx context.Context, id uuid.UUID) error
}

// HelpfulRepository owns the set of (review, user) helpful marks.
type HelpfulRepository interface {
	// Toggle atomically creates the mark when absent or removes it when
	// present, reporting the resulting state. Returns ErrNotFound when the
	// review does not exist.
	Toggle(ctx context.Context, reviewID, userID uuid.UUID) (marked bool, err error)

	// Delete unconditionally removes the mark, returning ErrNotFound when
	// no mark exists for the pair
	Delete(ctx context.Context, reviewID, userID uuid.UUID) error

	// Count returns the number of marks referencing the review
	Count(ctx context.Context, reviewID uuid.UUID) (int, error)
}
