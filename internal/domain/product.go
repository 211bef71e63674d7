package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product represents a product in the catalog. OverallRating and TotalReviews
// are derived from the product's review set and are only written by the
// aggregate recompute path.
type Product struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	Name          string         `json:"name" db:"name" validate:"required,min=1,max=255"`
	Description   *string        `json:"description,omitempty" db:"description"`
	ImageURL      *string        `json:"image_url,omitempty" db:"image_url"`
	Price         float64        `json:"price" db:"price" validate:"gte=0"`
	Sizes         pq.StringArray `json:"sizes" db:"sizes"`
	OverallRating float64        `json:"overall_rating" db:"overall_rating"`
	TotalReviews  int            `json:"total_reviews" db:"total_reviews"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// ProductSort is a catalog sort key.
type ProductSort string

const (
	ProductSortName      ProductSort = "name"
	ProductSortPrice     ProductSort = "price"
	ProductSortCreatedAt ProductSort = "createdAt"
)

// ProductQuery is the canonical catalog listing query.
type ProductQuery struct {
	Page      int
	Limit     int
	Search    string
	SortBy    ProductSort
	SortDesc  bool
}

// FitDistribution counts reviews per fit bucket. Reviews without a fit value
// contribute to no bucket.
type FitDistribution struct {
	Small int `json:"small"`
	True  int `json:"true"`
	Large int `json:"large"`
}

// ReviewSummary is the product-level aggregate plus the fit distribution.
type ReviewSummary struct {
	OverallRating   float64         `json:"overallRating"`
	TotalReviews    int             `json:"totalReviews"`
	FitDistribution FitDistribution `json:"fitDistribution"`
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	// Create creates a new product
	Create(ctx context.Context, product *Product) error

	// GetByID retrieves a product by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// List retrieves products matching the query plus the total match count
	List(ctx context.Context, q ProductQuery) ([]*Product, int, error)

	// RecomputeAggregate re-derives overall_rating and total_reviews from the
	// product's current review set
	RecomputeAggregate(ctx context.Context, id uuid.UUID) error

	// Summary returns the stored aggregate and the fit distribution
	Summary(ctx context.Context, id uuid.UUID) (*ReviewSummary, error)
}
