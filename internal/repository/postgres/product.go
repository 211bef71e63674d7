package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/werent/review-platform/internal/domain"
)

// ProductRepository implements domain.ProductRepository for PostgreSQL
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new PostgreSQL product repository
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create creates a new product
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (name, description, image_url, price, sizes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, overall_rating, total_reviews, created_at, updated_at
	`

	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	err := r.db.QueryRowxContext(
		ctx,
		query,
		product.Name,
		product.Description,
		product.ImageURL,
		product.Price,
		product.Sizes,
		product.CreatedAt,
		product.UpdatedAt,
	).Scan(
		&product.ID,
		&product.OverallRating,
		&product.TotalReviews,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return err
	}

	return nil
}

// GetByID retrieves a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT id, name, description, image_url, price, sizes, overall_rating, total_reviews, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var product domain.Product
	err := r.db.GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &product, nil
}

// productOrderColumns whitelists catalog sort keys against their columns.
var productOrderColumns = map[domain.ProductSort]string{
	domain.ProductSortName:      "name",
	domain.ProductSortPrice:     "price",
	domain.ProductSortCreatedAt: "created_at",
}

// List retrieves products matching the query plus the total match count
func (r *ProductRepository) List(ctx context.Context, q domain.ProductQuery) ([]*domain.Product, int, error) {
	where := ""
	args := []interface{}{}
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		where = fmt.Sprintf("WHERE name ILIKE $%d", len(args))
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM products %s`, where)

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	column, ok := productOrderColumns[q.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if q.SortDesc {
		direction = "DESC"
	}

	args = append(args, q.Limit, (q.Page-1)*q.Limit)
	query := fmt.Sprintf(`
		SELECT id, name, description, image_url, price, sizes, overall_rating, total_reviews, created_at, updated_at
		FROM products
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, where, column, direction, len(args)-1, len(args))

	var products []*domain.Product
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// RecomputeAggregate re-derives overall_rating and total_reviews from the
// product's current review set. Idempotent: repeated calls with no review
// change produce the same stored values.
func (r *ProductRepository) RecomputeAggregate(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, recomputeAggregateQuery, id, time.Now())
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// recomputeAggregateQuery is shared with the review repository so that review
// mutations can refresh the aggregate inside their own transaction.
const recomputeAggregateQuery = `
	UPDATE products
	SET
		total_reviews = (SELECT COUNT(*) FROM reviews WHERE product_id = $1),
		overall_rating = COALESCE(
			(SELECT ROUND(AVG(rating)::numeric, 1) FROM reviews WHERE product_id = $1),
			0
		),
		updated_at = $2
	WHERE id = $1
`

// Summary returns the stored aggregate and the fit distribution
func (r *ProductRepository) Summary(ctx context.Context, id uuid.UUID) (*domain.ReviewSummary, error) {
	product, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT
			COUNT(*) FILTER (WHERE fit = 'SMALL') AS small,
			COUNT(*) FILTER (WHERE fit = 'TRUE')  AS true_fit,
			COUNT(*) FILTER (WHERE fit = 'LARGE') AS large
		FROM reviews
		WHERE product_id = $1
	`

	var dist struct {
		Small int `db:"small"`
		True  int `db:"true_fit"`
		Large int `db:"large"`
	}
	if err := r.db.GetContext(ctx, &dist, query, id); err != nil {
		return nil, err
	}

	return &domain.ReviewSummary{
		OverallRating: product.OverallRating,
		TotalReviews:  product.TotalReviews,
		FitDistribution: domain.FitDistribution{
			Small: dist.Small,
			True:  dist.True,
			Large: dist.Large,
		},
	}, nil
}
