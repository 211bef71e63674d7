package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/werent/review-platform/internal/domain"
)

// ReviewRepository implements domain.ReviewRepository for PostgreSQL
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new PostgreSQL review repository
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// reviewRow is the flat scan target for review queries.
type reviewRow struct {
	ID              uuid.UUID  `db:"id"`
	ProductID       uuid.UUID  `db:"product_id"`
	UserID          uuid.UUID  `db:"user_id"`
	Rating          int        `db:"rating"`
	Content         string     `db:"content"`
	Waist           *int       `db:"waist"`
	Bust            *int       `db:"bust"`
	Hips            *int       `db:"hips"`
	Fit             *string    `db:"fit"`
	CreatedAt       time.Time  `db:"created_at"`
	EditedAt        *time.Time `db:"edited_at"`
	HelpfulCount    int        `db:"helpful_count"`
	AuthorName      string     `db:"author_name"`
	AuthorAvatarURL *string    `db:"author_avatar_url"`
}

func (row *reviewRow) toDomain() *domain.Review {
	review := &domain.Review{
		ID:           row.ID,
		ProductID:    row.ProductID,
		UserID:       row.UserID,
		Rating:       row.Rating,
		Content:      row.Content,
		Waist:        row.Waist,
		Bust:         row.Bust,
		Hips:         row.Hips,
		HelpfulCount: row.HelpfulCount,
		CreatedAt:    row.CreatedAt,
		EditedAt:     row.EditedAt,
		Author: &domain.ReviewAuthor{
			ID:        row.UserID,
			Name:      row.AuthorName,
			AvatarURL: row.AuthorAvatarURL,
		},
		Media: []*domain.Media{},
	}
	if row.Fit != nil {
		fit := domain.FitType(*row.Fit)
		review.Fit = &fit
	}
	return review
}

const reviewSelectColumns = `
	r.id, r.product_id, r.user_id, r.rating, r.content, r.waist, r.bust, r.hips, r.fit,
	r.created_at, r.edited_at,
	(SELECT COUNT(*) FROM review_helpfuls h WHERE h.review_id = r.id) AS helpful_count,
	u.name AS author_name, u.avatar_url AS author_avatar_url
`

// ProductExists reports whether the product row exists
func (r *ReviewRepository) ProductExists(ctx context.Context, productID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID)
	return exists, err
}

// Create persists a review with its media children and refreshes the owning
// product's aggregate in a single transaction. The product row is locked
// first, so concurrent creations for the same product recompute serially.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review, media []*domain.Media) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var productID uuid.UUID
	err = tx.GetContext(ctx, &productID, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, review.ProductID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	var fit *string
	if review.Fit != nil {
		value := string(*review.Fit)
		fit = &value
	}

	insertReview := `
		INSERT INTO reviews (product_id, user_id, rating, content, waist, bust, hips, fit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err = tx.QueryRowxContext(
		ctx,
		insertReview,
		review.ProductID,
		review.UserID,
		review.Rating,
		review.Content,
		review.Waist,
		review.Bust,
		review.Hips,
		fit,
	).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		return err
	}

	insertMedia := `
		INSERT INTO review_media (review_id, type, url, delete_handle, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	for i, m := range media {
		m.ReviewID = review.ID
		if err := tx.QueryRowxContext(ctx, insertMedia, m.ReviewID, m.Type, m.URL, m.DeleteHandle, i).Scan(&m.ID); err != nil {
			return err
		}
	}
	review.Media = media
	if review.Media == nil {
		review.Media = []*domain.Media{}
	}

	if _, err := tx.ExecContext(ctx, recomputeAggregateQuery, review.ProductID, time.Now()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return r.attachAuthor(ctx, review)
}

func (r *ReviewRepository) attachAuthor(ctx context.Context, review *domain.Review) error {
	var author domain.ReviewAuthor
	err := r.db.GetContext(ctx, &author, `SELECT id, name, avatar_url FROM users WHERE id = $1`, review.UserID)
	if err != nil {
		return err
	}
	review.Author = &author
	return nil
}

// GetByID retrieves a review by ID with author, media and helpful count
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.id = $1
	`, reviewSelectColumns)

	var row reviewRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	review := row.toDomain()
	if err := r.attachMedia(ctx, []*domain.Review{review}); err != nil {
		return nil, err
	}

	return review, nil
}

// ListByProduct retrieves a filtered, sorted page of reviews for a product
// plus the total match count. Filter predicates are conjunctive; empty rating
// or fit sets leave that dimension unfiltered.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID, q domain.ReviewQuery) ([]*domain.Review, int, error) {
	exists, err := r.ProductExists(ctx, productID)
	if err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0, domain.ErrNotFound
	}

	conditions := []string{"r.product_id = $1"}
	args := []interface{}{productID}

	if len(q.Ratings) > 0 {
		args = append(args, pq.Array(q.Ratings))
		conditions = append(conditions, fmt.Sprintf("r.rating = ANY($%d)", len(args)))
	}
	if len(q.Fits) > 0 {
		fits := make([]string, len(q.Fits))
		for i, f := range q.Fits {
			fits[i] = string(f)
		}
		args = append(args, pq.Array(fits))
		conditions = append(conditions, fmt.Sprintf("r.fit = ANY($%d)", len(args)))
	}
	if q.HasMedia {
		conditions = append(conditions, "EXISTS(SELECT 1 FROM review_media m WHERE m.review_id = r.id)")
	}

	where := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM reviews r WHERE %s`, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	orderBy := "r.created_at DESC"
	if q.SortBy == domain.ReviewSortHelpful {
		orderBy = "helpful_count DESC, r.created_at DESC"
	}

	args = append(args, q.Limit, (q.Page-1)*q.Limit)
	query := fmt.Sprintf(`
		SELECT %s
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, reviewSelectColumns, where, orderBy, len(args)-1, len(args))

	var rows []reviewRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}

	reviews := make([]*domain.Review, len(rows))
	for i := range rows {
		reviews[i] = rows[i].toDomain()
	}

	if err := r.attachMedia(ctx, reviews); err != nil {
		return nil, 0, err
	}

	return reviews, total, nil
}

// attachMedia loads the ordered media lists for the given reviews in one query.
func (r *ReviewRepository) attachMedia(ctx context.Context, reviews []*domain.Review) error {
	if len(reviews) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(reviews))
	byID := make(map[uuid.UUID]*domain.Review, len(reviews))
	for i, review := range reviews {
		ids[i] = review.ID
		byID[review.ID] = review
	}

	query := `
		SELECT id, review_id, type, url, delete_handle
		FROM review_media
		WHERE review_id = ANY($1)
		ORDER BY position
	`

	var media []*domain.Media
	if err := r.db.SelectContext(ctx, &media, query, pq.Array(ids)); err != nil {
		return err
	}

	for _, m := range media {
		if review, ok := byID[m.ReviewID]; ok {
			review.Media = append(review.Media, m)
		}
	}

	return nil
}

// Delete removes a review and refreshes the product aggregate in one
// transaction. Media rows go with the review via ON DELETE CASCADE.
func (r *ReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var productID uuid.UUID
	err = tx.GetContext(ctx, &productID, `SELECT product_id FROM reviews WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, productID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, recomputeAggregateQuery, productID, time.Now()); err != nil {
		return err
	}

	return tx.Commit()
}
