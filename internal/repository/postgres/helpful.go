package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/werent/review-platform/internal/domain"
)

const foreignKeyViolation = "23503"

// HelpfulRepository implements domain.HelpfulRepository for PostgreSQL.
// The (review_id, user_id) composite primary key on review_helpfuls carries
// the uniqueness invariant, so each statement here is individually atomic and
// concurrent toggles can never produce duplicate marks.
type HelpfulRepository struct {
	db *sqlx.DB
}

// NewHelpfulRepository creates a new PostgreSQL helpful-mark repository
func NewHelpfulRepository(db *sqlx.DB) *HelpfulRepository {
	return &HelpfulRepository{db: db}
}

// Toggle flips the helpful mark for (reviewID, userID) and reports the
// resulting state. The insert-or-nothing is the single check-then-act step;
// a zero-row insert means the mark already existed and is removed instead.
func (r *HelpfulRepository) Toggle(ctx context.Context, reviewID, userID uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM reviews WHERE id = $1)`, reviewID); err != nil {
		return false, err
	}
	if !exists {
		return false, domain.ErrNotFound
	}

	insert := `
		INSERT INTO review_helpfuls (review_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (review_id, user_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, insert, reviewID, userID)
	if err != nil {
		// Review deleted between the existence check and the insert.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return false, domain.ErrNotFound
		}
		return false, err
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if inserted == 1 {
		return true, nil
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM review_helpfuls WHERE review_id = $1 AND user_id = $2`, reviewID, userID); err != nil {
		return false, err
	}

	return false, nil
}

// Delete unconditionally removes the mark for (reviewID, userID)
func (r *HelpfulRepository) Delete(ctx context.Context, reviewID, userID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM review_helpfuls WHERE review_id = $1 AND user_id = $2`, reviewID, userID)
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

// Count returns the number of marks referencing the review
func (r *HelpfulRepository) Count(ctx context.Context, reviewID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM review_helpfuls WHERE review_id = $1`, reviewID)
	if err != nil {
		return 0, err
	}

	return count, nil
}
