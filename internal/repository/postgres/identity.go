package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/werent/review-platform/internal/domain"
)

// IdentityRepository implements domain.IdentityStore against the users table.
// Tokens are opaque per-user API tokens; session mechanics live outside the
// core.
type IdentityRepository struct {
	db *sqlx.DB
}

// NewIdentityRepository creates a new PostgreSQL identity store
func NewIdentityRepository(db *sqlx.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Resolve maps a bearer token to a user ID
func (r *IdentityRepository) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, domain.ErrUnauthenticated
	}

	var id uuid.UUID
	err := r.db.GetContext(ctx, &id, `SELECT id FROM users WHERE api_token = $1`, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, domain.ErrUnauthenticated
		}
		return uuid.Nil, err
	}

	return id, nil
}
