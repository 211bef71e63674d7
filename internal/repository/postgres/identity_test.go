package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/werent/review-platform/internal/domain"
)

func newIdentityTest(t *testing.T) (*IdentityRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewIdentityRepository(sqlxDB), mock, func() { _ = db.Close() }
}

func TestIdentityRepository_Resolve_Success(t *testing.T) {
	repo, mock, cleanup := newIdentityTest(t)
	defer cleanup()

	userID := uuid.New()

	mock.ExpectQuery("SELECT id FROM users WHERE api_token").
		WithArgs("valid-token").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(userID.String()))

	id, err := repo.Resolve(context.Background(), "valid-token")

	assert.NoError(t, err)
	assert.Equal(t, userID, id)
}

func TestIdentityRepository_Resolve_EmptyToken(t *testing.T) {
	repo, _, cleanup := newIdentityTest(t)
	defer cleanup()

	_, err := repo.Resolve(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestIdentityRepository_Resolve_UnknownToken(t *testing.T) {
	repo, mock, cleanup := newIdentityTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id FROM users WHERE api_token").
		WithArgs("bogus").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Resolve(context.Background(), "bogus")

	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}
