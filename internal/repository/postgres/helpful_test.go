package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/werent/review-platform/internal/domain"
)

func newHelpfulTest(t *testing.T) (*HelpfulRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewHelpfulRepository(sqlxDB), mock, func() { _ = db.Close() }
}

func expectReviewExists(mock sqlmock.Sqlmock, reviewID uuid.UUID, exists bool) {
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM reviews WHERE id = \$1\)`).
		WithArgs(reviewID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

func TestHelpfulRepository_Toggle_Marks(t *testing.T) {
	repo, mock, cleanup := newHelpfulTest(t)
	defer cleanup()

	reviewID := uuid.New()
	userID := uuid.New()

	expectReviewExists(mock, reviewID, true)
	mock.ExpectExec("INSERT INTO review_helpfuls").
		WithArgs(reviewID, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	marked, err := repo.Toggle(context.Background(), reviewID, userID)

	assert.NoError(t, err)
	assert.True(t, marked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHelpfulRepository_Toggle_Unmarks(t *testing.T) {
	repo, mock, cleanup := newHelpfulTest(t)
	defer cleanup()

	reviewID := uuid.New()
	userID := uuid.New()

	expectReviewExists(mock, reviewID, true)
	// Conflict: the mark already exists, so the insert touches no rows
	mock.ExpectExec("INSERT INTO review_helpfuls").
		WithArgs(reviewID, userID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM review_helpfuls").
		WithArgs(reviewID, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	marked, err := repo.Toggle(context.Background(), reviewID, userID)

	assert.NoError(t, err)
	assert.False(t, marked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHelpfulRepository_Toggle_ReviewNotFound(t *testing.T) {
	repo, mock, cleanup := newHelpfulTest(t)
	defer cleanup()

	reviewID := uuid.New()

	expectReviewExists(mock, reviewID, false)

	_, err := repo.Toggle(context.Background(), reviewID, uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHelpfulRepository_Toggle_ReviewDeletedBeforeInsert(t *testing.T) {
	repo, mock, cleanup := newHelpfulTest(t)
	defer cleanup()

	reviewID := uuid.New()
	userID := uuid.New()

	// Review vanishes between the existence check and the insert
	expectReviewExists(mock, reviewID, true)
	mock.ExpectExec("INSERT INTO review_helpfuls").
		WithArgs(reviewID, userID).
		WillReturnError(&pq.Error{Code: foreignKeyViolation})

	_, err := repo.Toggle(context.Background(), reviewID, userID)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHelpfulRepository_Delete_Success(t *testing.T) {
	repo, mock, cleanup := newHelpfulTest(t)
	defer cleanup()

	reviewID := uuid.New()
	userID := uuid.New()

	mock.ExpectExec("DELETE FROM review_helpfuls").
		WithArgs(reviewID, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), reviewID, userID)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHelpfulRepository_Delete_NoMark(t *testing.T) {
	repo, mock, cleanup := newHelpfulTest(t)
	defer cleanup()

	reviewID := uuid.New()
	userID := uuid.New()

	mock.ExpectExec("DELETE FROM review_helpfuls").
		WithArgs(reviewID, userID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), reviewID, userID)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHelpfulRepository_Count(t *testing.T) {
	repo, mock, cleanup := newHelpfulTest(t)
	defer cleanup()

	reviewID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM review_helpfuls`).
		WithArgs(reviewID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.Count(context.Background(), reviewID)

	assert.NoError(t, err)
	assert.Equal(t, 3, count)
}
