// internal/storage/matches_test.go
package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"loan-matching-workers/internal/common/logger"
	"loan-matching-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func setupMockDB(t *testing.T) (*MatchStore, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	store := NewMatchStore(db, logger.NewTestLogger(t))
	return store, mock, func() { db.Close() }
}

func testMatch() models.Match {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return models.Match{
		ID:           "match-1",
		UserID:       "u-1",
		ProductID:    "p-1",
		MatchScore:   80.83,
		MatchReasons: []string{"Credit score well above minimum requirement"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUpsertMatch_Created(t *testing.T) {
	store, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("INSERT INTO user_loan_matches").
		WithArgs("match-1", "u-1", "p-1", 80.83, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(true))

	created, err := store.UpsertMatch(context.Background(), testMatch())

	assert.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertMatch_Updated(t *testing.T) {
	store, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("INSERT INTO user_loan_matches").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(false))

	created, err := store.UpsertMatch(context.Background(), testMatch())

	assert.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertMatch_GeneratesIDWhenEmpty(t *testing.T) {
	store, mock, cleanup := setupMockDB(t)
	defer cleanup()

	match := testMatch()
	match.ID = ""

	mock.ExpectQuery("INSERT INTO user_loan_matches").
		WithArgs(sqlmock.AnyArg(), "u-1", "p-1", 80.83, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(true))

	created, err := store.UpsertMatch(context.Background(), match)

	assert.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertMatch_RetriesTransientFailure(t *testing.T) {
	store, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("INSERT INTO user_loan_matches").
		WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectQuery("INSERT INTO user_loan_matches").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(true))

	created, err := store.UpsertMatch(context.Background(), testMatch())

	assert.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertMatch_ExhaustsRetries(t *testing.T) {
	store, mock, cleanup := setupMockDB(t)
	defer cleanup()

	for i := 0; i < upsertMaxAttempts; i++ {
		mock.ExpectQuery("INSERT INTO user_loan_matches").
			WillReturnError(errors.New("deadlock detected"))
	}

	created, err := store.UpsertMatch(context.Background(), testMatch())

	assert.Error(t, err)
	assert.False(t, created)
	assert.Contains(t, err.Error(), "deadlock detected")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnnotifiedMatches(t *testing.T) {
	store, mock, cleanup := setupMockDB(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "user_id", "email", "product_name", "provider", "match_score"}).
		AddRow("m-1", "u-1", "u1@example.com", "Personal Loan", "Acme Bank", 80.83).
		AddRow("m-2", "u-2", "u2@example.com", "Auto Loan", "Metro Finance", 65.0)

	mock.ExpectQuery("SELECT m.id, m.user_id, u.email, p.product_name, p.provider, m.match_score").
		WithArgs(100).
		WillReturnRows(rows)

	pending, err := store.UnnotifiedMatches(context.Background(), 100)

	assert.NoError(t, err)
	assert.Len(t, pending, 2)
	assert.Equal(t, "m-1", pending[0].MatchID)
	assert.Equal(t, "u1@example.com", pending[0].Email)
	assert.Equal(t, "Personal Loan", pending[0].ProductName)
	assert.Equal(t, 80.83, pending[0].MatchScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnnotifiedMatches_QueryError(t *testing.T) {
	store, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT m.id, m.user_id").
		WillReturnError(errors.New("relation does not exist"))

	pending, err := store.UnnotifiedMatches(context.Background(), 10)

	assert.Error(t, err)
	assert.Nil(t, pending)
}

func TestMarkNotified(t *testing.T) {
	store, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectExec("UPDATE user_loan_matches").
		WithArgs("m-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.MarkNotified(context.Background(), "m-1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
