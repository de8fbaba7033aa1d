package metering_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"promptforge/apps/backend/features/metering"
)

const (
	decrementQuery = "UPDATE profiles SET credits_balance = credits_balance - $2, updated_at = NOW() WHERE user_id = $1 AND credits_balance >= $2 RETURNING credits_balance"
	balanceQuery   = "SELECT credits_balance FROM profiles WHERE user_id = $1"
)

func TestPostgresRepo_CheckAndDecrement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := metering.NewPostgresRepo(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(decrementQuery)).
			WithArgs("u1", 1).
			WillReturnRows(sqlmock.NewRows([]string{"credits_balance"}).AddRow(4))

		balance, err := repo.CheckAndDecrement(context.Background(), "u1", 1)
		assert.NoError(t, err)
		assert.Equal(t, 4, balance)
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(decrementQuery)).
			WithArgs("u1", 10).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(regexp.QuoteMeta(balanceQuery)).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"credits_balance"}).AddRow(3))

		balance, err := repo.CheckAndDecrement(context.Background(), "u1", 10)
		assert.ErrorIs(t, err, metering.ErrInsufficientBalance)
		assert.Equal(t, 3, balance)
	})

	t.Run("ProfileNotFound", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(decrementQuery)).
			WithArgs("ghost", 1).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(regexp.QuoteMeta(balanceQuery)).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.CheckAndDecrement(context.Background(), "ghost", 1)
		assert.ErrorIs(t, err, metering.ErrProfileNotFound)
	})

	t.Run("StoreError", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(decrementQuery)).
			WillReturnError(sqlmock.ErrCancelled)

		_, err := repo.CheckAndDecrement(context.Background(), "u1", 1)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, metering.ErrInsufficientBalance)
	})
}

func TestPostgresRepo_Grant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := metering.NewPostgresRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO profiles (user_id, credits_balance) VALUES ($1, $2)")).
		WithArgs("u1", 10).
		WillReturnRows(sqlmock.NewRows([]string{"credits_balance"}).AddRow(15))

	balance, err := repo.Grant(context.Background(), "u1", 10)
	assert.NoError(t, err)
	assert.Equal(t, 15, balance)
}

func TestPostgresRepo_Balance(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := metering.NewPostgresRepo(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(balanceQuery)).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"credits_balance"}).AddRow(7))

		balance, err := repo.Balance(context.Background(), "u1")
		assert.NoError(t, err)
		assert.Equal(t, 7, balance)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(balanceQuery)).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Balance(context.Background(), "ghost")
		assert.ErrorIs(t, err, metering.ErrProfileNotFound)
	})
}
