package metering

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Repository interface {
	CheckAndDecrement(ctx context.Context, userID string, amount int) (int, error)
	Grant(ctx context.Context, userID string, amount int) (int, error)
	Balance(ctx context.Context, userID string) (int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// CheckAndDecrement verifies and spends amount credits in one conditional
// update. The balance >= amount predicate rides inside the statement, so two
// concurrent calls for the same user can never both observe the pre-decrement
// balance: the row lock serializes them and the loser re-evaluates the
// predicate against the already-decremented value. Returns the post-decrement
// balance on success, ErrInsufficientBalance (with the current balance) or
// ErrProfileNotFound otherwise.
func (r *PostgresRepo) CheckAndDecrement(ctx context.Context, userID string, amount int) (int, error) {
	var balance int
	query := `UPDATE profiles SET credits_balance = credits_balance - $2, updated_at = NOW() WHERE user_id = $1 AND credits_balance >= $2 RETURNING credits_balance`
	err := r.db.QueryRowContext(ctx, query, userID, amount).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	// No row matched: either the profile is missing or the balance is short.
	current, err := r.Balance(ctx, userID)
	if err != nil {
		return 0, err
	}
	return current, fmt.Errorf("%w: balance %d, need %d", ErrInsufficientBalance, current, amount)
}

func (r *PostgresRepo) Grant(ctx context.Context, userID string, amount int) (int, error) {
	var balance int
	query := `
INSERT INTO profiles (user_id, credits_balance) VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET credits_balance = profiles.credits_balance + $2, updated_at = NOW()
RETURNING credits_balance`
	err := r.db.QueryRowContext(ctx, query, userID, amount).Scan(&balance)
	return balance, err
}

func (r *PostgresRepo) Balance(ctx context.Context, userID string) (int, error) {
	var balance int
	query := `SELECT credits_balance FROM profiles WHERE user_id = $1`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProfileNotFound
	}
	return balance, err
}
