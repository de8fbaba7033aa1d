package achievement

import (
	"context"
	"database/sql"
)

type Repository interface {
	Grant(ctx context.Context, userID, code string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]Award, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Grant awards code to userID once. Returns false when the award already
// existed, so re-running a check never double-awards.
func (r *PostgresRepo) Grant(ctx context.Context, userID, code string) (bool, error) {
	query := `INSERT INTO achievements (user_id, code) VALUES ($1, $2) ON CONFLICT (user_id, code) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, userID, code)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string) ([]Award, error) {
	query := `SELECT user_id, code, awarded_at FROM achievements WHERE user_id = $1 ORDER BY awarded_at ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var awards []Award
	for rows.Next() {
		var a Award
		if err := rows.Scan(&a.UserID, &a.Code, &a.AwardedAt); err != nil {
			return nil, err
		}
		awards = append(awards, a)
	}
	return awards, rows.Err()
}
