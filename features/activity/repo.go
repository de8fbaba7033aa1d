package activity

import (
	"context"
	"database/sql"
	"encoding/json"
)

type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	CountByUser(ctx context.Context, userID string) (int, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Insert records the entry, keyed by event_id. Replays are no-ops.
func (r *PostgresRepo) Insert(ctx context.Context, e *Entry) error {
	if e.Metadata == nil {
		e.Metadata = json.RawMessage(`{}`)
	}
	query := `INSERT INTO activity_logs (event_id, user_id, action, metadata) VALUES ($1, $2, $3, $4) ON CONFLICT (event_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, e.EventID, e.UserID, e.Action, []byte(e.Metadata))
	return err
}

func (r *PostgresRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM activity_logs WHERE user_id = $1`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&count)
	return count, err
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error) {
	query := `SELECT id, event_id, user_id, action, metadata, created_at FROM activity_logs WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.EventID, &e.UserID, &e.Action, &metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Metadata = json.RawMessage(metadata)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
