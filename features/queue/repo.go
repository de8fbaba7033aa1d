package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

type Repository interface {
	Enqueue(ctx context.Context, jobType string, payload json.RawMessage) (string, error)
	ClaimNext(ctx context.Context, lease time.Duration) (*Job, error)
	MarkCompleted(ctx context.Context, id string) error
	RetryLater(ctx context.Context, id string, runAt time.Time, errMsg string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Get(ctx context.Context, id string) (*Job, error)
	List(ctx context.Context, status string) ([]Job, error)
	CountByStatus(ctx context.Context, status string) (int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Enqueue(ctx context.Context, jobType string, payload json.RawMessage) (string, error) {
	if payload == nil {
		payload = json.RawMessage(`{}`)
	}
	var id string
	query := `INSERT INTO jobs (type, payload) VALUES ($1, $2) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, jobType, []byte(payload)).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ClaimNext selects one eligible job, bumps its attempt counter and leases it
// until now + lease, all in a single statement. FOR UPDATE SKIP LOCKED makes
// the select-and-mark indivisible under concurrent workers: two racing calls
// can never return the same row. Returns (nil, nil) when no job is eligible.
func (r *PostgresRepo) ClaimNext(ctx context.Context, lease time.Duration) (*Job, error) {
	query := `
WITH eligible AS (
    SELECT id FROM jobs
    WHERE status = 'pending' AND (locked_until IS NULL OR locked_until <= NOW())
    ORDER BY created_at ASC
    FOR UPDATE SKIP LOCKED
    LIMIT 1
)
UPDATE jobs SET
    attempts = attempts + 1,
    locked_until = NOW() + $1 * INTERVAL '1 second',
    updated_at = NOW()
WHERE id IN (SELECT id FROM eligible)
RETURNING id, type, payload, status, attempts, locked_until, COALESCE(last_error, ''), created_at, updated_at`

	j := &Job{}
	var payload []byte
	err := r.db.QueryRowContext(ctx, query, int(lease.Seconds())).Scan(
		&j.ID, &j.Type, &payload, &j.Status, &j.Attempts, &j.LockedUntil, &j.LastError, &j.CreatedAt, &j.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	j.Payload = json.RawMessage(payload)
	return j, nil
}

func (r *PostgresRepo) MarkCompleted(ctx context.Context, id string) error {
	query := `UPDATE jobs SET status = 'completed', locked_until = NULL, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// RetryLater re-arms a failed job: status stays pending and locked_until acts
// as the backoff gate until runAt.
func (r *PostgresRepo) RetryLater(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	query := `UPDATE jobs SET status = 'pending', locked_until = $2, last_error = $3, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, runAt, errMsg)
	return err
}

func (r *PostgresRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	query := `UPDATE jobs SET status = 'failed', locked_until = NULL, last_error = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, errMsg)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Job, error) {
	j := &Job{}
	var payload []byte
	query := `SELECT id, type, payload, status, attempts, locked_until, COALESCE(last_error, ''), created_at, updated_at FROM jobs WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&j.ID, &j.Type, &payload, &j.Status, &j.Attempts, &j.LockedUntil, &j.LastError, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	j.Payload = json.RawMessage(payload)
	return j, nil
}

func (r *PostgresRepo) List(ctx context.Context, status string) ([]Job, error) {
	query := `SELECT id, type, payload, status, attempts, locked_until, COALESCE(last_error, ''), created_at, updated_at FROM jobs`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		var payload []byte
		if err := rows.Scan(&j.ID, &j.Type, &payload, &j.Status, &j.Attempts, &j.LockedUntil, &j.LastError, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		j.Payload = json.RawMessage(payload)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *PostgresRepo) CountByStatus(ctx context.Context, status string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM jobs WHERE status = $1`
	err := r.db.QueryRowContext(ctx, query, status).Scan(&count)
	return count, err
}
