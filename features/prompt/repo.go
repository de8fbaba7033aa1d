package prompt

import (
	"context"
	"database/sql"
)

type Repository interface {
	Get(ctx context.Context, id string) (*Template, error)
	Save(ctx context.Context, t *Template) error
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Template, error) {
	t := &Template{}
	query := `SELECT id, name, body, created_at, updated_at FROM prompt_templates WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.Body, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *PostgresRepo) Save(ctx context.Context, t *Template) error {
	query := `INSERT INTO prompt_templates (name, body) VALUES ($1, $2) RETURNING id, created_at, updated_at`
	return r.db.QueryRowContext(ctx, query, t.Name, t.Body).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}
