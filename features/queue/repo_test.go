package queue_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"promptforge/apps/backend/features/queue"
)

func TestPostgresRepo_Enqueue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := queue.NewPostgresRepo(db)

	t.Run("Success", func(t *testing.T) {
		payload := json.RawMessage(`{"userId":"u1"}`)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO jobs (type, payload) VALUES ($1, $2) RETURNING id")).
			WithArgs("achievement_check", []byte(payload)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("job-1"))

		id, err := repo.Enqueue(context.Background(), "achievement_check", payload)
		assert.NoError(t, err)
		assert.Equal(t, "job-1", id)
	})

	t.Run("NilPayloadDefaultsToEmptyObject", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO jobs")).
			WithArgs("style_analysis", []byte(`{}`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("job-2"))

		id, err := repo.Enqueue(context.Background(), "style_analysis", nil)
		assert.NoError(t, err)
		assert.Equal(t, "job-2", id)
	})

	t.Run("StoreError", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO jobs")).
			WillReturnError(sqlmock.ErrCancelled)

		_, err := repo.Enqueue(context.Background(), "activity_log", json.RawMessage(`{}`))
		assert.Error(t, err)
	})
}

func TestPostgresRepo_ClaimNext(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := queue.NewPostgresRepo(db)
	cols := []string{"id", "type", "payload", "status", "attempts", "locked_until", "coalesce", "created_at", "updated_at"}

	t.Run("ClaimsEligibleJob", func(t *testing.T) {
		now := time.Now()
		lockedUntil := now.Add(5 * time.Minute)
		rows := sqlmock.NewRows(cols).
			AddRow("job-1", "achievement_check", []byte(`{"userId":"u1"}`), "pending", 1, lockedUntil, "", now, now)

		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
			WithArgs(300).
			WillReturnRows(rows)

		job, err := repo.ClaimNext(context.Background(), 5*time.Minute)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, "job-1", job.ID)
		assert.Equal(t, "achievement_check", job.Type)
		assert.Equal(t, 1, job.Attempts)
		require.NotNil(t, job.LockedUntil)
		assert.WithinDuration(t, lockedUntil, *job.LockedUntil, time.Second)
	})

	t.Run("NoEligibleJobIsNotAnError", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
			WithArgs(300).
			WillReturnError(sql.ErrNoRows)

		job, err := repo.ClaimNext(context.Background(), 5*time.Minute)
		assert.NoError(t, err)
		assert.Nil(t, job)
	})

	t.Run("StoreError", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
			WillReturnError(sqlmock.ErrCancelled)

		job, err := repo.ClaimNext(context.Background(), 5*time.Minute)
		assert.Error(t, err)
		assert.Nil(t, job)
	})
}

func TestPostgresRepo_WriteBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := queue.NewPostgresRepo(db)

	t.Run("MarkCompletedClearsLock", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET status = 'completed', locked_until = NULL, updated_at = NOW() WHERE id = $1")).
			WithArgs("job-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.MarkCompleted(context.Background(), "job-1"))
	})

	t.Run("RetryLaterKeepsPending", func(t *testing.T) {
		runAt := time.Now().Add(time.Minute)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET status = 'pending', locked_until = $2, last_error = $3, updated_at = NOW() WHERE id = $1")).
			WithArgs("job-1", runAt, "boom").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.RetryLater(context.Background(), "job-1", runAt, "boom"))
	})

	t.Run("MarkFailedClearsLock", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET status = 'failed', locked_until = NULL, last_error = $2, updated_at = NOW() WHERE id = $1")).
			WithArgs("job-1", "boom").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.MarkFailed(context.Background(), "job-1", "boom"))
	})
}

func TestPostgresRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := queue.NewPostgresRepo(db)
	cols := []string{"id", "type", "payload", "status", "attempts", "locked_until", "coalesce", "created_at", "updated_at"}

	t.Run("Success", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(regexp.QuoteMeta("FROM jobs WHERE id = $1")).
			WithArgs("job-1").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("job-1", "activity_log", []byte(`{}`), "completed", 2, nil, "", now, now))

		job, err := repo.Get(context.Background(), "job-1")
		require.NoError(t, err)
		assert.Equal(t, queue.StatusCompleted, job.Status)
		assert.Equal(t, 2, job.Attempts)
		assert.Nil(t, job.LockedUntil)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM jobs WHERE id = $1")).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestPostgresRepo_CountByStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := queue.NewPostgresRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM jobs WHERE status = $1")).
		WithArgs("failed").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountByStatus(context.Background(), "failed")
	assert.NoError(t, err)
	assert.Equal(t, 3, count)
}
