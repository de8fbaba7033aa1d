package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type enqueueRepo struct {
	Repository

	lastType    string
	lastPayload json.RawMessage
	err         error
}

func (r *enqueueRepo) Enqueue(ctx context.Context, jobType string, payload json.RawMessage) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.lastType = jobType
	r.lastPayload = payload
	return "job-1", nil
}

type enqueueNotifier struct {
	enqueued []string
}

func (n *enqueueNotifier) JobEnqueued(ctx context.Context, jobID, jobType string) {
	n.enqueued = append(n.enqueued, jobID)
}

func TestService_Enqueue(t *testing.T) {
	repo := &enqueueRepo{}
	notifier := &enqueueNotifier{}
	s := NewService(repo, notifier)

	id, err := s.Enqueue(context.Background(), "achievement_check", map[string]string{"userId": "u1"})
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)
	assert.Equal(t, "achievement_check", repo.lastType)
	assert.JSONEq(t, `{"userId":"u1"}`, string(repo.lastPayload))
	assert.Equal(t, []string{"job-1"}, notifier.enqueued)
}

func TestService_EnqueueBestEffort_SwallowsFailure(t *testing.T) {
	repo := &enqueueRepo{err: errors.New("store down")}
	s := NewService(repo, nil)

	// Must not panic or surface the error: enqueue is a side effect of an
	// already-successful request.
	s.EnqueueBestEffort(context.Background(), "activity_log", map[string]string{"event_id": "e1"})
}

func TestService_Enqueue_UnmarshalablePayload(t *testing.T) {
	s := NewService(&enqueueRepo{}, nil)

	_, err := s.Enqueue(context.Background(), "activity_log", make(chan int))
	assert.Error(t, err)
}
