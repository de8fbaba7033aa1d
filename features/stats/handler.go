package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"promptforge/apps/backend/features/queue"
	"promptforge/apps/backend/internal/middleware"
)

type JobCounter interface {
	CountByStatus(ctx context.Context, status string) (int, error)
}

type Handler struct {
	jobs JobCounter
}

func NewHandler(jobs JobCounter) *Handler {
	return &Handler{jobs: jobs}
}

type StatsResponse struct {
	PendingJobs   int `json:"pending_jobs"`
	CompletedJobs int `json:"completed_jobs"`
	FailedJobs    int `json:"failed_jobs"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	slog.InfoContext(ctx, "getting stats", "correlationId", correlationID)

	pending, err := h.jobs.CountByStatus(ctx, queue.StatusPending)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count pending jobs", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count pending jobs", http.StatusInternalServerError)
		return
	}

	completed, err := h.jobs.CountByStatus(ctx, queue.StatusCompleted)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count completed jobs", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count completed jobs", http.StatusInternalServerError)
		return
	}

	failed, err := h.jobs.CountByStatus(ctx, queue.StatusFailed)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count failed jobs", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count failed jobs", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		PendingJobs:   pending,
		CompletedJobs: completed,
		FailedJobs:    failed,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
