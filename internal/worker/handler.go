package worker

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"promptforge/apps/backend/internal/middleware"
)

// Handler exposes the one-shot poll entry point for an external scheduler
// (cron-triggered HTTP call). Exactly one job is processed per invocation.
type Handler struct {
	worker *Worker
}

func NewHandler(w *Worker) *Handler {
	return &Handler{worker: w}
}

func (h *Handler) Poll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	res, err := h.worker.ProcessOne(ctx)
	if err != nil {
		// Store-level failure: surface it so the scheduler's alerting fires.
		slog.ErrorContext(ctx, "poll failed", "error", err, "correlationId", correlationID)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		resp := map[string]any{
			"error":         map[string]string{"code": "QUEUE_UNAVAILABLE", "message": err.Error()},
			"correlationId": correlationID,
		}
		if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
			slog.ErrorContext(ctx, "failed to encode error response", "error", encErr)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if !res.Processed {
		if err := json.NewEncoder(w).Encode(map[string]string{"message": "no pending jobs"}); err != nil {
			slog.ErrorContext(ctx, "failed to encode response", "error", err)
		}
		return
	}

	resp := map[string]any{
		"success": true,
		"job_id":  res.JobID,
		"status":  res.Status,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
