package metering

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"promptforge/apps/backend/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)
	userID := r.PathValue("id")

	balance, err := h.service.Balance(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			h.writeError(ctx, w, "NOT_FOUND", "Profile not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(ctx, "failed to read balance", "user_id", userID, "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": map[string]interface{}{"user_id": userID, "credits_balance": balance},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) GrantCredits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)
	userID := r.PathValue("id")

	var req struct {
		Amount int `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "BAD_REQUEST", "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		h.writeError(ctx, w, "BAD_REQUEST", "Amount must be positive", http.StatusBadRequest)
		return
	}

	balance, err := h.service.Grant(ctx, userID, req.Amount)
	if err != nil {
		slog.ErrorContext(ctx, "failed to grant credits", "user_id", userID, "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": map[string]interface{}{"user_id": userID, "credits_balance": balance},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
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
