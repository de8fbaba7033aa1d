package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"promptforge/apps/backend/internal/middleware"
)

// TierResolver maps a request to a rate-limit tier and identifier. The stub
// deployment has no auth layer, so the default resolver uses headers set by
// the edge proxy, falling back to guest keyed by remote address.
type TierResolver func(r *http.Request) (identifier, tier string)

func DefaultTierResolver(r *http.Request) (string, string) {
	if userID := r.Header.Get("X-User-ID"); userID != "" {
		tier := r.Header.Get("X-User-Tier")
		if tier == "" {
			tier = "free"
		}
		return userID, tier
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return host, "guest"
}

type Handler struct {
	service *Service
	resolve TierResolver
}

func NewHandler(s *Service, resolve TierResolver) *Handler {
	if resolve == nil {
		resolve = DefaultTierResolver
	}
	return &Handler{service: s, resolve: resolve}
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "BAD_REQUEST", "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.TemplateID == "" {
		h.writeError(ctx, w, "BAD_REQUEST", "user_id and template_id are required", http.StatusBadRequest)
		return
	}

	identifier, tier := h.resolve(r)

	result, tasks, err := h.service.Generate(ctx, req, identifier, tier)
	if err != nil {
		var rateErr *RateLimitedError
		var creditsErr *InsufficientCreditsError
		switch {
		case errors.As(err, &rateErr):
			retryAfter := int(time.Until(rateErr.ResetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			h.writeError(ctx, w, "RATE_LIMITED", "Too many requests", http.StatusTooManyRequests)
		case errors.As(err, &creditsErr):
			h.writeError(ctx, w, "INSUFFICIENT_CREDITS", fmt.Sprintf("Insufficient credits: balance %d", creditsErr.Balance), http.StatusForbidden)
		case errors.Is(err, ErrProfileMissing):
			h.writeError(ctx, w, "PROFILE_NOT_FOUND", "No credit profile for user", http.StatusForbidden)
		case errors.Is(err, ErrTemplateNotFound):
			h.writeError(ctx, w, "NOT_FOUND", "Template not found", http.StatusNotFound)
		default:
			slog.ErrorContext(ctx, "generation failed", "error", err, "correlationId", correlationID)
			h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": result}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}

	// Response is committed; run the deferred side effects now.
	RunPostTasks(ctx, tasks)
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	var req struct {
		Name string `json:"name"`
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "BAD_REQUEST", "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Body == "" {
		h.writeError(ctx, w, "BAD_REQUEST", "name and body are required", http.StatusBadRequest)
		return
	}

	t := &Template{Name: req.Name, Body: req.Body}
	if err := h.service.repo.Save(ctx, t); err != nil {
		slog.ErrorContext(ctx, "failed to save template", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": t}); err != nil {
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
