package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/wavelane/wavelane/internal/analytics"
	"github.com/wavelane/wavelane/internal/event"
	"github.com/wavelane/wavelane/internal/middleware"
)

// UsageHandlers provides endpoints for recording usage events and
// querying aggregated analytics.
type UsageHandlers struct {
	service *analytics.Service
}

// NewUsageHandlers creates a new usage handler backed by the given service.
func NewUsageHandlers(service *analytics.Service) *UsageHandlers {
	return &UsageHandlers{service: service}
}

// RecordEvent handles POST /api/events.
// Accepts a usage event, validates it, and appends it to the event store.
// Returns 201 with the stored record on success.
func (h *UsageHandlers) RecordEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var draft event.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}

	rec, err := h.service.Record(ctx, draft)
	if err != nil {
		var vErr *analytics.ValidationError
		if errors.As(err, &vErr) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, vErr.Error())
			return
		}
		slog.ErrorContext(ctx, "failed to record usage event", "error", err, "event_name", draft.Name)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to record event")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(rec); err != nil {
		slog.ErrorContext(ctx, "failed to encode event response", "error", err)
	}
}

// GetAnalytics handles GET /api/analytics?owner_id=...&window=7d.
// Returns the cumulative metrics snapshot and the gap-free per-day
// series for the owner over the requested window.
func (h *UsageHandlers) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "owner_id is required")
		return
	}

	window, err := analytics.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeInvalidWindow)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidWindow, err.Error())
		return
	}

	report, err := h.service.Query(ctx, ownerID, window)
	if err != nil {
		var vErr *analytics.ValidationError
		if errors.As(err, &vErr) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, vErr.Error())
			return
		}
		slog.ErrorContext(ctx, "failed to query analytics", "error", err, "owner_id", ownerID, "window", window.String())
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to compute analytics")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		slog.ErrorContext(ctx, "failed to encode analytics response", "error", err)
	}
}
