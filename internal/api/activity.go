package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultActivityLimit = 50
	healthCheckTimeout   = 5 * time.Second
)

// Activity returns recent journal entries, newest first.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		limit = n
	}

	entries, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to read activity", "error", err)
		Error(w, http.StatusInternalServerError, "activity_unavailable")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// Health returns the health status of the API and its dependencies.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := map[string]interface{}{
		"status": "healthy",
		"checks": map[string]string{"api": "ok"},
	}
	statusCode := http.StatusOK

	if err := h.journal.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		status["checks"].(map[string]string)["journal"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		status["checks"].(map[string]string)["journal"] = "ok"
	}

	JSON(w, statusCode, status)
}
