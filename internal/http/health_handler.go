package http

import (
	"context"
	"log/slog"
	"net/http"
)

type activityReporter interface {
	ActiveConversations(ctx context.Context) int
}

// HealthHandler serves the liveness probe.
type HealthHandler struct {
	activity  activityReporter
	responder responder
}

// NewHealthHandler constructs the handler.
func NewHealthHandler(activity activityReporter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{activity: activity, responder: newResponder(logger)}
}

type healthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
}

// Check reports service liveness and the active conversation count.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	active := 0
	if h != nil && h.activity != nil {
		active = h.activity.ActiveConversations(r.Context())
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{
		Status:         "ok",
		ActiveSessions: active,
	})
}
