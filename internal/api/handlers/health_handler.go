package handlers

import (
	"net/http"

	"github.com/isdelr/postboard-be/internal/services"
	"github.com/rs/zerolog/log"
)

// HealthHandler reports whether the service can reach its database.
type HealthHandler struct {
	service services.MaintenanceServiceProvider
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(service services.MaintenanceServiceProvider) *HealthHandler {
	return &HealthHandler{service: service}
}

// HealthStatus is the body of /healthz.
type HealthStatus struct {
	Status string `json:"status"`
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		log.Error().Err(err).Msg("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, HealthStatus{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, HealthStatus{Status: "ok"})
}
