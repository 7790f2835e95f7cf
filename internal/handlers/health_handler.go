package handlers

import (
	"net/http"
	"time"

	"github.com/parkit/server/internal/models"
	"github.com/parkit/server/internal/services"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	controller *services.ParkingController
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(controller *services.ParkingController) *HealthHandler {
	return &HealthHandler{controller: controller}
}

// HealthCheck returns the server health status
// @Summary Health check
// @Description Returns the current health status of the server and the record state
// @Tags health
// @Produce json
// @Success 200 {object} models.HealthResponse "Server is healthy"
// @Router /api/health [get]
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	}
	if h.controller != nil {
		response.State = h.controller.Snapshot().State.String()
	}

	respondJSON(w, http.StatusOK, response)
}
