package handlers

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/parkit/server/internal/models"
	"github.com/parkit/server/internal/services"
)

// GuideHandler serves the first-run help guide policy
type GuideHandler struct {
	guide *services.GuideService
}

// NewGuideHandler creates a new GuideHandler
func NewGuideHandler(guide *services.GuideService) *GuideHandler {
	return &GuideHandler{guide: guide}
}

// Get reports whether the guide should be shown
// @Summary Get help guide visibility
// @Tags guide
// @Produce json
// @Success 200 {object} models.GuideResponse "Whether the guide should be shown"
// @Failure 401 {object} models.ErrorResponse "Unauthorized - invalid API key"
// @Security ApiKeyAuth
// @Router /api/guide [get]
func (h *GuideHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.GuideResponse{Show: h.guide.ShouldShow(r.Context())})
}

// Dismiss records the user closing the guide
// @Summary Dismiss the help guide
// @Description Closes the guide. With dontShowAgain set it stays hidden on later starts.
// @Tags guide
// @Accept json
// @Produce json
// @Param request body models.GuideDismissRequest false "Dismiss options"
// @Success 200 {object} models.GuideResponse "Updated visibility"
// @Failure 400 {object} models.ErrorResponse "Invalid request body"
// @Failure 401 {object} models.ErrorResponse "Unauthorized - invalid API key"
// @Failure 500 {object} models.ErrorResponse "Server error"
// @Security ApiKeyAuth
// @Router /api/guide/dismiss [post]
func (h *GuideHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	var req models.GuideDismissRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body.", "")
			return
		}
	}

	if err := h.guide.Dismiss(r.Context(), req.DontShowAgain); err != nil {
		respondParkingError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, models.GuideResponse{Show: h.guide.ShouldShow(r.Context())})
}
