package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/parkit/server/internal/models"
	"github.com/parkit/server/internal/observability"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		observability.Warnf("Failed to write response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message, code string) {
	respondJSON(w, status, models.ErrorResponse{Error: message, Code: code})
}

// respondParkingError maps pipeline and store errors to HTTP statuses
func respondParkingError(w http.ResponseWriter, err error) {
	var pe models.ParkingError
	if !errors.As(err, &pe) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			respondError(w, http.StatusServiceUnavailable, "Request was cancelled.", "")
			return
		}
		respondError(w, http.StatusInternalServerError, "Internal error.", "")
		return
	}
	respondError(w, statusFor(pe), pe.Message, pe.Code)
}

func statusFor(pe models.ParkingError) int {
	switch pe {
	case models.ErrInvalidInputType:
		return http.StatusUnsupportedMediaType
	case models.ErrInputTooLarge:
		return http.StatusRequestEntityTooLarge
	case models.ErrDecode:
		return http.StatusUnprocessableEntity
	case models.ErrQuotaExceeded:
		return http.StatusInsufficientStorage
	case models.ErrPartialCoordinates, models.ErrInvalidCoordinates, models.ErrEmptyPhoto:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
