package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/parkit/server/internal/models"
	"github.com/parkit/server/internal/observability"
	"github.com/parkit/server/internal/services"
)

// PhotoPath serves the current record's photo
const PhotoPath = "/api/parking/photo"

// ParkingHandler exposes the presentation controller over HTTP
type ParkingHandler struct {
	controller     *services.ParkingController
	hashService    *services.HashService
	maxUploadBytes int64
}

// NewParkingHandler creates a new ParkingHandler
func NewParkingHandler(controller *services.ParkingController, hashService *services.HashService, maxUploadBytes int64) *ParkingHandler {
	return &ParkingHandler{
		controller:     controller,
		hashService:    hashService,
		maxUploadBytes: maxUploadBytes,
	}
}

// Get returns the current parking snapshot
// @Summary Get the parking record
// @Description Returns the current state, elapsed-time readout and map view
// @Tags parking
// @Produce json
// @Success 200 {object} models.ParkingResponse "Current parking snapshot"
// @Failure 401 {object} models.ErrorResponse "Unauthorized - invalid API key"
// @Security ApiKeyAuth
// @Router /api/parking [get]
func (h *ParkingHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, parkingResponse(h.controller.Snapshot()))
}

// Capture saves a new parking record from an uploaded photo and optional
// client location fix.
// @Summary Record where the car is parked
// @Description Processes the photo, resolves a location (client fix, then photo EXIF) and replaces any existing record
// @Tags parking
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Photo of the parking spot"
// @Param latitude formData number false "Client latitude in degrees"
// @Param longitude formData number false "Client longitude in degrees"
// @Param accuracy formData number false "Fix accuracy in meters"
// @Param fixedAt formData string false "When the fix was taken (RFC3339 format)"
// @Success 201 {object} models.CaptureResponse "Parking recorded"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 401 {object} models.ErrorResponse "Unauthorized - invalid API key"
// @Failure 413 {object} models.ErrorResponse "Upload too large"
// @Failure 415 {object} models.ErrorResponse "Not an image"
// @Failure 422 {object} models.ErrorResponse "Image could not be decoded"
// @Failure 507 {object} models.ErrorResponse "Storage quota exceeded"
// @Failure 500 {object} models.ErrorResponse "Server error"
// @Security ApiKeyAuth
// @Router /api/parking [post]
func (h *ParkingHandler) Capture(w http.ResponseWriter, r *http.Request) {
	input, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	res, err := h.controller.Capture(r.Context(), services.CaptureRequest{
		Input: input,
		Fix:   parseFix(r),
	})
	if err != nil {
		respondParkingError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, models.CaptureResponse{
		ParkingResponse:  parkingResponse(res.Snapshot),
		LocationObtained: res.LocationObtained,
	})
}

// Preview processes an upload and returns it without saving anything
// @Summary Preview a processed photo
// @Description Runs the capture pipeline on the upload without saving a record
// @Tags parking
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Photo to preview"
// @Success 200 {object} models.PreviewResponse "Processed photo"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 401 {object} models.ErrorResponse "Unauthorized - invalid API key"
// @Failure 413 {object} models.ErrorResponse "Upload too large"
// @Failure 415 {object} models.ErrorResponse "Not an image"
// @Failure 422 {object} models.ErrorResponse "Image could not be decoded"
// @Security ApiKeyAuth
// @Router /api/parking/preview [post]
func (h *ParkingHandler) Preview(w http.ResponseWriter, r *http.Request) {
	input, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	photo, err := h.controller.Preview(r.Context(), input)
	if err != nil {
		respondParkingError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, models.PreviewResponse{
		Photo:  photo.DataURI(),
		Width:  photo.Width,
		Height: photo.Height,
		Bytes:  len(photo.Data),
	})
}

// Photo streams the stored photo bytes, honouring If-None-Match
// @Summary Get the parking photo
// @Description Streams the stored JPEG. Supports conditional requests via ETag.
// @Tags parking
// @Produce image/jpeg
// @Param If-None-Match header string false "ETag from a previous response"
// @Success 200 {file} binary "Photo bytes"
// @Success 304 "Not modified"
// @Failure 401 {object} models.ErrorResponse "Unauthorized - invalid API key"
// @Failure 404 {object} models.ErrorResponse "No parking recorded"
// @Security ApiKeyAuth
// @Router /api/parking/photo [get]
func (h *ParkingHandler) Photo(w http.ResponseWriter, r *http.Request) {
	mediaType, data, ok := h.controller.Photo()
	if !ok {
		respondError(w, http.StatusNotFound, "No parking record.", "")
		return
	}

	etag := h.hashService.ETag(data)
	w.Header().Set("ETag", etag)
	if h.hashService.MatchesETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Clear removes the parking record. The state is cleared even when the
// store fails; the failure is still reported.
// @Summary Clear the parking record
// @Tags parking
// @Success 204 "Record cleared"
// @Failure 401 {object} models.ErrorResponse "Unauthorized - invalid API key"
// @Failure 500 {object} models.ErrorResponse "Record could not be removed from storage"
// @Security ApiKeyAuth
// @Router /api/parking [delete]
func (h *ParkingHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Clear(r.Context()); err != nil {
		respondParkingError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ParkingHandler) readUpload(w http.ResponseWriter, r *http.Request) (models.CaptureInput, bool) {
	if h.maxUploadBytes > 0 {
		// Leave room for the multipart envelope and form fields
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondParkingError(w, models.ErrInputTooLarge)
			return models.CaptureInput{}, false
		}
		respondError(w, http.StatusBadRequest, "Request must be multipart/form-data.", "")
		return models.CaptureInput{}, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file provided.", "")
		return models.CaptureInput{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read file.", "")
		return models.CaptureInput{}, false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(header.Filename)); byExt != "" {
			contentType = byExt
		}
	}

	return models.CaptureInput{
		Data:        data,
		ContentType: contentType,
		Filename:    header.Filename,
	}, true
}

// parseFix reads the optional client location fields. Malformed fields
// are dropped; location is best effort.
func parseFix(r *http.Request) *models.Coordinates {
	latStr, lonStr := r.FormValue("latitude"), r.FormValue("longitude")
	if latStr == "" && lonStr == "" {
		return nil
	}

	lat, latErr := strconv.ParseFloat(latStr, 64)
	lon, lonErr := strconv.ParseFloat(lonStr, 64)
	if latErr != nil || lonErr != nil {
		observability.WithContext(r.Context()).Warnf("Ignoring malformed location fix %q,%q", latStr, lonStr)
		return nil
	}

	fix := &models.Coordinates{Latitude: lat, Longitude: lon, Source: models.LocationSourceClient}
	if acc, err := strconv.ParseFloat(r.FormValue("accuracy"), 64); err == nil && acc >= 0 {
		fix.Accuracy = &acc
	}
	if fixedAt, err := time.Parse(time.RFC3339, r.FormValue("fixedAt")); err == nil {
		fix.FixedAt = &fixedAt
	}
	return fix
}

// parkingResponse renders a snapshot with a cache-busting photo URL
func parkingResponse(snap models.Snapshot) models.ParkingResponse {
	photoURL := ""
	if snap.Record != nil {
		photoURL = fmt.Sprintf("%s?t=%d", PhotoPath, snap.Record.Timestamp.UnixMilli())
	}
	return models.SnapshotToResponse(snap, photoURL)
}
