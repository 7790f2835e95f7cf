package services

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/jdeng/goheif"
	"github.com/parkit/server/internal/models"
	"github.com/rwcarlsen/goexif/exif"
)

// extractHEICExif pulls the raw EXIF block out of a HEIF container
var extractHEICExif = goheif.ExtractExif

// PhotoMetadata is the subset of EXIF data the capture pipeline needs
type PhotoMetadata struct {
	Orientation int
	Location    *models.Coordinates
	TakenAt     *time.Time
}

// EXIFService extracts EXIF metadata from images
type EXIFService struct{}

// NewEXIFService creates a new EXIFService
func NewEXIFService() *EXIFService {
	return &EXIFService{}
}

// ExtractFromBytes extracts EXIF data from image bytes. HEIF containers
// carry EXIF as a separate item, so it is located through goheif first.
func (s *EXIFService) ExtractFromBytes(data []byte) *PhotoMetadata {
	if isHEIFContainer(data) {
		raw, err := heicExif(data)
		if err != nil || len(raw) == 0 {
			return &PhotoMetadata{Orientation: 1}
		}
		return s.ExtractFromReader(bytes.NewReader(raw))
	}
	return s.ExtractFromReader(bytes.NewReader(data))
}

// isHEIFContainer reports whether data starts with an ISO BMFF ftyp box
func isHEIFContainer(data []byte) bool {
	return len(data) >= 12 && string(data[4:8]) == "ftyp"
}

func heicExif(data []byte) (raw []byte, err error) {
	// goheif panics on some truncated inputs
	defer func() {
		if r := recover(); r != nil {
			raw, err = nil, fmt.Errorf("failed to read HEIC exif: %v", r)
		}
	}()
	return extractHEICExif(bytes.NewReader(data))
}

// ExtractFromReader extracts EXIF data from an io.Reader. Images without
// EXIF yield default metadata (upright, no location).
func (s *EXIFService) ExtractFromReader(r io.Reader) *PhotoMetadata {
	result := &PhotoMetadata{Orientation: 1}

	x, err := exif.Decode(r)
	if err != nil {
		return result
	}

	if tag, err := x.Get(exif.Orientation); err == nil {
		if val, err := tag.Int(0); err == nil && val >= 1 && val <= 8 {
			result.Orientation = val
		}
	}

	if tm, err := x.DateTime(); err == nil {
		result.TakenAt = &tm
	}

	if lat, lng, err := x.LatLong(); err == nil {
		coords := models.Coordinates{Latitude: lat, Longitude: lng, Source: models.LocationSourceEXIF}
		if coords.Validate() == nil && !(lat == 0 && lng == 0) {
			if result.TakenAt != nil {
				takenAt := *result.TakenAt
				coords.FixedAt = &takenAt
			}
			result.Location = &coords
		}
	}

	return result
}

// FormatCoordinates formats lat/lng as a readable string
func FormatCoordinates(lat, lng float64) string {
	latDir := "N"
	if lat < 0 {
		latDir = "S"
		lat = math.Abs(lat)
	}
	lngDir := "E"
	if lng < 0 {
		lngDir = "W"
		lng = math.Abs(lng)
	}
	return fmt.Sprintf("%.6f°%s, %.6f°%s", lat, latDir, lng, lngDir)
}

// GoogleMapsURL generates a Google Maps URL for coordinates
func GoogleMapsURL(lat, lng float64) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%.6f,%.6f", lat, lng)
}

func init() {
	exif.RegisterParsers()
}
