package models

import (
	"math"
	"strings"
	"time"
)

// LocationSource tells where a coordinate fix came from
type LocationSource string

const (
	LocationSourceClient LocationSource = "client"
	LocationSourceEXIF   LocationSource = "exif"
)

// Coordinates is a single geographic fix
type Coordinates struct {
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Accuracy  *float64       `json:"accuracy,omitempty"`
	FixedAt   *time.Time     `json:"fixedAt,omitempty"`
	Source    LocationSource `json:"source"`
}

// Validate checks the fix is a real point on the globe
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return ErrInvalidCoordinates
	}
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// ParkingRecord is the single persisted parking spot
type ParkingRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Photo     string    `json:"photo"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
}

// NewParkingRecord builds a record stamped at the given instant. The
// timestamp is normalized to UTC milliseconds so it survives the ISO-8601
// round trip through the store unchanged.
func NewParkingRecord(photo string, coords *Coordinates, at time.Time) (*ParkingRecord, error) {
	if strings.TrimSpace(photo) == "" {
		return nil, ErrEmptyPhoto
	}

	record := &ParkingRecord{
		Timestamp: at.UTC().Truncate(time.Millisecond),
		Photo:     photo,
	}

	if coords != nil {
		if err := coords.Validate(); err != nil {
			return nil, err
		}
		lat, lon := coords.Latitude, coords.Longitude
		record.Latitude = &lat
		record.Longitude = &lon
	}

	return record, nil
}

// IsDisplayable reports whether the record carries a photo. Records
// without one are treated as absent.
func (r *ParkingRecord) IsDisplayable() bool {
	return r != nil && strings.TrimSpace(r.Photo) != ""
}

// HasLocation reports whether both coordinates are present
func (r *ParkingRecord) HasLocation() bool {
	return r != nil && r.Latitude != nil && r.Longitude != nil
}

// Location returns the record's coordinates, if any
func (r *ParkingRecord) Location() (lat, lon float64, ok bool) {
	if !r.HasLocation() {
		return 0, 0, false
	}
	return *r.Latitude, *r.Longitude, true
}

// Validate checks coordinate consistency for data read back from storage
func (r *ParkingRecord) Validate() error {
	if (r.Latitude == nil) != (r.Longitude == nil) {
		return ErrPartialCoordinates
	}
	if r.HasLocation() {
		return Coordinates{Latitude: *r.Latitude, Longitude: *r.Longitude}.Validate()
	}
	return nil
}

// SameLocation reports whether two records point at the same coordinates.
// Two records without coordinates are considered the same.
func SameLocation(a, b *ParkingRecord) bool {
	aLat, aLon, aOK := a.Location()
	bLat, bLon, bOK := b.Location()
	if aOK != bOK {
		return false
	}
	return aLat == bLat && aLon == bLon
}
