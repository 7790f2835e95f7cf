package models

import "time"

// ParkingResponse is the API view of the current parking state
type ParkingResponse struct {
	State     RecordState `json:"state"`
	Timestamp *time.Time  `json:"timestamp,omitempty"`
	PhotoURL  string      `json:"photoUrl,omitempty"`
	Latitude  *float64    `json:"latitude,omitempty"`
	Longitude *float64    `json:"longitude,omitempty"`
	Readout   *Readout    `json:"readout,omitempty"`
	View      View        `json:"view"`
	Map       *MapWidget  `json:"map,omitempty"`
}

// CaptureResponse is returned after a capture was saved
type CaptureResponse struct {
	ParkingResponse
	LocationObtained bool `json:"locationObtained"`
}

// PreviewResponse carries a processed photo that was not persisted
type PreviewResponse struct {
	Photo  string `json:"photo"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Bytes  int    `json:"bytes"`
}

// GuideResponse tells the client whether to show the help guide
type GuideResponse struct {
	Show bool `json:"show"`
}

// GuideDismissRequest is sent when the user closes the help guide
type GuideDismissRequest struct {
	DontShowAgain bool `json:"dontShowAgain"`
}

// HealthResponse is returned by health check
type HealthResponse struct {
	Status    string    `json:"status"`
	State     string    `json:"state,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SnapshotToResponse converts a controller snapshot to its API form
func SnapshotToResponse(s Snapshot, photoURL string) ParkingResponse {
	resp := ParkingResponse{
		State:   s.State,
		Readout: s.Readout,
		View:    s.View,
		Map:     s.Map,
	}
	if s.State == StateHasRecord && s.Record != nil {
		ts := s.Record.Timestamp
		resp.Timestamp = &ts
		resp.PhotoURL = photoURL
		resp.Latitude = s.Record.Latitude
		resp.Longitude = s.Record.Longitude
	}
	return resp
}
