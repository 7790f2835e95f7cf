package models

import (
	"fmt"
	"time"
)

// RecordState is the presentation state of the parking record
type RecordState int

const (
	StateNoRecord RecordState = iota
	StateHasRecord
)

func (s RecordState) String() string {
	switch s {
	case StateNoRecord:
		return "no_record"
	case StateHasRecord:
		return "has_record"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON payloads
func (s RecordState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name
func (s *RecordState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "no_record":
		*s = StateNoRecord
	case "has_record":
		*s = StateHasRecord
	default:
		return fmt.Errorf("unknown record state %q", text)
	}
	return nil
}

// SeverityTier classifies elapsed parking time. It is purely presentational.
type SeverityTier string

const (
	TierNormal  SeverityTier = "normal"
	TierWarning SeverityTier = "warning"
	TierDanger  SeverityTier = "danger"
)

// Readout is one tick of the elapsed-time display
type Readout struct {
	Elapsed        string       `json:"elapsed"`
	ElapsedSeconds int64        `json:"elapsedSeconds"`
	Tier           SeverityTier `json:"tier"`
	Relative       string       `json:"relative"`
	At             time.Time    `json:"at"`
}

// View lists which affordances the client must show
type View struct {
	ShowCaptureForm     bool `json:"showCaptureForm"`
	ShowSavedRecord     bool `json:"showSavedRecord"`
	ShowTimer           bool `json:"showTimer"`
	ShowClearButton     bool `json:"showClearButton"`
	ShowRecaptureButton bool `json:"showRecaptureButton"`
	ShowMap             bool `json:"showMap"`
}

// ViewFor maps a state to its visual affordances
func ViewFor(state RecordState, record *ParkingRecord) View {
	if state != StateHasRecord || !record.IsDisplayable() {
		return View{ShowCaptureForm: true}
	}
	return View{
		ShowSavedRecord:     true,
		ShowTimer:           true,
		ShowClearButton:     true,
		ShowRecaptureButton: true,
		ShowMap:             record.HasLocation(),
	}
}

// MapWidget describes the external map widget. A new InstanceKey means the
// client must tear down its widget and create a fresh one.
type MapWidget struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	InstanceKey uint64  `json:"instanceKey"`
	MapsURL     string  `json:"mapsUrl"`
	Label       string  `json:"label"`
}

// Snapshot is the controller's complete presentation state at one instant
type Snapshot struct {
	State   RecordState
	Record  *ParkingRecord
	Readout *Readout
	View    View
	Map     *MapWidget
}
