package repository

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/parkit/server/internal/models"
)

const (
	// RecordKey holds the serialized current parking record
	RecordKey = "parkit.location"
	// FlagGuideDismissed is set once the user opts out of the help guide
	FlagGuideDismissed = "parkit.guide_dismissed"
)

// isoMillis matches the ISO-8601 form browsers produce for timestamps
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// storedRecord is the persisted layout of a parking record
type storedRecord struct {
	Timestamp string   `json:"timestamp"`
	Photo     string   `json:"photo"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// RecordStore implements RecordRepo on top of a KVStore
type RecordStore struct {
	kv KVStore
}

// NewRecordStore creates a new RecordStore
func NewRecordStore(kv KVStore) *RecordStore {
	return &RecordStore{kv: kv}
}

// Load returns the current parking record, or nil when none is stored.
// Unreadable data yields ErrCorruptRecord; callers treat it as absent.
func (s *RecordStore) Load(ctx context.Context) (*models.ParkingRecord, error) {
	data, ok, err := s.kv.Get(ctx, RecordKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStore, err)
	}
	if !ok {
		return nil, nil
	}

	var stored storedRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCorruptRecord, err)
	}

	if stored.Photo == "" {
		return nil, nil
	}

	ts, err := time.Parse(time.RFC3339Nano, stored.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp %q", models.ErrCorruptRecord, stored.Timestamp)
	}

	record := &models.ParkingRecord{
		Timestamp: ts.UTC(),
		Photo:     stored.Photo,
		Latitude:  stored.Latitude,
		Longitude: stored.Longitude,
	}
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCorruptRecord, err)
	}

	return record, nil
}

// Save replaces the stored record unconditionally. The record's timestamp
// is normalized to UTC milliseconds, the precision that is persisted, so a
// later Load returns an equal record.
func (s *RecordStore) Save(ctx context.Context, record *models.ParkingRecord) error {
	if !record.IsDisplayable() {
		return models.ErrEmptyPhoto
	}
	if err := record.Validate(); err != nil {
		return err
	}

	record.Timestamp = record.Timestamp.UTC().Truncate(time.Millisecond)

	data, err := json.Marshal(storedRecord{
		Timestamp: record.Timestamp.Format(isoMillis),
		Photo:     record.Photo,
		Latitude:  record.Latitude,
		Longitude: record.Longitude,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStore, err)
	}

	return wrapStoreError(s.kv.Set(ctx, RecordKey, data))
}

// Clear removes the stored record
func (s *RecordStore) Clear(ctx context.Context) error {
	return wrapStoreError(s.kv.Delete(ctx, RecordKey))
}

// GetFlag returns a boolean flag; absent flags are false
func (s *RecordStore) GetFlag(ctx context.Context, name string) (bool, error) {
	data, ok, err := s.kv.Get(ctx, name)
	if err != nil {
		return false, fmt.Errorf("%w: %v", models.ErrStore, err)
	}
	if !ok {
		return false, nil
	}

	var value bool
	if err := json.Unmarshal(data, &value); err != nil {
		return false, fmt.Errorf("%w: flag %s: %v", models.ErrCorruptRecord, name, err)
	}
	return value, nil
}

// SetFlag stores a boolean flag
func (s *RecordStore) SetFlag(ctx context.Context, name string, value bool) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStore, err)
	}
	return wrapStoreError(s.kv.Set(ctx, name, data))
}

// wrapStoreError tags driver failures as ErrStore, leaving quota errors as they are
func wrapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if models.ErrorCode(err) != "" {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrStore, err)
}
