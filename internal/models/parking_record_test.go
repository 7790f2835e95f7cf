package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParkingRecord(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 15, 123456789, time.FixedZone("KST", 9*3600))

	t.Run("creates record without coordinates", func(t *testing.T) {
		record, err := NewParkingRecord("data:image/jpeg;base64,AAAA", nil, at)

		require.NoError(t, err)
		assert.True(t, record.IsDisplayable())
		assert.False(t, record.HasLocation())
		assert.Nil(t, record.Latitude)
		assert.Nil(t, record.Longitude)
	})

	t.Run("normalizes timestamp to UTC milliseconds", func(t *testing.T) {
		record, err := NewParkingRecord("data:image/jpeg;base64,AAAA", nil, at)

		require.NoError(t, err)
		assert.Equal(t, time.UTC, record.Timestamp.Location())
		assert.Equal(t, 123000000, record.Timestamp.Nanosecond())
		assert.True(t, record.Timestamp.Equal(at.Truncate(time.Millisecond)))
	})

	t.Run("sets both coordinates together", func(t *testing.T) {
		coords := &Coordinates{Latitude: 37.5665, Longitude: 126.978, Source: LocationSourceClient}

		record, err := NewParkingRecord("data:image/jpeg;base64,AAAA", coords, at)

		require.NoError(t, err)
		lat, lon, ok := record.Location()
		assert.True(t, ok)
		assert.Equal(t, 37.5665, lat)
		assert.Equal(t, 126.978, lon)
	})

	t.Run("rejects empty photo", func(t *testing.T) {
		_, err := NewParkingRecord("   ", nil, at)
		assert.ErrorIs(t, err, ErrEmptyPhoto)
	})

	t.Run("rejects out of range coordinates", func(t *testing.T) {
		_, err := NewParkingRecord("photo", &Coordinates{Latitude: 91, Longitude: 0}, at)
		assert.ErrorIs(t, err, ErrInvalidCoordinates)

		_, err = NewParkingRecord("photo", &Coordinates{Latitude: 0, Longitude: math.NaN()}, at)
		assert.ErrorIs(t, err, ErrInvalidCoordinates)
	})
}

func TestParkingRecord_Validate(t *testing.T) {
	lat := 10.0
	lon := 20.0

	tests := []struct {
		name    string
		record  ParkingRecord
		wantErr error
	}{
		{"no coordinates", ParkingRecord{Photo: "p"}, nil},
		{"both coordinates", ParkingRecord{Photo: "p", Latitude: &lat, Longitude: &lon}, nil},
		{"latitude only", ParkingRecord{Photo: "p", Latitude: &lat}, ErrPartialCoordinates},
		{"longitude only", ParkingRecord{Photo: "p", Longitude: &lon}, ErrPartialCoordinates},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestParkingRecord_IsDisplayable(t *testing.T) {
	var nilRecord *ParkingRecord
	assert.False(t, nilRecord.IsDisplayable())
	assert.False(t, (&ParkingRecord{Timestamp: time.Now()}).IsDisplayable())
	assert.True(t, (&ParkingRecord{Photo: "data:image/jpeg;base64,AA=="}).IsDisplayable())
}

func TestSameLocation(t *testing.T) {
	a, b := 1.0, 2.0
	c := 3.0

	withAB := &ParkingRecord{Latitude: &a, Longitude: &b}
	withAC := &ParkingRecord{Latitude: &a, Longitude: &c}
	without := &ParkingRecord{}

	assert.True(t, SameLocation(withAB, &ParkingRecord{Latitude: &a, Longitude: &b}))
	assert.False(t, SameLocation(withAB, withAC))
	assert.False(t, SameLocation(withAB, without))
	assert.True(t, SameLocation(without, nil))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "quota_exceeded", ErrorCode(ErrQuotaExceeded))
	assert.Equal(t, "", ErrorCode(assert.AnError))
}
