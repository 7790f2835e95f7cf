package repository

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/parkit/server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T, quotaBytes int64) (*RecordStore, *SQLKVStore) {
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "parkit-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	kv := NewSQLKVStore(db, quotaBytes)
	return NewRecordStore(kv), kv
}

func newTestRecord(t *testing.T, photo string, coords *models.Coordinates) *models.ParkingRecord {
	record, err := models.NewParkingRecord(photo, coords, time.Date(2024, 3, 15, 8, 0, 0, 250000000, time.UTC))
	require.NoError(t, err)
	return record
}

func assertSameRecord(t *testing.T, want, got *models.ParkingRecord) {
	t.Helper()
	require.NotNil(t, got)
	assert.True(t, want.Timestamp.Equal(got.Timestamp), "timestamp %v != %v", want.Timestamp, got.Timestamp)
	assert.Equal(t, want.Photo, got.Photo)
	assert.Equal(t, want.Latitude, got.Latitude)
	assert.Equal(t, want.Longitude, got.Longitude)
}

func TestRecordStore_SaveLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("load on empty store returns nil", func(t *testing.T) {
		store, _ := setupTestStore(t, 0)

		record, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("round trips record without coordinates", func(t *testing.T) {
		store, _ := setupTestStore(t, 0)
		want := newTestRecord(t, "data:image/jpeg;base64,AAAA", nil)

		require.NoError(t, store.Save(ctx, want))
		got, err := store.Load(ctx)

		require.NoError(t, err)
		assertSameRecord(t, want, got)
	})

	t.Run("round trips record with coordinates", func(t *testing.T) {
		store, _ := setupTestStore(t, 0)
		want := newTestRecord(t, "data:image/jpeg;base64,BBBB", &models.Coordinates{Latitude: -33.8688, Longitude: 151.2093})

		require.NoError(t, store.Save(ctx, want))
		got, err := store.Load(ctx)

		require.NoError(t, err)
		assertSameRecord(t, want, got)
	})

	t.Run("round trips timestamps outside UTC millisecond precision", func(t *testing.T) {
		store, _ := setupTestStore(t, 0)
		lat, lon := 35.6586, 139.7454
		want := &models.ParkingRecord{
			Timestamp: time.Date(2024, 5, 1, 9, 30, 0, 123456789, time.FixedZone("KST", 9*60*60)),
			Photo:     "data:image/jpeg;base64,CCCC",
			Latitude:  &lat,
			Longitude: &lon,
		}

		require.NoError(t, store.Save(ctx, want))
		got, err := store.Load(ctx)

		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, time.Date(2024, 5, 1, 0, 30, 0, 123000000, time.UTC), got.Timestamp)
	})

	t.Run("second save fully replaces the first", func(t *testing.T) {
		store, _ := setupTestStore(t, 0)
		first := newTestRecord(t, "data:image/jpeg;base64,FIRST", &models.Coordinates{Latitude: 1, Longitude: 2})
		second := newTestRecord(t, "data:image/jpeg;base64,SECOND", nil)
		second.Timestamp = second.Timestamp.Add(time.Hour)

		require.NoError(t, store.Save(ctx, first))
		require.NoError(t, store.Save(ctx, second))
		got, err := store.Load(ctx)

		require.NoError(t, err)
		assertSameRecord(t, second, got)
		assert.Nil(t, got.Latitude)
	})

	t.Run("rejects record without photo", func(t *testing.T) {
		store, _ := setupTestStore(t, 0)

		err := store.Save(ctx, &models.ParkingRecord{Timestamp: time.Now()})
		assert.ErrorIs(t, err, models.ErrEmptyPhoto)
	})
}

func TestRecordStore_Quota(t *testing.T) {
	ctx := context.Background()

	t.Run("oversized save fails and keeps prior record", func(t *testing.T) {
		store, _ := setupTestStore(t, 256)
		prior := newTestRecord(t, "data:image/jpeg;base64,SMALL", nil)
		require.NoError(t, store.Save(ctx, prior))

		huge := newTestRecord(t, "data:image/jpeg;base64,"+strings.Repeat("A", 1024), nil)
		err := store.Save(ctx, huge)

		assert.ErrorIs(t, err, models.ErrQuotaExceeded)
		got, loadErr := store.Load(ctx)
		require.NoError(t, loadErr)
		assertSameRecord(t, prior, got)
	})
}

func TestRecordStore_Clear(t *testing.T) {
	ctx := context.Background()

	t.Run("clear then load returns nil", func(t *testing.T) {
		store, _ := setupTestStore(t, 0)
		require.NoError(t, store.Save(ctx, newTestRecord(t, "data:image/jpeg;base64,AAAA", nil)))

		require.NoError(t, store.Clear(ctx))
		got, err := store.Load(ctx)

		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("clear on empty store succeeds", func(t *testing.T) {
		store, _ := setupTestStore(t, 0)
		assert.NoError(t, store.Clear(ctx))
	})
}

func TestRecordStore_CorruptData(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"not json", "{{{", models.ErrCorruptRecord},
		{"foreign json", `["a","b"]`, models.ErrCorruptRecord},
		{"bad timestamp", `{"timestamp":"yesterday","photo":"data:image/jpeg;base64,AA=="}`, models.ErrCorruptRecord},
		{"half coordinates", `{"timestamp":"2024-01-01T00:00:00.000Z","photo":"p","latitude":1}`, models.ErrCorruptRecord},
		{"missing photo is absent", `{"timestamp":"2024-01-01T00:00:00.000Z"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, kv := setupTestStore(t, 0)
			require.NoError(t, kv.Set(ctx, RecordKey, []byte(tt.raw)))

			record, err := store.Load(ctx)

			assert.Nil(t, record)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}

	t.Run("accepts browser-style timestamps", func(t *testing.T) {
		store, kv := setupTestStore(t, 0)
		raw := `{"timestamp":"2024-01-01T12:34:56.789Z","photo":"data:image/jpeg;base64,AA==","latitude":37.5,"longitude":127.0}`
		require.NoError(t, kv.Set(ctx, RecordKey, []byte(raw)))

		record, err := store.Load(ctx)

		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 1, 12, 34, 56, 789000000, time.UTC), record.Timestamp)
		assert.True(t, record.HasLocation())
	})
}

func TestRecordStore_Flags(t *testing.T) {
	ctx := context.Background()
	store, kv := setupTestStore(t, 0)

	value, err := store.GetFlag(ctx, FlagGuideDismissed)
	require.NoError(t, err)
	assert.False(t, value)

	require.NoError(t, store.SetFlag(ctx, FlagGuideDismissed, true))
	value, err = store.GetFlag(ctx, FlagGuideDismissed)
	require.NoError(t, err)
	assert.True(t, value)

	require.NoError(t, store.Clear(ctx))
	value, err = store.GetFlag(ctx, FlagGuideDismissed)
	require.NoError(t, err)
	assert.True(t, value, "clearing the record must not touch the guide flag")

	require.NoError(t, kv.Set(ctx, FlagGuideDismissed, []byte("maybe")))
	_, err = store.GetFlag(ctx, FlagGuideDismissed)
	assert.ErrorIs(t, err, models.ErrCorruptRecord)
}

type failingKV struct {
	err error
}

func (f failingKV) Get(context.Context, string) ([]byte, bool, error) { return nil, false, f.err }
func (f failingKV) Set(context.Context, string, []byte) error         { return f.err }
func (f failingKV) Delete(context.Context, string) error              { return f.err }

func TestRecordStore_DriverErrors(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore(failingKV{err: errors.New("disk I/O error")})

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, models.ErrStore)

	err = store.Save(ctx, newTestRecord(t, "data:image/jpeg;base64,AAAA", nil))
	assert.ErrorIs(t, err, models.ErrStore)

	err = store.Clear(ctx)
	assert.ErrorIs(t, err, models.ErrStore)
}
