package repository

import (
	"context"
	"database/sql"

	"github.com/parkit/server/internal/models"
)

// DBTX is the subset of *sql.DB used by the stores. The traced wrapper in
// the observability package satisfies it too.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// KVStore is a byte-valued key-value store with single-key atomic replace
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// RecordRepo defines persistence of the current parking record and UI flags
type RecordRepo interface {
	Load(ctx context.Context) (*models.ParkingRecord, error)
	Save(ctx context.Context, record *models.ParkingRecord) error
	Clear(ctx context.Context) error
	GetFlag(ctx context.Context, name string) (bool, error)
	SetFlag(ctx context.Context, name string, value bool) error
}
