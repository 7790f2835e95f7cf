package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/parkit/server/internal/models"
)

// pqDiskFull is the PostgreSQL SQLSTATE for disk_full
const pqDiskFull = "53100"

// SQLKVStore implements KVStore on the kv_store table
type SQLKVStore struct {
	db         DBTX
	quotaBytes int64
}

// NewSQLKVStore creates a new SQLKVStore. Values larger than quotaBytes are
// rejected with ErrQuotaExceeded; zero disables the limit.
func NewSQLKVStore(db DBTX, quotaBytes int64) *SQLKVStore {
	return &SQLKVStore{db: db, quotaBytes: quotaBytes}
}

func (s *SQLKVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *SQLKVStore) Set(ctx context.Context, key string, value []byte) error {
	if s.quotaBytes > 0 && int64(len(value)) > s.quotaBytes {
		return fmt.Errorf("%w: %d bytes exceeds quota of %d", models.ErrQuotaExceeded, len(value), s.quotaBytes)
	}

	query := `
		INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = $3
	`
	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return classifyWriteError(err)
	}
	return nil
}

func (s *SQLKVStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		return classifyWriteError(err)
	}
	return nil
}

// classifyWriteError maps "storage is full" driver errors to ErrQuotaExceeded
func classifyWriteError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrFull {
		return fmt.Errorf("%w: %v", models.ErrQuotaExceeded, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqDiskFull {
		return fmt.Errorf("%w: %v", models.ErrQuotaExceeded, err)
	}

	return err
}
