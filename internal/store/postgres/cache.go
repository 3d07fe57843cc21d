package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fjacquet/csv-ingest/internal/cache"
)

// CacheStore implements cache.Store on the cache_entries table.
type CacheStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewCacheStore wraps an open database.
func NewCacheStore(db *sql.DB) *CacheStore {
	return &CacheStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the live value for key.
func (c *CacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := c.db.QueryRowContext(ctx, `
SELECT value
FROM cache_entries
WHERE key = $1 AND expires_at > $2
`, key, c.now()).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}
	return value, true, nil
}

// Put stores value under key for ttl.
func (c *CacheStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = $1`, key); err != nil {
			return fmt.Errorf("delete cache entry: %w", err)
		}
		return nil
	}
	_, err := c.db.ExecContext(ctx, `
INSERT INTO cache_entries (key, value, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
`, key, value, c.now().Add(ttl))
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// PurgeExpired removes expired entries and returns how many were deleted.
func (c *CacheStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= $1`, c.now())
	if err != nil {
		return 0, fmt.Errorf("purge cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge cache rows affected: %w", err)
	}
	return n, nil
}

var _ cache.Store = (*CacheStore)(nil)
