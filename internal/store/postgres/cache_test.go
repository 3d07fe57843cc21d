package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCacheWithMock(t *testing.T) (*CacheStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	c := NewCacheStore(db)
	c.now = func() time.Time { return fixedNow }
	return c, mock
}

func TestCacheStoreGet(t *testing.T) {
	c, mock := newCacheWithMock(t)

	mock.ExpectQuery("FROM cache_entries").WithArgs("hit", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte("payload")))
	value, ok, err := c.Get(context.Background(), "hit")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "payload", string(value))

	mock.ExpectQuery("FROM cache_entries").WithArgs("miss", fixedNow).WillReturnError(sql.ErrNoRows)
	_, ok, err = c.Get(context.Background(), "miss")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheStorePut(t *testing.T) {
	c, mock := newCacheWithMock(t)

	mock.ExpectExec("INSERT INTO cache_entries").
		WithArgs("k", []byte("v"), fixedNow.Add(time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, c.Put(context.Background(), "k", []byte("v"), time.Hour))

	mock.ExpectExec("DELETE FROM cache_entries WHERE key").WithArgs("k").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, c.Put(context.Background(), "k", nil, 0))

	mock.ExpectExec("DELETE FROM cache_entries WHERE expires_at").WithArgs(fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 3))
	n, err := c.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	assert.NoError(t, mock.ExpectationsWereMet())
}
