package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitelens/sitelens/internal/analysis"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStoreFromPool(mock, zap.NewNop()), mock
}

func TestPostgresStoreGet(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	result := sampleResult(77)
	payload, err := json.Marshal(result)
	require.NoError(t, err)

	created := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	expires := created.Add(time.Hour)

	mock.ExpectQuery("SELECT payload, created_at, expires_at FROM analysis_cache").
		WithArgs("fp").
		WillReturnRows(pgxmock.NewRows([]string{"payload", "created_at", "expires_at"}).
			AddRow(payload, created, expires))

	entry, ok, err := store.Get(context.Background(), "fp")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "fp", entry.Fingerprint)
	require.EqualValues(t, 77, entry.Payload.OverallScore)
	require.Equal(t, expires, entry.ExpiresAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetMiss(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT payload, created_at, expires_at FROM analysis_cache").
		WithArgs("absent").
		WillReturnError(pgx.ErrNoRows)

	_, ok, err := store.Get(context.Background(), "absent")
	require.NoError(t, err, "no rows is a miss, not a failure")
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetBackendError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT payload, created_at, expires_at FROM analysis_cache").
		WithArgs("fp").
		WillReturnError(errors.New("connection reset"))

	_, ok, err := store.Get(context.Background(), "fp")
	require.Error(t, err)
	require.False(t, ok)
}

func TestPostgresStoreSet(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	result := sampleResult(42)
	payload, err := json.Marshal(result)
	require.NoError(t, err)

	created := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	expires := created.Add(time.Hour)

	mock.ExpectExec("INSERT INTO analysis_cache").
		WithArgs("fp", payload, created, expires).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.Set(context.Background(), analysis.CacheEntry{
		Fingerprint: "fp",
		Payload:     result,
		CreatedAt:   created,
		ExpiresAt:   expires,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreDelete(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM analysis_cache WHERE fingerprint").
		WithArgs("fp").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, store.Delete(context.Background(), "fp"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreSweep(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("DELETE FROM analysis_cache WHERE expires_at").
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	dropped, err := store.Sweep(context.Background(), now)
	require.NoError(t, err)
	require.EqualValues(t, 3, dropped)
	require.NoError(t, mock.ExpectationsWereMet())
}
