package repository

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commongames-api/internal/model"
)

func newTestCache(t *testing.T) (*SQLiteGameCache, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "games.db")
	cache, err := NewSQLiteGameCache(dbPath, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache, dbPath
}

func positiveRecord(steamID, igdbID uint64, name string) model.GameRecord {
	return model.GameRecord{
		SteamID:          steamID,
		IGDBID:           &igdbID,
		Name:             name,
		CoverID:          "co" + name,
		HasMultiplayer:   true,
		SupportedPlayers: "4",
	}
}

func TestGameCache_RoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	put := []model.GameRecord{
		positiveRecord(10, 100, "alpha"),
		positiveRecord(20, 200, "beta"),
	}
	require.NoError(t, cache.PutMany(ctx, put))

	got, err := cache.GetMany(ctx, []uint64{10, 20, 30})
	require.NoError(t, err)
	require.Len(t, got, 2)

	alpha := got[10]
	require.NotNil(t, alpha.IGDBID)
	assert.Equal(t, uint64(100), *alpha.IGDBID)
	assert.Equal(t, "alpha", alpha.Name)
	assert.Equal(t, "coalpha", alpha.CoverID)
	assert.True(t, alpha.HasMultiplayer)
	assert.Equal(t, "4", alpha.SupportedPlayers)
	assert.True(t, alpha.ExpiresAt.After(time.Now()), "expiry must be stamped at write time")

	_, ok := got[30]
	assert.False(t, ok)
}

func TestGameCache_NegativeRecordRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.PutMany(ctx, []model.GameRecord{model.NegativeRecord(55)}))

	got, err := cache.GetMany(ctx, []uint64{55})
	require.NoError(t, err)
	require.Len(t, got, 1)

	neg := got[55]
	assert.True(t, neg.IsNegative())
	assert.Empty(t, neg.Name)
	assert.Empty(t, neg.CoverID)
	assert.False(t, neg.HasMultiplayer)
}

func TestGameCache_ExpiredRowsAreAbsent(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.PutMany(ctx, []model.GameRecord{positiveRecord(10, 100, "alpha")}))

	// Jump the clock past the TTL.
	cache.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	got, err := cache.GetMany(ctx, []uint64{10})
	require.NoError(t, err)
	assert.Empty(t, got, "expired rows must be treated as absent, not returned stale")
}

func TestGameCache_UpsertReplaces(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.PutMany(ctx, []model.GameRecord{positiveRecord(10, 100, "old")}))
	require.NoError(t, cache.PutMany(ctx, []model.GameRecord{positiveRecord(10, 100, "new")}))

	got, err := cache.GetMany(ctx, []uint64{10})
	require.NoError(t, err)
	assert.Equal(t, "new", got[10].Name)
}

func TestGameCache_SchemaVersionMismatchRebuildsStore(t *testing.T) {
	cache, dbPath := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.PutMany(ctx, []model.GameRecord{positiveRecord(10, 100, "alpha")}))
	require.NoError(t, cache.Close())

	// Corrupt the version marker the way a deploy of older code would.
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion+1))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := NewSQLiteGameCache(dbPath, time.Hour)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetMany(ctx, []uint64{10})
	require.NoError(t, err)
	assert.Empty(t, got, "a version mismatch must drop all rows")
}

func TestGameCache_DeleteExpired(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.PutMany(ctx, []model.GameRecord{
		positiveRecord(10, 100, "alpha"),
		positiveRecord(20, 200, "beta"),
	}))

	cache.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	deleted, err := cache.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}

func TestGameCache_OpensInWALMode(t *testing.T) {
	cache, _ := newTestCache(t)

	var mode string
	require.NoError(t, cache.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestGameCache_GetManyEmptyInput(t *testing.T) {
	cache, _ := newTestCache(t)

	got, err := cache.GetMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
