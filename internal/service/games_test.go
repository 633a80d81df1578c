package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commongames-api/internal/igdb"
	"commongames-api/internal/intersect"
	"commongames-api/internal/model"
	"commongames-api/internal/steam"
)

// fakeLibrary serves canned owned-game sets and records which users were
// actually fetched.
type fakeLibrary struct {
	libraries map[uint64]intersect.Set
	errs      map[uint64]error
	fetched   []uint64
}

func (f *fakeLibrary) GetOwnedGames(ctx context.Context, steamID uint64, includeFree bool) (intersect.Set, error) {
	f.fetched = append(f.fetched, steamID)
	if err, ok := f.errs[steamID]; ok {
		return nil, err
	}
	return f.libraries[steamID], nil
}

// fakeCatalog serves canned catalog records.
type fakeCatalog struct {
	records  map[uint64]model.GameRecord
	err      error
	requests [][]uint64
}

func (f *fakeCatalog) GetGameInfo(ctx context.Context, appIDs []uint64) ([]model.GameRecord, map[uint64]struct{}, error) {
	f.requests = append(f.requests, appIDs)
	if f.err != nil {
		return nil, nil, f.err
	}

	var found []model.GameRecord
	notFound := make(map[uint64]struct{})
	for _, id := range appIDs {
		if record, ok := f.records[id]; ok {
			found = append(found, record)
		} else {
			notFound[id] = struct{}{}
		}
	}
	return found, notFound, nil
}

// fakeGameCache is an in-memory stand-in for the persistent store.
type fakeGameCache struct {
	records map[uint64]model.GameRecord
	getErr  error
	putErr  error
	puts    [][]model.GameRecord
}

func newFakeGameCache() *fakeGameCache {
	return &fakeGameCache{records: make(map[uint64]model.GameRecord)}
}

func (f *fakeGameCache) GetMany(ctx context.Context, steamIDs []uint64) (map[uint64]model.GameRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make(map[uint64]model.GameRecord)
	for _, id := range steamIDs {
		if record, ok := f.records[id]; ok {
			out[id] = record
		}
	}
	return out, nil
}

func (f *fakeGameCache) PutMany(ctx context.Context, records []model.GameRecord) error {
	f.puts = append(f.puts, records)
	if f.putErr != nil {
		return f.putErr
	}
	for _, record := range records {
		f.records[record.SteamID] = record
	}
	return nil
}

func (f *fakeGameCache) DeleteExpired(ctx context.Context) (int64, error) { return 0, nil }
func (f *fakeGameCache) Close() error                                     { return nil }

func record(steamID, igdbID uint64, name string) model.GameRecord {
	return model.GameRecord{
		SteamID:          steamID,
		IGDBID:           &igdbID,
		Name:             name,
		SupportedPlayers: "4",
		HasMultiplayer:   true,
	}
}

func TestIntersectGames_EnrichesAndNegativeCaches(t *testing.T) {
	library := &fakeLibrary{libraries: map[uint64]intersect.Set{
		1: intersect.NewSet(1, 2, 3),
		2: intersect.NewSet(2, 3, 4),
	}}
	catalog := &fakeCatalog{records: map[uint64]model.GameRecord{
		2: record(2, 200, "Covenant Keep"),
	}}
	gameCache := newFakeGameCache()

	svc := NewGameService(library, catalog, gameCache)
	games, err := svc.IntersectGames(context.Background(), []uint64{1, 2}, false)
	require.NoError(t, err)

	// App 3 is unknown to the catalog: negative-cached, not returned.
	require.Len(t, games, 1)
	assert.Equal(t, uint64(2), games[0].SteamID)
	assert.Equal(t, "Covenant Keep", games[0].Name)

	require.Len(t, gameCache.puts, 1)
	assert.Len(t, gameCache.puts[0], 2)
	negative, ok := gameCache.records[3]
	require.True(t, ok, "not-found IDs must be negative-cached")
	assert.True(t, negative.IsNegative())
}

func TestIntersectGames_EmptyLibraryAbortsEarly(t *testing.T) {
	library := &fakeLibrary{libraries: map[uint64]intersect.Set{
		1: {},
		2: intersect.NewSet(1, 2),
		3: intersect.NewSet(1, 2),
	}}
	catalog := &fakeCatalog{}

	svc := NewGameService(library, catalog, newFakeGameCache())
	_, err := svc.IntersectGames(context.Background(), []uint64{1, 2, 3}, false)

	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, uint64(1), userErr.SteamID)
	assert.Equal(t, ReasonEmptyLibrary, userErr.Reason)

	assert.Equal(t, []uint64{1}, library.fetched, "remaining users must not be fetched")
	assert.Empty(t, catalog.requests)
}

func TestIntersectGames_PrivateListNamesUser(t *testing.T) {
	library := &fakeLibrary{
		libraries: map[uint64]intersect.Set{1: intersect.NewSet(1)},
		errs:      map[uint64]error{2: steam.ErrGamesPrivate},
	}

	svc := NewGameService(library, &fakeCatalog{}, newFakeGameCache())
	_, err := svc.IntersectGames(context.Background(), []uint64{1, 2}, false)

	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, uint64(2), userErr.SteamID)
	assert.Equal(t, ReasonGamesPrivate, userErr.Reason)
}

func TestIntersectGames_EmptyIntersectionShortCircuits(t *testing.T) {
	library := &fakeLibrary{libraries: map[uint64]intersect.Set{
		1: intersect.NewSet(1, 2),
		2: intersect.NewSet(3, 4),
		3: intersect.NewSet(1, 2),
	}}
	catalog := &fakeCatalog{}

	svc := NewGameService(library, catalog, newFakeGameCache())
	games, err := svc.IntersectGames(context.Background(), []uint64{1, 2, 3}, false)
	require.NoError(t, err)
	assert.Empty(t, games)

	assert.Equal(t, []uint64{1, 2}, library.fetched, "fetching must stop once the intersection is empty")
	assert.Empty(t, catalog.requests, "an empty intersection needs no catalog lookups")
}

func TestIntersectGames_UserCountBounds(t *testing.T) {
	library := &fakeLibrary{}
	svc := NewGameService(library, &fakeCatalog{}, newFakeGameCache())

	_, err := svc.IntersectGames(context.Background(), []uint64{1}, false)
	assert.ErrorIs(t, err, ErrUserCountOutOfRange)

	eleven := make([]uint64, 11)
	for i := range eleven {
		eleven[i] = uint64(i + 1)
	}
	_, err = svc.IntersectGames(context.Background(), eleven, false)
	assert.ErrorIs(t, err, ErrUserCountOutOfRange)

	assert.Empty(t, library.fetched, "bounds are checked before any network call")
}

func TestIntersectGames_ServesCachedAndFiltersNegatives(t *testing.T) {
	library := &fakeLibrary{libraries: map[uint64]intersect.Set{
		1: intersect.NewSet(2, 3),
		2: intersect.NewSet(2, 3),
	}}
	catalog := &fakeCatalog{}
	gameCache := newFakeGameCache()
	gameCache.records[2] = record(2, 200, "Covenant Keep")
	gameCache.records[3] = model.NegativeRecord(3)

	svc := NewGameService(library, catalog, gameCache)
	games, err := svc.IntersectGames(context.Background(), []uint64{1, 2}, false)
	require.NoError(t, err)

	require.Len(t, games, 1)
	assert.Equal(t, uint64(2), games[0].SteamID)
	assert.Empty(t, catalog.requests, "fully cached intersections need no catalog call")
}

func TestIntersectGames_CacheReadFailureDegradesToRemoteFetch(t *testing.T) {
	library := &fakeLibrary{libraries: map[uint64]intersect.Set{
		1: intersect.NewSet(2),
		2: intersect.NewSet(2),
	}}
	catalog := &fakeCatalog{records: map[uint64]model.GameRecord{
		2: record(2, 200, "Covenant Keep"),
	}}
	gameCache := newFakeGameCache()
	gameCache.getErr = errors.New("disk on fire")

	svc := NewGameService(library, catalog, gameCache)
	games, err := svc.IntersectGames(context.Background(), []uint64{1, 2}, false)
	require.NoError(t, err, "a broken cache must not fail the request")
	require.Len(t, games, 1)
	require.Len(t, catalog.requests, 1)
}

func TestIntersectGames_CacheWriteFailureIsSwallowed(t *testing.T) {
	library := &fakeLibrary{libraries: map[uint64]intersect.Set{
		1: intersect.NewSet(2),
		2: intersect.NewSet(2),
	}}
	catalog := &fakeCatalog{records: map[uint64]model.GameRecord{
		2: record(2, 200, "Covenant Keep"),
	}}
	gameCache := newFakeGameCache()
	gameCache.putErr = errors.New("disk full")

	svc := NewGameService(library, catalog, gameCache)
	games, err := svc.IntersectGames(context.Background(), []uint64{1, 2}, false)
	require.NoError(t, err)
	assert.Len(t, games, 1)
}

func TestIntersectGames_CatalogTimeoutAbortsWithoutCacheWrites(t *testing.T) {
	library := &fakeLibrary{libraries: map[uint64]intersect.Set{
		1: intersect.NewSet(2),
		2: intersect.NewSet(2),
	}}
	catalog := &fakeCatalog{err: igdb.ErrConnectTimeout}
	gameCache := newFakeGameCache()

	svc := NewGameService(library, catalog, gameCache)
	_, err := svc.IntersectGames(context.Background(), []uint64{1, 2}, false)
	assert.ErrorIs(t, err, igdb.ErrConnectTimeout)
	assert.Empty(t, gameCache.puts, "no cache writes may happen on a failed catalog call")
}

func TestIntersectGames_ResultIsSortedByName(t *testing.T) {
	library := &fakeLibrary{libraries: map[uint64]intersect.Set{
		1: intersect.NewSet(1, 2, 3),
		2: intersect.NewSet(1, 2, 3),
	}}
	catalog := &fakeCatalog{records: map[uint64]model.GameRecord{
		1: record(1, 100, "Zephyr"),
		2: record(2, 200, "Aurora"),
		3: record(3, 300, "Meridian"),
	}}

	svc := NewGameService(library, catalog, newFakeGameCache())
	games, err := svc.IntersectGames(context.Background(), []uint64{1, 2}, false)
	require.NoError(t, err)
	require.Len(t, games, 3)

	assert.Equal(t, "Aurora", games[0].Name)
	assert.Equal(t, "Meridian", games[1].Name)
	assert.Equal(t, "Zephyr", games[2].Name)
}
