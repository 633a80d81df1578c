package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"commongames-api/internal/intersect"
	"commongames-api/internal/model"
	"commongames-api/internal/repository"
	"commongames-api/internal/steam"
)

// Policy bounds on how many users one intersection request may name.
const (
	MinIntersectUsers = 2
	MaxIntersectUsers = 10
)

// ErrUserCountOutOfRange is returned before any network call when the request
// names fewer than MinIntersectUsers or more than MaxIntersectUsers distinct
// users.
var ErrUserCountOutOfRange = fmt.Errorf(
	"between %d and %d distinct users are required", MinIntersectUsers, MaxIntersectUsers)

// UserErrorReason classifies per-user business failures.
type UserErrorReason int

const (
	// ReasonGamesPrivate means the user's games list is private or otherwise
	// inaccessible.
	ReasonGamesPrivate UserErrorReason = iota
	// ReasonEmptyLibrary means the user legitimately owns no games, so there
	// is nothing to intersect.
	ReasonEmptyLibrary
)

// UserError is a business failure tagged to the specific user that triggered
// it. It is an expected condition, not a system error.
type UserError struct {
	SteamID uint64
	Reason  UserErrorReason
}

func (e *UserError) Error() string {
	switch e.Reason {
	case ReasonEmptyLibrary:
		return fmt.Sprintf("the user with Steam ID %d has no games to intersect", e.SteamID)
	default:
		return fmt.Sprintf("the user with Steam ID %d has their games list set to private", e.SteamID)
	}
}

// LibraryClient is the part of the Steam client the game service depends on.
type LibraryClient interface {
	GetOwnedGames(ctx context.Context, steamID uint64, includeFree bool) (intersect.Set, error)
}

// CatalogClient is the part of the IGDB client the game service depends on.
type CatalogClient interface {
	GetGameInfo(ctx context.Context, appIDs []uint64) (found []model.GameRecord, notFound map[uint64]struct{}, err error)
}

// GameService intersects user libraries and enriches the result with catalog
// metadata through the persistent game cache.
type GameService struct {
	library LibraryClient
	catalog CatalogClient
	cache   repository.GameCacheRepository
}

// NewGameService creates a game service. Returns nil if either upstream
// client is missing (required dependencies); cache may be nil, which degrades
// every request to a full remote fetch.
func NewGameService(library LibraryClient, catalog CatalogClient, cache repository.GameCacheRepository) *GameService {
	if library == nil || catalog == nil {
		return nil
	}
	return &GameService{
		library: library,
		catalog: catalog,
		cache:   cache,
	}
}

// IntersectGames computes the games all given users own in common, enriched
// with catalog metadata. Libraries are fetched sequentially so the loop can
// stop as soon as the running intersection is provably empty; remaining
// users' libraries are never requested.
//
// Business failures (private list, empty library) come back as *UserError
// naming the offending user. Cache failures never fail the request; they just
// cost a full catalog fetch.
func (s *GameService) IntersectGames(ctx context.Context, steamIDs []uint64, includeFree bool) ([]model.GameRecord, error) {
	if len(steamIDs) < MinIntersectUsers || len(steamIDs) > MaxIntersectUsers {
		return nil, ErrUserCountOutOfRange
	}

	var acc intersect.Accumulator
	for _, id := range steamIDs {
		games, err := s.library.GetOwnedGames(ctx, id, includeFree)
		if err != nil {
			if errors.Is(err, steam.ErrGamesPrivate) {
				return nil, &UserError{SteamID: id, Reason: ReasonGamesPrivate}
			}
			return nil, fmt.Errorf("failed to fetch games of user %d: %w", id, err)
		}
		if len(games) == 0 {
			return nil, &UserError{SteamID: id, Reason: ReasonEmptyLibrary}
		}
		if acc.Add(games) {
			return []model.GameRecord{}, nil
		}
	}

	common := make([]uint64, 0, len(acc.Result()))
	for id := range acc.Result() {
		common = append(common, id)
	}

	records, err := s.enrich(ctx, common)
	if err != nil {
		return nil, err
	}

	// Stable output for callers: alphabetical, app ID as tie-breaker.
	sort.Slice(records, func(i, j int) bool {
		if records[i].Name != records[j].Name {
			return records[i].Name < records[j].Name
		}
		return records[i].SteamID < records[j].SteamID
	})

	return records, nil
}

// enrich resolves catalog metadata for the given app IDs: cached records are
// served from the store, the remainder is fetched from IGDB and written back,
// including negative entries for IDs the catalog does not know. Negative
// entries are filtered from the visible result.
func (s *GameService) enrich(ctx context.Context, appIDs []uint64) ([]model.GameRecord, error) {
	cached := s.getCached(ctx, appIDs)

	uncached := make([]uint64, 0, len(appIDs))
	for _, id := range appIDs {
		if _, ok := cached[id]; !ok {
			uncached = append(uncached, id)
		}
	}

	visible := make([]model.GameRecord, 0, len(appIDs))
	for _, record := range cached {
		if !record.IsNegative() {
			visible = append(visible, record)
		}
	}

	if len(uncached) == 0 {
		return visible, nil
	}

	found, notFound, err := s.catalog.GetGameInfo(ctx, uncached)
	if err != nil {
		return nil, err
	}

	toPersist := make([]model.GameRecord, 0, len(found)+len(notFound))
	toPersist = append(toPersist, found...)
	for id := range notFound {
		toPersist = append(toPersist, model.NegativeRecord(id))
	}

	if s.cache != nil {
		if err := s.cache.PutMany(ctx, toPersist); err != nil {
			// Caching is best-effort, never load-bearing.
			log.Printf("[GameService] Failed to persist %d records to game cache: %v", len(toPersist), err)
		}
	}

	return append(visible, found...), nil
}

// getCached reads the game cache, degrading to "fully uncached" on any store
// failure.
func (s *GameService) getCached(ctx context.Context, appIDs []uint64) map[uint64]model.GameRecord {
	if s.cache == nil {
		return map[uint64]model.GameRecord{}
	}

	cached, err := s.cache.GetMany(ctx, appIDs)
	if err != nil {
		log.Printf("[GameService] Game cache read failed, fetching everything remotely: %v", err)
		return map[uint64]model.GameRecord{}
	}
	return cached
}
