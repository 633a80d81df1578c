package repository

import (
	"context"

	"commongames-api/internal/model"
)

// SchemaVersion guards persisted game records against incompatible layouts.
// A store whose persisted version differs is destroyed and rebuilt empty.
const SchemaVersion = 1

// GameCacheRepository is the persistent cache of game metadata keyed by
// Steam app ID. Caching is best-effort: callers must treat any error as
// "fully uncached" and never fail a request because the store misbehaved.
type GameCacheRepository interface {
	// GetMany returns the cached records for the given app IDs, skipping
	// rows that have passed their expiry. Negative-cache rows (nil IGDBID)
	// are returned like any other unexpired row.
	GetMany(ctx context.Context, steamIDs []uint64) (map[uint64]model.GameRecord, error)

	// PutMany upserts the given records in a single transaction, stamping
	// each row's expiry at write time.
	PutMany(ctx context.Context, records []model.GameRecord) error

	// DeleteExpired purges rows past their expiry and reports how many went.
	DeleteExpired(ctx context.Context) (int64, error)

	// Close closes the repository connection.
	Close() error
}
