package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"commongames-api/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteGameCache implements GameCacheRepository using SQLite.
// Thread-safe with WAL mode for high-concurrency reads.
type SQLiteGameCache struct {
	db  *sql.DB
	ttl time.Duration
	mu  sync.RWMutex

	// now is swappable for tests.
	now func() time.Time
}

// NewSQLiteGameCache opens (or creates) the cache at dbPath. If the persisted
// schema version does not match SchemaVersion the store is destroyed and
// rebuilt empty; there is no partial migration.
func NewSQLiteGameCache(dbPath string, ttl time.Duration) (*SQLiteGameCache, error) {
	// Open with WAL mode and other optimizations
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := prepareSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}

	log.Printf("[SQLiteGameCache] Initialized with database: %s (ttl: %v)", dbPath, ttl)
	return &SQLiteGameCache{db: db, ttl: ttl, now: time.Now}, nil
}

// prepareSchema creates the games table, rebuilding it from scratch when the
// persisted schema version does not match the running code's.
func prepareSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return err
	}

	if version != SchemaVersion {
		if version != 0 {
			log.Printf("[SQLiteGameCache] Schema version mismatch (have %d, want %d), rebuilding store", version, SchemaVersion)
		}
		if _, err := db.Exec("DROP TABLE IF EXISTS steam_games"); err != nil {
			return err
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
			return err
		}
	}

	query := `
	CREATE TABLE IF NOT EXISTS steam_games (
		steam_id INTEGER PRIMARY KEY,
		igdb_id INTEGER,
		name TEXT NOT NULL DEFAULT '',
		cover_id TEXT NOT NULL DEFAULT '',
		has_multiplayer INTEGER NOT NULL DEFAULT 0,
		supported_players TEXT NOT NULL DEFAULT '',
		expires_at REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_games_expires ON steam_games(expires_at);
	`
	_, err := db.Exec(query)
	return err
}

// GetMany returns the unexpired cached records for the given app IDs.
func (r *SQLiteGameCache) GetMany(ctx context.Context, steamIDs []uint64) (map[uint64]model.GameRecord, error) {
	records := make(map[uint64]model.GameRecord, len(steamIDs))
	if len(steamIDs) == 0 {
		return records, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	placeholders := make([]string, len(steamIDs))
	args := make([]interface{}, 0, len(steamIDs)+1)
	for i, id := range steamIDs {
		placeholders[i] = "?"
		args = append(args, int64(id))
	}
	args = append(args, float64(r.now().UnixNano())/float64(time.Second))

	query := fmt.Sprintf(`
		SELECT steam_id, igdb_id, name, cover_id, has_multiplayer, supported_players, expires_at
		FROM steam_games
		WHERE steam_id IN (%s) AND expires_at > ?`,
		strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query game cache: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			steamID   int64
			igdbID    sql.NullInt64
			record    model.GameRecord
			expiresAt float64
		)
		if err := rows.Scan(&steamID, &igdbID, &record.Name, &record.CoverID,
			&record.HasMultiplayer, &record.SupportedPlayers, &expiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}

		record.SteamID = uint64(steamID)
		if igdbID.Valid {
			id := uint64(igdbID.Int64)
			record.IGDBID = &id
		}
		record.ExpiresAt = time.Unix(0, int64(expiresAt*float64(time.Second)))
		records[record.SteamID] = record
	}

	return records, rows.Err()
}

// PutMany upserts records in a single transaction, stamping expiry at write
// time. Last writer wins on overlapping IDs.
func (r *SQLiteGameCache) PutMany(ctx context.Context, records []model.GameRecord) error {
	if len(records) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO steam_games
			(steam_id, igdb_id, name, cover_id, has_multiplayer, supported_players, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	expiresAt := float64(r.now().Add(r.ttl).UnixNano()) / float64(time.Second)
	for _, record := range records {
		var igdbID sql.NullInt64
		if record.IGDBID != nil {
			igdbID = sql.NullInt64{Int64: int64(*record.IGDBID), Valid: true}
		}

		_, err := stmt.ExecContext(ctx, int64(record.SteamID), igdbID, record.Name,
			record.CoverID, record.HasMultiplayer, record.SupportedPlayers, expiresAt)
		if err != nil {
			return fmt.Errorf("failed to upsert game %d: %w", record.SteamID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteExpired purges rows past their expiry.
func (r *SQLiteGameCache) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := float64(r.now().UnixNano()) / float64(time.Second)
	result, err := r.db.ExecContext(ctx, "DELETE FROM steam_games WHERE expires_at <= ?", now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired games: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		log.Printf("[SQLiteGameCache] Purged %d expired game records", deleted)
	}

	return deleted, nil
}

// Close closes the database connection.
func (r *SQLiteGameCache) Close() error {
	return r.db.Close()
}

// Ensure SQLiteGameCache implements GameCacheRepository
var _ GameCacheRepository = (*SQLiteGameCache)(nil)
