package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"commongames-api/internal/model"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// MySQLGameCache implements GameCacheRepository on MySQL, for deployments
// that already run one. The schema version lives in a one-row meta table
// since MySQL has no PRAGMA user_version equivalent.
type MySQLGameCache struct {
	db  *sql.DB
	ttl time.Duration

	now func() time.Time
}

// NewMySQLGameCache connects to MySQL and prepares the cache tables,
// rebuilding them when the persisted schema version does not match.
func NewMySQLGameCache(dsn string, ttl time.Duration) (*MySQLGameCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if err := prepareMySQLSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}

	log.Printf("[MySQLGameCache] Initialized (ttl: %v)", ttl)
	return &MySQLGameCache{db: db, ttl: ttl, now: time.Now}, nil
}

func prepareMySQLSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cache_meta (
			id TINYINT PRIMARY KEY,
			schema_version INT NOT NULL
		)`)
	if err != nil {
		return err
	}

	var version int
	err = db.QueryRow("SELECT schema_version FROM cache_meta WHERE id = 1").Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		version = 0
	case err != nil:
		return err
	}

	if version != SchemaVersion {
		if version != 0 {
			log.Printf("[MySQLGameCache] Schema version mismatch (have %d, want %d), rebuilding store", version, SchemaVersion)
		}
		if _, err := db.Exec("DROP TABLE IF EXISTS steam_games"); err != nil {
			return err
		}
		if _, err := db.Exec(`
			INSERT INTO cache_meta (id, schema_version) VALUES (1, ?)
			ON DUPLICATE KEY UPDATE schema_version = VALUES(schema_version)`, SchemaVersion); err != nil {
			return err
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS steam_games (
			steam_id BIGINT UNSIGNED PRIMARY KEY,
			igdb_id BIGINT UNSIGNED NULL,
			name VARCHAR(512) NOT NULL DEFAULT '',
			cover_id VARCHAR(64) NOT NULL DEFAULT '',
			has_multiplayer TINYINT(1) NOT NULL DEFAULT 0,
			supported_players VARCHAR(8) NOT NULL DEFAULT '',
			expires_at DOUBLE NOT NULL,
			INDEX idx_games_expires (expires_at)
		)`)
	return err
}

// GetMany returns the unexpired cached records for the given app IDs.
func (r *MySQLGameCache) GetMany(ctx context.Context, steamIDs []uint64) (map[uint64]model.GameRecord, error) {
	records := make(map[uint64]model.GameRecord, len(steamIDs))
	if len(steamIDs) == 0 {
		return records, nil
	}

	placeholders := make([]string, len(steamIDs))
	args := make([]interface{}, 0, len(steamIDs)+1)
	for i, id := range steamIDs {
		placeholders[i] = "?"
		args = append(args, id)
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
			igdbID    sql.NullInt64
			record    model.GameRecord
			expiresAt float64
		)
		if err := rows.Scan(&record.SteamID, &igdbID, &record.Name, &record.CoverID,
			&record.HasMultiplayer, &record.SupportedPlayers, &expiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}

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
// time.
func (r *MySQLGameCache) PutMany(ctx context.Context, records []model.GameRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO steam_games
			(steam_id, igdb_id, name, cover_id, has_multiplayer, supported_players, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			igdb_id = VALUES(igdb_id),
			name = VALUES(name),
			cover_id = VALUES(cover_id),
			has_multiplayer = VALUES(has_multiplayer),
			supported_players = VALUES(supported_players),
			expires_at = VALUES(expires_at)`)
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

		_, err := stmt.ExecContext(ctx, record.SteamID, igdbID, record.Name,
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
func (r *MySQLGameCache) DeleteExpired(ctx context.Context) (int64, error) {
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
		log.Printf("[MySQLGameCache] Purged %d expired game records", deleted)
	}

	return deleted, nil
}

// Close closes the database connection.
func (r *MySQLGameCache) Close() error {
	return r.db.Close()
}

// Ensure MySQLGameCache implements GameCacheRepository
var _ GameCacheRepository = (*MySQLGameCache)(nil)
