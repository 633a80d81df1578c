package model

import "time"

// UnknownPlayers is the rendered player count when IGDB lists a game as
// multiplayer but gives no usable online-max values.
const UnknownPlayers = "?"

// GameRecord represents one game's enriched metadata, keyed by Steam app ID.
// A nil IGDBID marks a negative-cache entry: the app ID was looked up and is
// not present in the IGDB catalog. Negative entries carry empty descriptive
// fields and exist only to suppress repeat lookups.
type GameRecord struct {
	SteamID          uint64    `json:"steam_id,string"`
	IGDBID           *uint64   `json:"igdb_id,string,omitempty"`
	Name             string    `json:"name"`
	CoverID          string    `json:"cover_id"`
	HasMultiplayer   bool      `json:"has_multiplayer"`
	SupportedPlayers string    `json:"supported_players"`
	ExpiresAt        time.Time `json:"-"`
}

// IsNegative reports whether the record is a negative-cache marker.
func (g *GameRecord) IsNegative() bool {
	return g.IGDBID == nil
}

// NegativeRecord builds a negative-cache marker for an app ID that IGDB
// reported as not found.
func NegativeRecord(steamID uint64) GameRecord {
	return GameRecord{SteamID: steamID}
}
