// Package igdb is a client for the IGDB API, which maps Steam app IDs to
// catalog metadata (name, cover art, multiplayer capability). Authentication
// uses a Twitch app bearer token managed by TokenSource.
package igdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"commongames-api/internal/model"
)

const defaultBaseURL = "https://api.igdb.com/v4/"

// IGDB caps query endpoints at 500 results per request.
const maxQueryBatch = 500

// IGDB game_mode IDs meaning a game can be played with other people.
const (
	gameModeMultiplayer = 2
	gameModeCoop        = 5
)

// Client calls the IGDB API. It is safe for concurrent use.
type Client struct {
	clientID string
	baseURL  string
	tokens   *TokenSource
	http     *http.Client
}

// Config holds the settings needed to build a Client.
type Config struct {
	ClientID       string
	BaseURL        string // defaults to the public IGDB API
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// NewClient creates an IGDB client backed by the given token source.
func NewClient(cfg Config, tokens *TokenSource) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	return &Client{
		clientID: cfg.ClientID,
		baseURL:  baseURL,
		tokens:   tokens,
		http: &http.Client{
			Timeout: cfg.ReadTimeout,
			Transport: &http.Transport{
				DialContext:         dialer.DialContext,
				TLSHandshakeTimeout: cfg.ConnectTimeout,
			},
		},
	}
}

// classifyError maps transport errors onto the client's timeout sentinels.
func classifyError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return ErrConnectTimeout
		}
		return ErrReadTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrReadTimeout
	}
	return fmt.Errorf("igdb request failed: %w", err)
}

// flexUint64 decodes a JSON number or a stringified number. IGDB is not
// consistent about which one it sends for external IDs.
type flexUint64 uint64

func (f *flexUint64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("expected uint64 or stringified uint64, got %s", data)
	}
	*f = flexUint64(v)
	return nil
}

type externalGame struct {
	UID  flexUint64 `json:"uid"`
	Game *struct {
		ID        flexUint64 `json:"id"`
		Name      string     `json:"name"`
		GameModes []int      `json:"game_modes"`
		Cover     struct {
			ImageID string `json:"image_id"`
		} `json:"cover"`
		MultiplayerModes []struct {
			OnlineMax     int `json:"onlinemax"`
			OnlineCoopMax int `json:"onlinecoopmax"`
		} `json:"multiplayer_modes"`
	} `json:"game"`
}

// GetGameInfo fetches catalog metadata for a set of Steam app IDs via IGDB's
// external-ID mapping, batched at the provider's 500-ID limit. App IDs absent
// from the response are returned in notFound for the caller to negative-cache.
func (c *Client) GetGameInfo(ctx context.Context, appIDs []uint64) (found []model.GameRecord, notFound map[uint64]struct{}, err error) {
	notFound = make(map[uint64]struct{}, len(appIDs))
	if len(appIDs) == 0 {
		return nil, notFound, nil
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, nil, err
	}

	for start := 0; start < len(appIDs); start += maxQueryBatch {
		end := start + maxQueryBatch
		if end > len(appIDs) {
			end = len(appIDs)
		}
		batch := appIDs[start:end]

		games, err := c.queryExternalGames(ctx, token, batch)
		if err != nil {
			return nil, nil, err
		}

		for _, id := range batch {
			notFound[id] = struct{}{}
		}
		for _, game := range games {
			record, ok := toGameRecord(game)
			if !ok {
				continue
			}
			// IGDB can hold several external-game rows for one Steam app ID.
			// The first mapping wins; repeats would duplicate the app ID in
			// the result and in cache writes.
			if _, pending := notFound[record.SteamID]; !pending {
				continue
			}
			delete(notFound, record.SteamID)
			found = append(found, record)
		}
	}

	return found, notFound, nil
}

func (c *Client) queryExternalGames(ctx context.Context, token string, appIDs []uint64) ([]externalGame, error) {
	ids := make([]string, 0, len(appIDs))
	for _, id := range appIDs {
		ids = append(ids, strconv.FormatUint(id, 10))
	}

	// category 1 filters the external-ID mapping to Steam.
	query := fmt.Sprintf(
		"fields uid,game.name,game.game_modes,game.multiplayer_modes.onlinemax,"+
			"game.multiplayer_modes.onlinecoopmax,game.cover.image_id; "+
			"where uid = (%s) & category = 1; limit %d;",
		strings.Join(ids, ","), len(appIDs))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"external_games", strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, ErrBadAuth
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("igdb returned status %d: %s", resp.StatusCode, body)
	}

	var games []externalGame
	if err := json.NewDecoder(resp.Body).Decode(&games); err != nil {
		return nil, fmt.Errorf("failed to parse igdb response: %w", err)
	}
	return games, nil
}

// toGameRecord derives the cached metadata shape from one external-game row.
// Rows without a joined game object are skipped; their app IDs stay not-found.
func toGameRecord(eg externalGame) (model.GameRecord, bool) {
	if eg.Game == nil || eg.Game.Name == "" {
		return model.GameRecord{}, false
	}

	hasMultiplayer := false
	for _, mode := range eg.Game.GameModes {
		if mode == gameModeMultiplayer || mode == gameModeCoop {
			hasMultiplayer = true
			break
		}
	}

	supportedPlayers := "1"
	if hasMultiplayer {
		mostPlayers := 0
		for _, mm := range eg.Game.MultiplayerModes {
			if mm.OnlineMax > mostPlayers {
				mostPlayers = mm.OnlineMax
			}
			if mm.OnlineCoopMax > mostPlayers {
				mostPlayers = mm.OnlineCoopMax
			}
		}
		if mostPlayers > 0 {
			supportedPlayers = strconv.Itoa(mostPlayers)
		} else {
			supportedPlayers = model.UnknownPlayers
		}
	}

	igdbID := uint64(eg.Game.ID)
	return model.GameRecord{
		SteamID:          uint64(eg.UID),
		IGDBID:           &igdbID,
		Name:             eg.Game.Name,
		CoverID:          eg.Game.Cover.ImageID,
		HasMultiplayer:   hasMultiplayer,
		SupportedPlayers: supportedPlayers,
	}, true
}
