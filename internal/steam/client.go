// Package steam is a client for the Steam Web API endpoints this service
// consumes: player summaries, owned games, friend lists and vanity URL
// resolution.
package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"commongames-api/internal/intersect"
	"commongames-api/internal/model"
)

const defaultBaseURL = "https://api.steampowered.com/"

// Steam caps the player-summary endpoint at 100 IDs per request.
const maxSummaryBatch = 100

// Client calls the Steam Web API. It is stateless and safe for concurrent use.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// Config holds the settings needed to build a Client.
type Config struct {
	APIKey         string
	BaseURL        string // defaults to the public Steam API
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// NewClient creates a Steam Web API client with separate connect and read
// timeouts.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		http:    newHTTPClient(cfg.ConnectTimeout, cfg.ReadTimeout),
	}
}

// newHTTPClient builds an http.Client with a dial deadline (connect timeout)
// and an overall request deadline (read timeout).
func newHTTPClient(connectTimeout, readTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &http.Client{
		Timeout: readTimeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: connectTimeout,
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
	return fmt.Errorf("steam request failed: %w", err)
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	params.Set("key", c.apiKey)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}

	switch {
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusUnauthorized:
		resp.Body.Close()
		return nil, ErrBadKey
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("steam returned status %d", resp.StatusCode)
	}

	return resp, nil
}

// GetPlayerSummaries fetches public profile data for a batch of users.
// Requests are chunked at the provider's limit of 100 IDs per call. IDs Steam
// does not return are present in the result with Exists set to false.
func (c *Client) GetPlayerSummaries(ctx context.Context, steamIDs []uint64) (map[uint64]model.SteamUser, error) {
	users := make(map[uint64]model.SteamUser, len(steamIDs))
	for _, id := range steamIDs {
		users[id] = model.SteamUser{SteamID: id, Exists: false}
	}

	for start := 0; start < len(steamIDs); start += maxSummaryBatch {
		end := start + maxSummaryBatch
		if end > len(steamIDs) {
			end = len(steamIDs)
		}

		ids := make([]string, 0, end-start)
		for _, id := range steamIDs[start:end] {
			ids = append(ids, strconv.FormatUint(id, 10))
		}

		params := url.Values{}
		params.Set("steamids", strings.Join(ids, ","))

		resp, err := c.get(ctx, "ISteamUser/GetPlayerSummaries/v2/", params)
		if err != nil {
			return nil, err
		}

		var payload struct {
			Response struct {
				Players []struct {
					SteamID      string `json:"steamid"`
					ProfileState int    `json:"profilestate"`
					PersonaName  string `json:"personaname"`
					Avatar       string `json:"avatar"`
					AvatarMedium string `json:"avatarmedium"`
					Visibility   int    `json:"communityvisibilitystate"`
				} `json:"players"`
			} `json:"response"`
		}
		err = json.NewDecoder(resp.Body).Decode(&payload)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse player summaries: %w", err)
		}

		for _, p := range payload.Response.Players {
			id, err := strconv.ParseUint(p.SteamID, 10, 64)
			if err != nil || p.ProfileState != 1 {
				continue
			}
			users[id] = model.SteamUser{
				SteamID:     id,
				Exists:      true,
				ScreenName:  p.PersonaName,
				AvatarThumb: p.Avatar,
				Avatar:      p.AvatarMedium,
				Visibility:  p.Visibility,
			}
		}
	}

	return users, nil
}

// GetOwnedGames fetches the set of app IDs a user owns. A user with a private
// games list yields ErrGamesPrivate; a user who legitimately owns nothing
// yields an empty set and no error.
func (c *Client) GetOwnedGames(ctx context.Context, steamID uint64, includeFree bool) (intersect.Set, error) {
	params := url.Values{}
	params.Set("steamid", strconv.FormatUint(steamID, 10))
	params.Set("include_appinfo", "false")
	params.Set("include_played_free_games", strconv.FormatBool(includeFree))

	resp, err := c.get(ctx, "IPlayerService/GetOwnedGames/v0001/", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Response struct {
			// game_count is absent entirely when the list is not visible,
			// which is distinct from a visible list of zero games.
			GameCount *int `json:"game_count"`
			Games     []struct {
				AppID uint64 `json:"appid"`
			} `json:"games"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse owned games: %w", err)
	}

	if payload.Response.GameCount == nil {
		return nil, ErrGamesPrivate
	}

	games := make(intersect.Set, len(payload.Response.Games))
	for _, g := range payload.Response.Games {
		games[g.AppID] = struct{}{}
	}
	return games, nil
}

// GetFriendList fetches the Steam IDs on a user's friend list. A private
// friend list yields ErrFriendsPrivate.
func (c *Client) GetFriendList(ctx context.Context, steamID uint64) ([]uint64, error) {
	params := url.Values{}
	params.Set("steamid", strconv.FormatUint(steamID, 10))
	params.Set("relationship", "friend")

	resp, err := c.get(ctx, "ISteamUser/GetFriendList/v0001/", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		FriendsList *struct {
			Friends []struct {
				SteamID string `json:"steamid"`
			} `json:"friends"`
		} `json:"friendslist"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse friend list: %w", err)
	}

	if payload.FriendsList == nil {
		return nil, ErrFriendsPrivate
	}

	friends := make([]uint64, 0, len(payload.FriendsList.Friends))
	for _, f := range payload.FriendsList.Friends {
		id, err := strconv.ParseUint(f.SteamID, 10, 64)
		if err != nil {
			continue
		}
		friends = append(friends, id)
	}
	return friends, nil
}

// ResolveVanityURL resolves a custom profile name to a Steam ID.
func (c *Client) ResolveVanityURL(ctx context.Context, vanityName string) (uint64, error) {
	params := url.Values{}
	params.Set("vanityurl", vanityName)

	resp, err := c.get(ctx, "ISteamUser/ResolveVanityURL/v0001/", params)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var payload struct {
		Response struct {
			Success int    `json:"success"`
			SteamID string `json:"steamid"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("failed to parse vanity url response: %w", err)
	}

	if payload.Response.Success != 1 {
		return 0, ErrBadVanityURL
	}

	id, err := strconv.ParseUint(payload.Response.SteamID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("steam returned an unparseable id %q: %w", payload.Response.SteamID, err)
	}
	return id, nil
}
