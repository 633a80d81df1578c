package igdb

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"commongames-api/internal/model"
)

const defaultTokenURL = "https://id.twitch.tv/oauth2/token"

// refreshMargin is how close to expiry a token may get before it is refreshed
// instead of reused.
const refreshMargin = 60 * time.Second

// TokenSource obtains, persists and transparently refreshes the app bearer
// token for the IGDB API via the Twitch client-credentials grant. The token
// is written to a JSON file so a restarted process can adopt a still-valid
// token without a network call.
//
// Token is safe for concurrent use: callers holding a valid token proceed
// under a read lock, and racing callers that observe an expired token are
// serialized so only one of them performs the network refresh.
type TokenSource struct {
	clientID     string
	clientSecret string
	tokenURL     string
	tokenPath    string
	http         *http.Client

	mu    sync.RWMutex
	token model.TwitchToken

	// now is swappable for tests.
	now func() time.Time
}

// TokenConfig holds the settings needed to build a TokenSource.
type TokenConfig struct {
	ClientID       string
	ClientSecret   string
	TokenURL       string // defaults to the Twitch OAuth endpoint
	TokenPath      string // where the token is persisted; empty disables persistence
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// NewTokenSource creates a token source. If the token file holds an unexpired
// token it is adopted without a network call.
func NewTokenSource(cfg TokenConfig) *TokenSource {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	ts := &TokenSource{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		tokenURL:     tokenURL,
		tokenPath:    cfg.TokenPath,
		http: &http.Client{
			Timeout: cfg.ReadTimeout,
			Transport: &http.Transport{
				DialContext:         dialer.DialContext,
				TLSHandshakeTimeout: cfg.ConnectTimeout,
			},
		},
		now: time.Now,
	}

	if err := ts.loadPersisted(); err != nil {
		log.Printf("[TokenSource] No persisted token adopted: %v", err)
	}

	return ts
}

// Token returns a valid bearer token, refreshing it first if needed.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.RLock()
	if ts.token.ValidAt(ts.now(), refreshMargin) {
		token := ts.token.AccessToken
		ts.mu.RUnlock()
		return token, nil
	}
	ts.mu.RUnlock()

	ts.mu.Lock()
	defer ts.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if ts.token.ValidAt(ts.now(), refreshMargin) {
		return ts.token.AccessToken, nil
	}

	token, err := ts.fetch(ctx)
	if err != nil {
		return "", err
	}

	ts.token = token
	if err := ts.persist(token); err != nil {
		log.Printf("[TokenSource] Failed to persist token: %v", err)
	}

	return token.AccessToken, nil
}

// fetch performs the client-credentials grant against the Twitch OAuth
// endpoint.
func (ts *TokenSource) fetch(ctx context.Context) (model.TwitchToken, error) {
	params := url.Values{}
	params.Set("client_id", ts.clientID)
	params.Set("client_secret", ts.clientSecret)
	params.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenURL+"?"+params.Encode(), nil)
	if err != nil {
		return model.TwitchToken{}, fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
	}

	resp, err := ts.http.Do(req)
	if err != nil {
		return model.TwitchToken{}, fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest:
		return model.TwitchToken{}, ErrBadClient
	case http.StatusForbidden:
		return model.TwitchToken{}, ErrBadSecret
	default:
		return model.TwitchToken{}, fmt.Errorf("%w: twitch returned status %d", ErrTokenUnavailable, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.TwitchToken{}, fmt.Errorf("%w: unparseable token response: %v", ErrTokenUnavailable, err)
	}

	now := ts.now()
	token := model.TwitchToken{
		AccessToken: payload.AccessToken,
		TokenType:   payload.TokenType,
		Expiry:      float64(now.Unix() + payload.ExpiresIn),
	}

	log.Printf("[TokenSource] Fetched new bearer token, expires %v", token.ExpiryTime())
	return token, nil
}

// loadPersisted adopts an unexpired token from the token file.
func (ts *TokenSource) loadPersisted() error {
	if ts.tokenPath == "" {
		return fmt.Errorf("token persistence disabled")
	}

	data, err := os.ReadFile(ts.tokenPath)
	if err != nil {
		return err
	}

	var token model.TwitchToken
	if err := json.Unmarshal(data, &token); err != nil {
		return fmt.Errorf("unparseable token file: %w", err)
	}

	if !token.ValidAt(ts.now(), refreshMargin) {
		return fmt.Errorf("persisted token is expired")
	}

	ts.token = token
	log.Printf("[TokenSource] Adopted persisted token, expires %v", token.ExpiryTime())
	return nil
}

// persist rewrites the token file wholesale.
func (ts *TokenSource) persist(token model.TwitchToken) error {
	if ts.tokenPath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(ts.tokenPath), 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(token)
	if err != nil {
		return err
	}

	return os.WriteFile(ts.tokenPath, data, 0o600)
}
