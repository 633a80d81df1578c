package steam

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	return NewClient(Config{
		APIKey:         "test_key",
		BaseURL:        serverURL + "/",
		ConnectTimeout: 2 * time.Second,
		ReadTimeout:    2 * time.Second,
	})
}

func TestGetPlayerSummaries_BatchesAndDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/ISteamUser/GetPlayerSummaries/v2/"))
		assert.Equal(t, "test_key", r.URL.Query().Get("key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":{"players":[
			{"steamid":"76561197960287930","profilestate":1,"personaname":"rabscuttle","avatar":"http://a/thumb.jpg","avatarmedium":"http://a/med.jpg","communityvisibilitystate":3},
			{"steamid":"76561197960287931","profilestate":0}
		]}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	users, err := client.GetPlayerSummaries(context.Background(), []uint64{76561197960287930, 76561197960287931, 76561197960287932})
	require.NoError(t, err)
	require.Len(t, users, 3)

	assert.True(t, users[76561197960287930].Exists)
	assert.Equal(t, "rabscuttle", users[76561197960287930].ScreenName)
	assert.Equal(t, 3, users[76561197960287930].Visibility)

	// profilestate 0 means the profile was never set up.
	assert.False(t, users[76561197960287931].Exists)
	// IDs Steam never mentioned default to not existing.
	assert.False(t, users[76561197960287932].Exists)
}

func TestGetPlayerSummaries_BadKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetPlayerSummaries(context.Background(), []uint64{1})
	assert.ErrorIs(t, err, ErrBadKey)
}

func TestGetOwnedGames_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "42", r.URL.Query().Get("steamid"))
		assert.Equal(t, "true", r.URL.Query().Get("include_played_free_games"))

		w.Write([]byte(`{"response":{"game_count":3,"games":[{"appid":10},{"appid":20},{"appid":30}]}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	games, err := client.GetOwnedGames(context.Background(), 42, true)
	require.NoError(t, err)
	assert.Len(t, games, 3)
	assert.Contains(t, games, uint64(20))
}

func TestGetOwnedGames_PrivateList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No game_count key at all: the list is not visible.
		w.Write([]byte(`{"response":{}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetOwnedGames(context.Background(), 42, false)
	assert.ErrorIs(t, err, ErrGamesPrivate)
}

func TestGetOwnedGames_EmptyLibraryIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"game_count":0}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	games, err := client.GetOwnedGames(context.Background(), 42, false)
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestGetOwnedGames_ReadTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(Config{
		APIKey:         "test_key",
		BaseURL:        server.URL + "/",
		ConnectTimeout: time.Second,
		ReadTimeout:    50 * time.Millisecond,
	})

	_, err := client.GetOwnedGames(context.Background(), 42, false)
	assert.ErrorIs(t, err, ErrReadTimeout)
}

func TestGetFriendList_Private(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetFriendList(context.Background(), 42)
	assert.ErrorIs(t, err, ErrFriendsPrivate)
}

func TestGetFriendList_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "friend", r.URL.Query().Get("relationship"))
		w.Write([]byte(`{"friendslist":{"friends":[{"steamid":"100"},{"steamid":"200"}]}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	friends, err := client.GetFriendList(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, []uint64{100, 200}, friends)
}

func TestResolveVanityURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("vanityurl") == "gaben" {
			w.Write([]byte(`{"response":{"success":1,"steamid":"76561197960287930"}}`))
			return
		}
		w.Write([]byte(`{"response":{"success":42}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	id, err := client.ResolveVanityURL(context.Background(), "gaben")
	require.NoError(t, err)
	assert.Equal(t, uint64(76561197960287930), id)

	_, err = client.ResolveVanityURL(context.Background(), "no-such-name")
	assert.ErrorIs(t, err, ErrBadVanityURL)
}
