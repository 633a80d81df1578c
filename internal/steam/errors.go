package steam

import "errors"

// Sentinel errors for the Steam Web API client. Timeouts are surfaced as-is
// and never retried here; retry policy belongs to the caller.
var (
	// ErrBadKey means Steam rejected the configured API key. This is a
	// configuration problem, not a transient failure.
	ErrBadKey = errors.New("steam rejected the provided API key")

	// ErrConnectTimeout means Steam took too long to accept the connection.
	ErrConnectTimeout = errors.New("steam took too long to respond")

	// ErrReadTimeout means Steam accepted the connection but took too long
	// to send the response.
	ErrReadTimeout = errors.New("steam responded but took too long to send data")

	// ErrGamesPrivate means the user's game list cannot be retrieved,
	// usually due to privacy settings.
	ErrGamesPrivate = errors.New("the user's games list is private")

	// ErrFriendsPrivate means the user's friend list is not visible.
	ErrFriendsPrivate = errors.New("the user's friend list is private")

	// ErrBadVanityURL means the vanity name is not associated with any user.
	ErrBadVanityURL = errors.New("the vanity url is not associated with a steam user")
)
