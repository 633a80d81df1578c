package igdb

import "errors"

// Sentinel errors for the IGDB client and its token source.
var (
	// ErrBadAuth means IGDB rejected the client ID or bearer token.
	ErrBadAuth = errors.New("igdb rejected the provided credentials")

	// ErrBadClient means the Twitch OAuth endpoint rejected the client ID.
	ErrBadClient = errors.New("twitch rejected the provided client id")

	// ErrBadSecret means the Twitch OAuth endpoint rejected the client secret.
	ErrBadSecret = errors.New("twitch rejected the provided client secret")

	// ErrTokenUnavailable means no bearer token could be produced.
	ErrTokenUnavailable = errors.New("could not obtain an igdb bearer token")

	// ErrConnectTimeout means the service took too long to accept the
	// connection.
	ErrConnectTimeout = errors.New("igdb took too long to respond")

	// ErrReadTimeout means the service accepted the connection but took too
	// long to send the response.
	ErrReadTimeout = errors.New("igdb responded but took too long to send data")
)
