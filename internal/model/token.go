package model

import "time"

// TwitchToken is the bearer credential for the IGDB API, persisted to disk so
// a restart can adopt a still-valid token without a network call. Expiry is
// absolute unix seconds, matching the on-disk format.
type TwitchToken struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	Expiry      float64 `json:"expiry"`
}

// ExpiryTime returns the expiry as a time.Time.
func (t *TwitchToken) ExpiryTime() time.Time {
	sec := int64(t.Expiry)
	nsec := int64((t.Expiry - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// ValidAt reports whether the token is usable at the given instant with the
// given safety margin before expiry.
func (t *TwitchToken) ValidAt(now time.Time, margin time.Duration) bool {
	return t.AccessToken != "" && now.Add(margin).Before(t.ExpiryTime())
}
