package model

// Steam community visibility states for a profile.
const (
	VisibilityPrivate     = 1
	VisibilityFriendsOnly = 2
	VisibilityPublic      = 3
)

// SteamUser holds the public profile data returned by the player-summary
// endpoint. Exists is false when Steam returned nothing for the requested ID
// or the profile has never been set up.
type SteamUser struct {
	SteamID     uint64 `json:"steam_id,string"`
	Exists      bool   `json:"exists"`
	ScreenName  string `json:"screen_name,omitempty"`
	AvatarThumb string `json:"avatar_thumb,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	Visibility  int    `json:"visibility,omitempty"`
}
