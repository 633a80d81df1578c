package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"time"

	"commongames-api/internal/cache"
	"commongames-api/internal/model"
	"commongames-api/internal/steam"
)

const (
	profileCacheKeyPrefix = "profile:"
	vanityCacheKeyPrefix  = "vanity:"
)

// ProfileClient is the part of the Steam client the user service depends on.
type ProfileClient interface {
	GetPlayerSummaries(ctx context.Context, steamIDs []uint64) (map[uint64]model.SteamUser, error)
	ResolveVanityURL(ctx context.Context, vanityName string) (uint64, error)
	GetFriendList(ctx context.Context, steamID uint64) ([]uint64, error)
}

// UserService serves Steam profile lookups through a short-lived cache so a
// group poking at the same lobby does not hammer the player-summary endpoint.
type UserService struct {
	client ProfileClient
	cache  cache.Cache
	ttl    time.Duration
}

// NewUserService creates a user service. cache may be nil to disable caching.
func NewUserService(client ProfileClient, profileCache cache.Cache, ttl time.Duration) *UserService {
	if client == nil {
		return nil
	}
	return &UserService{client: client, cache: profileCache, ttl: ttl}
}

// UserInfoResult is the combined result of a profile lookup request.
type UserInfoResult struct {
	Users            map[string]model.SteamUser `json:"users"`
	VanityToSteamIDs map[string]string          `json:"vanity_to_steam_ids"`
}

// GetUserInfo resolves vanity names and fetches profile data for the union of
// the given IDs and resolved names. Unresolvable vanity names map to "".
func (s *UserService) GetUserInfo(ctx context.Context, steamIDs []uint64, vanityURLs []string) (*UserInfoResult, error) {
	result := &UserInfoResult{
		Users:            make(map[string]model.SteamUser),
		VanityToSteamIDs: make(map[string]string, len(vanityURLs)),
	}

	wanted := make(map[uint64]struct{}, len(steamIDs))
	for _, id := range steamIDs {
		wanted[id] = struct{}{}
	}

	for _, name := range vanityURLs {
		id, err := s.resolveVanity(ctx, name)
		if err != nil {
			if errors.Is(err, steam.ErrBadVanityURL) {
				result.VanityToSteamIDs[name] = ""
				continue
			}
			return nil, err
		}
		result.VanityToSteamIDs[name] = strconv.FormatUint(id, 10)
		wanted[id] = struct{}{}
	}

	ids := make([]uint64, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}

	users, err := s.getProfiles(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, user := range users {
		result.Users[strconv.FormatUint(id, 10)] = user
	}

	return result, nil
}

// GetFriends returns the profiles of everyone on a user's friend list.
func (s *UserService) GetFriends(ctx context.Context, steamID uint64) ([]model.SteamUser, error) {
	friendIDs, err := s.client.GetFriendList(ctx, steamID)
	if err != nil {
		return nil, err
	}

	profiles, err := s.getProfiles(ctx, friendIDs)
	if err != nil {
		return nil, err
	}

	friends := make([]model.SteamUser, 0, len(friendIDs))
	for _, id := range friendIDs {
		friends = append(friends, profiles[id])
	}
	return friends, nil
}

// getProfiles serves player summaries cache-first, fetching only the IDs the
// cache does not hold. Cache failures are logged and treated as misses.
func (s *UserService) getProfiles(ctx context.Context, steamIDs []uint64) (map[uint64]model.SteamUser, error) {
	users := make(map[uint64]model.SteamUser, len(steamIDs))

	missing := make([]uint64, 0, len(steamIDs))
	for _, id := range steamIDs {
		if user, ok := s.cachedProfile(ctx, id); ok {
			users[id] = user
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 {
		return users, nil
	}

	fetched, err := s.client.GetPlayerSummaries(ctx, missing)
	if err != nil {
		return nil, err
	}

	for id, user := range fetched {
		users[id] = user
		s.storeProfile(ctx, user)
	}

	return users, nil
}

func (s *UserService) cachedProfile(ctx context.Context, steamID uint64) (model.SteamUser, bool) {
	if s.cache == nil {
		return model.SteamUser{}, false
	}

	data, err := s.cache.Get(ctx, profileCacheKeyPrefix+strconv.FormatUint(steamID, 10))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("[UserService] Profile cache read failed: %v", err)
		}
		return model.SteamUser{}, false
	}

	var user model.SteamUser
	if err := json.Unmarshal(data, &user); err != nil {
		return model.SteamUser{}, false
	}
	return user, true
}

func (s *UserService) storeProfile(ctx context.Context, user model.SteamUser) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(user)
	if err != nil {
		return
	}

	key := profileCacheKeyPrefix + strconv.FormatUint(user.SteamID, 10)
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		log.Printf("[UserService] Profile cache write failed: %v", err)
	}
}

// resolveVanity resolves a vanity name, caching successful resolutions.
func (s *UserService) resolveVanity(ctx context.Context, name string) (uint64, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, vanityCacheKeyPrefix+name); err == nil {
			if id, err := strconv.ParseUint(string(data), 10, 64); err == nil {
				return id, nil
			}
		}
	}

	id, err := s.client.ResolveVanityURL(ctx, name)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		key := vanityCacheKeyPrefix + name
		if err := s.cache.Set(ctx, key, []byte(strconv.FormatUint(id, 10)), s.ttl); err != nil {
			log.Printf("[UserService] Vanity cache write failed: %v", err)
		}
	}

	return id, nil
}
