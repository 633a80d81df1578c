package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"commongames-api/internal/service"
	"commongames-api/internal/steam"
	"commongames-api/pkg/apierror"
	"commongames-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// UsersHandler handles Steam profile lookups.
type UsersHandler struct {
	userService *service.UserService
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{userService: userService}
}

// UserInfoRequest is the body of POST /api/v1/users/info. Steam IDs may be
// numbers or stringified numbers.
type UserInfoRequest struct {
	SteamIDs   []flexibleID `json:"steam_ids"`
	VanityURLs []string     `json:"vanity_urls"`
}

// Info handles POST /api/v1/users/info
func (h *UsersHandler) Info(w http.ResponseWriter, r *http.Request) {
	var req UserInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("steam_ids must be an array of integers, vanity_urls an array of strings"))
		return
	}
	defer r.Body.Close()

	vanityURLs := make([]string, 0, len(req.VanityURLs))
	for _, name := range req.VanityURLs {
		if name != "" {
			vanityURLs = append(vanityURLs, name)
		}
	}

	steamIDs := make([]uint64, 0, len(req.SteamIDs))
	for _, id := range req.SteamIDs {
		steamIDs = append(steamIDs, uint64(id))
	}

	if len(steamIDs) == 0 && len(vanityURLs) == 0 {
		response.Error(w, apierror.BadRequest("either steam_ids or vanity_urls is required"))
		return
	}

	result, err := h.userService.GetUserInfo(r.Context(), steamIDs, vanityURLs)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Friends handles GET /api/v1/users/{steam_id}/friends
func (h *UsersHandler) Friends(w http.ResponseWriter, r *http.Request) {
	steamID, err := strconv.ParseUint(chi.URLParam(r, "steam_id"), 10, 64)
	if err != nil || steamID == 0 {
		response.Error(w, apierror.BadRequest("steam_id must be a positive integer"))
		return
	}

	friends, err := h.userService.GetFriends(r.Context(), steamID)
	if err != nil {
		if errors.Is(err, steam.ErrFriendsPrivate) {
			writeJSON(w, http.StatusOK, UserFailureResponse{
				Errcode: ErrcodePrivateList,
				User:    strconv.FormatUint(steamID, 10),
			})
			return
		}
		h.writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"errcode": ErrcodeOK,
		"friends": friends,
	})
}

// writeFailure maps upstream errors onto the errcode contract.
func (h *UsersHandler) writeFailure(w http.ResponseWriter, err error) {
	message := "an unexpected error occurred"
	switch {
	case errors.Is(err, steam.ErrBadKey),
		errors.Is(err, steam.ErrConnectTimeout),
		errors.Is(err, steam.ErrReadTimeout):
		message = err.Error()
	}

	writeJSON(w, http.StatusInternalServerError, SystemFailureResponse{
		Errcode: ErrcodeSystem,
		Message: message,
	})
}
