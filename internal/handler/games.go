package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"commongames-api/internal/igdb"
	"commongames-api/internal/model"
	"commongames-api/internal/service"
	"commongames-api/internal/steam"
	"commongames-api/pkg/apierror"
	"commongames-api/pkg/response"
)

// Error codes of the intersect contract. The errcode field is authoritative;
// the HTTP status is informational only.
const (
	ErrcodeOK           = 0
	ErrcodePrivateList  = 1
	ErrcodeEmptyLibrary = 2
	ErrcodeSystem       = -1
)

// GamesHandler handles the game intersection endpoint.
type GamesHandler struct {
	gameService *service.GameService
	debug       bool
}

// NewGamesHandler creates a new games handler. debug surfaces full error
// detail to the caller instead of a generic message.
func NewGamesHandler(gameService *service.GameService, debug bool) *GamesHandler {
	return &GamesHandler{gameService: gameService, debug: debug}
}

// flexibleID accepts a JSON number or a stringified number; clients send both.
type flexibleID uint64

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return errors.New("user ids must be positive integers or stringified integers")
	}
	*f = flexibleID(v)
	return nil
}

// IntersectRequest is the body of POST /api/v1/intersect.
type IntersectRequest struct {
	UserIDs          []flexibleID `json:"user_ids"`
	IncludeFreeGames bool         `json:"include_free_games"`
}

// IntersectResponse is the success envelope of the intersect endpoint.
type IntersectResponse struct {
	Errcode int                `json:"errcode"`
	Games   []model.GameRecord `json:"games"`
	Message string             `json:"message"`
}

// UserFailureResponse names the user a business failure is tagged to.
type UserFailureResponse struct {
	Errcode int    `json:"errcode"`
	User    string `json:"user"`
}

// SystemFailureResponse is the envelope for system failures.
type SystemFailureResponse struct {
	Errcode int    `json:"errcode"`
	Message string `json:"message"`
}

// Intersect handles POST /api/v1/intersect
func (h *GamesHandler) Intersect(w http.ResponseWriter, r *http.Request) {
	var req IntersectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("user_ids must be an array of integers or stringified integers"))
		return
	}
	defer r.Body.Close()

	// De-duplicate while keeping the request order.
	seen := make(map[uint64]struct{}, len(req.UserIDs))
	steamIDs := make([]uint64, 0, len(req.UserIDs))
	for _, id := range req.UserIDs {
		if _, ok := seen[uint64(id)]; ok {
			continue
		}
		seen[uint64(id)] = struct{}{}
		steamIDs = append(steamIDs, uint64(id))
	}

	if len(steamIDs) < service.MinIntersectUsers || len(steamIDs) > service.MaxIntersectUsers {
		response.Error(w, apierror.BadRequest(service.ErrUserCountOutOfRange.Error()))
		return
	}

	games, err := h.gameService.IntersectGames(r.Context(), steamIDs, req.IncludeFreeGames)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	if games == nil {
		games = []model.GameRecord{}
	}
	writeJSON(w, http.StatusOK, IntersectResponse{
		Errcode: ErrcodeOK,
		Games:   games,
		Message: "Intersected successfully",
	})
}

// writeFailure maps service errors onto the errcode contract.
func (h *GamesHandler) writeFailure(w http.ResponseWriter, err error) {
	var userErr *service.UserError
	if errors.As(err, &userErr) {
		errcode := ErrcodePrivateList
		if userErr.Reason == service.ReasonEmptyLibrary {
			errcode = ErrcodeEmptyLibrary
		}
		writeJSON(w, http.StatusOK, UserFailureResponse{
			Errcode: errcode,
			User:    strconv.FormatUint(userErr.SteamID, 10),
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, SystemFailureResponse{
		Errcode: ErrcodeSystem,
		Message: h.failureMessage(err),
	})
}

// failureMessage picks the human-readable message for a system failure.
// Known upstream conditions keep their specific messages; anything else is
// logged in full and surfaced generically unless debug mode is on.
func (h *GamesHandler) failureMessage(err error) string {
	switch {
	case errors.Is(err, steam.ErrBadKey),
		errors.Is(err, steam.ErrConnectTimeout),
		errors.Is(err, steam.ErrReadTimeout),
		errors.Is(err, igdb.ErrBadAuth),
		errors.Is(err, igdb.ErrTokenUnavailable),
		errors.Is(err, igdb.ErrConnectTimeout),
		errors.Is(err, igdb.ErrReadTimeout):
		return err.Error()
	}

	log.Printf("[GamesHandler] Intersection failed: %v", err)
	if h.debug {
		return err.Error()
	}
	return "an unexpected error occurred"
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
