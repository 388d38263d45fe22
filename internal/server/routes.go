package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/sketchroom/internal/archive"
	"github.com/playperu/sketchroom/internal/game"
)

const (
	defaultMatchLimit = 20
	maxMatchLimit     = 100
)

// RoomLister exposes the live rooms of the registry.
type RoomLister interface {
	Rooms() []game.RoomSummary
	Standings(roomID string) ([]game.Ranking, error)
}

// MatchLister exposes archived games.
type MatchLister interface {
	RecentMatches(ctx context.Context, limit int) ([]archive.Match, error)
}

// LeaderboardResponse is the body of GET /api/rooms/{roomID}/leaderboard.
type LeaderboardResponse struct {
	RoomID   string         `json:"roomId"`
	Rankings []game.Ranking `json:"rankings"`
}

// API serves the read-only REST endpoints. matches may be nil when the
// archive is disabled.
type API struct {
	rooms   RoomLister
	matches MatchLister
	logger  *slog.Logger
}

func NewAPI(logger *slog.Logger, rooms RoomLister, matches MatchLister) *API {
	return &API{rooms: rooms, matches: matches, logger: logger}
}

func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/rooms", a.listRooms)
	r.Get("/rooms/{roomID}/leaderboard", a.leaderboard)
	if a.matches != nil {
		r.Get("/matches", a.listMatches)
	}
	return r
}

func (a *API) listRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.rooms.Rooms())
}

func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	rankings, err := a.rooms.Standings(roomID)
	if errors.Is(err, game.ErrNotFound) {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	if err != nil {
		a.logger.Error("reading standings", "room_id", roomID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, LeaderboardResponse{RoomID: roomID, Rankings: rankings})
}

func (a *API) listMatches(w http.ResponseWriter, r *http.Request) {
	limit := defaultMatchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxMatchLimit {
			writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 100")
			return
		}
		limit = n
	}

	matches, err := a.matches.RecentMatches(r.Context(), limit)
	if err != nil {
		a.logger.Error("listing matches", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, matches)
}
