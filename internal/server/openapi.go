package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/sketchroom/internal/archive"
	"github.com/playperu/sketchroom/internal/game"
	"github.com/playperu/sketchroom/internal/handler/health"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type leaderboardRequest struct {
	RoomID string `path:"roomID" description:"Room identifier."`
}

type matchesRequest struct {
	Limit int `query:"limit" minimum:"1" maximum:"100" default:"20" description:"Maximum number of matches."`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "sketchroom API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Room coordinator for a real-time drawing-and-guessing game.")

	// GET /
	getRoot, _ := r.NewOperationContext(http.MethodGet, "/")
	getRoot.SetSummary("Liveness")
	getRoot.SetDescription("Returns a plain-text banner while the process is up.")
	getRoot.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getRoot)

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the status of backend dependencies and the live room count.")
	getHealthz.AddRespStructure(health.Report{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(health.Report{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /socket
	getSocket, _ := r.NewOperationContext(http.MethodGet, "/socket")
	getSocket.SetSummary("Game socket")
	getSocket.SetDescription("Upgrades to a WebSocket. Frames in both directions are JSON objects of the form {\"event\": name, \"data\": payload}.")
	getSocket.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getSocket)

	// GET /api/rooms
	listRooms, _ := r.NewOperationContext(http.MethodGet, "/api/rooms")
	listRooms.SetSummary("List rooms")
	listRooms.SetDescription("Returns a summary of every live room, ordered by room ID.")
	listRooms.AddRespStructure([]game.RoomSummary{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listRooms)

	// GET /api/rooms/{roomID}/leaderboard
	getLeaderboard, _ := r.NewOperationContext(http.MethodGet, "/api/rooms/{roomID}/leaderboard")
	getLeaderboard.SetSummary("Room leaderboard")
	getLeaderboard.SetDescription("Returns the current standings of a live room, highest score first.")
	getLeaderboard.AddReqStructure(leaderboardRequest{})
	getLeaderboard.AddRespStructure(LeaderboardResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getLeaderboard.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getLeaderboard)

	// GET /api/matches
	listMatches, _ := r.NewOperationContext(http.MethodGet, "/api/matches")
	listMatches.SetSummary("Recent matches")
	listMatches.SetDescription("Returns finished games with final rankings, newest first. Only served when the archive is enabled.")
	listMatches.AddReqStructure(matchesRequest{})
	listMatches.AddRespStructure([]archive.Match{}, openapi.WithHTTPStatus(http.StatusOK))
	listMatches.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(listMatches)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
