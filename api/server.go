package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wricardo/lightcycle/game/engine"
	"github.com/wricardo/lightcycle/game/service"
	"github.com/wricardo/lightcycle/transport/websocket"
)

// streamPollInterval controls how often GET /api/stream re-checks active
// games for new ticks; it is independent of the Coordinator's own tick
// rate so a slow poller never blocks a match.
const streamPollInterval = 200 * time.Millisecond

func newStreamTicker() *time.Ticker {
	return time.NewTicker(streamPollInterval)
}

// Server is the read-only REST/SSE/WebSocket surface over a running
// Coordinator: GET /api/games, GET /api/leaderboard, GET /api/stream,
// and the /ws upgrade endpoint. It never mutates game state itself —
// every write path belongs to the MCP Tool Gateway.
type Server struct {
	coord  *service.Coordinator
	hub    *websocket.Hub
	router *mux.Router
}

// NewServer builds an API server over coord, pushing live updates
// through hub.
func NewServer(coord *service.Coordinator, hub *websocket.Hub) *Server {
	s := &Server{
		coord:  coord,
		hub:    hub,
		router: mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/games", s.handleGames).Methods("GET")
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET")
	api.HandleFunc("/stream", s.handleStream).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// GamesResponse is the JSON body for GET /api/games: both active and
// finished matches are reported as GameSnapshot, the finished ones
// simply carrying a terminal Status and a Winner.
type GamesResponse struct {
	Active   []service.GameSnapshot `json:"active"`
	Finished []service.GameSnapshot `json:"finished"`
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	finished := s.coord.FinishedGames()
	resp := GamesResponse{
		Active:   s.coord.ActiveGames(),
		Finished: make([]service.GameSnapshot, len(finished)),
	}
	for i, fg := range finished {
		resp.Finished[i] = finishedToSnapshot(fg)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.coord.Leaderboard())
}

// streamEvent is one SSE frame's JSON payload; Game is populated for
// game_started/game_update/game_finished but omitted for other types.
type streamEvent struct {
	Type string                `json:"type"`
	Game *service.GameSnapshot `json:"game,omitempty"`
}

// handleStream serves GET /api/stream: an SSE feed that polls the
// Coordinator's active games on a short interval and emits one event per
// observed transition. There is no third-party SSE library in the
// retrieval pack, so this handler writes the wire format directly with
// net/http's http.Flusher.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	seen := make(map[string]int) // game id -> last tick written
	writeEvent := func(eventType string, game *service.GameSnapshot) error {
		payload, err := json.Marshal(streamEvent{Type: eventType, Game: game})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	ctx := r.Context()
	ticker := newStreamTicker()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			active := s.coord.ActiveGames()
			stillRunning := make(map[string]bool, len(active))
			for i := range active {
				g := active[i]
				stillRunning[g.ID] = true
				lastTick, known := seen[g.ID]
				switch {
				case !known:
					if err := writeEvent("game_started", &g); err != nil {
						return
					}
				case g.Tick != lastTick:
					if err := writeEvent("game_update", &g); err != nil {
						return
					}
				}
				seen[g.ID] = g.Tick
			}
			for id := range seen {
				if !stillRunning[id] {
					delete(seen, id)
					if fg := s.findFinished(id); fg != nil {
						snap := finishedToSnapshot(*fg)
						if err := writeEvent("game_finished", &snap); err != nil {
							return
						}
					}
				}
			}
		}
	}
}

func (s *Server) findFinished(id string) *service.FinishedGame {
	for _, fg := range s.coord.FinishedGames() {
		if fg.ID == id {
			return &fg
		}
	}
	return nil
}

func finishedToSnapshot(fg service.FinishedGame) service.GameSnapshot {
	return service.GameSnapshot{
		ID: fg.ID, CourseName: fg.CourseName, CourseLevel: fg.CourseLevel,
		Width: fg.Width, Height: fg.Height, Grid: fg.Grid, Tick: fg.Tick, Status: engine.StatusFinished,
		Winner: fg.Winner, Players: fg.Players, CreatedAt: fg.CreatedAt,
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game_id")
	if gameID == "" {
		http.Error(w, "game_id parameter required", http.StatusBadRequest)
		return
	}
	s.hub.ServeWS(w, r, gameID)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
