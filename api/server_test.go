package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/wricardo/lightcycle/game/engine"
	"github.com/wricardo/lightcycle/game/service"
	"github.com/wricardo/lightcycle/transport/websocket"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func setupTestServer() (*Server, *service.Coordinator) {
	cat := engine.NewCatalog()
	coord := service.NewCoordinator(cat, nil, testLogger())
	hub := websocket.NewHub(testLogger())
	go hub.Run()
	return NewServer(coord, hub), coord
}

func TestHandleGamesReportsActiveAndFinished(t *testing.T) {
	server, coord := setupTestServer()
	// Open Arena's max_players is 4; the fourth join starts the match.
	coord.Join("alice")
	coord.Join("bob")
	coord.Join("carol")
	coord.Join("dave")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/games", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp GamesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Active) != 1 {
		t.Fatalf("expected one active match once the course's four slots filled, got %d", len(resp.Active))
	}
	if resp.Active[0].Width == 0 {
		t.Error("expected the active snapshot to carry course dimensions")
	}
}

func TestHandleGamesEmptyLobby(t *testing.T) {
	server, _ := setupTestServer()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/games", nil)
	server.ServeHTTP(w, req)

	var resp GamesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Active) != 0 || len(resp.Finished) != 0 {
		t.Errorf("expected no matches before anyone joins, got active=%d finished=%d", len(resp.Active), len(resp.Finished))
	}
}

func TestHandleLeaderboardReturnsEmptyArrayBeforeAnyMatch(t *testing.T) {
	server, _ := setupTestServer()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/leaderboard", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var entries []*service.LeaderboardEntry
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if entries == nil {
		t.Error("expected an (empty) array, not null, for an unplayed leaderboard")
	}
}

func TestHandleWebSocketRequiresGameID(t *testing.T) {
	server, _ := setupTestServer()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ws", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without a game_id query param, got %d", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	server, _ := setupTestServer()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got %s", resp["status"])
	}
}

func TestHandleStreamSetsEventStreamHeadersAndExitsOnContextCancel(t *testing.T) {
	server, _ := setupTestServer()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := httptest.NewRequest("GET", "/api/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	server.handleStream(w, r)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream content type, got %q", ct)
	}
}
