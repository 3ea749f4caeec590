// Package api provides the read-only HTTP surface over a running
// Coordinator: a REST/SSE view for dashboards and spectators, entirely
// separate from the MCP Tool Gateway that agents use to actually play.
//
// Endpoints:
//
//   - GET /api/games       - active and finished matches, as GameSnapshot
//   - GET /api/leaderboard - cross-match standings, ordered by total points
//   - GET /api/stream      - Server-Sent Events feed of game_started,
//     game_update, and game_finished events
//   - GET /ws?game_id=...  - WebSocket upgrade for the spectator push hub
//   - GET /health          - liveness probe
//
// This package never mutates game state; join_game, steer, and friends
// only exist on the MCP Tool Gateway (transport/mcp).
//
// Usage:
//
//	server := api.NewServer(coordinator, hub)
//	http.ListenAndServe(":8080", server)
package api
