// Package websocket provides the read-only spectator transport: a Hub
// that pushes a running match's GameSnapshot to every connected viewer.
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections, keyed by game id rather than by session. Each
// connection is served by a dedicated read and write goroutine.
//
// Spectators never send commands; readPump only keeps the connection
// alive and detects disconnects. All game state flows one way, from
// BroadcastSnapshot out to the connected clients.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run()
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("game_id"))
//	})
//
// A caller on the match's tick path (or a polling loop over
// Coordinator.ActiveGames) calls hub.BroadcastSnapshot(gameID, snap) to
// push the latest state; clients with a full send buffer are dropped
// rather than allowed to block the broadcast.
package websocket
