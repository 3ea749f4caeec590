// Package service is the Session Coordinator: it turns the pure
// engine.World model into running matches, one goroutine per active game,
// plus the lobby that matches queued players into those games and the
// cross-match leaderboard. Callers reach it by player name rather than an
// explicit session token — transport/mcp binds a connection to a name once
// and passes that name into every Coordinator call after.
//
// Usage:
//
//	cat := engine.NewCatalog()
//	coord := service.NewCoordinator(cat, persistence, logger)
//	outcome, err := coord.Join("alice")
//	view, err := coord.Steer("alice", engine.SteerLeft)
//	text, err := coord.Look("alice")
package service
