// Package session provides the two storage backends for
// service.PersistenceAdapter: a flat-JSON-file adapter for single-process
// deployments and a Postgres adapter for anything longer-lived. Neither
// backend tracks in-memory player/game state — that lives in
// game/service's Coordinator — they only persist the leaderboard and
// finished-match history across restarts.
//
// Usage:
//
//	adapter, err := session.NewFileAdapter("data", 200)
//	// or: adapter, err := session.NewPostgresAdapter(connStr)
//	coord := service.NewCoordinator(catalog, adapter, logger)
package session
