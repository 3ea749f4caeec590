// Package engine implements the deterministic light-cycle grid: the
// course catalog, the World data model, and the single-tick step
// algorithm. Nothing in this package knows about sessions, MCP, or HTTP —
// it is pure state transition logic that the service package drives.
//
// Usage:
//
//	cat := engine.NewCatalog()
//	course := cat.Get(1)
//	world := engine.GenerateWorld(gameID, course, seed)
//	p1, _ := world.Spawn("alice", "")
//	p2, _ := world.Spawn("bob", "")
//	world.Start()
//	world.SetIntent(p2.Index, engine.SteerLeft)
//	world.ApplyStep()
package engine
