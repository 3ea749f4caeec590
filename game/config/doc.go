// Package config loads operator-supplied course overrides from a
// directory of JSON files and installs them into an engine.Catalog,
// watching the directory with fsnotify so a new or edited override takes
// effect without a server restart.
//
// Override Format:
//
// Each *.json file describes one course level: grid dimensions, wall and
// obstruction cell lists, spawn points with a heading, and the per-course
// limits (max_players, min_spawn_dist). An override's
// "id" field replaces the built-in course at that level; removing the file
// reverts the catalog back to the built-in definition.
//
// Usage:
//
//	cat := engine.NewCatalog()
//	mgr, err := config.NewManager("courses", cat, logger)
//	stop := make(chan struct{})
//	go mgr.Watch(stop)
package config
