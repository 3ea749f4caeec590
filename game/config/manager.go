package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/wricardo/lightcycle/game/engine"
)

var (
	ErrConfigNotFound = errors.New("course override not found")
	ErrInvalidConfig  = errors.New("invalid course override")
)

// overrideFile is the on-disk JSON shape of a course override, loaded from
// configDir and installed into the engine.Catalog as engine.Course.ID.
type overrideFile struct {
	ID           int                `json:"id"`
	Name         string             `json:"name"`
	Width        int                `json:"width"`
	Height       int                `json:"height"`
	MaxPlayers   int                `json:"max_players"`
	MinSpawnDist int                `json:"min_spawn_dist"`
	Walls        [][2]int           `json:"walls"`
	Obstructions [][2]int           `json:"obstructions"`
	Spawns       []engine.SpawnSpec `json:"spawns"`
}

// Manager loads course override files from a directory into an
// engine.Catalog and, once Watch is called, keeps them in sync with the
// filesystem so an operator can drop in a new course definition without
// restarting the server.
type Manager struct {
	dir     string
	catalog *engine.Catalog
	logger  *log.Logger

	mu      sync.RWMutex
	loaded  map[string]int // filename -> installed course id, for ClearOverride on removal
	watcher *fsnotify.Watcher
}

// NewManager loads every *.json override file in dir into catalog. The
// directory must already exist; an empty directory is not an error, since
// a server with no overrides just runs the five built-in courses.
func NewManager(dir string, catalog *engine.Catalog, logger *log.Logger) (*Manager, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("course override directory does not exist: %s", dir)
	}

	m := &Manager{dir: dir, catalog: catalog, logger: logger, loaded: make(map[string]int)}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read course override directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := m.loadFile(entry.Name()); err != nil {
			logger.Warn("skipping invalid course override", "file", entry.Name(), "err", err)
		}
	}
	return m, nil
}

// loadFile parses and installs a single override file, recording it under
// loaded so a later removal or edit can be tracked back to a course id.
func (m *Manager) loadFile(filename string) error {
	path := filepath.Join(m.dir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigNotFound
		}
		return fmt.Errorf("failed to read course override: %w", err)
	}

	var raw overrideFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse course override: %w", err)
	}

	course := engine.NewOverrideCourse(raw.ID, raw.Name, raw.Width, raw.Height,
		raw.MaxPlayers, raw.MinSpawnDist, raw.Walls, raw.Obstructions, raw.Spawns)
	if err := engine.ValidateCourse(course); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := m.catalog.SetOverride(course); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.mu.Lock()
	m.loaded[filename] = course.ID
	m.mu.Unlock()
	return nil
}

// removeFile reverts an override back to its built-in course, if any, once
// its file has been deleted from disk.
func (m *Manager) removeFile(filename string) {
	m.mu.Lock()
	id, ok := m.loaded[filename]
	delete(m.loaded, filename)
	m.mu.Unlock()
	if ok {
		m.catalog.ClearOverride(id)
		m.logger.Info("course override removed, reverted to built-in", "file", filename, "course_id", id)
	}
}

// Watch starts an fsnotify watch on the override directory and applies
// create/write/remove events to the catalog until stop is closed. It runs
// in the caller's goroutine; callers typically `go manager.Watch(stop)`.
func (m *Manager) Watch(stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create course override watcher: %w", err)
	}
	if err := watcher.Add(m.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch course override directory: %w", err)
	}
	m.watcher = watcher
	defer watcher.Close()

	for {
		select {
		case <-stop:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			m.handleEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("course override watcher error", "err", err)
		}
	}
}

func (m *Manager) handleEvent(event fsnotify.Event) {
	filename := filepath.Base(event.Name)
	if !strings.HasSuffix(filename, ".json") {
		return
	}
	switch {
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		if err := m.loadFile(filename); err != nil {
			m.logger.Warn("failed to reload course override", "file", filename, "err", err)
			return
		}
		m.logger.Info("course override (re)loaded", "file", filename)
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		m.removeFile(filename)
	}
}

// ListOverrides returns the filenames currently installed as overrides,
// and the course id each maps to.
func (m *Manager) ListOverrides() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int, len(m.loaded))
	for k, v := range m.loaded {
		out[k] = v
	}
	return out
}
