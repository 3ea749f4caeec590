package config

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wricardo/lightcycle/game/engine"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func writeOverride(t *testing.T, dir, filename string, o overrideFile) {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal override: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("failed to write override: %v", err)
	}
}

func validOverride(id int) overrideFile {
	return overrideFile{
		ID: id, Name: "Custom Arena", Width: 20, Height: 20,
		MaxPlayers: 2, MinSpawnDist: 5,
		Spawns: []engine.SpawnSpec{
			{X: 2, Y: 2, Dir: "right"},
			{X: 17, Y: 17, Dir: "left"},
		},
	}
}

func TestNewManagerLoadsExistingOverrides(t *testing.T) {
	dir := t.TempDir()
	writeOverride(t, dir, "level1.json", validOverride(1))

	cat := engine.NewCatalog()
	mgr, err := NewManager(dir, cat, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat.Get(1).Name != "Custom Arena" {
		t.Fatalf("expected the override to replace course 1, got %q", cat.Get(1).Name)
	}
	if len(mgr.ListOverrides()) != 1 {
		t.Fatalf("expected one tracked override")
	}
}

func TestNewManagerRejectsMissingDirectory(t *testing.T) {
	cat := engine.NewCatalog()
	if _, err := NewManager("/nonexistent/course-overrides", cat, testLogger()); err == nil {
		t.Fatalf("expected an error for a missing override directory")
	}
}

func TestNewManagerSkipsInvalidOverrideButKeepsRunning(t *testing.T) {
	dir := t.TempDir()
	bad := validOverride(2)
	bad.MaxPlayers = 1 // invalid: below the minimum of two
	writeOverride(t, dir, "broken.json", bad)

	cat := engine.NewCatalog()
	mgr, err := NewManager(dir, cat, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mgr.ListOverrides()) != 0 {
		t.Fatalf("expected the invalid override to be skipped, not installed")
	}
	if cat.Get(2).Name != "The Maze" {
		t.Fatalf("expected course 2 to remain the built-in definition")
	}
}

func TestWatchPicksUpNewAndRemovedOverrides(t *testing.T) {
	dir := t.TempDir()
	cat := engine.NewCatalog()
	mgr, err := NewManager(dir, cat, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		mgr.Watch(stop)
		close(done)
	}()
	defer func() {
		close(stop)
		<-done
	}()

	path := filepath.Join(dir, "level3.json")
	writeOverride(t, dir, "level3.json", validOverride(3))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cat.Get(3).Name == "Custom Arena" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if cat.Get(3).Name != "Custom Arena" {
		t.Fatalf("expected the watcher to install the new override, got %q", cat.Get(3).Name)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove override file: %v", err)
	}
	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cat.Get(3).Name == "Narrow Corridors" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if cat.Get(3).Name != "Narrow Corridors" {
		t.Fatalf("expected removing the override file to revert course 3, got %q", cat.Get(3).Name)
	}
}
