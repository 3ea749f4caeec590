// Command validate is a small CLI that validates course override JSON
// files in the ../course_overrides directory before an operator drops
// them where the server's hot-reload watcher will pick them up. It checks:
//   - JSON structure and required fields
//   - The same invariants engine.ValidateCourse enforces at load time
//     (positive dimensions, enough spawn slots, spawn spacing)
//   - No spawn point sitting on a wall or obstruction cell
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/lightcycle/game/engine"
)

// overrideFile mirrors the on-disk JSON schema a course override must
// satisfy, matching game/config's loader.
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

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateOverride loads and validates a single course override JSON file.
func validateOverride(filePath string) ValidationResult {
	result := ValidationResult{File: filepath.Base(filePath), Valid: true, Errors: []string{}}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read file: %v", err))
		return result
	}

	var raw overrideFile
	if err := json.Unmarshal(data, &raw); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("invalid JSON: %v", err))
		return result
	}

	if raw.ID <= 0 {
		result.Valid = false
		result.Errors = append(result.Errors, "id must be a positive course level")
	}
	if raw.Name == "" {
		result.Valid = false
		result.Errors = append(result.Errors, "name is required")
	}

	course := engine.NewOverrideCourse(raw.ID, raw.Name, raw.Width, raw.Height,
		raw.MaxPlayers, raw.MinSpawnDist, raw.Walls, raw.Obstructions, raw.Spawns)

	if err := engine.ValidateCourse(course); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	}

	if result.Valid {
		blockedParks := checkSpawnsNotBlocked(course)
		if len(blockedParks) > 0 {
			result.Valid = false
			for _, msg := range blockedParks {
				result.Errors = append(result.Errors, msg)
			}
		}
	}

	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", course.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Grid: %dx%d", course.Width, course.Height))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Max players: %d", course.MaxPlayers))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Spawn points: %d", len(course.Spawns())))
	}

	return result
}

// checkSpawnsNotBlocked reports every spawn that sits directly on a wall
// or obstruction cell — ValidateCourse checks spacing but not overlap with
// the course's own wall/obstruction lists.
func checkSpawnsNotBlocked(c *engine.Course) []string {
	blocked := make(map[[2]int]bool)
	for _, p := range c.BlockedCells() {
		blocked[p] = true
	}
	var errs []string
	for i, s := range c.Spawns() {
		if blocked[s] {
			errs = append(errs, fmt.Sprintf("spawn %d at (%d,%d) sits on a wall or obstruction", i, s[0], s[1]))
		}
	}
	return errs
}

// main scans ../course_overrides for *.json files and validates each one,
// printing a concise report and exiting with non-zero status if any file
// fails validation.
func main() {
	dir := "../course_overrides"
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		fmt.Printf("error finding course override files: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateOverride(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, errMsg := range result.Errors {
				if !strings.HasPrefix(errMsg, "✓") {
					fmt.Println("  ❌ " + errMsg)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All course overrides are valid!")
	} else {
		fmt.Println("❌ Some course overrides have errors")
		os.Exit(1)
	}
}
