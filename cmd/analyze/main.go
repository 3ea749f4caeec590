// Command analyze prints quick, human-readable heuristics about the five
// built-in courses: spawn-point spacing, whether any spawn sits on a wall
// or obstruction, and how much of the grid is reachable from each spawn
// once walls and obstructions are flood-filled around.
package main

import (
	"fmt"

	"github.com/wricardo/lightcycle/game/engine"
)

func main() {
	for _, course := range engine.BuiltinCourses() {
		fmt.Printf("\n=== Analyzing course %d: %s ===\n", course.ID, course.Name)
		analyzeCourse(course)
	}
}

func analyzeCourse(c *engine.Course) {
	fmt.Printf("Grid Size: %d x %d\n", c.Width, c.Height)
	fmt.Printf("Max Players: %d, Min Spawn Distance: %d\n", c.MaxPlayers, c.MinSpawnDist)

	blocked := blockedSet(c)
	spawns := c.Spawns()
	fmt.Printf("Spawn Points: %d\n", len(spawns))

	minDist := c.MinSpawnDist
	if minDist == 0 {
		minDist = 5
	}

	tooClose := 0
	for i := 0; i < len(spawns); i++ {
		for j := i + 1; j < len(spawns); j++ {
			d := manhattan(spawns[i], spawns[j])
			if d < minDist {
				tooClose++
				fmt.Printf("   WARNING: spawns %d and %d are only %d cells apart (minimum %d)\n", i, j, d, minDist)
			}
		}
	}
	if tooClose == 0 {
		fmt.Printf("OK: all spawn points are at least %d cells apart\n", minDist)
	}

	blockedSpawns := 0
	for i, s := range spawns {
		if blocked[s] {
			blockedSpawns++
			fmt.Printf("   CRITICAL: spawn %d at (%d, %d) sits on a wall or obstruction\n", i, s[0], s[1])
		}
	}
	if blockedSpawns == 0 {
		fmt.Printf("OK: no spawn point sits on a wall or obstruction\n")
	}

	reachable := floodFillFrom(spawns, c.Width, c.Height, blocked)
	total := c.Width * c.Height
	pct := float64(len(reachable)) / float64(total) * 100
	fmt.Printf("Reachable from spawns: %d / %d cells (%.1f%%)\n", len(reachable), total, pct)
	if pct < 50 {
		fmt.Printf("   WARNING: less than half the grid is reachable from any spawn point\n")
	}
}

func blockedSet(c *engine.Course) map[[2]int]bool {
	blocked := make(map[[2]int]bool)
	for _, p := range c.BlockedCells() {
		blocked[p] = true
	}
	for x := 0; x < c.Width; x++ {
		blocked[[2]int{x, 0}] = true
		blocked[[2]int{x, c.Height - 1}] = true
	}
	for y := 0; y < c.Height; y++ {
		blocked[[2]int{0, y}] = true
		blocked[[2]int{c.Width - 1, y}] = true
	}
	return blocked
}

func floodFillFrom(starts [][2]int, width, height int, blocked map[[2]int]bool) map[[2]int]bool {
	visited := make(map[[2]int]bool)
	queue := make([][2]int, 0, len(starts))
	for _, s := range starts {
		if !blocked[s] && !visited[s] {
			visited[s] = true
			queue = append(queue, s)
		}
	}
	deltas := [][2]int{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range deltas {
			next := [2]int{cur[0] + d[0], cur[1] + d[1]}
			if next[0] < 0 || next[0] >= width || next[1] < 0 || next[1] >= height {
				continue
			}
			if blocked[next] || visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return visited
}

func manhattan(a, b [2]int) int {
	dx := a[0] - b[0]
	if dx < 0 {
		dx = -dx
	}
	dy := a[1] - b[1]
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}
