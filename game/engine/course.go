package engine

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Course is a level definition: grid dimensions, obstruction/wall layout,
// and the match limits that scale with difficulty.
type Course struct {
	ID           int
	Name         string
	Width        int
	Height       int
	MaxPlayers   int
	MinSpawnDist int
	Walls        [][2]int
	Obstructions [][2]int
	spawns       []spawnPoint
}

type spawnPoint struct {
	X, Y int
	Dir  Direction
}

// MaxTicksForCourse bounds the speed-bonus window; it is also the
// termination ceiling a well-formed course can never exceed, since the
// grid contains at most Width*Height free cells a trail can occupy.
func (c *Course) MaxTicksForCourse() int {
	return c.Width * c.Height
}

// builtinCourses holds the five fixed levels, ordered by difficulty.
// Dimensions and wall/obstruction patterns are carried unchanged from the
// original Rust course table; only the Chaos course's wall segments,
// generated by an unseeded RNG there, are made seed deterministic here.
func builtinCourses() []*Course {
	return []*Course{
		courseOpenArena(),
		courseTheMaze(),
		courseNarrowCorridors(),
		courseTheGauntlet(),
		courseChaos(0),
	}
}

func courseOpenArena() *Course {
	return &Course{
		ID: 1, Name: "Open Arena", Width: 30, Height: 30,
		MaxPlayers: 4, MinSpawnDist: 5,
		spawns: defaultSpawns(30, 30),
	}
}

func courseTheMaze() *Course {
	var walls [][2]int
	for x := 8; x < 22; x++ {
		walls = append(walls, [2]int{x, 10})
		walls = append(walls, [2]int{x, 25})
	}
	for y := 10; y < 20; y++ {
		walls = append(walls, [2]int{15, y})
	}
	for y := 5; y < 15; y++ {
		walls = append(walls, [2]int{25, y})
	}
	for y := 20; y < 30; y++ {
		walls = append(walls, [2]int{8, y})
	}
	return &Course{
		ID: 2, Name: "The Maze", Width: 40, Height: 35,
		MaxPlayers: 4, MinSpawnDist: 5,
		Walls:  walls,
		spawns: defaultSpawns(40, 35),
	}
}

func courseNarrowCorridors() *Course {
	var walls [][2]int
	for x := 0; x < 50; x++ {
		if x < 10 || x > 15 {
			walls = append(walls, [2]int{x, 7})
		}
		if x < 30 || x > 40 {
			walls = append(walls, [2]int{x, 14})
		}
	}
	return &Course{
		ID: 3, Name: "Narrow Corridors", Width: 50, Height: 22,
		MaxPlayers: 4, MinSpawnDist: 5,
		Walls:  walls,
		spawns: defaultSpawns(50, 22),
	}
}

func courseTheGauntlet() *Course {
	var obstructions [][2]int
	for x := 5; x < 55; x += 6 {
		for y := 5; y < 35; y += 6 {
			obstructions = append(obstructions,
				[2]int{x, y}, [2]int{x + 1, y}, [2]int{x, y + 1}, [2]int{x + 1, y + 1})
		}
	}
	return &Course{
		ID: 4, Name: "The Gauntlet", Width: 60, Height: 40,
		MaxPlayers: 6, MinSpawnDist: 5,
		Obstructions: obstructions,
		spawns:       defaultSpawns(60, 40),
	}
}

// courseChaos builds the fifth course's randomized wall segments from a
// seed instead of an unseeded global RNG, so the same (course, seed) pair
// always yields the same layout.
func courseChaos(seed uint64) *Course {
	rng := rand.New(rand.NewPCG(seed, 0xC4A05))
	var walls [][2]int
	for i := 0; i < 30; i++ {
		sx := 5 + rng.IntN(65)
		sy := 5 + rng.IntN(65)
		horizontal := rng.IntN(2) == 0
		length := 3 + rng.IntN(7)
		for j := 0; j < length; j++ {
			wx, wy := sx, sy
			if horizontal {
				wx += j
			} else {
				wy += j
			}
			if wx < 79 && wy < 79 {
				walls = append(walls, [2]int{wx, wy})
			}
		}
	}
	return &Course{
		ID: 5, Name: "Chaos", Width: 80, Height: 80,
		MaxPlayers: 8, MinSpawnDist: 5,
		Walls:  walls,
		spawns: defaultSpawns(80, 80),
	}
}

// defaultSpawns mirrors the original's eight fixed corner/edge/midpoint
// slots, clipped later to a course's MaxPlayers.
func defaultSpawns(w, h int) []spawnPoint {
	return []spawnPoint{
		{3, 3, Right},
		{w - 4, h - 4, Left},
		{w - 4, 3, Down},
		{3, h - 4, Up},
		{w / 2, 3, Down},
		{3, h / 2, Right},
		{w - 4, h / 2, Left},
		{w / 2, h - 4, Up},
	}
}

// Catalog resolves course ids to Course definitions, including any
// operator-supplied overrides loaded by game/config.
type Catalog struct {
	builtin   map[int]*Course
	overrides map[int]*Course
}

// NewCatalog builds the catalog from the five built-in courses. Overrides
// are added later via SetOverride.
func NewCatalog() *Catalog {
	cat := &Catalog{builtin: make(map[int]*Course), overrides: make(map[int]*Course)}
	for _, c := range builtinCourses() {
		cat.builtin[c.ID] = c
	}
	return cat
}

// Get resolves a 1-indexed course level, clamping below 1 and above the
// highest known level, matching the original's get_course clamp.
func (cat *Catalog) Get(level int) *Course {
	if c, ok := cat.overrides[level]; ok {
		return c
	}
	if c, ok := cat.builtin[level]; ok {
		return c
	}
	max := cat.MaxLevel()
	if level < 1 {
		level = 1
	}
	if level > max {
		level = max
	}
	if c, ok := cat.overrides[level]; ok {
		return c
	}
	return cat.builtin[level]
}

// MaxLevel returns the highest course id known to the catalog.
func (cat *Catalog) MaxLevel() int {
	max := 0
	for id := range cat.builtin {
		if id > max {
			max = id
		}
	}
	for id := range cat.overrides {
		if id > max {
			max = id
		}
	}
	if max == 0 {
		max = 1
	}
	return max
}

// SetOverride installs a validated override course, replacing (or adding
// to) a built-in level.
func (cat *Catalog) SetOverride(c *Course) error {
	if err := ValidateCourse(c); err != nil {
		return err
	}
	cat.overrides[c.ID] = c
	return nil
}

// ClearOverride removes a previously installed override, reverting to the
// built-in definition for that level if one exists.
func (cat *Catalog) ClearOverride(id int) {
	delete(cat.overrides, id)
}

// ValidateCourse checks the invariants every course, built-in or override,
// must satisfy: positive dimensions, at least enough spawn slots for
// MaxPlayers, and spawn points spaced at least MinSpawnDist apart.
func ValidateCourse(c *Course) error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("course %q: width and height must be positive", c.Name)
	}
	if c.MaxPlayers < 2 {
		return fmt.Errorf("course %q: max_players must be at least 2", c.Name)
	}
	spawns := c.spawns
	if len(spawns) == 0 {
		spawns = defaultSpawns(c.Width, c.Height)
	}
	if len(spawns) < c.MaxPlayers {
		return fmt.Errorf("course %q: only %d spawn slots for max_players %d", c.Name, len(spawns), c.MaxPlayers)
	}
	minDist := c.MinSpawnDist
	if minDist == 0 {
		minDist = 5
	}
	for i := 0; i < c.MaxPlayers; i++ {
		for j := i + 1; j < c.MaxPlayers; j++ {
			d := manhattan(spawns[i].X, spawns[i].Y, spawns[j].X, spawns[j].Y)
			if d < minDist {
				return fmt.Errorf("course %q: spawn points %d and %d are only %d cells apart (minimum %d)", c.Name, i, j, d, minDist)
			}
		}
	}
	return nil
}

func manhattan(x1, y1, x2, y2 int) int {
	dx := x1 - x2
	if dx < 0 {
		dx = -dx
	}
	dy := y1 - y2
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// GenerateWorld builds a fresh World from a course definition for the given
// seed, placing border walls, the course's fixed wall/obstruction lists,
// and (for Chaos) a seed-derived random wall layout. No players are placed
// yet; call World.Spawn for each joining player.
func GenerateWorld(id string, c *Course, seed uint64) *World {
	course := c
	if c.ID == 5 {
		// Chaos regenerates its random segments per seed; every other
		// course's layout is seed-independent.
		course = courseChaos(seed)
	}

	grid := make([][]Cell, course.Height)
	for y := range grid {
		grid[y] = make([]Cell, course.Width)
	}
	for x := 0; x < course.Width; x++ {
		grid[0][x] = CellWall
		grid[course.Height-1][x] = CellWall
	}
	for y := 0; y < course.Height; y++ {
		grid[y][0] = CellWall
		grid[y][course.Width-1] = CellWall
	}
	for _, o := range course.Obstructions {
		if o[0] >= 0 && o[0] < course.Width && o[1] >= 0 && o[1] < course.Height {
			grid[o[1]][o[0]] = CellObstruction
		}
	}
	for _, wl := range course.Walls {
		if wl[0] >= 0 && wl[0] < course.Width && wl[1] >= 0 && wl[1] < course.Height {
			grid[wl[1]][wl[0]] = CellWall
		}
	}

	w := &World{
		ID:          id,
		Width:       course.Width,
		Height:      course.Height,
		Grid:        grid,
		Status:      StatusWaiting,
		CreatedAt:   time.Now(),
		CourseID:    course.ID,
		CourseName:  course.Name,
		CourseLevel: course.ID,
		maxTicks:    course.MaxTicksForCourse(),
	}
	w.spawnCourse = course
	return w
}

// SpawnSpec is the JSON-facing shape of a spawn slot, used by course
// override files loaded from disk.
type SpawnSpec struct {
	X   int    `json:"x"`
	Y   int    `json:"y"`
	Dir string `json:"dir"` // "up", "down", "left", "right"
}

// NewOverrideCourse builds a Course from an operator-supplied override
// definition. It does not validate the result — call ValidateCourse before
// installing it into a Catalog.
func NewOverrideCourse(id int, name string, width, height, maxPlayers, minSpawnDist int, walls, obstructions [][2]int, spawns []SpawnSpec) *Course {
	c := &Course{
		ID: id, Name: name, Width: width, Height: height,
		MaxPlayers: maxPlayers, MinSpawnDist: minSpawnDist,
		Walls: walls, Obstructions: obstructions,
	}
	for _, s := range spawns {
		c.spawns = append(c.spawns, spawnPoint{X: s.X, Y: s.Y, Dir: parseDirection(s.Dir)})
	}
	return c
}

func parseDirection(s string) Direction {
	switch strings.ToLower(s) {
	case "down":
		return Down
	case "left":
		return Left
	case "right":
		return Right
	default:
		return Up
	}
}

func (c *Course) spawnSlots() []spawnPoint {
	if len(c.spawns) > 0 {
		return c.spawns
	}
	return defaultSpawns(c.Width, c.Height)
}

// Spawns returns the course's spawn coordinates, up to MaxPlayers, for
// tooling outside this package that needs to inspect spacing (cmd/analyze)
// or reachability without constructing a full World.
func (c *Course) Spawns() [][2]int {
	slots := c.spawnSlots()
	n := c.MaxPlayers
	if n > len(slots) {
		n = len(slots)
	}
	out := make([][2]int, n)
	for i := 0; i < n; i++ {
		out[i] = [2]int{slots[i].X, slots[i].Y}
	}
	return out
}

// BlockedCells returns every wall and obstruction coordinate this course
// places explicitly (not counting the generated border), for reachability
// tooling.
func (c *Course) BlockedCells() [][2]int {
	out := make([][2]int, 0, len(c.Walls)+len(c.Obstructions))
	out = append(out, c.Walls...)
	out = append(out, c.Obstructions...)
	return out
}

// BuiltinCourses returns the five fixed level definitions in difficulty
// order, for tooling that inspects the catalog without going through a
// Catalog (cmd/analyze).
func BuiltinCourses() []*Course {
	return builtinCourses()
}
