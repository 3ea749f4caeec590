package engine

import (
	"fmt"
	"strings"
	"time"
)

// ErrGameFull, ErrNameTaken and friends are the Coordinator-facing error
// kinds referenced by spec.md's error table; the engine only ever returns
// a bool/ok style result since it has no notion of a network caller.

// Spawn places a new player at the next free spawn slot for the world's
// course and returns the assigned player index, or false if the course is
// already at capacity.
func (w *World) Spawn(name, sessionToken string) (*Player, bool) {
	course := w.spawnCourse
	if course == nil {
		course = &Course{Width: w.Width, Height: w.Height}
	}
	slots := course.spawnSlots()
	if len(w.Players) >= course.MaxPlayers || len(w.Players) >= len(slots) {
		return nil, false
	}

	slot := slots[len(w.Players)]
	p := &Player{
		Index:        len(w.Players),
		Name:         name,
		X:            slot.X,
		Y:            slot.Y,
		Direction:    slot.Dir,
		Alive:        true,
		SessionToken: sessionToken,
	}
	w.Players = append(w.Players, p)
	return p, true
}

// Start transitions a Waiting world to Running, laying each player's
// initial trail segment at its spawn cell — matching the original's
// behavior of depositing a trail mark the instant a match starts, before
// any tick has run.
func (w *World) Start() {
	now := time.Now()
	w.StartedAt = &now
	w.Status = StatusRunning
	for _, p := range w.Players {
		w.depositTrail(p)
	}
}

// SetIntent records a player's pending steer command for the next tick.
// It is a no-op on a dead player, matching the original's apply_action.
func (w *World) SetIntent(playerIdx int, intent SteerIntent) {
	if playerIdx < 0 || playerIdx >= len(w.Players) {
		return
	}
	p := w.Players[playerIdx]
	if !p.Alive {
		return
	}
	p.PendingTurn = intent
	p.HasPending = true
	p.IdleTicks = 0
}

// ApplyStep advances the world by exactly one tick: consumes pending
// intents (defaulting to straight), deposits trails, moves every live
// player simultaneously, resolves the four collision rules (out of
// bounds/wall/obstruction, trail, same-target, and swap), commits the
// result, and updates game status. It is the single place tick semantics
// live — everything above it in the stack only calls this.
func (w *World) ApplyStep() {
	if w.Status != StatusRunning {
		return
	}

	targets := make([]struct{ x, y int }, len(w.Players))
	newDir := make([]Direction, len(w.Players))
	for i, p := range w.Players {
		if !p.Alive {
			continue
		}
		dir := p.Direction
		if p.HasPending {
			dir = p.PendingTurn.Apply(p.Direction)
		} else {
			p.IdleTicks++
		}
		p.HasPending = false
		dx, dy := dir.Delta()
		newDir[i] = dir
		targets[i].x, targets[i].y = p.X+dx, p.Y+dy
	}

	dead := make([]bool, len(w.Players))

	// Rule 1: out of bounds, wall, obstruction, or trail collision.
	for i, p := range w.Players {
		if !p.Alive {
			continue
		}
		tx, ty := targets[i].x, targets[i].y
		cell := w.CellAt(tx, ty)
		if cell != CellEmpty {
			dead[i] = true
		}
	}

	// Rule 2: two or more players targeting the same cell collide with
	// each other, even if that cell was otherwise empty.
	targetOwners := make(map[[2]int][]int)
	for i, p := range w.Players {
		if !p.Alive || dead[i] {
			continue
		}
		key := [2]int{targets[i].x, targets[i].y}
		targetOwners[key] = append(targetOwners[key], i)
	}
	for _, owners := range targetOwners {
		if len(owners) > 1 {
			for _, i := range owners {
				dead[i] = true
			}
		}
	}

	// A head-on swap — i moving into j's current cell while j moves into
	// i's — never reaches a third rule here: both cells are already each
	// player's own trail (deposited by Start or the previous tick), so
	// rule 1 kills both via the ordinary trail check before any swap-
	// specific logic would run.

	// Commit: move survivors, deposit their new trail segment, kill the
	// rest in place (a crashed player stays on its last cell).
	for i, p := range w.Players {
		if !p.Alive {
			continue
		}
		if dead[i] {
			p.Alive = false
			continue
		}
		p.Direction = newDir[i]
		p.X, p.Y = targets[i].x, targets[i].y
		p.Distance++
		w.depositTrail(p)
	}

	w.updateStatus()
	w.Tick++
}

// depositTrail marks a player's current cell as its trail. A trail cell,
// once laid, is never cleared while the game runs — every tick strictly
// shrinks the grid's empty space, which is what bounds a match to at most
// width*height ticks (see MaxTicksForCourse).
func (w *World) depositTrail(p *Player) {
	w.Grid[p.Y][p.X] = TrailCell(p.Index)
}

// updateStatus transitions Running to Finished once at most one player
// remains alive (or nobody does — an all-in collision draw), recording
// the sole survivor as Winner.
func (w *World) updateStatus() {
	if w.Status != StatusRunning {
		return
	}
	alive := w.AliveCount()
	if alive > 1 {
		return
	}
	now := time.Now()
	w.FinishedAt = &now
	w.Status = StatusFinished
	if alive == 1 && len(w.Players) >= 2 {
		for i, p := range w.Players {
			if p.Alive {
				idx := i
				w.Winner = &idx
				break
			}
		}
	}
}

// ViewFrame is a bounded window of the grid centered on a viewer, used by
// both the MCP look tool and the HTTP/TUI spectator surface.
type ViewFrame struct {
	CenterX, CenterY int
	Radius           int
	Rows             [][]Cell
}

// View extracts a (2*radius+1)^2 window centered on the given player.
func (w *World) View(playerIdx, radius int) ViewFrame {
	p := w.Players[playerIdx]
	vf := ViewFrame{CenterX: p.X, CenterY: p.Y, Radius: radius}
	size := 2*radius + 1
	vf.Rows = make([][]Cell, size)
	for row := 0; row < size; row++ {
		vf.Rows[row] = make([]Cell, size)
		y := p.Y - radius + row
		for col := 0; col < size; col++ {
			x := p.X - radius + col
			vf.Rows[row][col] = w.CellAt(x, y)
		}
	}
	return vf
}

// viewerDigit assigns a stable, per-viewer relative digit (1-9) to each
// other player visible in a look render. Unlike the original's absolute
// player.index-based labeling, the same opponent can show a different
// digit to different viewers, but always the same digit across repeated
// look calls from one viewer within one match.
func viewerDigit(viewerIdx, otherIdx int) int {
	// Every player other than the viewer gets a slot in join order,
	// skipping the viewer's own index, wrapped into 1-9.
	slot := otherIdx
	if otherIdx > viewerIdx {
		slot--
	}
	return (slot % 9) + 1
}

// RenderLook produces the exact agent-facing text block for the look tool:
// a header line, alive/distance/tick status, the legend, the view grid,
// and a manhattan-distance footer for every other player.
func RenderLook(w *World, playerIdx int, radius int) string {
	p := w.Players[playerIdx]
	var b strings.Builder

	fmt.Fprintf(&b, "Your light-cycle '%s' is at (%d, %d) heading %s.\n", p.Name, p.X, p.Y, p.Direction.Cardinal())
	if !p.Alive {
		b.WriteString("You have crashed.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Distance: %d | Tick: %d | Players alive: %d/%d\n", p.Distance, w.Tick, w.AliveCount(), len(w.Players))
	b.WriteString("Legend: @ = you, # = wall, X = obstruction, | = your trail, digits = other riders' trails/heads, . = empty\n")

	frame := w.View(playerIdx, radius)
	for row, cells := range frame.Rows {
		y := frame.CenterY - frame.Radius + row
		for col, c := range cells {
			x := frame.CenterX - frame.Radius + col
			if x == p.X && y == p.Y {
				b.WriteByte('@')
			} else {
				b.WriteByte(glyphFor(w, c, playerIdx))
			}
			b.WriteByte(' ')
		}
		b.WriteByte('\n')
	}

	for i, other := range w.Players {
		if i == playerIdx {
			continue
		}
		status := "crashed"
		if other.Alive {
			status = "alive"
		}
		dist := manhattan(p.X, p.Y, other.X, other.Y)
		fmt.Fprintf(&b, "%s (%s) is %d cells away, %s.\n", other.Name, digitLabel(viewerDigit(playerIdx, i)), dist, status)
	}

	return b.String()
}

func digitLabel(d int) string {
	return fmt.Sprintf("#%d", d)
}

func glyphFor(w *World, c Cell, viewerIdx int) byte {
	switch c {
	case CellEmpty:
		return '.'
	case CellWall:
		return '#'
	case CellObstruction:
		return 'X'
	}
	if owner, ok := c.IsTrail(); ok {
		if owner == viewerIdx {
			return '|'
		}
		d := viewerDigit(viewerIdx, owner)
		return byte('0' + d)
	}
	return '?'
}

// Score computes the point total for one player at the end of a finished
// match: base participation, raw distance traveled, and a course-scaled
// speed bonus for the eventual winner, per the spec's richer formula (the
// original only scored the winner and used a flat 1000/tick bonus).
func Score(w *World, playerIdx int) int {
	p := w.Players[playerIdx]
	const participation = 100
	score := participation + p.Distance

	if w.Winner != nil && *w.Winner == playerIdx && w.Tick > 0 {
		maxTicks := w.maxTicks
		if maxTicks <= 0 {
			maxTicks = w.Width * w.Height
		}
		bonus := maxTicks - w.Tick
		if bonus < 0 {
			bonus = 0
		}
		if bonus > 200 {
			bonus = 200
		}
		score += bonus
		score += 500 * w.CourseLevel
	}
	return score
}
