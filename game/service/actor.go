package service

import (
	"sync"
	"time"

	"github.com/wricardo/lightcycle/game/engine"
)

// tickInterval is the wall-clock period between ApplyStep calls, defaulting
// to 500ms, the same default as serve's --tick-ms flag. Tests shrink it to
// keep runtime short.
var tickInterval = 500 * time.Millisecond

// SetTickInterval overrides the wall-clock period between ticks for every
// match started after this call. Intended to be called once at startup
// from the serve command's --tick-ms flag, before any game is joined.
func SetTickInterval(d time.Duration) {
	tickInterval = d
}

// steerTimeout is the per-call deadline a steer blocks for, waiting on the
// tick that consumes its intent. Tests shrink it to keep runtime short.
var steerTimeout = 10 * time.Second

// SetSteerTimeout overrides the per-call steer deadline for every match
// started after this call.
func SetSteerTimeout(d time.Duration) {
	steerTimeout = d
}

// lookRadius bounds how much of the grid a look call reveals around the
// caller, independent of course size: radius 7 gives a 15x15 view.
const lookRadius = 7

// steerMsg is sent into a gameActor's inbox to register a steer intent and
// collect the rendered view once the tick that consumes it completes.
type steerMsg struct {
	playerIdx int
	intent    engine.SteerIntent
	reply     chan StepView
}

// gameActor owns one running match: a single goroutine advances its World
// on a ticker, consuming queued steer intents, so no two callers ever touch
// the same World concurrently. Reads (look, status) go through a RWMutex
// instead of the inbox, so they never wait on the next tick.
type gameActor struct {
	id    string
	coord *Coordinator

	mu    sync.RWMutex
	world *engine.World

	inbox   chan steerMsg
	quit    chan struct{}
	pending map[int]chan StepView
}

func newGameActor(coord *Coordinator, world *engine.World) *gameActor {
	return &gameActor{
		id:      world.ID,
		coord:   coord,
		world:   world,
		inbox:   make(chan steerMsg, 16),
		quit:    make(chan struct{}),
		pending: make(map[int]chan StepView),
	}
}

func (a *gameActor) run() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.quit:
			a.flushPending("game stopped")
			return
		case msg := <-a.inbox:
			a.registerIntent(msg)
		case <-ticker.C:
			if a.tick() {
				a.flushPending("")
				return
			}
		}
	}
}

func (a *gameActor) registerIntent(msg steerMsg) {
	a.mu.Lock()
	a.world.SetIntent(msg.playerIdx, msg.intent)
	a.pending[msg.playerIdx] = msg.reply
	a.mu.Unlock()
}

// tick advances the world exactly once and resolves every pending steer
// reply with the post-tick view. It returns true once the match finishes.
func (a *gameActor) tick() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.world.ApplyStep()

	for idx, reply := range a.pending {
		reply <- StepView{
			Text:    engine.RenderLook(a.world, idx, lookRadius),
			Outcome: outcomeFor(a.world, idx),
		}
		delete(a.pending, idx)
	}

	if a.world.Status == engine.StatusFinished {
		a.coord.finishGame(a.world)
		return true
	}
	return false
}

func (a *gameActor) flushPending(reason string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for idx, reply := range a.pending {
		reply <- StepView{Text: reason, Outcome: outcomeFor(a.world, idx)}
	}
}

// snapshot returns a copy of the world for look/status calls, taken under
// the read lock so it never observes a half-applied tick. The grid rows and
// players are copied; callers may read the result without holding mu.
func (a *gameActor) snapshot() *engine.World {
	a.mu.RLock()
	defer a.mu.RUnlock()
	cp := *a.world
	cp.Grid = make([][]engine.Cell, len(a.world.Grid))
	for y, row := range a.world.Grid {
		cp.Grid[y] = append([]engine.Cell(nil), row...)
	}
	cp.Players = make([]*engine.Player, len(a.world.Players))
	for i, p := range a.world.Players {
		pc := *p
		cp.Players[i] = &pc
	}
	return &cp
}

// steer queues a steer intent and blocks until the tick that consumes it
// completes, or until the request times out.
func (a *gameActor) steer(playerIdx int, intent engine.SteerIntent) (StepView, error) {
	reply := make(chan StepView, 1)
	select {
	case a.inbox <- steerMsg{playerIdx: playerIdx, intent: intent, reply: reply}:
	case <-a.quit:
		return StepView{}, ErrGameNotFound
	case <-time.After(5 * time.Second):
		return StepView{}, ErrTimeout
	}

	select {
	case view := <-reply:
		return view, nil
	case <-time.After(steerTimeout):
		return StepView{}, ErrTimeout
	}
}

// outcomeFor reports a post-tick outcome code. Finished implies at most
// one player is alive (see World.updateStatus), so an alive player at
// that point is always the winner.
func outcomeFor(w *engine.World, playerIdx int) string {
	p := w.Players[playerIdx]
	if !p.Alive {
		return "crashed"
	}
	if w.Status == engine.StatusFinished {
		return "won"
	}
	return "alive"
}
