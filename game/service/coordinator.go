package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wricardo/lightcycle/game/engine"
)

// soloTimeout is how long a lone player waits in the lobby before being
// dropped back out, matching the original manager's solo-cancellation rule.
// A var, not a const, so tests can shrink it.
var soloTimeout = 60 * time.Second

// maxFinishedGames bounds the in-memory finished-match history served by
// the HTTP API; older entries are evicted once this many accumulate.
const maxFinishedGames = 200

// lobbyWait is the grace period a queued-but-below-capacity lobby waits for
// more players before force-starting with whoever is there, matching the
// spec's lobby_wait. A var, not a const, so tests can shrink it.
var lobbyWait = 10 * time.Second

// lobbyWaitBound is how long a Steer call suspends for a player still
// queued in the lobby (lobbyWait plus a small slack) before giving up and
// reporting a "waiting" outcome instead of blocking forever. A var, not a
// const, so tests can shrink it.
var lobbyWaitBound = lobbyWait + 5*time.Second

// Coordinator is the Session Coordinator: it owns the lobby, every active
// gameActor, the cross-match leaderboard, and finished-match history. One
// Coordinator serves an entire server process.
type Coordinator struct {
	catalog     *engine.Catalog
	persistence PersistenceAdapter
	logger      *log.Logger

	mu         sync.Mutex
	players    map[string]*PlayerSession
	waiting    []string // player names queued in the lobby, FIFO
	soloTimer  *time.Timer
	lobbyTimer *time.Timer

	games map[string]*gameActor

	board    Leaderboard
	finished []FinishedGame
}

// NewCoordinator builds a Coordinator over the given course catalog,
// loading any previously persisted leaderboard and match history.
func NewCoordinator(catalog *engine.Catalog, persistence PersistenceAdapter, logger *log.Logger) *Coordinator {
	c := &Coordinator{
		catalog:     catalog,
		persistence: persistence,
		logger:      logger,
		players:     make(map[string]*PlayerSession),
		games:       make(map[string]*gameActor),
		board:       make(Leaderboard),
	}
	if persistence != nil {
		board, finished, err := persistence.Load()
		if err != nil {
			logger.Warn("failed to load persisted state, starting fresh", "err", err)
		} else {
			if board != nil {
				c.board = board
			}
			c.finished = finished
		}
	}
	return c
}

// Join enrolls a player into the lobby, starting a match immediately once
// the matched course's max_players is reached, or after lobbyWait elapses
// with whoever is queued, whichever comes first. A name already bound to a
// running match cannot rejoin until that match finishes. Joining is
// rejected once the lobby that would form for the candidate's level is
// already at capacity.
func (c *Coordinator) Join(name string) (JoinOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ps, exists := c.players[name]
	if exists && ps.GameID != "" {
		if _, active := c.games[ps.GameID]; active {
			return JoinOutcome{}, ErrNameTaken
		}
	}

	level := 1
	if exists {
		level = ps.CurrentLevel
	}
	if !containsName(c.waiting, name) && len(c.waiting) >= c.lobbyCapacityLocked(level) {
		return JoinOutcome{}, ErrGameFull
	}

	if !exists {
		ps = &PlayerSession{Name: name, CurrentLevel: 1}
		c.players[name] = ps
	}
	ps.GameID = ""
	ps.PlayerIndex = 0
	ps.LobbyCancelled = false
	ps.JoinedLobbyAt = time.Now()
	ps.started = make(chan struct{})

	if !containsName(c.waiting, name) {
		c.waiting = append(c.waiting, name)
	}

	if len(c.waiting) == 1 {
		c.armSoloTimeout(name)
	} else if c.soloTimer != nil {
		c.soloTimer.Stop()
		c.soloTimer = nil
	}
	if len(c.waiting) >= 2 && c.lobbyTimer == nil {
		c.armLobbyTimeoutLocked()
	}

	gameID, started := c.tryStartGameLocked(false)
	if started {
		return JoinOutcome{
			Message:   fmt.Sprintf("match %s starting now", gameID),
			GameID:    gameID,
			Started:   true,
			QueueSize: len(c.waiting),
		}, nil
	}

	return JoinOutcome{
		Message:   "queued, waiting for an opponent",
		QueueSize: len(c.waiting),
	}, nil
}

// armSoloTimeout schedules the lone-player removal; it is called with the
// Coordinator's mutex held, so the fired callback must re-acquire it.
func (c *Coordinator) armSoloTimeout(name string) {
	c.soloTimer = time.AfterFunc(soloTimeout, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if len(c.waiting) == 1 && c.waiting[0] == name {
			c.waiting = nil
			if ps, ok := c.players[name]; ok {
				ps.LobbyCancelled = true
				close(ps.started)
			}
			c.logger.Info("lobby solo timeout, player removed from queue", "player", name)
		}
	})
}

// lobbyCapacityLocked returns the max_players of the course that would
// form if candidateLevel joined the current queue right now — the lowest
// level among the queue plus the candidate, matching tryStartGameLocked's
// own level selection. Must be called with the mutex held.
func (c *Coordinator) lobbyCapacityLocked(candidateLevel int) int {
	minLevel := candidateLevel
	for _, n := range c.waiting {
		if ps := c.players[n]; ps != nil && ps.CurrentLevel < minLevel {
			minLevel = ps.CurrentLevel
		}
	}
	return c.catalog.Get(minLevel).MaxPlayers
}

// armLobbyTimeoutLocked schedules a forced match start once lobbyWait
// elapses, so a queue stuck below its course's max_players doesn't wait on
// new joiners forever. Called with the mutex held; the fired callback must
// re-acquire it.
func (c *Coordinator) armLobbyTimeoutLocked() {
	c.lobbyTimer = time.AfterFunc(lobbyWait, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.lobbyTimer = nil
		if gameID, started := c.tryStartGameLocked(true); started {
			c.logger.Info("lobby wait elapsed, starting match with queued players", "game", gameID)
		}
	})
}

func (c *Coordinator) stopLobbyTimerLocked() {
	if c.lobbyTimer != nil {
		c.lobbyTimer.Stop()
		c.lobbyTimer = nil
	}
}

// tryStartGameLocked picks the lowest course level among waiting players
// and drains up to that course's max_players from the front of the queue
// into a new gameActor. Unless force is true, it only starts once that
// course's max_players is actually reached — force is set when lobbyWait
// elapses, starting whoever is queued as long as there are at least two.
// Must be called with the mutex held.
func (c *Coordinator) tryStartGameLocked(force bool) (string, bool) {
	if len(c.waiting) < 2 {
		return "", false
	}

	minLevel := c.catalog.MaxLevel()
	for _, name := range c.waiting {
		if ps := c.players[name]; ps != nil && ps.CurrentLevel < minLevel {
			minLevel = ps.CurrentLevel
		}
	}
	course := c.catalog.Get(minLevel)

	n := len(c.waiting)
	if n > course.MaxPlayers {
		n = course.MaxPlayers
	}
	if n < 2 || (!force && n < course.MaxPlayers) {
		return "", false
	}

	names := c.waiting[:n]
	c.waiting = c.waiting[n:]
	c.stopLobbyTimerLocked()
	if c.soloTimer != nil {
		c.soloTimer.Stop()
		c.soloTimer = nil
	}
	if len(c.waiting) == 1 {
		c.armSoloTimeout(c.waiting[0])
	} else if len(c.waiting) >= 2 {
		c.armLobbyTimeoutLocked()
	}

	gameID := newGameID()
	seed := seedFromID(gameID)
	world := engine.GenerateWorld(gameID, course, seed)
	for _, name := range names {
		p, ok := world.Spawn(name, "")
		if !ok {
			continue
		}
		ps := c.players[name]
		ps.GameID = gameID
		ps.PlayerIndex = p.Index
		close(ps.started)
	}
	world.Start()

	actor := newGameActor(c, world)
	c.games[gameID] = actor
	go actor.run()

	c.logger.Info("match started", "game_id", gameID, "course", course.Name, "players", len(names))
	return gameID, true
}

// Steer submits a player's steering command for the next tick and blocks
// until that tick has been applied. If the player's match hasn't started
// yet, Steer suspends (bounded by lobbyWaitBound) instead of failing
// immediately, per the Session Coordinator's suspend-until-start contract.
func (c *Coordinator) Steer(name string, intent engine.SteerIntent) (StepView, error) {
	actor, playerIdx, err := c.lookupActive(name)
	if err == ErrGameNotStarted {
		actor, playerIdx, err = c.awaitGameStart(name)
	}
	if err != nil {
		return StepView{}, err
	}
	if actor == nil {
		return StepView{Text: c.lobbyStatusText(name), Outcome: "waiting"}, nil
	}
	return actor.steer(playerIdx, intent)
}

// awaitGameStart suspends the calling goroutine until name's queued match
// starts, the solo timeout removes name from the queue, or lobbyWaitBound
// elapses, whichever comes first. A nil actor with a nil error means no
// match started for the player; the caller should report a "waiting"
// outcome in that case.
func (c *Coordinator) awaitGameStart(name string) (*gameActor, int, error) {
	c.mu.Lock()
	ps, ok := c.players[name]
	if !ok {
		c.mu.Unlock()
		return nil, 0, ErrPlayerUnknown
	}
	if ps.GameID != "" {
		actor, idx := c.games[ps.GameID], ps.PlayerIndex
		c.mu.Unlock()
		if actor == nil {
			return nil, 0, ErrGameNotStarted
		}
		return actor, idx, nil
	}
	waitCh := ps.started
	c.mu.Unlock()

	select {
	case <-waitCh:
	case <-time.After(lobbyWaitBound):
		return nil, 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	ps, ok = c.players[name]
	if !ok {
		return nil, 0, ErrPlayerUnknown
	}
	if ps.GameID == "" {
		return nil, 0, nil
	}
	actor, ok := c.games[ps.GameID]
	if !ok {
		return nil, 0, ErrGameNotStarted
	}
	return actor, ps.PlayerIndex, nil
}

// Look renders the current view for a player without waiting on a tick.
func (c *Coordinator) Look(name string) (string, error) {
	actor, playerIdx, err := c.lookupActive(name)
	if err != nil {
		if err == ErrGameNotStarted {
			return c.lobbyStatusText(name), nil
		}
		return "", err
	}
	w := actor.snapshot()
	return engine.RenderLook(w, playerIdx, lookRadius), nil
}

// GameStatus reports where a player currently stands: queued, in a running
// match, or the outcome of their most recently finished match.
func (c *Coordinator) GameStatus(name string) (string, error) {
	c.mu.Lock()
	ps, ok := c.players[name]
	c.mu.Unlock()
	if !ok {
		return "", ErrPlayerUnknown
	}

	if ps.GameID == "" {
		return c.lobbyStatusText(name), nil
	}

	c.mu.Lock()
	actor, active := c.games[ps.GameID]
	c.mu.Unlock()
	if active {
		w := actor.snapshot()
		return fmt.Sprintf("Match %s: tick %d, %s, %d/%d players alive.",
			w.ID, w.Tick, w.Status, w.AliveCount(), len(w.Players)), nil
	}

	for i := len(c.finished) - 1; i >= 0; i-- {
		fg := c.finished[i]
		if fg.ID == ps.GameID {
			return fmt.Sprintf("Match %s finished at tick %d on %s (level %d). %s",
				fg.ID, fg.Tick, fg.CourseName, fg.CourseLevel, winnerText(fg)), nil
		}
	}
	return "Your last match has finished.", nil
}

func (c *Coordinator) lobbyStatusText(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ps := c.players[name]
	if ps != nil && ps.LobbyCancelled {
		return "You were removed from the queue after waiting alone too long. Join again to requeue."
	}
	pos := -1
	for i, n := range c.waiting {
		if n == name {
			pos = i
			break
		}
	}
	if pos < 0 {
		return "You are not currently queued. Use join_game to enter the lobby."
	}
	return fmt.Sprintf("Waiting in the lobby, position %d of %d.", pos+1, len(c.waiting))
}

func (c *Coordinator) lookupActive(name string) (*gameActor, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ps, ok := c.players[name]
	if !ok {
		return nil, 0, ErrPlayerUnknown
	}
	if ps.GameID == "" {
		return nil, 0, ErrGameNotStarted
	}
	actor, ok := c.games[ps.GameID]
	if !ok {
		return nil, 0, ErrGameNotStarted
	}
	return actor, ps.PlayerIndex, nil
}

// finishGame is invoked by a gameActor's own goroutine once its world
// transitions to finished: it removes the actor from the active set,
// updates the leaderboard and promotion levels, and persists the result.
func (c *Coordinator) finishGame(w *engine.World) {
	c.mu.Lock()
	delete(c.games, w.ID)

	snap := FinishedGame{
		ID: w.ID, CourseName: w.CourseName, CourseLevel: w.CourseLevel,
		Width: w.Width, Height: w.Height, Grid: gridToInts(w.Grid), Tick: w.Tick, Winner: w.Winner,
		CreatedAt: w.CreatedAt, FinishedAt: time.Now(),
	}
	if w.FinishedAt != nil {
		snap.FinishedAt = *w.FinishedAt
	}

	maxLevel := c.catalog.MaxLevel()
	for _, p := range w.Players {
		score := engine.Score(w, p.Index)
		snap.Players = append(snap.Players, PlayerSnapshot{
			Index: p.Index, Name: p.Name, X: p.X, Y: p.Y,
			Direction: p.Direction.Label(),
			Alive: p.Alive, Distance: p.Distance, Score: score,
		})

		entry := c.board[p.Name]
		if entry == nil {
			entry = &LeaderboardEntry{Name: p.Name}
			c.board[p.Name] = entry
		}
		entry.GamesPlayed++
		entry.TotalPoints += score
		won := w.Winner != nil && *w.Winner == p.Index
		if won {
			entry.Wins++
			if w.CourseLevel > entry.HighestLevel {
				entry.HighestLevel = w.CourseLevel
			}
		}

		if ps := c.players[p.Name]; ps != nil {
			ps.GameID = w.ID
			if won {
				next := w.CourseLevel + 1
				if next > maxLevel {
					next = maxLevel
				}
				ps.CurrentLevel = next
			}
			// A loser replays the same level rather than being demoted.
		}
	}

	c.finished = append(c.finished, snap)
	if len(c.finished) > maxFinishedGames {
		c.finished = c.finished[len(c.finished)-maxFinishedGames:]
	}
	boardCopy := c.board
	c.mu.Unlock()

	if c.persistence != nil {
		if err := c.persistence.SaveAfterGame(boardCopy, snap); err != nil {
			c.logger.Warn("failed to persist match result", "game_id", w.ID, "err", err)
		}
	}
}

// Leaderboard returns a snapshot of the current standings, sorted by total
// points descending.
func (c *Coordinator) Leaderboard() []*LeaderboardEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := make([]*LeaderboardEntry, 0, len(c.board))
	for _, e := range c.board {
		cp := *e
		entries = append(entries, &cp)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].TotalPoints > entries[j].TotalPoints })
	return entries
}

// ActiveGames returns a live snapshot of every currently running match.
func (c *Coordinator) ActiveGames() []GameSnapshot {
	c.mu.Lock()
	actors := make([]*gameActor, 0, len(c.games))
	for _, a := range c.games {
		actors = append(actors, a)
	}
	c.mu.Unlock()

	snaps := make([]GameSnapshot, 0, len(actors))
	for _, a := range actors {
		w := a.snapshot()
		gs := GameSnapshot{
			ID: w.ID, CourseName: w.CourseName, CourseLevel: w.CourseLevel,
			Width: w.Width, Height: w.Height, Grid: gridToInts(w.Grid), Tick: w.Tick, Status: w.Status,
			Winner: w.Winner, CreatedAt: w.CreatedAt,
		}
		for _, p := range w.Players {
			gs.Players = append(gs.Players, PlayerSnapshot{
				Index: p.Index, Name: p.Name, X: p.X, Y: p.Y,
				Direction: p.Direction.Label(),
				Alive: p.Alive, Distance: p.Distance, Score: engine.Score(w, p.Index),
			})
		}
		snaps = append(snaps, gs)
	}
	return snaps
}

// FinishedGames returns the in-memory finished-match history, most recent
// last.
func (c *Coordinator) FinishedGames() []FinishedGame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]FinishedGame, len(c.finished))
	copy(out, c.finished)
	return out
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func winnerText(fg FinishedGame) string {
	if fg.Winner == nil {
		return "No winner, every rider crashed."
	}
	for _, p := range fg.Players {
		if p.Index == *fg.Winner {
			return fmt.Sprintf("%s won with a score of %d.", p.Name, p.Score)
		}
	}
	return "A winner was recorded."
}

// newGameID generates a random 8-character match id, in the same
// crypto/rand short-hex convention used elsewhere in this codebase rather
// than pulling in a UUID dependency.
func newGameID() string {
	buf := make([]byte, 4)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}

// seedFromID derives a deterministic Chaos-course seed from a game id, so
// a match's random wall layout is reproducible from its id alone.
func seedFromID(id string) uint64 {
	var seed uint64
	for _, b := range []byte(id) {
		seed = seed*131 + uint64(b)
	}
	return seed
}
