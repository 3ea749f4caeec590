package service

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wricardo/lightcycle/game/engine"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func newTestCoordinator() *Coordinator {
	tickInterval = 20 * time.Millisecond
	soloTimeout = 60 * time.Millisecond
	lobbyWait = 150 * time.Millisecond
	lobbyWaitBound = 250 * time.Millisecond
	steerTimeout = 60 * time.Millisecond
	return NewCoordinator(engine.NewCatalog(), nil, testLogger())
}

func TestJoinQueuesSoloPlayer(t *testing.T) {
	c := newTestCoordinator()
	out, err := c.Join("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Started {
		t.Fatalf("expected a lone player to stay queued, not start a match")
	}
	if out.QueueSize != 1 {
		t.Fatalf("expected queue size 1, got %d", out.QueueSize)
	}
}

func TestJoinStartsMatchOnceCourseCapacityReached(t *testing.T) {
	c := newTestCoordinator()
	for _, name := range []string{"alice", "bob", "carol"} {
		if _, err := c.Join(name); err != nil {
			t.Fatalf("%s join: %v", name, err)
		}
	}
	out, err := c.Join("dave")
	if err != nil {
		t.Fatalf("dave join: %v", err)
	}
	if !out.Started {
		t.Fatalf("expected the join that fills the course's max_players to start a match")
	}
	if out.GameID == "" {
		t.Fatalf("expected a game id once started")
	}
}

func TestJoinForceStartsAfterLobbyWaitElapses(t *testing.T) {
	c := newTestCoordinator()
	c.Join("alice")
	c.Join("bob")

	deadline := time.After(lobbyWait + 500*time.Millisecond)
	for {
		if len(c.ActiveGames()) > 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("expected the lobby wait timer to force-start the queued pair")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestJoinRejectsCandidateWhoseCourseLobbyIsAlreadyFull(t *testing.T) {
	c := newTestCoordinator()
	// Four level-5 players queue for the 8-player Chaos course without
	// reaching its capacity, so the lobby never auto-drains on its own.
	for _, name := range []string{"p1", "p2", "p3", "p4"} {
		c.mu.Lock()
		c.players[name] = &PlayerSession{Name: name, CurrentLevel: 5}
		c.mu.Unlock()
		if _, err := c.Join(name); err != nil {
			t.Fatalf("%s join: %v", name, err)
		}
	}
	// A level-1 newcomer's lobby would form at Open Arena's cap of 4,
	// already met by the queued level-5 players.
	if _, err := c.Join("newbie"); err != ErrGameFull {
		t.Fatalf("expected ErrGameFull, got %v", err)
	}
}

func TestJoinRejectsNameAlreadyInActiveMatch(t *testing.T) {
	c := newTestCoordinator()
	for _, name := range []string{"alice", "bob", "carol", "dave"} {
		c.Join(name)
	}
	if _, err := c.Join("alice"); err != ErrNameTaken {
		t.Fatalf("expected ErrNameTaken for a player already in a running match, got %v", err)
	}
}

func TestSteerUnknownPlayerFails(t *testing.T) {
	c := newTestCoordinator()
	if _, err := c.Steer("ghost", engine.SteerLeft); err != ErrPlayerUnknown {
		t.Fatalf("expected ErrPlayerUnknown, got %v", err)
	}
}

func TestSteerBeforeMatchStartsSuspendsThenReportsWaiting(t *testing.T) {
	c := newTestCoordinator()
	// Keep the solo timeout longer than the wait bound, as in production
	// (60s vs 15s), so the bound rather than the solo cancellation ends the wait.
	soloTimeout = 2 * lobbyWaitBound
	c.Join("alice")

	start := time.Now()
	view, err := c.Steer("alice", engine.SteerLeft)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) < lobbyWaitBound/2 {
		t.Fatalf("expected Steer to suspend for roughly the lobby wait bound while solo")
	}
	if view.Outcome != "waiting" {
		t.Fatalf("expected outcome %q, got %q", "waiting", view.Outcome)
	}
}

func TestSteerResolvesOnceTheQueuedMatchStarts(t *testing.T) {
	c := newTestCoordinator()
	c.Join("alice")

	done := make(chan StepView, 1)
	go func() {
		view, err := c.Steer("alice", engine.SteerLeft)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		done <- view
	}()

	time.Sleep(lobbyWaitBound / 8)
	c.Join("bob")
	c.Join("carol")
	c.Join("dave")

	select {
	case view := <-done:
		if view.Outcome == "waiting" {
			t.Fatalf("expected Steer to resolve against the started match, not report waiting")
		}
	case <-time.After(lobbyWaitBound):
		t.Fatal("expected Steer to resolve once the match started, it never returned")
	}
}

func TestSteerBlocksUntilNextTickCompletes(t *testing.T) {
	c := newTestCoordinator()
	c.Join("alice")
	c.Join("bob")
	c.Join("carol")
	c.Join("dave")

	start := time.Now()
	view, err := c.Steer("alice", engine.SteerStraight)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) < tickInterval/2 {
		t.Fatalf("expected Steer to block for roughly one tick")
	}
	if view.Text == "" {
		t.Fatalf("expected a non-empty rendered view")
	}
}

func TestActiveGamesReportsWireDirectionLabels(t *testing.T) {
	c := newTestCoordinator()
	c.Join("alice")
	c.Join("bob")
	c.Join("carol")
	c.Join("dave")

	snaps := c.ActiveGames()
	if len(snaps) != 1 {
		t.Fatalf("expected one active game, got %d", len(snaps))
	}
	valid := map[string]bool{"Up": true, "Down": true, "Left": true, "Right": true}
	for _, p := range snaps[0].Players {
		if !valid[p.Direction] {
			t.Errorf("player %q direction = %q, want one of Up/Down/Left/Right", p.Name, p.Direction)
		}
	}
}

func TestLookReturnsImmediatelyWithoutBlockingOnATick(t *testing.T) {
	c := newTestCoordinator()
	c.Join("alice")
	c.Join("bob")
	c.Join("carol")
	c.Join("dave")

	start := time.Now()
	text, err := c.Look("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > tickInterval {
		t.Fatalf("expected Look to return well within one tick interval")
	}
	if text == "" {
		t.Fatalf("expected rendered look text")
	}
}

func TestGameStatusReportsLobbyPositionBeforeMatchStarts(t *testing.T) {
	c := newTestCoordinator()
	c.Join("alice")
	status, err := c.GameStatus("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status == "" {
		t.Fatalf("expected a non-empty lobby status")
	}
}

func TestFinishedMatchUpdatesLeaderboardAndPromotesWinner(t *testing.T) {
	c := newTestCoordinator()
	c.Join("alice")
	c.Join("bob")

	var actor *gameActor
	actorDeadline := time.After(2 * time.Second)
	for actor == nil {
		c.mu.Lock()
		for _, a := range c.games {
			actor = a
		}
		c.mu.Unlock()
		if actor != nil {
			break
		}
		select {
		case <-actorDeadline:
			t.Fatalf("expected the lobby wait timer to start a match for the queued pair")
		case <-time.After(5 * time.Millisecond):
		}
	}

	actor.mu.Lock()
	w := actor.world
	for _, p := range w.Players {
		if p.Name == "bob" {
			p.X, p.Y, p.Direction = 1, 1, engine.Up // drives bob into the border wall
		}
	}
	actor.mu.Unlock()

	deadline := time.After(2 * time.Second)
	for {
		c.mu.Lock()
		_, stillRunning := c.games[w.ID]
		c.mu.Unlock()
		if !stillRunning {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("match never finished")
		case <-time.After(5 * time.Millisecond):
		}
	}

	board := c.Leaderboard()
	if len(board) != 2 {
		t.Fatalf("expected two leaderboard entries, got %d", len(board))
	}

	c.mu.Lock()
	alicePS := c.players["alice"]
	c.mu.Unlock()
	if alicePS.CurrentLevel <= 1 {
		t.Fatalf("expected alice to be promoted past level 1 after winning, got %d", alicePS.CurrentLevel)
	}
}
