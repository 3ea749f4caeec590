package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/wricardo/lightcycle/game/service"
)

func TestFileAdapterLoadOnEmptyDirReturnsEmptyState(t *testing.T) {
	dir := t.TempDir()
	a, err := NewFileAdapter(dir, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	board, finished, err := a.Load()
	if err != nil {
		t.Fatalf("unexpected error loading fresh state: %v", err)
	}
	if len(board) != 0 || len(finished) != 0 {
		t.Fatalf("expected empty leaderboard and history on first run")
	}
}

func TestFileAdapterRoundTripsSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	a, err := NewFileAdapter(dir, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	board := service.Leaderboard{
		"alice": {Name: "alice", Wins: 1, TotalPoints: 250, GamesPlayed: 1, HighestLevel: 1},
	}
	winner := 0
	finished := service.FinishedGame{
		ID: "abc123", CourseName: "Open Arena", CourseLevel: 1,
		Width: 30, Height: 30, Tick: 42, Winner: &winner,
		Players:    []service.PlayerSnapshot{{Index: 0, Name: "alice", Score: 250}},
		CreatedAt:  time.Now(),
		FinishedAt: time.Now(),
	}

	if err := a.SaveAfterGame(board, finished); err != nil {
		t.Fatalf("unexpected error saving: %v", err)
	}

	loadedBoard, loadedFinished, err := a.Load()
	if err != nil {
		t.Fatalf("unexpected error loading: %v", err)
	}
	if loadedBoard["alice"] == nil || loadedBoard["alice"].TotalPoints != 250 {
		t.Fatalf("expected alice's leaderboard entry to round-trip")
	}
	if len(loadedFinished) != 1 || loadedFinished[0].ID != "abc123" {
		t.Fatalf("expected the finished game to round-trip")
	}
}

func TestFileAdapterAppendsMultipleFinishedGames(t *testing.T) {
	dir := t.TempDir()
	a, _ := NewFileAdapter(dir, 0)

	for i := 0; i < 3; i++ {
		fg := service.FinishedGame{ID: string(rune('a' + i)), CourseName: "Open Arena"}
		if err := a.SaveAfterGame(service.Leaderboard{}, fg); err != nil {
			t.Fatalf("unexpected error on save %d: %v", i, err)
		}
	}

	_, finished, err := a.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(finished) != 3 {
		t.Fatalf("expected 3 finished games, got %d", len(finished))
	}
}

func TestFileAdapterTrimsHistoryToRetention(t *testing.T) {
	dir := t.TempDir()
	a, err := NewFileAdapter(dir, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 8; i++ {
		fg := service.FinishedGame{ID: fmt.Sprintf("game-%d", i), CourseName: "Open Arena"}
		if err := a.SaveAfterGame(service.Leaderboard{}, fg); err != nil {
			t.Fatalf("unexpected error on save %d: %v", i, err)
		}
	}

	_, finished, err := a.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(finished) != 5 {
		t.Fatalf("expected history trimmed to retention of 5, got %d", len(finished))
	}
	if finished[0].ID != "game-3" || finished[len(finished)-1].ID != "game-7" {
		t.Fatalf("expected the oldest entries evicted, keeping the most recent 5, got first=%q last=%q",
			finished[0].ID, finished[len(finished)-1].ID)
	}
}

func TestNewFileAdapterDefaultsRetentionWhenZero(t *testing.T) {
	dir := t.TempDir()
	a, err := NewFileAdapter(dir, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.retention != defaultRetention {
		t.Fatalf("expected retention to default to %d, got %d", defaultRetention, a.retention)
	}
}
