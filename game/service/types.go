// Package service implements the Session Coordinator: the concurrency
// core that turns the pure engine.World model into a running multiplayer
// match, one goroutine per active game, reachable by name-scoped identity
// rather than an explicit session token the caller must carry.
package service

import (
	"errors"
	"time"

	"github.com/wricardo/lightcycle/game/engine"
)

// Coordinator-facing error kinds, matched 1:1 against the outcomes MCP
// tool handlers must translate into agent-facing error text.
var (
	ErrGameFull       = errors.New("game is full")
	ErrNameTaken      = errors.New("player is already in an active game")
	ErrGameNotStarted = errors.New("not in a game yet, still waiting for opponents")
	ErrPlayerDead     = errors.New("player has crashed and cannot steer")
	ErrTimeout        = errors.New("steer request timed out waiting for the next tick")
	ErrPlayerUnknown  = errors.New("player not found, use join_game first")
	ErrGameNotFound   = errors.New("game not found")
)

// LeaderboardEntry tracks one player's cross-match standing.
type LeaderboardEntry struct {
	Name         string `json:"name"`
	Wins         int    `json:"wins"`
	TotalPoints  int    `json:"total_points"`
	GamesPlayed  int    `json:"games_played"`
	HighestLevel int    `json:"highest_level"`
}

// Leaderboard is the full standings table, keyed by player name.
type Leaderboard map[string]*LeaderboardEntry

// PlayerSnapshot is a finished match's per-player record, matching the
// PlayerState shape in the external GameSnapshot JSON.
type PlayerSnapshot struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Direction string `json:"direction"`
	Alive     bool   `json:"alive"`
	Distance  int    `json:"distance"`
	Score     int    `json:"score"`
}

// FinishedGame is a completed match's web-facing snapshot, persisted and
// served from GET /api/games.
type FinishedGame struct {
	ID          string           `json:"id"`
	CourseName  string           `json:"course_name"`
	CourseLevel int              `json:"course_level"`
	Width       int              `json:"width"`
	Height      int              `json:"height"`
	Grid        [][]int          `json:"grid"`
	Tick        int              `json:"tick"`
	Winner      *int             `json:"winner"`
	Players     []PlayerSnapshot `json:"players"`
	CreatedAt   time.Time        `json:"created_at"`
	FinishedAt  time.Time        `json:"finished_at"`
}

// GameSnapshot is the JSON shape served for active games over
// GET /api/games and GET /api/stream — the same fields as FinishedGame
// plus the live status, since an active match has no FinishedAt yet. Field
// names and types match the external wire contract bit-exact, including
// grid as a plain number matrix ([]engine.Cell is a byte slice, which
// encoding/json would emit as a base64 string, hence the [][]int copy made
// by gridToInts) for UI and spectator-client compatibility.
type GameSnapshot struct {
	ID          string            `json:"id"`
	CourseName  string            `json:"course_name"`
	CourseLevel int               `json:"course_level"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Grid        [][]int           `json:"grid"`
	Tick        int               `json:"tick"`
	Status      engine.GameStatus `json:"status"`
	Winner      *int              `json:"winner"`
	Players     []PlayerSnapshot  `json:"players"`
	CreatedAt   time.Time         `json:"created_at"`
}

// gridToInts converts an engine grid (row-major []Cell rows) into the
// plain number matrix the external JSON contract expects.
func gridToInts(grid [][]engine.Cell) [][]int {
	out := make([][]int, len(grid))
	for y, row := range grid {
		r := make([]int, len(row))
		for x, c := range row {
			r[x] = int(c)
		}
		out[y] = r
	}
	return out
}

// PersistenceAdapter is the storage boundary the Coordinator depends on,
// implemented by game/session's file and Postgres backends. Every error
// it returns is logged and swallowed by the caller — persistence never
// blocks or fails a live match.
type PersistenceAdapter interface {
	Load() (Leaderboard, []FinishedGame, error)
	SaveAfterGame(board Leaderboard, finished FinishedGame) error
}

// PlayerSession tracks which game, if any, a named player is currently
// part of, and the course level they have been promoted to.
type PlayerSession struct {
	Name           string
	CurrentLevel   int
	GameID         string
	PlayerIndex    int
	JoinedLobbyAt  time.Time
	LobbyCancelled bool

	// started is closed by tryStartGameLocked once this player's queued
	// match begins, or by the solo timeout when it drops the player from
	// the queue, waking any Steer call suspended in the lobby. Reset to a
	// fresh channel each time the player (re)joins the queue.
	started chan struct{}
}

// StepView is what a blocking Steer call returns once the tick that
// consumed its intent has completed (or, while still queued, once the
// lobby wait bound has elapsed): the rendered view from that player's
// perspective plus a coarse outcome code.
type StepView struct {
	Text    string
	Outcome string // "alive" | "crashed" | "won" | "waiting"
}

// JoinOutcome is returned by Join: either the player is now queued in the
// lobby, or was placed directly into a freshly started match.
type JoinOutcome struct {
	Message    string
	QueueSize  int
	GameID     string
	Started    bool
}
