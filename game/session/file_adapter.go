package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wricardo/lightcycle/game/service"
)

// defaultRetention is how many finished games finished_games.json keeps
// when NewFileAdapter is given a retention of zero.
const defaultRetention = 200

// FileAdapter implements service.PersistenceAdapter on top of two flat
// JSON files in a directory: one holding the leaderboard, one holding the
// finished-match history. Writes go through a temp-file-then-rename so a
// crash mid-write never leaves a half-written file behind. The finished-
// games file is trimmed to retention entries before every write, keeping
// only the most recent matches.
type FileAdapter struct {
	dir       string
	retention int
}

// NewFileAdapter creates dir if necessary and returns an adapter rooted
// there. A retention of zero or less falls back to defaultRetention.
func NewFileAdapter(dir string, retention int) (*FileAdapter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create persistence directory: %w", err)
	}
	if retention <= 0 {
		retention = defaultRetention
	}
	return &FileAdapter{dir: dir, retention: retention}, nil
}

func (a *FileAdapter) leaderboardPath() string { return filepath.Join(a.dir, "leaderboard.json") }
func (a *FileAdapter) finishedPath() string     { return filepath.Join(a.dir, "finished_games.json") }

// Load reads both files, tolerating either being absent (a fresh server
// with no history yet).
func (a *FileAdapter) Load() (service.Leaderboard, []service.FinishedGame, error) {
	board := make(service.Leaderboard)
	if data, err := os.ReadFile(a.leaderboardPath()); err == nil {
		if err := json.Unmarshal(data, &board); err != nil {
			return nil, nil, fmt.Errorf("failed to parse leaderboard file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("failed to read leaderboard file: %w", err)
	}

	var finished []service.FinishedGame
	if data, err := os.ReadFile(a.finishedPath()); err == nil {
		if err := json.Unmarshal(data, &finished); err != nil {
			return nil, nil, fmt.Errorf("failed to parse finished-games file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("failed to read finished-games file: %w", err)
	}

	return board, finished, nil
}

// SaveAfterGame rewrites the leaderboard file with the full updated board
// and appends one entry to the finished-games file.
func (a *FileAdapter) SaveAfterGame(board service.Leaderboard, finished service.FinishedGame) error {
	if err := a.writeJSONAtomic(a.leaderboardPath(), board); err != nil {
		return fmt.Errorf("failed to save leaderboard: %w", err)
	}

	var history []service.FinishedGame
	if data, err := os.ReadFile(a.finishedPath()); err == nil {
		json.Unmarshal(data, &history)
	}
	history = append(history, finished)
	if len(history) > a.retention {
		history = history[len(history)-a.retention:]
	}
	if err := a.writeJSONAtomic(a.finishedPath(), history); err != nil {
		return fmt.Errorf("failed to save finished game: %w", err)
	}
	return nil
}

// writeJSONAtomic marshals v and writes it to path via a temp file in the
// same directory followed by an atomic rename, so readers never observe a
// partially written file.
func (a *FileAdapter) writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to rename temp file into place: %w", err)
	}
	return nil
}
