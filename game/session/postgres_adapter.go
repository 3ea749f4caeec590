package session

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // postgres driver

	"github.com/wricardo/lightcycle/game/service"
)

// PostgresAdapter implements service.PersistenceAdapter against a Postgres
// database: one row per leaderboard entry, upserted after each match, and
// one row per finished game, inserted once.
type PostgresAdapter struct {
	db *sql.DB
}

// NewPostgresAdapter opens the connection, verifies it, and creates the
// backing tables if they do not already exist.
func NewPostgresAdapter(connectionString string) (*PostgresAdapter, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	a := &PostgresAdapter{db: db}
	if err := a.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return a, nil
}

func (a *PostgresAdapter) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS leaderboard_entries (
		name TEXT PRIMARY KEY,
		wins INTEGER NOT NULL DEFAULT 0,
		total_points INTEGER NOT NULL DEFAULT 0,
		games_played INTEGER NOT NULL DEFAULT 0,
		highest_level INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS finished_games (
		id TEXT PRIMARY KEY,
		course_name TEXT NOT NULL,
		course_level INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		winner_index INTEGER,
		players JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		finished_at TIMESTAMP WITH TIME ZONE NOT NULL
	);
	`
	_, err := a.db.Exec(schema)
	return err
}

// Load reads the full leaderboard and the finished-game history back out
// of Postgres.
func (a *PostgresAdapter) Load() (service.Leaderboard, []service.FinishedGame, error) {
	board := make(service.Leaderboard)
	rows, err := a.db.Query(`SELECT name, wins, total_points, games_played, highest_level FROM leaderboard_entries`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	for rows.Next() {
		var e service.LeaderboardEntry
		if err := rows.Scan(&e.Name, &e.Wins, &e.TotalPoints, &e.GamesPlayed, &e.HighestLevel); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		board[e.Name] = &e
	}
	rows.Close()

	var finished []service.FinishedGame
	frows, err := a.db.Query(`SELECT id, course_name, course_level, width, height, tick, winner_index, players, created_at, finished_at FROM finished_games ORDER BY finished_at ASC`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load finished games: %w", err)
	}
	defer frows.Close()
	for frows.Next() {
		var fg service.FinishedGame
		var winner sql.NullInt64
		var playersJSON []byte
		if err := frows.Scan(&fg.ID, &fg.CourseName, &fg.CourseLevel, &fg.Width, &fg.Height, &fg.Tick,
			&winner, &playersJSON, &fg.CreatedAt, &fg.FinishedAt); err != nil {
			return nil, nil, fmt.Errorf("failed to scan finished game row: %w", err)
		}
		if winner.Valid {
			w := int(winner.Int64)
			fg.Winner = &w
		}
		if err := unmarshalJSON(playersJSON, &fg.Players); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal players for %s: %w", fg.ID, err)
		}
		finished = append(finished, fg)
	}

	return board, finished, nil
}

// SaveAfterGame upserts every leaderboard row and inserts the finished
// game, inside a single transaction.
func (a *PostgresAdapter) SaveAfterGame(boardSnapshot service.Leaderboard, finished service.FinishedGame) error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, e := range boardSnapshot {
		_, err := tx.Exec(`
			INSERT INTO leaderboard_entries (name, wins, total_points, games_played, highest_level)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (name) DO UPDATE SET
				wins = $2, total_points = $3, games_played = $4, highest_level = $5, updated_at = NOW()
		`, e.Name, e.Wins, e.TotalPoints, e.GamesPlayed, e.HighestLevel)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to upsert leaderboard entry %q: %w", e.Name, err)
		}
	}

	playersJSON, err := marshalJSON(finished.Players)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to marshal players: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO finished_games (id, course_name, course_level, width, height, tick, winner_index, players, created_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, finished.ID, finished.CourseName, finished.CourseLevel, finished.Width, finished.Height,
		finished.Tick, finished.Winner, playersJSON, finished.CreatedAt, finished.FinishedAt)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to insert finished game: %w", err)
	}

	return tx.Commit()
}

// Close releases the underlying database connection pool.
func (a *PostgresAdapter) Close() error {
	return a.db.Close()
}
