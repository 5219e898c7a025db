package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(connStr string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	repo := &PostgresRepository{db: db}
	if err := repo.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *PostgresRepository) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS lockpick_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		total_pins INTEGER NOT NULL,
		max_attempts INTEGER NOT NULL,
		pins INTEGER NOT NULL,
		attempts_used INTEGER NOT NULL,
		checks INTEGER NOT NULL,
		success TEXT NOT NULL,
		message TEXT,
		elapsed_ms BIGINT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ NOT NULL,
		attempts_json JSONB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_lockpick_user_id ON lockpick_sessions(user_id);
	CREATE INDEX IF NOT EXISTS idx_lockpick_completed_at ON lockpick_sessions(completed_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

func (r *PostgresRepository) SaveSession(record *SessionRecord) error {
	attemptsJSON, err := json.Marshal(record.Attempts)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO lockpick_sessions (id, user_id, mode, difficulty, total_pins, max_attempts, pins,
			attempts_used, checks, success, message, elapsed_ms, started_at, completed_at, attempts_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.db.Exec(
		query,
		record.ID,
		record.UserID,
		record.Mode,
		record.Difficulty,
		record.TotalPins,
		record.MaxAttempts,
		record.Pins,
		record.AttemptsUsed,
		record.Checks,
		record.Success,
		record.Message,
		record.ElapsedMs,
		record.StartedAt,
		record.CompletedAt,
		attemptsJSON,
	)

	return err
}

func (r *PostgresRepository) GetSessionsByUser(userID string) ([]SessionRecord, error) {
	query := `
		SELECT id, user_id, mode, difficulty, total_pins, max_attempts, pins, attempts_used, checks,
			success, message, elapsed_ms, started_at, completed_at, attempts_json
		FROM lockpick_sessions
		WHERE user_id = $1
		ORDER BY completed_at DESC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSessions(rows)
}

func (r *PostgresRepository) GetRecentSessions(userID string, since time.Time) ([]SessionRecord, error) {
	query := `
		SELECT id, user_id, mode, difficulty, total_pins, max_attempts, pins, attempts_used, checks,
			success, message, elapsed_ms, started_at, completed_at, attempts_json
		FROM lockpick_sessions
		WHERE user_id = $1 AND completed_at >= $2
		ORDER BY completed_at DESC
	`

	rows, err := r.db.Query(query, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSessions(rows)
}

func (r *PostgresRepository) GetSessionStats(userID string) (*SessionStats, error) {
	query := `
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN success IN ('ok', 'great') THEN 1 ELSE 0 END), 0) as successful,
			AVG(attempts_used) as avg_attempts,
			SUM(elapsed_ms) as total_time
		FROM lockpick_sessions
		WHERE user_id = $1
	`

	return scanStats(r.db.QueryRow(query, userID))
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
