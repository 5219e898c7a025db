package storage

import (
	"errors"
	"fmt"
	"time"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

type Repository interface {
	SaveSession(record *SessionRecord) error

	GetSessionsByUser(userID string) ([]SessionRecord, error)

	GetRecentSessions(userID string, since time.Time) ([]SessionRecord, error)

	GetSessionStats(userID string) (*SessionStats, error)

	Close() error
}

type SessionStats struct {
	TotalSessions   int     `json:"totalSessions"`
	SuccessfulCount int     `json:"successfulCount"`
	AverageAttempts float64 `json:"averageAttempts"`
	TotalPlayTimeMs int64   `json:"totalPlayTimeMs"`
	SuccessRate     float64 `json:"successRate"`
}

// Open picks a repository by driver name. "none" returns a nil
// Repository and no error.
func Open(driver, dsn string) (Repository, error) {
	var (
		repo Repository
		err  error
	)

	switch driver {
	case "sqlite", "sqlite3":
		repo, err = NewSQLiteRepository(dsn)
	case "postgres":
		repo, err = NewPostgresRepository(dsn)
	case "mongo", "mongodb":
		repo, err = NewMongoRepository(dsn)
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return repo, nil
}

// statsFromRecords is used where the backend cannot aggregate.
func statsFromRecords(records []SessionRecord) *SessionStats {
	var stats SessionStats
	var attempts int

	for _, rec := range records {
		stats.TotalSessions++
		if rec.Success == SuccessLevelOK || rec.Success == SuccessLevelGreat {
			stats.SuccessfulCount++
		}
		attempts += rec.AttemptsUsed
		stats.TotalPlayTimeMs += rec.ElapsedMs
	}

	if stats.TotalSessions > 0 {
		stats.AverageAttempts = float64(attempts) / float64(stats.TotalSessions)
		stats.SuccessRate = float64(stats.SuccessfulCount) / float64(stats.TotalSessions) * 100
	}
	return &stats
}
