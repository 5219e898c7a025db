package storage

import (
	"database/sql"
	"encoding/json"
)

// scanSessions reads rows selected in the column order shared by the SQL
// backends.
func scanSessions(rows *sql.Rows) ([]SessionRecord, error) {
	var records []SessionRecord

	for rows.Next() {
		var record SessionRecord
		var attemptsJSON []byte
		var message sql.NullString

		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.Mode,
			&record.Difficulty,
			&record.TotalPins,
			&record.MaxAttempts,
			&record.Pins,
			&record.AttemptsUsed,
			&record.Checks,
			&record.Success,
			&message,
			&record.ElapsedMs,
			&record.StartedAt,
			&record.CompletedAt,
			&attemptsJSON,
		)
		if err != nil {
			return nil, err
		}
		record.Message = message.String

		if err := json.Unmarshal(attemptsJSON, &record.Attempts); err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

func scanStats(row *sql.Row) (*SessionStats, error) {
	var stats SessionStats
	var totalTime sql.NullInt64
	var avgAttempts sql.NullFloat64

	err := row.Scan(
		&stats.TotalSessions,
		&stats.SuccessfulCount,
		&avgAttempts,
		&totalTime,
	)
	if err != nil {
		return nil, err
	}

	if avgAttempts.Valid {
		stats.AverageAttempts = avgAttempts.Float64
	}
	if totalTime.Valid {
		stats.TotalPlayTimeMs = totalTime.Int64
	}
	if stats.TotalSessions > 0 {
		stats.SuccessRate = float64(stats.SuccessfulCount) / float64(stats.TotalSessions) * 100
	}

	return &stats, nil
}
