package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/eduplay/boardsync-backend/internal/entity"
)

// Archive mirrors finalized turn records into SQLite for reporting queries.
// It is written once per finalized decision and never read back by the
// synchronization core.
type Archive struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewArchive(db *sql.DB, logger *slog.Logger) *Archive {
	return &Archive{
		db:     db,
		logger: logger.With("component", "history-archive"),
	}
}

func (that *Archive) Init(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS turn_records (
		session_id   TEXT NOT NULL,
		team_id      TEXT NOT NULL,
		turn_version INTEGER NOT NULL,
		cell         INTEGER NOT NULL,
		card_id      TEXT,
		choice       TEXT,
		reasoning    TEXT,
		feedback     TEXT,
		deltas       TEXT,
		recorded_at  INTEGER NOT NULL
	)`

	if _, err := that.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("can't create turn_records table: %w", err)
	}

	return nil
}

func (that *Archive) Append(ctx context.Context, sessionID string, record entity.TurnRecord) error {
	deltas, err := json.Marshal(record.Deltas)
	if err != nil {
		return fmt.Errorf("could not marshal deltas: %w", err)
	}

	query := `INSERT INTO turn_records
		(session_id, team_id, turn_version, cell, card_id, choice, reasoning, feedback, deltas, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = that.db.ExecContext(ctx, query,
		sessionID, record.TeamID, record.TurnVersion, record.Cell,
		record.CardID, record.Choice, record.Reasoning, record.Feedback,
		string(deltas), record.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to insert turn record: %w", err)
	}

	return nil
}

func (that *Archive) BySession(ctx context.Context, sessionID string) ([]entity.TurnRecord, error) {
	query := `SELECT team_id, turn_version, cell, card_id, choice, reasoning, feedback, deltas, recorded_at
		FROM turn_records WHERE session_id = ? ORDER BY turn_version, recorded_at`

	rows, err := that.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turn records: %w", err)
	}
	defer rows.Close()

	var records []entity.TurnRecord

	for rows.Next() {
		var record entity.TurnRecord
		var deltas string

		err = rows.Scan(&record.TeamID, &record.TurnVersion, &record.Cell,
			&record.CardID, &record.Choice, &record.Reasoning, &record.Feedback,
			&deltas, &record.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turn record: %w", err)
		}

		if deltas != "" {
			if err = json.Unmarshal([]byte(deltas), &record.Deltas); err != nil {
				that.logger.Error("failed to unmarshal deltas", "error", err)
			}
		}

		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turn records: %w", err)
	}

	return records, nil
}
