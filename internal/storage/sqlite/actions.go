package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oselight/stripdeck/pkg/logger"
)

// ActionStorage handles storage of action audit records
type ActionStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewActionStorage creates a new SQLite action storage
func NewActionStorage(db *sql.DB, log *logger.Logger) *ActionStorage {
	storage := &ActionStorage{
		db:     db,
		logger: log.Named("sqlite-actions"),
	}

	if err := storage.initDB(); err != nil {
		storage.logger.Error("Failed to initialize action storage", logger.Error(err))
	}

	return storage
}

// initDB initializes the database tables
func (s *ActionStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS actions (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			callsign TEXT NOT NULL,
			arguments TEXT NOT NULL,
			outcome TEXT NOT NULL,
			detail TEXT,
			timestamp TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create actions table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_actions_callsign ON actions(callsign)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_timestamp ON actions(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_outcome ON actions(outcome)`,
	}

	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create action index: %w", err)
		}
	}

	return nil
}

// StoreAction stores an action audit record and returns its generated ID
func (s *ActionStorage) StoreAction(record *ActionRecord) (string, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO actions
		(id, kind, callsign, arguments, outcome, detail, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Kind,
		record.Callsign,
		record.Arguments,
		record.Outcome,
		record.Detail,
		record.Timestamp.Format(time.RFC3339),
		record.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert action: %w", err)
	}

	return record.ID, nil
}

// GetActionsByCallsign returns action records for a specific callsign
func (s *ActionStorage) GetActionsByCallsign(callsign string, limit int) ([]*ActionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, kind, callsign, arguments, outcome, detail, timestamp, created_at
		FROM actions
		WHERE callsign = ?
		ORDER BY timestamp DESC
		LIMIT ?`,
		callsign, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions by callsign: %w", err)
	}
	defer rows.Close()

	return s.scanActionRows(rows)
}

// GetRecentActions returns recent action records across all callsigns
func (s *ActionStorage) GetRecentActions(limit int) ([]*ActionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, kind, callsign, arguments, outcome, detail, timestamp, created_at
		FROM actions
		ORDER BY timestamp DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent actions: %w", err)
	}
	defer rows.Close()

	return s.scanActionRows(rows)
}

// scanActionRows scans database rows into ActionRecord structs
func (s *ActionStorage) scanActionRows(rows *sql.Rows) ([]*ActionRecord, error) {
	var records []*ActionRecord
	for rows.Next() {
		var record ActionRecord
		var timestamp, createdAt string
		var detail sql.NullString

		if err := rows.Scan(
			&record.ID,
			&record.Kind,
			&record.Callsign,
			&record.Arguments,
			&record.Outcome,
			&detail,
			&timestamp,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}

		var err error
		record.Timestamp, err = time.Parse(time.RFC3339, timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}

		record.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		if detail.Valid {
			record.Detail = detail.String
		}

		records = append(records, &record)
	}

	return records, nil
}
