package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oselight/stripdeck/pkg/logger"
)

// AnalysisStorage handles storage of analysis audit records
type AnalysisStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewAnalysisStorage creates a new SQLite analysis storage
func NewAnalysisStorage(db *sql.DB, log *logger.Logger) *AnalysisStorage {
	storage := &AnalysisStorage{
		db:     db,
		logger: log.Named("sqlite-analyses"),
	}

	if err := storage.initDB(); err != nil {
		storage.logger.Error("Failed to initialize analysis storage", logger.Error(err))
	}

	return storage
}

// initDB initializes the database tables
func (s *AnalysisStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS analyses (
			id TEXT PRIMARY KEY,
			callsign TEXT NOT NULL,
			status TEXT NOT NULL,
			summary TEXT NOT NULL,
			confidence REAL NOT NULL,
			produced_by TEXT NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create analyses table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_analyses_callsign ON analyses(callsign)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_timestamp ON analyses(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status)`,
	}

	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create analysis index: %w", err)
		}
	}

	return nil
}

// StoreAnalysis stores an analysis audit record and returns its generated ID
func (s *AnalysisStorage) StoreAnalysis(record *AnalysisRecord) (string, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO analyses
		(id, callsign, status, summary, confidence, produced_by, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Callsign,
		record.Status,
		record.Summary,
		record.Confidence,
		record.ProducedBy,
		record.Timestamp.Format(time.RFC3339),
		record.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert analysis: %w", err)
	}

	return record.ID, nil
}

// GetAnalysesByCallsign returns analysis records for a specific callsign
func (s *AnalysisStorage) GetAnalysesByCallsign(callsign string, limit int) ([]*AnalysisRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, callsign, status, summary, confidence, produced_by, timestamp, created_at
		FROM analyses
		WHERE callsign = ?
		ORDER BY timestamp DESC
		LIMIT ?`,
		callsign, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses by callsign: %w", err)
	}
	defer rows.Close()

	return s.scanAnalysisRows(rows)
}

// GetRecentAnalyses returns recent analysis records across all callsigns
func (s *AnalysisStorage) GetRecentAnalyses(limit int) ([]*AnalysisRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, callsign, status, summary, confidence, produced_by, timestamp, created_at
		FROM analyses
		ORDER BY timestamp DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent analyses: %w", err)
	}
	defer rows.Close()

	return s.scanAnalysisRows(rows)
}

// scanAnalysisRows scans database rows into AnalysisRecord structs
func (s *AnalysisStorage) scanAnalysisRows(rows *sql.Rows) ([]*AnalysisRecord, error) {
	var records []*AnalysisRecord
	for rows.Next() {
		var record AnalysisRecord
		var timestamp, createdAt string

		if err := rows.Scan(
			&record.ID,
			&record.Callsign,
			&record.Status,
			&record.Summary,
			&record.Confidence,
			&record.ProducedBy,
			&timestamp,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
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

		records = append(records, &record)
	}

	return records, nil
}
