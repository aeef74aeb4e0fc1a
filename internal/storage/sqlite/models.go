package sqlite

import "time"

// ActionRecord is the audit trail entry for one applied or skipped strip
// action
type ActionRecord struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Callsign  string    `json:"callsign"`
	Arguments string    `json:"arguments"`
	Outcome   string    `json:"outcome"` // "applied" or "skipped"
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// AnalysisRecord is the audit trail entry for one completed analysis
type AnalysisRecord struct {
	ID         string    `json:"id"`
	Callsign   string    `json:"callsign"`
	Status     string    `json:"status"`
	Summary    string    `json:"summary"`
	Confidence float64   `json:"confidence"`
	ProducedBy string    `json:"produced_by"` // "remote" or "fallback"
	Timestamp  time.Time `json:"timestamp"`
	CreatedAt  time.Time `json:"created_at"`
}
