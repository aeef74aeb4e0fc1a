package assist

import (
	"fmt"
	"time"

	"github.com/oselight/stripdeck/internal/strips"
)

// Status is the severity band an analysis assigns to a flight
type Status string

const (
	StatusNormal     Status = "normal"
	StatusMonitoring Status = "monitoring"
	StatusConcerning Status = "concerning"
	StatusCritical   Status = "critical"
)

// ParseStatus normalizes a status string from the inference service,
// defaulting to normal for anything unrecognized
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusNormal, StatusMonitoring, StatusConcerning, StatusCritical:
		return Status(s)
	default:
		return StatusNormal
	}
}

// Producer records which path produced a result
type Producer string

const (
	// ProducedByRemote marks results parsed from the inference service
	ProducedByRemote Producer = "remote"
	// ProducedByFallback marks results from local rule-based analysis
	ProducedByFallback Producer = "fallback"
)

// AnalysisResult is one behavior assessment for one flight. Immutable once
// produced; confidence is always set so consumers never branch on absence.
type AnalysisResult struct {
	Status     Status    `json:"status"`
	Summary    string    `json:"summary"`
	Concerns   []string  `json:"concerns"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
	ProducedBy Producer  `json:"produced_by"`
}

// QueryResult is the structured answer to a natural-language query
type QueryResult struct {
	Response   string               `json:"response"`
	Matches    []strips.FlightStrip `json:"matches"`
	Insights   []string             `json:"insights"`
	ProducedBy Producer             `json:"produced_by"`
}

// ActionKind identifies one of the recognized strip mutations
type ActionKind string

const (
	ActionMoveStrip    ActionKind = "moveStrip"
	ActionUpdateNotes  ActionKind = "updateStripNotes"
	ActionUpdateSquawk ActionKind = "updateStripSquawk"
)

// ActionInvocation is one parsed, executable instruction extracted from
// free-text model output. Transient: produced by parsing, consumed by
// dispatch, never persisted in this form.
type ActionInvocation struct {
	Kind      ActionKind `json:"kind"`
	Subject   string     `json:"subject"`
	Arguments []string   `json:"arguments"`
}

// AppliedAction pairs an invocation with its human-readable outcome
type AppliedAction struct {
	ActionInvocation `json:"invocation"`
	Description      string `json:"description"`
}

// SkippedAction records an invocation that could not be applied. Unresolved
// subjects land here instead of being silently dropped, so the host can
// surface partial failure to the operator.
type SkippedAction struct {
	ActionInvocation `json:"invocation"`
	Reason           string `json:"reason"`
}

// CommandResult is the outcome of relaying one natural-language instruction
type CommandResult struct {
	Reply      string          `json:"reply"`
	Applied    []AppliedAction `json:"applied"`
	Skipped    []SkippedAction `json:"skipped"`
	Unmatched  []string        `json:"unmatched,omitempty"`
	ProducedBy Producer        `json:"produced_by"`
}

// ParseFailure means the response text carried no extractable payload.
// It is a typed result, not an exceptional condition: the service absorbs
// it and substitutes fallback analysis.
type ParseFailure struct {
	Reason string
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("parse failure: %s", e.Reason)
}
