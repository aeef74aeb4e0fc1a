package assist

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oselight/stripdeck/internal/config"
	"github.com/oselight/stripdeck/internal/inference"
	"github.com/oselight/stripdeck/internal/strips"
	"github.com/oselight/stripdeck/pkg/logger"
)

// remoteDefaultConfidence is assumed when the model omits the confidence
// field from an otherwise valid payload
const remoteDefaultConfidence = 0.85

// Completer is the single round-trip the service needs from the inference
// layer. Defined here so tests can substitute a fake without a network.
type Completer interface {
	Complete(ctx context.Context, req inference.Request) (string, error)
}

// Service orchestrates prompt building, remote inference, response parsing
// and the deterministic fallback path. Every operation returns a usable
// result: a remote failure of any kind degrades to the local analyzer
// instead of surfacing an error.
type Service struct {
	client     Completer
	builder    *PromptBuilder
	history    *History
	dispatcher *Dispatcher
	batchSize  int
	batchPause time.Duration
	logger     *logger.Logger
}

// NewService creates the assist service
func NewService(client Completer, history *History, cfg config.AssistConfig, log *logger.Logger) *Service {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 3
	}
	return &Service{
		client:     client,
		builder:    NewPromptBuilder(cfg.MaxPromptRecords),
		history:    history,
		dispatcher: NewDispatcher(log),
		batchSize:  batchSize,
		batchPause: cfg.BatchPause(),
		logger:     log.Named("assist"),
	}
}

// History exposes the analysis cache for read-side consumers
func (s *Service) History() *History {
	return s.history
}

// AnalyzeStrip assesses one flight against the current board. The remote
// path makes exactly one inference round trip; on any failure (transport,
// HTTP, or unparseable payload) the deterministic analyzer takes over, so
// the returned result is always well formed. Both paths record into the
// history cache.
func (s *Service) AnalyzeStrip(ctx context.Context, strip strips.FlightStrip, snapshot strips.Snapshot) AnalysisResult {
	var prior *AnalysisResult
	if cached, ok := s.history.Lookup(strip.Callsign); ok {
		prior = &cached
	}

	result, err := s.analyzeRemote(ctx, strip, snapshot, prior)
	if err != nil {
		s.logger.Warn("Falling back to local analysis",
			logger.String("callsign", strip.Callsign),
			logger.Error(err))
		result = AnalyzeLocally(strip)
	}

	s.history.Record(strip.Callsign, result)
	return result
}

func (s *Service) analyzeRemote(ctx context.Context, strip strips.FlightStrip, snapshot strips.Snapshot, prior *AnalysisResult) (AnalysisResult, error) {
	system, user := s.builder.Build(TaskBehaviorAnalysis, snapshot, DescribeStrip(strip), prior)

	text, err := s.client.Complete(ctx, inference.Request{System: system, Prompt: user})
	if err != nil {
		return AnalysisResult{}, err
	}

	payload, err := parseAnalysis(text)
	if err != nil {
		return AnalysisResult{}, err
	}

	confidence := payload.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = remoteDefaultConfidence
	}
	concerns := payload.Concerns
	if concerns == nil {
		concerns = []string{}
	}

	return AnalysisResult{
		Status:     ParseStatus(payload.Status),
		Summary:    payload.Summary,
		Concerns:   concerns,
		Confidence: confidence,
		Timestamp:  time.Now().UTC(),
		ProducedBy: ProducedByRemote,
	}, nil
}

// AnalyzeBatch analyzes every strip in the snapshot in fixed-size groups
// with a pause between groups, keeping the load on the inference service
// bounded. Strips within a group run concurrently. A canceled context stops
// scheduling new groups; results gathered so far are returned.
func (s *Service) AnalyzeBatch(ctx context.Context, snapshot strips.Snapshot) map[string]AnalysisResult {
	results := make(map[string]AnalysisResult, len(snapshot.Strips))
	var mu sync.Mutex

	for start := 0; start < len(snapshot.Strips); start += s.batchSize {
		if start > 0 {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(s.batchPause):
			}
		}

		end := min(start+s.batchSize, len(snapshot.Strips))

		var wg sync.WaitGroup
		for _, strip := range snapshot.Strips[start:end] {
			wg.Add(1)
			go func(strip strips.FlightStrip) {
				defer wg.Done()
				result := s.AnalyzeStrip(ctx, strip, snapshot)
				mu.Lock()
				results[strings.ToUpper(strip.Callsign)] = result
				mu.Unlock()
			}(strip)
		}
		wg.Wait()
	}

	return results
}

// Query answers a natural-language question about the board. When the
// remote path fails, keyword filtering over the snapshot produces a
// degraded but well-formed answer.
func (s *Service) Query(ctx context.Context, query string, snapshot strips.Snapshot) QueryResult {
	system, user := s.builder.Build(TaskQuery, snapshot, query, nil)

	text, err := s.client.Complete(ctx, inference.Request{System: system, Prompt: user})
	if err != nil {
		s.logger.Warn("Falling back to local query filtering", logger.Error(err))
		return FilterLocally(query, snapshot)
	}

	payload, err := parseQuery(text)
	if err != nil {
		s.logger.Warn("Falling back to local query filtering", logger.Error(err))
		return FilterLocally(query, snapshot)
	}

	matches := []strips.FlightStrip{}
	for _, callsign := range payload.MatchingCallsigns {
		if strip, ok := snapshot.Find(callsign); ok {
			matches = append(matches, strip)
		}
	}
	insights := payload.Insights
	if insights == nil {
		insights = []string{}
	}

	return QueryResult{
		Response:   payload.Response,
		Matches:    matches,
		Insights:   insights,
		ProducedBy: ProducedByRemote,
	}
}

// RelayCommand translates a controller instruction into strip actions and
// applies them. The remote path asks the model to emit action calls; if
// that fails or yields nothing, the instruction itself is run through the
// same action grammar, so directly typed calls still work offline.
func (s *Service) RelayCommand(ctx context.Context, instruction string, snapshot strips.Snapshot, mutator StripMutator) CommandResult {
	producedBy := ProducedByRemote
	system, user := s.builder.Build(TaskCommandRelay, snapshot, instruction, nil)

	var invocations []ActionInvocation
	var unmatched []string

	text, err := s.client.Complete(ctx, inference.Request{System: system, Prompt: user})
	if err == nil {
		invocations, unmatched = ParseActions(text)
	}
	if err != nil || len(invocations) == 0 {
		if err != nil {
			s.logger.Warn("Falling back to direct action parsing", logger.Error(err))
		}
		producedBy = ProducedByFallback
		invocations, unmatched = ParseActions(instruction)
	}

	applied, skipped := s.dispatcher.Dispatch(snapshot, mutator, invocations)

	return CommandResult{
		Reply:      describeOutcome(applied, skipped),
		Applied:    applied,
		Skipped:    skipped,
		Unmatched:  unmatched,
		ProducedBy: producedBy,
	}
}

// IncidentSummary produces a one-line handoff summary for a flight. The
// fallback renders the status-templated local summary.
func (s *Service) IncidentSummary(ctx context.Context, strip strips.FlightStrip, analysis AnalysisResult) string {
	snapshot := strips.Snapshot{Strips: []strips.FlightStrip{strip}, TakenAt: time.Now().UTC()}
	input := fmt.Sprintf("%s\nAssessment: status=%s concerns=%v summary=%q",
		DescribeStrip(strip), analysis.Status, analysis.Concerns, analysis.Summary)
	system, user := s.builder.Build(TaskIncidentSummary, snapshot, input, nil)

	text, err := s.client.Complete(ctx, inference.Request{System: system, Prompt: user})
	if err != nil {
		s.logger.Warn("Falling back to local incident summary",
			logger.String("callsign", strip.Callsign),
			logger.Error(err))
		return SummarizeLocally(strip, analysis)
	}

	line := strings.TrimSpace(text)
	if line == "" {
		return SummarizeLocally(strip, analysis)
	}
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	return line
}

func describeOutcome(applied []AppliedAction, skipped []SkippedAction) string {
	if len(applied) == 0 && len(skipped) == 0 {
		return "No actions recognized in the instruction."
	}

	parts := make([]string, 0, len(applied)+len(skipped))
	for _, a := range applied {
		parts = append(parts, a.Description)
	}
	for _, sk := range skipped {
		parts = append(parts, fmt.Sprintf("Skipped %s for %s: %s", sk.Kind, sk.Subject, sk.Reason))
	}
	return strings.Join(parts, ". ")
}
