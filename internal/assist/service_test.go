package assist

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oselight/stripdeck/internal/config"
	"github.com/oselight/stripdeck/internal/inference"
	"github.com/oselight/stripdeck/internal/strips"
	"github.com/oselight/stripdeck/pkg/logger"
)

// fakeCompleter scripts the inference layer for service tests
type fakeCompleter struct {
	response string
	err      error
	calls    atomic.Int64
}

func (f *fakeCompleter) Complete(ctx context.Context, req inference.Request) (string, error) {
	f.calls.Add(1)
	return f.response, f.err
}

func newTestService(client Completer) *Service {
	cfg := config.AssistConfig{
		HistoryCapacity:  16,
		MaxPromptRecords: 20,
		BatchSize:        2,
		BatchPauseMs:     1,
	}
	return NewService(client, NewHistory(cfg.HistoryCapacity, 0), cfg, logger.Nop())
}

func TestAnalyzeStripRemoteSuccess(t *testing.T) {
	client := &fakeCompleter{response: `{"status": "concerning", "summary": "low and fast", "concerns": ["low altitude / high speed"], "confidence": 0.9}`}
	svc := newTestService(client)

	strip := strips.FlightStrip{Callsign: "AAL123", Altitude: 900, Speed: 250}
	result := svc.AnalyzeStrip(context.Background(), strip, strips.Snapshot{Strips: []strips.FlightStrip{strip}})

	assert.Equal(t, ProducedByRemote, result.ProducedBy)
	assert.Equal(t, StatusConcerning, result.Status)
	assert.InDelta(t, 0.9, result.Confidence, 0.001)
	assert.False(t, result.Timestamp.IsZero())
}

func TestAnalyzeStripTransportFailureFallsBack(t *testing.T) {
	client := &fakeCompleter{err: &inference.Failure{Kind: inference.FailureUnreachable, Err: errors.New("connection refused")}}
	svc := newTestService(client)

	strip := strips.FlightStrip{Callsign: "UAL456", Altitude: 800, Speed: 250}
	result := svc.AnalyzeStrip(context.Background(), strip, strips.Snapshot{Strips: []strips.FlightStrip{strip}})

	assert.Equal(t, ProducedByFallback, result.ProducedBy)
	assert.Equal(t, StatusConcerning, result.Status)
	assert.Equal(t, FallbackConfidence, result.Confidence)
}

func TestAnalyzeStripServerFailureFallsBack(t *testing.T) {
	client := &fakeCompleter{err: &inference.Failure{Kind: inference.FailureServer, StatusCode: 503, Err: errors.New("overloaded")}}
	svc := newTestService(client)

	strip := strips.FlightStrip{Callsign: "AAL123", Altitude: 35000, Speed: 450}
	result := svc.AnalyzeStrip(context.Background(), strip, strips.Snapshot{Strips: []strips.FlightStrip{strip}})

	assert.Equal(t, ProducedByFallback, result.ProducedBy)
	assert.Equal(t, StatusNormal, result.Status)
}

func TestAnalyzeStripGarbageResponseFallsBack(t *testing.T) {
	client := &fakeCompleter{response: "I cannot help with that."}
	svc := newTestService(client)

	strip := strips.FlightStrip{Callsign: "AAL123", Altitude: 42000, Speed: 520}
	result := svc.AnalyzeStrip(context.Background(), strip, strips.Snapshot{Strips: []strips.FlightStrip{strip}})

	assert.Equal(t, ProducedByFallback, result.ProducedBy)
	assert.Equal(t, StatusCritical, result.Status)
}

func TestAnalyzeStripDefaultsMissingConfidence(t *testing.T) {
	client := &fakeCompleter{response: `{"status": "normal", "summary": "fine"}`}
	svc := newTestService(client)

	strip := strips.FlightStrip{Callsign: "AAL123"}
	result := svc.AnalyzeStrip(context.Background(), strip, strips.Snapshot{Strips: []strips.FlightStrip{strip}})

	assert.Equal(t, ProducedByRemote, result.ProducedBy)
	assert.InDelta(t, remoteDefaultConfidence, result.Confidence, 0.001)
	assert.NotNil(t, result.Concerns)
}

func TestAnalyzeStripRecordsHistoryOnBothPaths(t *testing.T) {
	remote := newTestService(&fakeCompleter{response: `{"status": "normal", "summary": "ok", "confidence": 0.8}`})
	strip := strips.FlightStrip{Callsign: "AAL123"}
	remote.AnalyzeStrip(context.Background(), strip, strips.Snapshot{Strips: []strips.FlightStrip{strip}})

	cached, ok := remote.History().Lookup("AAL123")
	require.True(t, ok)
	assert.Equal(t, ProducedByRemote, cached.ProducedBy)

	local := newTestService(&fakeCompleter{err: errors.New("down")})
	local.AnalyzeStrip(context.Background(), strip, strips.Snapshot{Strips: []strips.FlightStrip{strip}})

	cached, ok = local.History().Lookup("AAL123")
	require.True(t, ok)
	assert.Equal(t, ProducedByFallback, cached.ProducedBy)
}

func TestAnalyzeBatchCoversEveryStrip(t *testing.T) {
	client := &fakeCompleter{err: errors.New("down")}
	svc := newTestService(client)

	snapshot := strips.Snapshot{Strips: []strips.FlightStrip{
		{Callsign: "A1"}, {Callsign: "B2"}, {Callsign: "C3"}, {Callsign: "D4"}, {Callsign: "E5"},
	}}

	results := svc.AnalyzeBatch(context.Background(), snapshot)

	require.Len(t, results, 5)
	for _, callsign := range []string{"A1", "B2", "C3", "D4", "E5"} {
		result, ok := results[callsign]
		require.True(t, ok, callsign)
		assert.Equal(t, ProducedByFallback, result.ProducedBy)
	}
	assert.EqualValues(t, 5, client.calls.Load())
}

func TestAnalyzeBatchStopsOnCanceledContext(t *testing.T) {
	client := &fakeCompleter{err: errors.New("down")}
	svc := newTestService(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snapshot := strips.Snapshot{Strips: []strips.FlightStrip{
		{Callsign: "A1"}, {Callsign: "B2"}, {Callsign: "C3"}, {Callsign: "D4"},
	}}

	results := svc.AnalyzeBatch(ctx, snapshot)

	// First group runs before the cancellation check between groups
	assert.LessOrEqual(t, len(results), 2)
}

func TestQueryRemoteSuccessResolvesCallsigns(t *testing.T) {
	client := &fakeCompleter{response: `{"response": "one match", "matching_callsigns": ["aal123", "GHOST9"], "insights": ["descending"]}`}
	svc := newTestService(client)

	snapshot := strips.Snapshot{Strips: []strips.FlightStrip{{Callsign: "AAL123"}}}
	result := svc.Query(context.Background(), "who is descending?", snapshot)

	assert.Equal(t, ProducedByRemote, result.ProducedBy)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "AAL123", result.Matches[0].Callsign)
	assert.Equal(t, []string{"descending"}, result.Insights)
}

func TestQueryFailureFallsBackToFiltering(t *testing.T) {
	client := &fakeCompleter{err: errors.New("down")}
	svc := newTestService(client)

	snapshot := strips.Snapshot{Strips: []strips.FlightStrip{
		{Callsign: "HIGH1", Altitude: 38000},
		{Callsign: "LOW1", Altitude: 2000},
	}}

	result := svc.Query(context.Background(), "high altitude traffic", snapshot)

	assert.Equal(t, ProducedByFallback, result.ProducedBy)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "HIGH1", result.Matches[0].Callsign)
}

func TestRelayCommandRemoteActions(t *testing.T) {
	client := &fakeCompleter{response: "moveStrip(AAL123, tower)"}
	svc := newTestService(client)
	mutator := &recordingMutator{}

	snapshot := strips.Snapshot{Strips: []strips.FlightStrip{{Callsign: "AAL123"}}}
	result := svc.RelayCommand(context.Background(), "hand AAL123 to tower", snapshot, mutator)

	assert.Equal(t, ProducedByRemote, result.ProducedBy)
	require.Len(t, result.Applied, 1)
	assert.Equal(t, []string{"move:AAL123:tower"}, mutator.calls)
}

func TestRelayCommandFallsBackToDirectParsing(t *testing.T) {
	client := &fakeCompleter{err: errors.New("down")}
	svc := newTestService(client)
	mutator := &recordingMutator{}

	snapshot := strips.Snapshot{Strips: []strips.FlightStrip{{Callsign: "AAL123"}}}
	result := svc.RelayCommand(context.Background(), "updateStripSquawk(AAL123, 7700)", snapshot, mutator)

	assert.Equal(t, ProducedByFallback, result.ProducedBy)
	require.Len(t, result.Applied, 1)
	assert.Equal(t, []string{"squawk:AAL123:7700"}, mutator.calls)
}

func TestRelayCommandUnresolvedSubjectReported(t *testing.T) {
	client := &fakeCompleter{response: "moveStrip(GHOST1, tower)"}
	svc := newTestService(client)
	mutator := &recordingMutator{}

	snapshot := strips.Snapshot{Strips: []strips.FlightStrip{{Callsign: "AAL123"}}}
	result := svc.RelayCommand(context.Background(), "move the ghost", snapshot, mutator)

	assert.Empty(t, result.Applied)
	require.Len(t, result.Skipped, 1)
	assert.Contains(t, result.Skipped[0].Reason, "not on the board")
	assert.Empty(t, mutator.calls)
}

func TestIncidentSummaryRemote(t *testing.T) {
	client := &fakeCompleter{response: "CRITICAL: AAL123 descending rapidly through 2000ft\nextra line"}
	svc := newTestService(client)

	summary := svc.IncidentSummary(context.Background(), strips.FlightStrip{Callsign: "AAL123"}, AnalysisResult{Status: StatusCritical})

	assert.Equal(t, "CRITICAL: AAL123 descending rapidly through 2000ft", summary)
}

func TestIncidentSummaryFallsBack(t *testing.T) {
	client := &fakeCompleter{err: errors.New("down")}
	svc := newTestService(client)

	analysis := AnalysisResult{Status: StatusCritical, Summary: "two concerns"}
	summary := svc.IncidentSummary(context.Background(), strips.FlightStrip{Callsign: "AAL123"}, analysis)

	assert.Equal(t, "CRITICAL: Flight AAL123 - two concerns", summary)
}
