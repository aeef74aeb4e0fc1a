package assist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionsOrderedSequence(t *testing.T) {
	text := "moveStrip(AAL123, ground)\nupdateStripSquawk(AAL123, 4567)"

	invocations, unmatched := ParseActions(text)

	require.Len(t, invocations, 2)
	assert.Empty(t, unmatched)

	assert.Equal(t, ActionMoveStrip, invocations[0].Kind)
	assert.Equal(t, "AAL123", invocations[0].Subject)
	assert.Equal(t, []string{"ground"}, invocations[0].Arguments)

	assert.Equal(t, ActionUpdateSquawk, invocations[1].Kind)
	assert.Equal(t, "AAL123", invocations[1].Subject)
	assert.Equal(t, []string{"4567"}, invocations[1].Arguments)
}

func TestParseActionsCaseAndQuoting(t *testing.T) {
	invocations, unmatched := ParseActions(`MOVESTRIP("dal88", "tower");`)

	require.Len(t, invocations, 1)
	assert.Empty(t, unmatched)
	assert.Equal(t, "dal88", invocations[0].Subject)
	assert.Equal(t, []string{"tower"}, invocations[0].Arguments)
}

func TestParseActionsNotesKeepCommas(t *testing.T) {
	invocations, _ := ParseActions("updateStripNotes(UAL456, cleared ILS 24R, caution wake turbulence)")

	require.Len(t, invocations, 1)
	assert.Equal(t, ActionUpdateNotes, invocations[0].Kind)
	assert.Equal(t, []string{"cleared ILS 24R, caution wake turbulence"}, invocations[0].Arguments)
}

func TestParseActionsUnmatchedLinesAreDiagnostics(t *testing.T) {
	text := "Sure, here are the actions:\nmoveStrip(AAL123, departure)\nhopeThatHelps()"

	invocations, unmatched := ParseActions(text)

	require.Len(t, invocations, 1)
	assert.Equal(t, "AAL123", invocations[0].Subject)
	assert.Equal(t, []string{"Sure, here are the actions:", "hopeThatHelps()"}, unmatched)
}

func TestParseActionsEmptyInput(t *testing.T) {
	invocations, unmatched := ParseActions("\n\n   \n")
	assert.Empty(t, invocations)
	assert.Empty(t, unmatched)
}

func TestExtractJSONPlainObject(t *testing.T) {
	raw, err := extractJSON(`{"status": "normal"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status": "normal"}`, string(raw))
}

func TestExtractJSONInsideFences(t *testing.T) {
	text := "```json\n{\"status\": \"critical\", \"confidence\": 0.9}\n```"

	raw, err := extractJSON(text)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status": "critical", "confidence": 0.9}`, string(raw))
}

func TestExtractJSONSurroundedByProse(t *testing.T) {
	text := `Here is my assessment: {"status": "concerning", "summary": "check {braces} in strings"} hope that helps`

	raw, err := extractJSON(text)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status": "concerning", "summary": "check {braces} in strings"}`, string(raw))
}

func TestExtractJSONNoObject(t *testing.T) {
	_, err := extractJSON("no structured payload here")

	var pf *ParseFailure
	require.ErrorAs(t, err, &pf)
}

func TestExtractJSONUnterminated(t *testing.T) {
	_, err := extractJSON(`{"status": "normal"`)

	var pf *ParseFailure
	require.ErrorAs(t, err, &pf)
}

func TestParseAnalysisPayload(t *testing.T) {
	payload, err := parseAnalysis(`{"status": "concerning", "summary": "low and fast", "concerns": ["low altitude / high speed"], "confidence": 0.82}`)

	require.NoError(t, err)
	assert.Equal(t, "concerning", payload.Status)
	assert.Equal(t, "low and fast", payload.Summary)
	assert.Equal(t, []string{"low altitude / high speed"}, payload.Concerns)
	assert.InDelta(t, 0.82, payload.Confidence, 0.001)
}

func TestParseQueryPayload(t *testing.T) {
	payload, err := parseQuery(`{"response": "two heavies inbound", "matching_callsigns": ["AAL123", "UAL456"], "insights": ["both descending"]}`)

	require.NoError(t, err)
	assert.Equal(t, "two heavies inbound", payload.Response)
	assert.Equal(t, []string{"AAL123", "UAL456"}, payload.MatchingCallsigns)
}
