package assist

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oselight/stripdeck/internal/strips"
	"github.com/oselight/stripdeck/pkg/logger"
)

// recordingMutator captures mutations in order so tests can assert on the
// exact sequence the dispatcher applied
type recordingMutator struct {
	calls   []string
	failOn  string
	failErr error
}

func (m *recordingMutator) MoveStrip(callsign string, target strips.Stage) error {
	if m.failOn == "move" {
		return m.failErr
	}
	m.calls = append(m.calls, "move:"+callsign+":"+string(target))
	return nil
}

func (m *recordingMutator) UpdateNotes(callsign string, text string) error {
	if m.failOn == "notes" {
		return m.failErr
	}
	m.calls = append(m.calls, "notes:"+callsign+":"+text)
	return nil
}

func (m *recordingMutator) UpdateSquawk(callsign string, code string) error {
	if m.failOn == "squawk" {
		return m.failErr
	}
	m.calls = append(m.calls, "squawk:"+callsign+":"+code)
	return nil
}

func testSnapshot() strips.Snapshot {
	return strips.Snapshot{Strips: []strips.FlightStrip{
		{Callsign: "AAL123", Stage: strips.StageGround},
		{Callsign: "UAL456", Stage: strips.StageTower},
	}}
}

func TestDispatchAppliesInOrder(t *testing.T) {
	d := NewDispatcher(logger.Nop())
	mutator := &recordingMutator{}

	applied, skipped := d.Dispatch(testSnapshot(), mutator, []ActionInvocation{
		{Kind: ActionMoveStrip, Subject: "AAL123", Arguments: []string{"tower"}},
		{Kind: ActionUpdateSquawk, Subject: "AAL123", Arguments: []string{"4567"}},
	})

	assert.Empty(t, skipped)
	require.Len(t, applied, 2)
	assert.Equal(t, []string{"move:AAL123:tower", "squawk:AAL123:4567"}, mutator.calls)
}

func TestDispatchResolvesCallsignCaseInsensitively(t *testing.T) {
	d := NewDispatcher(logger.Nop())
	mutator := &recordingMutator{}

	applied, skipped := d.Dispatch(testSnapshot(), mutator, []ActionInvocation{
		{Kind: ActionUpdateNotes, Subject: "aal123", Arguments: []string{"cleared to land"}},
	})

	assert.Empty(t, skipped)
	require.Len(t, applied, 1)
	// Mutation addresses the canonical callsign from the snapshot
	assert.Equal(t, []string{"notes:AAL123:cleared to land"}, mutator.calls)
}

func TestDispatchSkipsUnresolvedSubjectWithoutAborting(t *testing.T) {
	d := NewDispatcher(logger.Nop())
	mutator := &recordingMutator{}

	applied, skipped := d.Dispatch(testSnapshot(), mutator, []ActionInvocation{
		{Kind: ActionMoveStrip, Subject: "GHOST1", Arguments: []string{"tower"}},
		{Kind: ActionMoveStrip, Subject: "UAL456", Arguments: []string{"departure"}},
	})

	require.Len(t, skipped, 1)
	assert.Equal(t, "GHOST1", skipped[0].Subject)
	assert.Contains(t, skipped[0].Reason, "not on the board")

	require.Len(t, applied, 1)
	assert.Equal(t, "UAL456", applied[0].Subject)
}

func TestDispatchMutatorErrorBecomesSkip(t *testing.T) {
	d := NewDispatcher(logger.Nop())
	mutator := &recordingMutator{failOn: "move", failErr: errors.New("stage locked")}

	applied, skipped := d.Dispatch(testSnapshot(), mutator, []ActionInvocation{
		{Kind: ActionMoveStrip, Subject: "AAL123", Arguments: []string{"tower"}},
		{Kind: ActionUpdateSquawk, Subject: "AAL123", Arguments: []string{"7700"}},
	})

	require.Len(t, skipped, 1)
	assert.Equal(t, "stage locked", skipped[0].Reason)
	require.Len(t, applied, 1)
	assert.Equal(t, ActionUpdateSquawk, applied[0].Kind)
}

func TestDispatchMissingArgumentIsSkipped(t *testing.T) {
	d := NewDispatcher(logger.Nop())
	mutator := &recordingMutator{}

	applied, skipped := d.Dispatch(testSnapshot(), mutator, []ActionInvocation{
		{Kind: ActionMoveStrip, Subject: "AAL123"},
	})

	assert.Empty(t, applied)
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0].Reason, "missing argument")
}

func TestDispatchLaterActionSupersedesEarlier(t *testing.T) {
	d := NewDispatcher(logger.Nop())
	mutator := &recordingMutator{}

	d.Dispatch(testSnapshot(), mutator, []ActionInvocation{
		{Kind: ActionUpdateSquawk, Subject: "AAL123", Arguments: []string{"1200"}},
		{Kind: ActionUpdateSquawk, Subject: "AAL123", Arguments: []string{"7700"}},
	})

	require.Len(t, mutator.calls, 2)
	assert.Equal(t, "squawk:AAL123:7700", mutator.calls[1], "last write must land last")
}
