package strips

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oselight/stripdeck/pkg/logger"
)

func TestBoardUpsertAndSnapshot(t *testing.T) {
	b := NewBoard(logger.Nop())

	b.Upsert(FlightStrip{Callsign: "AAL123", Altitude: 10000})

	snapshot := b.Snapshot()
	require.Len(t, snapshot.Strips, 1)
	assert.Equal(t, "AAL123", snapshot.Strips[0].Callsign)
	assert.Equal(t, StageClearance, snapshot.Strips[0].Stage, "new strips start in clearance")
}

func TestBoardUpsertPreservesOperatorFields(t *testing.T) {
	b := NewBoard(logger.Nop())

	b.Upsert(FlightStrip{Callsign: "AAL123"})
	require.NoError(t, b.MoveStrip("AAL123", StageTower))
	require.NoError(t, b.UpdateNotes("AAL123", "cleared to land"))
	require.NoError(t, b.UpdateSquawk("AAL123", "4567"))

	// A feed refresh only carries telemetry
	b.Upsert(FlightStrip{Callsign: "AAL123", Altitude: 3000, Speed: 180})

	strip, ok := b.Snapshot().Find("AAL123")
	require.True(t, ok)
	assert.Equal(t, StageTower, strip.Stage)
	assert.Equal(t, "cleared to land", strip.Notes)
	assert.Equal(t, "4567", strip.Squawk)
	assert.Equal(t, 3000.0, strip.Altitude)
}

func TestBoardRemove(t *testing.T) {
	b := NewBoard(logger.Nop())
	b.Upsert(FlightStrip{Callsign: "AAL123"})

	assert.True(t, b.Remove("aal123"))
	assert.False(t, b.Remove("AAL123"))
	assert.Empty(t, b.Snapshot().Strips)
}

func TestBoardMutationsOnMissingStrip(t *testing.T) {
	b := NewBoard(logger.Nop())

	assert.Error(t, b.MoveStrip("GHOST1", StageTower))
	assert.Error(t, b.UpdateNotes("GHOST1", "x"))
	assert.Error(t, b.UpdateSquawk("GHOST1", "7700"))
}

func TestBoardMoveStripRejectsUnknownStage(t *testing.T) {
	b := NewBoard(logger.Nop())
	b.Upsert(FlightStrip{Callsign: "AAL123"})

	assert.Error(t, b.MoveStrip("AAL123", Stage("hangar")))
}

func TestSnapshotFindIsCaseInsensitive(t *testing.T) {
	s := Snapshot{Strips: []FlightStrip{{Callsign: "AAL123"}}}

	strip, ok := s.Find("aal123")
	require.True(t, ok)
	assert.Equal(t, "AAL123", strip.Callsign)

	_, ok = s.Find("UAL456")
	assert.False(t, ok)
}

func TestSnapshotIsACopy(t *testing.T) {
	b := NewBoard(logger.Nop())
	b.Upsert(FlightStrip{Callsign: "AAL123"})

	snapshot := b.Snapshot()
	snapshot.Strips[0].Callsign = "MUTATED"

	strip, ok := b.Snapshot().Find("AAL123")
	require.True(t, ok)
	assert.Equal(t, "AAL123", strip.Callsign)
}

func TestParseStage(t *testing.T) {
	stage, ok := ParseStage("  Tower ")
	assert.True(t, ok)
	assert.Equal(t, StageTower, stage)

	_, ok = ParseStage("hangar")
	assert.False(t, ok)
}

func TestSnapshotByStage(t *testing.T) {
	s := Snapshot{Strips: []FlightStrip{
		{Callsign: "A", Stage: StageTower},
		{Callsign: "B", Stage: StageGround},
		{Callsign: "C", Stage: StageTower},
	}}

	grouped := s.ByStage()
	assert.Len(t, grouped[StageTower], 2)
	assert.Len(t, grouped[StageGround], 1)
}
