package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oselight/stripdeck/pkg/logger"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestActionStorageRoundTrip(t *testing.T) {
	storage := NewActionStorage(testDB(t), logger.Nop())

	id, err := storage.StoreAction(&ActionRecord{
		Kind:      "moveStrip",
		Callsign:  "AAL123",
		Arguments: "tower",
		Outcome:   "applied",
		Detail:    "Moved AAL123 to tower",
		Timestamp: time.Now().UTC().Truncate(time.Second),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	records, err := storage.GetActionsByCallsign("AAL123", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
	assert.Equal(t, "moveStrip", records[0].Kind)
	assert.Equal(t, "applied", records[0].Outcome)
	assert.Equal(t, "Moved AAL123 to tower", records[0].Detail)
}

func TestActionStorageRecentOrderingAndLimit(t *testing.T) {
	storage := NewActionStorage(testDB(t), logger.Nop())

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		_, err := storage.StoreAction(&ActionRecord{
			Kind:      "updateStripSquawk",
			Callsign:  "UAL456",
			Arguments: "7700",
			Outcome:   "applied",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	records, err := storage.GetRecentActions(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Timestamp.After(records[1].Timestamp))
}

func TestAnalysisStorageRoundTrip(t *testing.T) {
	storage := NewAnalysisStorage(testDB(t), logger.Nop())

	id, err := storage.StoreAnalysis(&AnalysisRecord{
		Callsign:   "AAL123",
		Status:     "concerning",
		Summary:    "low and fast",
		Confidence: 0.85,
		ProducedBy: "remote",
		Timestamp:  time.Now().UTC().Truncate(time.Second),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	records, err := storage.GetAnalysesByCallsign("AAL123", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "concerning", records[0].Status)
	assert.InDelta(t, 0.85, records[0].Confidence, 0.001)
	assert.Equal(t, "remote", records[0].ProducedBy)
}

func TestAnalysisStorageRecent(t *testing.T) {
	storage := NewAnalysisStorage(testDB(t), logger.Nop())

	base := time.Now().UTC().Truncate(time.Second)
	for i, callsign := range []string{"A1", "B2"} {
		_, err := storage.StoreAnalysis(&AnalysisRecord{
			Callsign:   callsign,
			Status:     "normal",
			Summary:    "ok",
			Confidence: 0.6,
			ProducedBy: "fallback",
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	records, err := storage.GetRecentAnalyses(10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "B2", records[0].Callsign)
}
