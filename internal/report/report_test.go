package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatsCounts(t *testing.T) {
	s := New("extract", "run-1")

	s.Add(SourceResult{Name: "Yellow Taxi", Outcome: OutcomeOK, Rows: 250, RowGroups: 3, Bytes: 1000}, nil)
	s.Add(SourceResult{Name: "Green Taxi", Outcome: OutcomeSkipped}, nil)
	s.Add(SourceResult{Name: "Taxi Zone"}, errors.New("schema mismatch"))
	s.Add(SourceResult{Name: "Empty", Outcome: OutcomeEmpty}, nil)
	s.Finish()

	require.Equal(t, 4, s.SourcesFound)
	require.Equal(t, 2, s.SourcesProcessed)
	require.Equal(t, 1, s.SourcesSkipped)
	require.Equal(t, 1, s.SourcesFailed)
	require.Equal(t, int64(250), s.TotalRowsProcessed)
	require.Equal(t, int64(1000), s.TotalBytesProcessed)
	require.NotEmpty(t, s.TotalExecutionTime)

	require.True(t, s.Failed())
	require.EqualError(t, s.Err(), "schema mismatch")
	require.Equal(t, OutcomeFailed, s.Sources[2].Outcome)
	require.Equal(t, "schema mismatch", s.Sources[2].Error)
}

func TestStatsNoFailures(t *testing.T) {
	s := New("load", "")
	s.Add(SourceResult{Name: "Yellow Taxi", Outcome: OutcomeOK}, nil)

	require.False(t, s.Failed())
	require.NoError(t, s.Err())
}

func TestWriteFile(t *testing.T) {
	s := New("extract", "run-9")
	s.Add(SourceResult{Name: "Taxi Zone", Outcome: OutcomeOK, Rows: 265}, nil)
	s.Finish()

	path := filepath.Join(t.TempDir(), "etl_stats.json")
	require.NoError(t, s.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, "extract", got["step"])
	require.Equal(t, "run-9", got["run_id"])
	require.Equal(t, float64(265), got["total_rows_processed"])
	require.Len(t, got["sources"], 1)
}
