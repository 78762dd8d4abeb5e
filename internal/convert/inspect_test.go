package convert

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInspectKeepsColumnNames(t *testing.T) {
	dir := t.TempDir()
	src := writeCSV(t, dir, "zones.csv",
		"LocationID,service_zone,tpep_pickup_datetime",
		"1,EWR,2019-12-01 00:00:00",
		"2,Boro Zone,2019-12-01 00:10:00",
	)
	dst := filepath.Join(dir, "zones.parquet")

	_, err := newConverter(t, 10).Convert(context.Background(), src, dst)
	require.NoError(t, err)

	info, err := Inspect(dst)
	require.NoError(t, err)
	require.Equal(t, []string{"LocationID", "service_zone", "tpep_pickup_datetime"}, info.Columns)
	require.Equal(t, []string{"INT64", "BYTE_ARRAY", "BYTE_ARRAY"}, info.Types)
}

func TestFileSizeLogsStatFailure(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	size := fileSize(context.Background(), filepath.Join(t.TempDir(), "gone.parquet"))
	require.Zero(t, size)
	require.Contains(t, buf.String(), "failed to stat parquet file")
	require.Contains(t, buf.String(), "gone.parquet")
}

func TestFileSize(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "a.csv", "abc")

	require.Equal(t, int64(3), fileSize(context.Background(), path))
}
