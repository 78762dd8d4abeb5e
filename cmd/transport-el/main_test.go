package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"transport_el/internal/pkg/pkgerror"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConvertThenInspect(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "zones.csv")
	dst := filepath.Join(dir, "zones.parquet")
	require.NoError(t, os.WriteFile(src, []byte(strings.Join([]string{
		"LocationID,Borough,Zone",
		"1,EWR,Newark Airport",
		"2,Queens,Jamaica Bay",
		"3,Bronx,Allerton/Pelham Gardens",
	}, "\n")), 0o600))

	out, err := execute(t, "convert", src, dst, "--chunk-size", "2", "--log-level", "error")
	require.NoError(t, err)
	require.Contains(t, out, "3 rows in 2 row groups")

	out, err = execute(t, "inspect", dst, "--rows", "--log-level", "error")
	require.NoError(t, err)
	require.Contains(t, out, "rows: 3")
	require.Contains(t, out, "row groups: [2 1]")
	require.Contains(t, out, "compression: SNAPPY")
	require.Contains(t, out, "LocationID")
	require.Contains(t, out, "Jamaica Bay")
}

func TestConvertEmptySource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(src, []byte("a,b\n"), 0o600))

	out, err := execute(t, "convert", src, filepath.Join(dir, "empty.parquet"), "--log-level", "error")
	require.NoError(t, err)
	require.Contains(t, out, "nothing written")
}

func TestConvertMissingSource(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "convert", filepath.Join(dir, "absent.csv"), filepath.Join(dir, "out.parquet"), "--log-level", "error")
	require.Equal(t, pkgerror.KindMissingInput, pkgerror.KindOf(err))
}

func TestBadConfigFile(t *testing.T) {
	_, err := execute(t, "inspect", "x.parquet", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Equal(t, pkgerror.KindConfig, pkgerror.KindOf(err))
}

func TestExtractCommand(t *testing.T) {
	raw := t.TempDir()
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(raw, "taxi_zone_lookup (1).csv"),
		[]byte("LocationID,Borough\n1,EWR\n"), 0o600))

	_, err := execute(t, "extract", "--raw-dir", raw, "--output-dir", out, "--log-level", "error")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(out, "taxi_zone.parquet"))
	require.NoError(t, err)
}
