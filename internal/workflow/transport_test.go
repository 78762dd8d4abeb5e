package workflow

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"transport_el/internal/config"
	"transport_el/internal/report"
	"transport_el/internal/steps"
)

type fakeSteps struct {
	calls   []string
	loadErr error
}

func (f *fakeSteps) Extract(context.Context, steps.ExtractOptions) (*report.Stats, error) {
	f.calls = append(f.calls, "extract")
	return report.New("extract", ""), nil
}

func (f *fakeSteps) Load(context.Context, steps.LoadOptions) (*report.Stats, error) {
	f.calls = append(f.calls, "load")
	return report.New("load", ""), f.loadErr
}

func TestTransportChain(t *testing.T) {
	cfg := config.Default()
	d := Transport(cfg, &fakeSteps{})

	require.Equal(t, "transport_elt_pipeline", d.Name)
	require.Equal(t, "0 0 * * 0", d.Schedule)
	require.Equal(t, 2, d.Retries)
	require.Equal(t, 5*time.Minute, d.RetryDelay)
	require.Equal(t,
		"extract_csv_to_parquet >> load_to_gcp >> dbt_run_staging >> dbt_run_intermediate >> dbt_run_marts >> dbt_test",
		d.String())
}

func TestDbtCommand(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.ProjectRoot = "/workspaces/transport_elt"

	cmd := DbtCommand(cfg, "run", "--models", "staging")
	require.Equal(t, "dbt", cmd.Binary)
	require.Equal(t, "/workspaces/transport_elt", cmd.Dir)
	require.Equal(t,
		"dbt run --models staging --profiles-dir /workspaces/transport_elt/config/dbt --project-dir /workspaces/transport_elt/dbt",
		cmd.String())

	cfg.Workflow.DbtProfilesDir = "/etc/dbt"
	cmd = DbtCommand(cfg, "test")
	require.Equal(t, []string{"test", "--profiles-dir", "/etc/dbt", "--project-dir", "/workspaces/transport_elt/dbt"}, cmd.Args)
}

func TestTransportRunsStepsThenDbt(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true binary not available")
	}

	cfg := config.Default()
	cfg.Paths.ProjectRoot = t.TempDir()
	cfg.Workflow.DbtBinary = "true"
	cfg.Workflow.RetryDelay = 0

	s := &fakeSteps{}
	require.NoError(t, Transport(cfg, s).Run(context.Background()))
	require.Equal(t, []string{"extract", "load"}, s.calls)
}

func TestTransportLoadFailureStopsChain(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.ProjectRoot = t.TempDir()
	cfg.Workflow.DbtBinary = filepath.Join(t.TempDir(), "no-such-dbt")
	cfg.Workflow.RetryDelay = 0

	s := &fakeSteps{loadErr: errors.New("bucket gone")}
	err := Transport(cfg, s).Run(context.Background())

	var taskErr *TaskError
	require.ErrorAs(t, err, &taskErr)
	require.Equal(t, TaskLoad, taskErr.Task)
	require.Equal(t, []string{"extract", "load", "load", "load"}, s.calls)
}

func TestCommandRun(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()

	err := Command{Binary: "sh", Args: []string{"-c", "echo done > marker"}, Dir: dir}.Run(context.Background())
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "marker"))
	require.NoError(t, err)

	err = Command{Binary: "sh", Args: []string{"-c", "exit 3"}, Dir: dir}.Run(context.Background())
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 3, exitErr.ExitCode())
}
