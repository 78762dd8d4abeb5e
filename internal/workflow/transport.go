package workflow

import (
	"context"
	"path/filepath"

	"transport_el/internal/config"
	"transport_el/internal/report"
	"transport_el/internal/steps"
)

// Task ids of the transport chain.
const (
	TaskExtract         = "extract_csv_to_parquet"
	TaskLoad            = "load_to_gcp"
	TaskDbtStaging      = "dbt_run_staging"
	TaskDbtIntermediate = "dbt_run_intermediate"
	TaskDbtMarts        = "dbt_run_marts"
	TaskDbtTest         = "dbt_test"
)

// Steps is the extraction and load surface the chain drives.
type Steps interface {
	Extract(ctx context.Context, opts steps.ExtractOptions) (*report.Stats, error)
	Load(ctx context.Context, opts steps.LoadOptions) (*report.Stats, error)
}

// Transport builds the weekly chain: extract, load, the three dbt model
// layers and the dbt tests.
func Transport(cfg config.Config, s Steps) *DAG {
	return &DAG{
		Name:       cfg.Workflow.Name,
		Schedule:   cfg.Workflow.Schedule,
		Retries:    cfg.Workflow.Retries,
		RetryDelay: cfg.Workflow.RetryDelay,
		Tasks: []Task{
			{ID: TaskExtract, Run: func(ctx context.Context) error {
				_, err := s.Extract(ctx, steps.ExtractOptions{})
				return err
			}},
			{ID: TaskLoad, Run: func(ctx context.Context) error {
				_, err := s.Load(ctx, steps.LoadOptions{})
				return err
			}},
			{ID: TaskDbtStaging, Run: DbtCommand(cfg, "run", "--models", "staging").Run},
			{ID: TaskDbtIntermediate, Run: DbtCommand(cfg, "run", "--models", "intermediate").Run},
			{ID: TaskDbtMarts, Run: DbtCommand(cfg, "run", "--models", "marts").Run},
			{ID: TaskDbtTest, Run: DbtCommand(cfg, "test").Run},
		},
	}
}

// DbtCommand returns a dbt invocation with the configured profiles and
// project directories, run from the project root.
func DbtCommand(cfg config.Config, args ...string) Command {
	root := cfg.Paths.ProjectRoot

	full := make([]string, 0, len(args)+4)
	full = append(full, args...)
	full = append(full,
		"--profiles-dir", resolve(root, cfg.Workflow.DbtProfilesDir),
		"--project-dir", resolve(root, cfg.Workflow.DbtProjectDir),
	)

	return Command{Binary: cfg.Workflow.DbtBinary, Args: full, Dir: root}
}

func resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
