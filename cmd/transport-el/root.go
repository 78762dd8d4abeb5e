package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"transport_el/internal/config"
	"transport_el/internal/pkg/pkglog"
	"transport_el/internal/steps"
)

// app carries the state shared by every subcommand once the root has
// resolved the configuration.
type app struct {
	configPath string
	logLevel   string
	timeout    time.Duration

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "transport-el",
		Short: "Convert NYC taxi CSV extracts to Parquet and load them into BigQuery",
		Long: `transport-el extracts the raw NYC taxi CSV files into chunked Parquet
files, uploads them to object storage and replaces the raw warehouse tables.

The run and schedule commands drive the whole weekly chain, including the
dbt model layers.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error), overrides the config")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 6*time.Hour, "maximum duration of a single run")

	root.AddCommand(
		newExtractCmd(a),
		newLoadCmd(a),
		newConvertCmd(a),
		newUploadCmd(a),
		newBQLoadCmd(a),
		newInspectCmd(a),
		newRunCmd(a),
		newScheduleCmd(a),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	pkglog.InitLogging(os.Stderr, pkglog.ParseLevel(level))

	a.cfg = cfg
	cmd.SetContext(pkglog.SetRunID(cmd.Context(), uuid.NewString()))
	return nil
}

// runContext bounds a single pipeline run.
func (a *app) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

func (a *app) runner() (*steps.Runner, error) {
	return steps.New(a.cfg, steps.CloudConnector(a.cfg))
}

func (a *app) remote(ctx context.Context) (*steps.Remote, error) {
	return steps.CloudConnector(a.cfg)(ctx, a.cfg.Warehouse.CredentialsPath)
}
