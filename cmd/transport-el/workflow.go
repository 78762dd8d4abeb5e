package main

import (
	"github.com/spf13/cobra"

	"transport_el/internal/workflow"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the whole chain once: extract, load, dbt models and dbt tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := a.runner()
			if err != nil {
				return err
			}

			ctx, cancel := a.runContext(cmd.Context())
			defer cancel()

			return workflow.Transport(a.cfg, r).Run(ctx)
		},
	}
}

func newScheduleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the chain on its cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := a.runner()
			if err != nil {
				return err
			}

			s, err := workflow.NewScheduler(workflow.Transport(a.cfg, r))
			if err != nil {
				return err
			}
			return s.Run(cmd.Context())
		},
	}
}
