package main

import (
	"github.com/spf13/cobra"

	"transport_el/internal/steps"
)

func newExtractCmd(a *app) *cobra.Command {
	var opts steps.ExtractOptions

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Convert every present source CSV into a Parquet file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := a.runner()
			if err != nil {
				return err
			}

			ctx, cancel := a.runContext(cmd.Context())
			defer cancel()

			_, err = r.Extract(ctx, opts)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.RawDir, "raw-dir", "", "directory holding the source CSV files (default from config)")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "", "directory the Parquet files are written to (default from config)")

	return cmd
}

func newLoadCmd(a *app) *cobra.Command {
	var opts steps.LoadOptions

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Upload the Parquet files and replace the raw warehouse tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := a.runner()
			if err != nil {
				return err
			}

			ctx, cancel := a.runContext(cmd.Context())
			defer cancel()

			_, err = r.Load(ctx, opts)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.DataDir, "data-dir", "", "directory holding the Parquet files (default from config)")
	cmd.Flags().StringVar(&opts.CredentialsPath, "credentials", "", "service account key file (default from config)")

	return cmd
}
