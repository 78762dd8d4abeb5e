package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"transport_el/internal/convert"
	"transport_el/internal/objstore"
	"transport_el/internal/warehouse"
)

func newConvertCmd(a *app) *cobra.Command {
	var (
		chunkSize   int
		compression string
	)

	cmd := &cobra.Command{
		Use:   "convert <source.csv> <output.parquet>",
		Short: "Convert a single CSV file into a chunked Parquet file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if chunkSize == 0 {
				chunkSize = a.cfg.Extract.ChunkSize
			}
			if compression == "" {
				compression = a.cfg.Extract.Compression
			}

			conv, err := convert.New(chunkSize, compression)
			if err != nil {
				return err
			}

			ctx, cancel := a.runContext(cmd.Context())
			defer cancel()

			res, err := conv.Convert(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if !res.Written {
				fmt.Fprintf(cmd.OutOrStdout(), "%s has no data rows, nothing written\n", args[0])
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d rows in %d row groups, %d bytes\n",
				res.Output, res.Rows, len(res.RowGroups), res.Bytes)
			return nil
		},
	}

	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "rows per chunk and row group (default from config)")
	cmd.Flags().StringVar(&compression, "compression", "", "parquet codec: snappy, gzip, lz4, zstd or uncompressed (default from config)")

	return cmd
}

func newUploadCmd(a *app) *cobra.Command {
	var (
		bucket string
		prefix string
		exts   []string
	)

	cmd := &cobra.Command{
		Use:   "upload <file-or-directory>",
		Short: "Upload a file, or every accepted file of a directory, to object storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("prefix") {
				prefix = a.cfg.Storage.Prefix
			}

			ctx, cancel := a.runContext(cmd.Context())
			defer cancel()

			remote, err := a.remote(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := remote.Close(); err != nil {
					slog.WarnContext(ctx, "failed to close remote clients", "error", err)
				}
			}()

			info, err := os.Stat(args[0])
			if err != nil {
				return fmt.Errorf("upload %s: %w", args[0], err)
			}

			var objects []objstore.Object
			if info.IsDir() {
				objects, err = remote.Uploader.UploadFolder(ctx, args[0], prefix, bucket, exts...)
			} else {
				var obj objstore.Object
				obj, err = remote.Uploader.Upload(ctx, args[0], objstore.JoinKey(prefix, filepath.Base(args[0])), bucket)
				objects = append(objects, obj)
			}
			if err != nil {
				return err
			}

			for _, obj := range objects {
				fmt.Fprintln(cmd.OutOrStdout(), obj.URI)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "target bucket (default from config)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "object key prefix (default from config)")
	cmd.Flags().StringSliceVar(&exts, "ext", nil, "accepted extensions when uploading a directory (default .csv, .csv.gz, .parquet)")

	return cmd
}

func newBQLoadCmd(a *app) *cobra.Command {
	var (
		format  string
		project string
		dataset string
		bucket  string
		local   bool
	)

	cmd := &cobra.Command{
		Use:   "bq-load <path> <table>",
		Short: "Replace a warehouse table with one file",
		Long: `bq-load truncates and replaces <table> with the contents of <path>.

<path> is an object key inside the bucket, or a local file with --local.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := warehouse.ParseFormat(format)
			if err != nil {
				return err
			}

			ctx, cancel := a.runContext(cmd.Context())
			defer cancel()

			remote, err := a.remote(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := remote.Close(); err != nil {
					slog.WarnContext(ctx, "failed to close remote clients", "error", err)
				}
			}()

			var res *warehouse.Result
			if local {
				res, err = remote.Loader.LoadFile(ctx, args[0], args[1], f)
			} else {
				res, err = remote.Loader.Load(ctx, warehouse.Request{
					Path:    args[0],
					Table:   args[1],
					Format:  f,
					Project: project,
					Dataset: dataset,
					Bucket:  bucket,
				})
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d rows into %s (job %s)\n", res.OutputRows, res.Table, res.JobID)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", string(warehouse.Parquet), "source format: PARQUET or CSV")
	cmd.Flags().StringVar(&project, "project", "", "warehouse project (default from config)")
	cmd.Flags().StringVar(&dataset, "dataset", "", "warehouse dataset (default from config)")
	cmd.Flags().StringVar(&bucket, "bucket", "", "bucket holding <path> (default from config)")
	cmd.Flags().BoolVar(&local, "local", false, "load <path> from the local filesystem")

	return cmd
}

func newInspectCmd(_ *app) *cobra.Command {
	var rows bool

	cmd := &cobra.Command{
		Use:   "inspect <file.parquet>",
		Short: "Print the schema and row groups of a Parquet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := convert.Inspect(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rows: %d\nrow groups: %v\ncompression: %s\n\n", info.Rows, info.RowGroups, info.Compression)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COLUMN\tTYPE")
			for i, name := range info.Columns {
				fmt.Fprintf(tw, "%s\t%s\n", name, info.Types[i])
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if !rows {
				return nil
			}

			data, err := convert.ReadAll(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			for _, row := range data {
				fmt.Fprintln(out, row...)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&rows, "rows", false, "also print every row")

	return cmd
}
