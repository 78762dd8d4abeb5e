// Package steps composes the converter, the uploader and the loader into the
// two entry points the workflow invokes: extraction and load.
//
// Both steps walk the fixed source list sequentially and record one outcome
// per source in a report.Stats.
package steps

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"transport_el/internal/config"
	"transport_el/internal/convert"
	"transport_el/internal/objstore"
	"transport_el/internal/pkg/pkgerror"
	"transport_el/internal/pkg/pkglog"
	"transport_el/internal/report"
	"transport_el/internal/warehouse"
)

type Runner struct {
	cfg     config.Config
	conv    *convert.Converter
	connect Connector
}

// New creates a Runner. connect is only used by Load.
func New(cfg config.Config, connect Connector) (*Runner, error) {
	conv, err := convert.New(cfg.Extract.ChunkSize, cfg.Extract.Compression)
	if err != nil {
		return nil, err
	}

	return &Runner{cfg: cfg, conv: conv, connect: connect}, nil
}

type ExtractOptions struct {
	RawDir    string // defaults to the configured raw directory
	OutputDir string // defaults to the configured processed directory
}

// Extract converts every present source CSV into "<slug>.parquet" in the
// output directory. Missing sources are skipped with a warning.
func (r *Runner) Extract(ctx context.Context, opts ExtractOptions) (*report.Stats, error) {
	rawDir := orDefault(opts.RawDir, r.cfg.Paths.RawDir)
	outputDir := orDefault(opts.OutputDir, r.cfg.Paths.ProcessedDir)

	slog.InfoContext(ctx, "starting data extraction process", "raw_dir", rawDir, "output_dir", outputDir)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	stats := report.New("extract", runID(ctx))

	present := make(map[string]bool, len(r.cfg.Sources))
	for _, src := range r.cfg.Sources {
		path := filepath.Join(rawDir, src.File)
		if fileExists(path) {
			present[src.Name] = true
			slog.InfoContext(ctx, "[OK] file found", "source", src.Name, "path", path)
		} else {
			slog.WarnContext(ctx, "[MISSING] file NOT found", "source", src.Name, "path", path)
		}
	}

	for _, src := range r.cfg.Sources {
		in := filepath.Join(rawDir, src.File)
		out := filepath.Join(outputDir, src.ParquetFile())
		result := report.SourceResult{Name: src.Name, Input: in, Output: out}

		if !present[src.Name] {
			slog.WarnContext(ctx, "skipping source, file not found", "source", src.Name)
			result.Outcome = report.OutcomeSkipped
			result.Error = pkgerror.NewMissingInput(src.Name, in).Error()
			stats.Add(result, nil)
			continue
		}

		slog.InfoContext(ctx, "converting source to parquet", "source", src.Name)
		res, err := r.conv.Convert(ctx, in, out)
		if err != nil {
			err = pkgerror.WithSource(err, src.Name)
			slog.ErrorContext(ctx, "conversion failed", "source", src.Name, "kind", pkgerror.KindOf(err).String(), "error", err)
			stats.Add(result, err)
			if r.stop(ctx) {
				break
			}
			continue
		}

		result.Outcome = report.OutcomeOK
		if !res.Written {
			result.Outcome = report.OutcomeEmpty
			result.Output = ""
			// A file left by an earlier run would otherwise be loaded again.
			if err := os.Remove(out); err == nil {
				slog.WarnContext(ctx, "removed stale parquet file of empty source", "source", src.Name, "path", out)
			} else if !errors.Is(err, fs.ErrNotExist) {
				err = pkgerror.WithSource(fmt.Errorf("remove stale output %s: %w", out, err), src.Name)
				stats.Add(result, err)
				if r.stop(ctx) {
					break
				}
				continue
			}
		}
		result.Rows = res.Rows
		result.RowGroups = len(res.RowGroups)
		result.Bytes = res.Bytes
		stats.Add(result, nil)
	}

	return r.finish(ctx, stats)
}

type LoadOptions struct {
	DataDir         string // defaults to the configured processed directory
	CredentialsPath string // defaults to the configured credentials path
}

// Load uploads every Parquet file of the data directory and then replaces
// each source's warehouse table with its Parquet file. Sources whose Parquet
// file is absent are skipped with a warning.
func (r *Runner) Load(ctx context.Context, opts LoadOptions) (*report.Stats, error) {
	dataDir := orDefault(opts.DataDir, r.cfg.Paths.ProcessedDir)
	credentials := orDefault(opts.CredentialsPath, r.cfg.Warehouse.CredentialsPath)

	slog.InfoContext(ctx, "starting data load process", "data_dir", dataDir)

	remote, err := r.connect(ctx, credentials)
	if err != nil {
		return nil, pkgerror.NewRemote(fmt.Errorf("connect: %w", err))
	}
	defer func() {
		if err := remote.Close(); err != nil {
			slog.WarnContext(ctx, "failed to close remote clients", "error", err)
		}
	}()

	stats := report.New("load", runID(ctx))

	slog.InfoContext(ctx, "uploading files to object storage", "bucket", remote.Uploader.Bucket())
	objects, err := remote.Uploader.UploadFolder(ctx, dataDir, r.cfg.Storage.Prefix, "", ".parquet")
	if err != nil {
		stats.Add(report.SourceResult{Name: "upload", Input: dataDir}, err)
		r.finish(ctx, stats)
		return stats, err
	}

	uploaded := make(map[string]objstore.Object, len(objects))
	for _, obj := range objects {
		uploaded[filepath.Base(obj.Local)] = obj
	}

	slog.InfoContext(ctx, "loading data to warehouse")
	for _, src := range r.cfg.Sources {
		file := src.ParquetFile()
		local := filepath.Join(dataDir, file)
		result := report.SourceResult{Name: src.Name, Input: local, Output: src.Table}

		obj, ok := uploaded[file]
		if !ok {
			slog.WarnContext(ctx, "skipping load, parquet file not found", "source", src.Name, "path", local)
			result.Outcome = report.OutcomeSkipped
			result.Error = pkgerror.NewMissingInput(src.Name, local).Error()
			stats.Add(result, nil)
			continue
		}

		var res *warehouse.Result
		if remote.Uploader.Store().Scheme() == "gs" {
			result.Input = obj.URI
			res, err = remote.Loader.Load(ctx, warehouse.Request{
				Path:   obj.Key,
				Table:  src.Table,
				Format: warehouse.Parquet,
				Bucket: obj.Bucket,
			})
		} else {
			// The warehouse only reads gs:// URIs; other stores load from disk.
			res, err = remote.Loader.LoadFile(ctx, local, src.Table, warehouse.Parquet)
		}
		if err != nil {
			err = pkgerror.WithSource(err, src.Name)
			slog.ErrorContext(ctx, "load failed", "source", src.Name, "kind", pkgerror.KindOf(err).String(), "error", err)
			stats.Add(result, err)
			if r.stop(ctx) {
				break
			}
			continue
		}

		result.Outcome = report.OutcomeOK
		result.Output = res.Table.String()
		result.Rows = res.OutputRows
		result.Bytes = obj.Size
		stats.Add(result, nil)
	}

	return r.finish(ctx, stats)
}

// stop reports whether a step should abandon the remaining sources after a
// failure.
func (r *Runner) stop(ctx context.Context) bool {
	return !r.cfg.ContinueOnError || ctx.Err() != nil
}

func (r *Runner) finish(ctx context.Context, stats *report.Stats) (*report.Stats, error) {
	stats.Finish()

	if r.cfg.ReportDir != "" {
		path := filepath.Join(r.cfg.ReportDir, stats.Step+"_stats.json")
		if err := stats.WriteFile(path); err != nil {
			slog.WarnContext(ctx, "failed to write stats", "path", path, "error", err)
		} else {
			slog.InfoContext(ctx, "wrote stats", "path", path)
		}
	}

	slog.InfoContext(ctx, "step finished",
		"step", stats.Step,
		"processed", stats.SourcesProcessed,
		"skipped", stats.SourcesSkipped,
		"failed", stats.SourcesFailed,
		"rows", stats.TotalRowsProcessed,
		"duration", stats.TotalExecutionTime,
	)

	if stats.Failed() {
		return stats, fmt.Errorf("%s step: %w", stats.Step, stats.Err())
	}
	return stats, nil
}

func runID(ctx context.Context) string {
	if id := pkglog.GetRunID(ctx); id != pkglog.NoRunID {
		return id
	}
	return ""
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
