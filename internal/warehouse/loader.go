// Package warehouse issues bulk load jobs from object storage (or local
// files) into BigQuery tables.
//
// Every load truncates and replaces the destination table, so re-running a
// load with the same input yields the same table contents.
package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/bigquery"

	"transport_el/internal/pkg/pkgerror"
)

// Format is the source file format of a load.
type Format string

const (
	Parquet Format = "PARQUET"
	CSV     Format = "CSV"
)

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToUpper(s)) {
	case Parquet:
		return Parquet, nil
	case CSV:
		return CSV, nil
	default:
		return "", pkgerror.NewConfig(fmt.Errorf("unsupported source format %q", s))
	}
}

// Table fully qualifies a destination table.
type Table struct {
	ProjectID string
	DatasetID string
	TableID   string
}

func (t Table) String() string {
	return t.ProjectID + "." + t.DatasetID + "." + t.TableID
}

// Job is one load against a Backend.
type Job struct {
	Table             Table
	Source            bigquery.LoadSource
	WriteDisposition  bigquery.TableWriteDisposition
	CreateDisposition bigquery.TableCreateDisposition
}

// Result is the terminal state of a load job.
type Result struct {
	JobID      string
	Table      Table
	Source     string
	OutputRows int64
}

// Backend runs load jobs and blocks until they finish.
type Backend interface {
	Run(ctx context.Context, job Job) (*Result, error)
	EnsureDataset(ctx context.Context, projectID, datasetID, location string) error
	Close() error
}

// Request describes a load from object storage. Empty Project, Dataset and
// Bucket fall back to the Loader defaults.
type Request struct {
	Path    string // object key inside the bucket, without the gs:// prefix
	Table   string
	Format  Format
	Project string
	Dataset string
	Bucket  string
}

// Options are the Loader defaults.
type Options struct {
	ProjectID     string
	Dataset       string
	Bucket        string
	Location      string
	CreateDataset bool
}

// Loader issues truncate-and-replace loads.
type Loader struct {
	backend Backend
	opts    Options
}

// NewLoader creates a Loader running jobs on backend.
func NewLoader(backend Backend, opts Options) *Loader {
	return &Loader{backend: backend, opts: opts}
}

// Load replaces the contents of the requested table with the data found at
// gs://bucket/path. It returns once the job reports completion.
func (l *Loader) Load(ctx context.Context, req Request) (*Result, error) {
	table := l.table(req.Project, req.Dataset, req.Table)
	bucket := req.Bucket
	if bucket == "" {
		bucket = l.opts.Bucket
	}

	uri := fmt.Sprintf("gs://%s/%s", bucket, strings.TrimPrefix(req.Path, "/"))
	ref := bigquery.NewGCSReference(uri)
	if err := configure(&ref.FileConfig, req.Format); err != nil {
		return nil, err
	}

	return l.run(ctx, table, ref, uri)
}

// LoadFile replaces the contents of table with the local file at path.
func (l *Loader) LoadFile(ctx context.Context, path, table string, format Format) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkgerror.NewMissingInput("", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	src := bigquery.NewReaderSource(f)
	if err := configure(&src.FileConfig, format); err != nil {
		return nil, err
	}

	return l.run(ctx, l.table("", "", table), src, path)
}

func (l *Loader) table(project, dataset, table string) Table {
	if project == "" {
		project = l.opts.ProjectID
	}
	if dataset == "" {
		dataset = l.opts.Dataset
	}
	return Table{ProjectID: project, DatasetID: dataset, TableID: table}
}

// configure applies the per-format load settings: CSV skips the header row
// and autodetects column types, Parquet takes the embedded schema.
func configure(fc *bigquery.FileConfig, format Format) error {
	switch format {
	case CSV:
		fc.SourceFormat = bigquery.CSV
		fc.SkipLeadingRows = 1
		fc.AutoDetect = true
	case Parquet, "":
		fc.SourceFormat = bigquery.Parquet
	default:
		return pkgerror.NewConfig(fmt.Errorf("unsupported source format %q", format))
	}
	return nil
}

func (l *Loader) run(ctx context.Context, table Table, src bigquery.LoadSource, from string) (*Result, error) {
	if l.opts.CreateDataset {
		if err := l.backend.EnsureDataset(ctx, table.ProjectID, table.DatasetID, l.opts.Location); err != nil {
			return nil, pkgerror.NewRemote(err)
		}
	}

	slog.InfoContext(ctx, "starting load job", "source", from, "table", table.String())

	res, err := l.backend.Run(ctx, Job{
		Table:             table,
		Source:            src,
		WriteDisposition:  bigquery.WriteTruncate,
		CreateDisposition: bigquery.CreateIfNeeded,
	})
	if err != nil {
		return nil, pkgerror.NewRemote(fmt.Errorf("load %s into %s: %w", from, table, err))
	}
	res.Table = table
	res.Source = from

	slog.InfoContext(ctx, "loaded table", "source", from, "table", table.String(),
		"rows", res.OutputRows, "job_id", res.JobID)

	return res, nil
}

// Close releases the backend.
func (l *Loader) Close() error {
	return l.backend.Close()
}
