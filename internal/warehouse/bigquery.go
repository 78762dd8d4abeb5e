package warehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// BigQuery is a Backend running load jobs through the BigQuery API.
type BigQuery struct {
	client *bigquery.Client
}

// NewBigQuery creates a BigQuery backend billed to projectID. With an empty
// credentialsPath the client falls back to Application Default Credentials.
func NewBigQuery(ctx context.Context, projectID, credentialsPath string) (*BigQuery, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bigquery client: %w", err)
	}

	return &BigQuery{client: client}, nil
}

func (b *BigQuery) Run(ctx context.Context, job Job) (*Result, error) {
	loader := b.client.DatasetInProject(job.Table.ProjectID, job.Table.DatasetID).
		Table(job.Table.TableID).
		LoaderFrom(job.Source)
	loader.WriteDisposition = job.WriteDisposition
	loader.CreateDisposition = job.CreateDisposition

	j, err := loader.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("submit load job: %w", err)
	}

	status, err := j.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("wait for job %s: %w", j.ID(), err)
	}
	if err := status.Err(); err != nil {
		return nil, fmt.Errorf("job %s failed: %w", j.ID(), err)
	}

	res := &Result{JobID: j.ID()}
	if status.Statistics != nil {
		if stats, ok := status.Statistics.Details.(*bigquery.LoadStatistics); ok {
			res.OutputRows = stats.OutputRows
		}
	}

	return res, nil
}

// EnsureDataset creates the dataset in location when it does not exist yet.
func (b *BigQuery) EnsureDataset(ctx context.Context, projectID, datasetID, location string) error {
	ds := b.client.DatasetInProject(projectID, datasetID)

	_, err := ds.Metadata(ctx)
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
		return fmt.Errorf("get dataset %s.%s: %w", projectID, datasetID, err)
	}

	slog.InfoContext(ctx, "dataset not found, creating", "dataset", datasetID, "location", location)
	if err := ds.Create(ctx, &bigquery.DatasetMetadata{Location: location}); err != nil {
		return fmt.Errorf("create dataset %s.%s: %w", projectID, datasetID, err)
	}

	return nil
}

func (b *BigQuery) Close() error {
	return b.client.Close()
}
