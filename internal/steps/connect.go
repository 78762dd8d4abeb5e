package steps

import (
	"context"
	"errors"
	"fmt"

	"transport_el/internal/config"
	"transport_el/internal/objstore"
	"transport_el/internal/warehouse"
)

// Remote bundles the cloud clients the load step talks to.
type Remote struct {
	Uploader *objstore.Uploader
	Loader   *warehouse.Loader
}

// Close releases both clients.
func (r *Remote) Close() error {
	return errors.Join(r.Uploader.Store().Close(), r.Loader.Close())
}

// Connector opens the remote clients using the credentials file at
// credentialsPath (empty for the provider default chain).
type Connector func(ctx context.Context, credentialsPath string) (*Remote, error)

// CloudConnector returns a Connector building the storage backend named in
// cfg and a BigQuery loader.
func CloudConnector(cfg config.Config) Connector {
	return func(ctx context.Context, credentialsPath string) (*Remote, error) {
		var (
			store objstore.Store
			err   error
		)
		switch cfg.Storage.Backend {
		case config.BackendS3:
			store, err = objstore.NewS3(cfg.Storage.S3Region)
		default:
			store, err = objstore.NewGCS(ctx, credentialsPath)
		}
		if err != nil {
			return nil, err
		}

		bq, err := warehouse.NewBigQuery(ctx, cfg.Warehouse.ProjectID, credentialsPath)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("connect warehouse: %w", err)
		}

		return &Remote{
			Uploader: objstore.NewUploader(store, cfg.Storage.Bucket),
			Loader: warehouse.NewLoader(bq, warehouse.Options{
				ProjectID:     cfg.Warehouse.ProjectID,
				Dataset:       cfg.Warehouse.Dataset,
				Bucket:        cfg.Storage.Bucket,
				Location:      cfg.Warehouse.Location,
				CreateDataset: cfg.Warehouse.CreateDataset,
			}),
		}, nil
	}
}
