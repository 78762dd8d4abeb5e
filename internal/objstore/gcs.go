package objstore

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS is a Store backed by Google Cloud Storage.
type GCS struct {
	client *storage.Client
}

// NewGCS creates a GCS store. With an empty credentialsPath the client falls
// back to Application Default Credentials.
func NewGCS(ctx context.Context, credentialsPath string) (*GCS, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCS{client: client}, nil
}

func (g *GCS) Put(ctx context.Context, bucket, key string, r io.Reader, meta map[string]string) error {
	w := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.Metadata = meta

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload to %s: %w", g.URI(bucket, key), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", g.URI(bucket, key), err)
	}

	return nil
}

func (g *GCS) URI(bucket, key string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, key)
}

func (g *GCS) Scheme() string {
	return "gs"
}

func (g *GCS) Close() error {
	return g.client.Close()
}
