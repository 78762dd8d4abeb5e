// Package objstore pushes local files to cloud object storage.
//
// A Store hides the provider; the Uploader on top of it implements single
// file and folder uploads under the "{prefix}/{filename}" key convention.
package objstore

import (
	"context"
	"io"
)

// Store writes objects to one provider. Put overwrites an existing object.
type Store interface {
	Put(ctx context.Context, bucket, key string, r io.Reader, meta map[string]string) error
	URI(bucket, key string) string
	Scheme() string
	Close() error
}

// Object identifies an uploaded blob.
type Object struct {
	Bucket string
	Key    string
	URI    string
	Local  string // path the object was uploaded from
	Size   int64
}
