package objstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"transport_el/internal/pkg/pkgerror"
)

// DefaultExtensions are the file types UploadFolder picks up when the caller
// names none.
var DefaultExtensions = []string{".csv", ".csv.gz", ".parquet"}

// Uploader copies local files into a Store.
type Uploader struct {
	store  Store
	bucket string
}

// NewUploader creates an Uploader writing to bucket unless a call names
// another one.
func NewUploader(store Store, bucket string) *Uploader {
	return &Uploader{store: store, bucket: bucket}
}

// Bucket returns the default bucket.
func (u *Uploader) Bucket() string {
	return u.bucket
}

// Store returns the underlying store.
func (u *Uploader) Store() Store {
	return u.store
}

// Upload copies the file at localPath to key in bucket, or in the default
// bucket when bucket is empty. An existing object is overwritten.
func (u *Uploader) Upload(ctx context.Context, localPath, key, bucket string) (Object, error) {
	if bucket == "" {
		bucket = u.bucket
	}

	f, err := os.Open(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Object{}, pkgerror.NewMissingInput("", localPath)
		}
		return Object{}, fmt.Errorf("failed to open %s for upload: %w", localPath, err)
	}
	defer f.Close()

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	meta := map[string]string{"source-file": filepath.Base(localPath)}
	if err := u.store.Put(ctx, bucket, key, f, meta); err != nil {
		return Object{}, pkgerror.NewRemote(err)
	}

	obj := Object{
		Bucket: bucket,
		Key:    key,
		URI:    u.store.URI(bucket, key),
		Local:  localPath,
		Size:   size,
	}
	slog.InfoContext(ctx, "uploaded file", "local", localPath, "uri", obj.URI, "bytes", size)

	return obj, nil
}

// UploadFolder uploads every regular file of dir whose name ends with one of
// exts (DefaultExtensions when none are given) to "{prefix}/{filename}".
// Files are visited in name order. Subdirectories are not descended into.
func (u *Uploader) UploadFolder(ctx context.Context, dir, prefix, bucket string, exts ...string) ([]Object, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkgerror.NewMissingInput("", dir)
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var objects []Object
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !hasExtension(entry.Name(), exts) {
			continue
		}

		obj, err := u.Upload(ctx, filepath.Join(dir, entry.Name()), JoinKey(prefix, entry.Name()), bucket)
		if err != nil {
			return objects, err
		}
		objects = append(objects, obj)
	}

	return objects, nil
}

// JoinKey joins prefix and name with a single slash.
func JoinKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func hasExtension(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
