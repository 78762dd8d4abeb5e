package objstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3 is a Store backed by Amazon S3. Credentials come from the AWS default
// chain (environment, shared config, instance role).
type S3 struct {
	uploader *s3manager.Uploader
}

// NewS3 creates an S3 store in region.
func NewS3(region string) (*S3, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}

	return &S3{uploader: s3manager.NewUploader(sess)}, nil
}

func (s *S3) Put(ctx context.Context, bucket, key string, r io.Reader, meta map[string]string) error {
	metadata := make(map[string]*string, len(meta))
	for k, v := range meta {
		metadata[k] = aws.String(v)
	}

	result, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		Body:     r,
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	slog.DebugContext(ctx, "uploaded to S3", "key", key, "location", result.Location)
	return nil
}

func (s *S3) URI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}

func (s *S3) Scheme() string {
	return "s3"
}

func (s *S3) Close() error {
	return nil
}
