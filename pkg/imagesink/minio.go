package imagesink

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOSink writes extracted images to a MinIO (or any S3-compatible)
// bucket, adapted from the teacher's internal/storage.MinIOClient.
type MinIOSink struct {
	client     *minio.Client
	bucketName string
	refPrefix  string
}

var _ Sink = (*MinIOSink)(nil)

// MinIOConfig configures MinIOSink construction.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	// RefPrefix is prepended to the object key to build the reference
	// string substituted into Markdown (e.g. a public CDN base URL).
	RefPrefix string
}

// NewMinIOSink dials MinIO and ensures the target bucket exists.
func NewMinIOSink(ctx context.Context, cfg MinIOConfig) (*MinIOSink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("imagesink: create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("imagesink: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("imagesink: create bucket: %w", err)
		}
	}

	return &MinIOSink{client: client, bucketName: cfg.BucketName, refPrefix: cfg.RefPrefix}, nil
}

// Put implements Sink.
func (s *MinIOSink) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucketName, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("imagesink: upload %s: %w", name, err)
	}
	return s.refPrefix + name, nil
}

// Exists reports whether an object with the given name is already in
// the bucket, letting callers skip redundant uploads of identical
// images encountered more than once in a document.
func (s *MinIOSink) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucketName, name, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("imagesink: stat %s: %w", name, err)
	}
	return true, nil
}
