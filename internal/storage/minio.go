package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/lehigh-university-libraries/wellcome2commons/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIO stores blobs as objects under a key prefix in an S3-compatible bucket
type MinIO struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIO connects to the configured endpoint
func NewMinIO(cfg config.MinIOConfig, prefix string) (*MinIO, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("missing one or more required settings: MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	slog.Info("Using MinIO image store", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket, "prefix", prefix)
	return &MinIO{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

func (s *MinIO) key(name string) string {
	return path.Join(s.prefix, name)
}

// EnsureBucket creates the bucket when it does not exist yet
func (s *MinIO) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (s *MinIO) Size(ctx context.Context, name string) (int64, error) {
	info, err := s.client.StatObject(ctx, s.bucket, s.key(name), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to stat object %s: %w", name, err)
	}
	return info.Size, nil
}

func (s *MinIO) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), r, size, minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		return fmt.Errorf("failed to store object %s: %w", name, err)
	}
	return nil
}

// Open stats first so a missing key surfaces as ErrNotFound rather than on
// the first read
func (s *MinIO) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if _, err := s.Size(ctx, name); err != nil {
		return nil, err
	}
	object, err := s.client.GetObject(ctx, s.bucket, s.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", name, err)
	}
	return object, nil
}
