package tracking

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"sqlcotbench/internal/config"
)

// ArtifactStore uploads run artifacts to remote storage.
type ArtifactStore interface {
	Upload(ctx context.Context, key, localPath string) (string, error)
}

// S3ArtifactStore stores artifacts in an S3-compatible bucket.
type S3ArtifactStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3ArtifactStore creates a store for cfg.
func NewS3ArtifactStore(cfg config.S3Config) (*S3ArtifactStore, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	return &S3ArtifactStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// ObjectName returns the object key for key under the store prefix.
func (s *S3ArtifactStore) ObjectName(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

// Upload puts localPath at key and returns its s3:// URI.
func (s *S3ArtifactStore) Upload(ctx context.Context, key, localPath string) (string, error) {
	object := s.ObjectName(key)
	opts := minio.PutObjectOptions{}
	if strings.EqualFold(filepath.Ext(localPath), ".csv") {
		opts.ContentType = "text/csv"
	}
	if _, err := s.client.FPutObject(ctx, s.bucket, object, localPath, opts); err != nil {
		return "", fmt.Errorf("upload %s to s3://%s/%s: %w", filepath.Base(localPath), s.bucket, object, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, object), nil
}
