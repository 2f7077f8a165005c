// Package s3 stores release files in S3-compatible object storage.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	// ErrNotFound is returned when an object does not exist
	ErrNotFound = errors.New("object not found")

	// ErrAccessDenied is returned when the credentials are rejected
	ErrAccessDenied = errors.New("access denied")
)

// Config locates the bucket
type Config struct {
	Endpoint string // host[:port], no scheme
	Bucket   string
	Region   string
	Secure   bool
}

// Store is a bucket-scoped object store backed by minio-go
type Store struct {
	client *minio.Client
	bucket string
}

// NewStore creates a store authenticated with static credentials
func NewStore(cfg Config, accessKey, secretKey string) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// PutFile uploads a local file
func (s *Store) PutFile(ctx context.Context, key, path, contentType string, metadata map[string]string) error {
	_, err := s.client.FPutObject(ctx, s.bucket, key, path, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, classify(err))
	}
	return nil
}

// Put uploads an in-memory object
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, classify(err))
	}
	return nil
}

// Get downloads an object; a missing key yields ErrNotFound
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, classify(err))
	}
	//nolint:errcheck // Defer close on read-only object
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, classify(err))
	}
	return data, nil
}

func classify(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchObject":
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "NoSuchBucket":
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	default:
		return err
	}
}
