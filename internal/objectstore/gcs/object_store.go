// Package gcs provides an ObjectStore backed by Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/forgemedia/portal/internal/portal"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
}

// ObjectStore uploads order files to a configured GCS bucket. Authentication
// uses Application Default Credentials.
type ObjectStore struct {
	client *storage.Client
	bucket string
}

// New creates a GCS-backed object store.
func New(client *storage.Client, cfg Config) (*ObjectStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &ObjectStore{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads the body to the configured bucket.
func (s *ObjectStore) Put(ctx context.Context, key string, upload portal.Upload) (portal.PutResult, error) {
	if strings.TrimSpace(key) == "" {
		return portal.PutResult{}, fmt.Errorf("key is required")
	}
	writer := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if upload.ContentType != "" {
		writer.ContentType = upload.ContentType
	}
	if len(upload.Metadata) > 0 {
		writer.Metadata = upload.Metadata
	}
	n, err := io.Copy(writer, upload.Body)
	if err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return portal.PutResult{}, fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return portal.PutResult{}, fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return portal.PutResult{}, fmt.Errorf("close writer: %w", err)
	}
	return portal.PutResult{Key: key, Size: n}, nil
}

// PresignGet returns a V4 signed GET URL for the key.
func (s *ObjectStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	url, err := s.client.Bucket(s.bucket).SignedURL(key, &storage.SignedURLOptions{
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
		Scheme:  storage.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("sign url for %s: %w", key, err)
	}
	return url, nil
}
