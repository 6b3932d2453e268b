package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcs "cloud.google.com/go/storage"
)

// GCSStore persists artifacts in a Google Cloud Storage bucket and hands
// out signed, time-limited retrieval URLs.
type GCSStore struct {
	client    *gcs.Client
	bucket    string
	signedTTL time.Duration
}

// NewGCSStore constructs a store over an existing bucket. signedTTL bounds
// how long retrieval URLs stay valid.
func NewGCSStore(ctx context.Context, bucket string, signedTTL time.Duration) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("storage: gcs bucket is required")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: create gcs client: %w", err)
	}
	if signedTTL <= 0 {
		signedTTL = 7 * 24 * time.Hour
	}
	return &GCSStore{client: client, bucket: bucket, signedTTL: signedTTL}, nil
}

// Upload writes data to the bucket at key.
func (s *GCSStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	w := s.client.Bucket(s.bucket).Object(cleanKey).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("storage: write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: close object writer: %w", err)
	}
	return cleanKey, nil
}

// RetrievalURL signs a time-limited GET URL for the object.
func (s *GCSStore) RetrievalURL(_ context.Context, key string) (string, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	url, err := s.client.Bucket(s.bucket).SignedURL(cleanKey, &gcs.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(s.signedTTL),
		Scheme:  gcs.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("storage: sign url: %w", err)
	}
	return url, nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

var _ ObjectStore = (*GCSStore)(nil)
