// Package storage persists finished artifacts and hands out retrieval
// URLs. The pipeline only ever sees the ObjectStore interface; whether the
// bytes land on disk or in a bucket is a deployment decision.
package storage

import "context"

// ObjectStore uploads artifact bytes and produces retrieval URLs.
type ObjectStore interface {
	// Upload persists data at key and returns the canonicalized storage key.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// RetrievalURL returns a URL a client can fetch the object from. The URL
	// may be time-limited depending on the backend.
	RetrievalURL(ctx context.Context, key string) (string, error)
}
