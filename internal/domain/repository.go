package domain

import (
	"context"
	"time"
)

// DocumentRepository defines persistence for generation documents. Updates
// are field-scoped so concurrent status transitions never require a whole
// document replace.
type DocumentRepository interface {
	// Create persists a new document and writes the store-assigned
	// CreatedAt/UpdatedAt back onto doc.
	Create(ctx context.Context, doc *Document) error
	// MarkProcessing transitions a draft document to processing and returns
	// the claimed record. It returns ErrNotFound when the document is missing
	// or already past draft, making the transition safe to race.
	MarkProcessing(ctx context.Context, id string) (*Document, error)
	SaveRenderedContent(ctx context.Context, id, content string) error
	// Complete atomically sets the terminal complete status together with
	// the artifact metadata and completion timestamp.
	Complete(ctx context.Context, id string, artifact *Artifact, completedAt time.Time) error
	// MarkError records the terminal error state and increments the
	// document's retry counter.
	MarkError(ctx context.Context, id, message, code string) error
	GetByID(ctx context.Context, id, ownerID string) (*Document, error)
	List(ctx context.Context, ownerID string, limit, offset int) ([]Document, error)
	// ClaimQueued atomically claims the oldest draft document for a worker
	// and transitions it to processing. Returns ErrNotFound when no work is
	// available.
	ClaimQueued(ctx context.Context) (*Document, error)
	// FailStale marks documents stuck in processing longer than cutoff as
	// errored so every document reaches a terminal state after a crash.
	FailStale(ctx context.Context, cutoff time.Time) (int64, error)
}
