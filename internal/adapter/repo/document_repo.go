// Package repo implements the persistence ports over PostgreSQL.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// DocumentRepositoryPG implements domain.DocumentRepository over the
// documents table. Status transitions are guarded in SQL so racing callers
// observe ErrNotFound instead of clobbering a terminal state.
type DocumentRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository creates a document repository backed by PostgreSQL.
func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepositoryPG {
	return &DocumentRepositoryPG{pool: pool}
}

const documentColumns = `id, owner_id, snapshot, status, rendered_content,
artifact_key, artifact_url, artifact_uploaded_at, artifact_size,
error_message, error_code, retry_count, created_at, updated_at, completed_at`

// Create inserts a new document in draft status with its frozen snapshot.
// The server-assigned timestamps are written back onto doc so callers hand
// clients the same created_at every later read returns.
func (r *DocumentRepositoryPG) Create(ctx context.Context, doc *domain.Document) error {
	snapshot, err := json.Marshal(doc.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	query := `
INSERT INTO documents (id, owner_id, snapshot, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW())
RETURNING created_at, updated_at;
`
	row := r.pool.QueryRow(ctx, query, doc.ID, doc.OwnerID, snapshot, doc.Status)
	return row.Scan(&doc.CreatedAt, &doc.UpdatedAt)
}

// MarkProcessing transitions a draft document to processing and returns the
// claimed record. Documents already past draft are left untouched and
// reported as ErrNotFound.
func (r *DocumentRepositoryPG) MarkProcessing(ctx context.Context, id string) (*domain.Document, error) {
	query := `
UPDATE documents
SET status = $2, updated_at = NOW()
WHERE id = $1 AND status = $3
RETURNING ` + documentColumns + `;
`
	row := r.pool.QueryRow(ctx, query, id, domain.StatusProcessing, domain.StatusDraft)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// SaveRenderedContent persists the HTML body produced by the render stage.
func (r *DocumentRepositoryPG) SaveRenderedContent(ctx context.Context, id, content string) error {
	query := `
UPDATE documents
SET rendered_content = $2, updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query, id, content)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Complete records the terminal complete status together with the artifact
// metadata. A document already in a terminal state is never overwritten.
func (r *DocumentRepositoryPG) Complete(ctx context.Context, id string, artifact *domain.Artifact, completedAt time.Time) error {
	query := `
UPDATE documents
SET status = $2,
    artifact_key = $3,
    artifact_url = $4,
    artifact_uploaded_at = $5,
    artifact_size = $6,
    completed_at = $7,
    updated_at = NOW()
WHERE id = $1 AND status NOT IN ($8, $9);
`
	tag, err := r.pool.Exec(ctx, query, id,
		domain.StatusComplete,
		artifact.StorageKey,
		artifact.RetrievalURL,
		artifact.UploadedAt,
		artifact.Size,
		completedAt,
		domain.StatusComplete,
		domain.StatusError,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkError records the terminal error state and increments the retry
// counter. Terminal documents are never overwritten.
func (r *DocumentRepositoryPG) MarkError(ctx context.Context, id, message, code string) error {
	query := `
UPDATE documents
SET status = $2,
    error_message = $3,
    error_code = $4,
    retry_count = retry_count + 1,
    updated_at = NOW()
WHERE id = $1 AND status NOT IN ($5, $6);
`
	tag, err := r.pool.Exec(ctx, query, id,
		domain.StatusError, message, code,
		domain.StatusComplete, domain.StatusError,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID fetches a document scoped to its owner. A wrong owner is
// indistinguishable from a missing document.
func (r *DocumentRepositoryPG) GetByID(ctx context.Context, id, ownerID string) (*domain.Document, error) {
	query := `
SELECT ` + documentColumns + `
FROM documents
WHERE id = $1 AND owner_id = $2;
`
	row := r.pool.QueryRow(ctx, query, id, ownerID)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// List returns the owner's documents, newest first.
func (r *DocumentRepositoryPG) List(ctx context.Context, ownerID string, limit, offset int) ([]domain.Document, error) {
	query := `
SELECT ` + documentColumns + `
FROM documents
WHERE owner_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3;
`
	rows, err := r.pool.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// ClaimQueued atomically claims the oldest draft document and transitions it
// to processing, skipping rows locked by other workers.
func (r *DocumentRepositoryPG) ClaimQueued(ctx context.Context) (*domain.Document, error) {
	query := `
WITH next_doc AS (
    SELECT id
    FROM documents
    WHERE status = $1
    ORDER BY created_at ASC
    FOR UPDATE SKIP LOCKED
    LIMIT 1
),
updated AS (
    UPDATE documents
    SET status = $2, updated_at = NOW()
    WHERE id IN (SELECT id FROM next_doc)
    RETURNING ` + documentColumns + `
)
SELECT * FROM updated;
`
	row := r.pool.QueryRow(ctx, query, domain.StatusDraft, domain.StatusProcessing)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// FailStale errors out documents stuck in processing since before cutoff.
func (r *DocumentRepositoryPG) FailStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
UPDATE documents
SET status = $1,
    error_message = 'generation timed out',
    error_code = $2,
    retry_count = retry_count + 1,
    updated_at = NOW()
WHERE status = $3 AND updated_at < $4;
`
	tag, err := r.pool.Exec(ctx, query,
		domain.StatusError, domain.CodeUnknown, domain.StatusProcessing, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		doc        domain.Document
		snapshot   []byte
		rendered   *string
		artKey     *string
		artURL     *string
		artTime    *time.Time
		artSize    *int64
		errMessage *string
		errCode    *string
	)
	if err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&snapshot,
		&doc.Status,
		&rendered,
		&artKey,
		&artURL,
		&artTime,
		&artSize,
		&errMessage,
		&errCode,
		&doc.RetryCount,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&doc.CompletedAt,
	); err != nil {
		return nil, err
	}

	if len(snapshot) > 0 {
		var draft domain.Draft
		if err := json.Unmarshal(snapshot, &draft); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		doc.Snapshot = &draft
	}
	if rendered != nil {
		doc.RenderedContent = *rendered
	}
	if artKey != nil {
		doc.Artifact = &domain.Artifact{StorageKey: *artKey}
		if artURL != nil {
			doc.Artifact.RetrievalURL = *artURL
		}
		if artTime != nil {
			doc.Artifact.UploadedAt = *artTime
		}
		if artSize != nil {
			doc.Artifact.Size = *artSize
		}
	}
	if errMessage != nil {
		doc.ErrorMessage = *errMessage
	}
	if errCode != nil {
		doc.ErrorCode = *errCode
	}
	return &doc, nil
}

var _ domain.DocumentRepository = (*DocumentRepositoryPG)(nil)
