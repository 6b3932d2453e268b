package domain

import "time"

// DocumentStatus enumerates the generation lifecycle states.
type DocumentStatus string

const (
	StatusDraft      DocumentStatus = "draft"
	StatusProcessing DocumentStatus = "processing"
	StatusComplete   DocumentStatus = "complete"
	StatusError      DocumentStatus = "error"
)

// Terminal reports whether the status is absorbing. Complete and error
// documents never transition again.
func (s DocumentStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Artifact is the produced output file plus its storage metadata. It is
// populated if and only if the document is complete.
type Artifact struct {
	StorageKey   string    `json:"storage_key"`
	RetrievalURL string    `json:"retrieval_url"`
	UploadedAt   time.Time `json:"uploaded_at"`
	Size         int64     `json:"size"`
}

// Document is the durable record of one generation request. The snapshot is
// frozen at creation; every later stage reads it but never rewrites it.
type Document struct {
	ID              string
	OwnerID         string
	Snapshot        *Draft
	Status          DocumentStatus
	RenderedContent string
	Artifact        *Artifact
	ErrorMessage    string
	ErrorCode       string
	RetryCount      int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}
