// Package pipeline orchestrates the document generation lifecycle: validate,
// snapshot, enhance, render, produce, upload, complete. Every failure after
// acceptance lands the document in a terminal error state; errors never
// escape the dispatch boundary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/enhance"
	"server/internal/infra"
	"server/internal/metrics"
	"server/internal/rasterize"
	"server/internal/render"
	"server/internal/storage"
	"server/internal/tasklock"
)

// lockName scopes generation locks; args carry the document id.
const lockName = "document_generate"

// Options wires the pipeline's collaborators. Repo, Enhancer, Renderer,
// Rasterizer, Store and Locker are required; Metrics may be nil.
type Options struct {
	Repo       domain.DocumentRepository
	Enhancer   *enhance.Orchestrator
	Renderer   render.Renderer
	Rasterizer rasterize.Rasterizer
	Store      storage.ObjectStore
	Locker     tasklock.Locker
	Metrics    *metrics.Metrics
	Logger     infra.Logger

	LockTTL         time.Duration
	StageTimeout    time.Duration
	ProduceAttempts int
	ProduceDelay    time.Duration

	// Now is the clock; defaults to time.Now. Injected for tests.
	Now func() time.Time
}

// Pipeline runs the generation stages for one document at a time. It is
// safe for concurrent use; all state lives in the repository.
type Pipeline struct {
	repo       domain.DocumentRepository
	enhancer   *enhance.Orchestrator
	renderer   render.Renderer
	rasterizer rasterize.Rasterizer
	store      storage.ObjectStore
	locker     tasklock.Locker
	metrics    *metrics.Metrics
	logger     infra.Logger

	lockTTL         time.Duration
	stageTimeout    time.Duration
	produceAttempts int
	produceDelay    time.Duration
	now             func() time.Time
}

// New constructs a pipeline from options, applying defaults for the
// timing knobs.
func New(opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = time.Hour
	}
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = 2 * time.Minute
	}
	if opts.ProduceAttempts < 1 {
		opts.ProduceAttempts = 3
	}
	return &Pipeline{
		repo:            opts.Repo,
		enhancer:        opts.Enhancer,
		renderer:        opts.Renderer,
		rasterizer:      opts.Rasterizer,
		store:           opts.Store,
		locker:          opts.Locker,
		metrics:         opts.Metrics,
		logger:          opts.Logger,
		lockTTL:         opts.LockTTL,
		stageTimeout:    opts.StageTimeout,
		produceAttempts: opts.ProduceAttempts,
		produceDelay:    opts.ProduceDelay,
		now:             opts.Now,
	}
}

// CreateResult is returned to the client on acceptance.
type CreateResult struct {
	ID        string                `json:"id"`
	Status    domain.DocumentStatus `json:"status"`
	CreatedAt time.Time             `json:"created_at"`
}

// Create validates the draft in full and persists a frozen snapshot. On
// validation failure nothing is persisted and the *domain.ValidationError
// is returned synchronously. The stored record stays in draft until a
// dispatcher or worker claims it, but the accept response already reports
// processing: from the client's point of view the work is underway.
func (p *Pipeline) Create(ctx context.Context, ownerID string, draft *domain.Draft) (*CreateResult, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := ValidateDraft(draft); err != nil {
		return nil, err
	}

	doc := &domain.Document{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		Snapshot: draft.Clone(),
		Status:   domain.StatusDraft,
	}
	if err := p.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("persist document: %w", err)
	}

	p.logger.Info().Str("document_id", doc.ID).Str("owner_id", ownerID).Msg("pipeline: document accepted")
	return &CreateResult{ID: doc.ID, Status: domain.StatusProcessing, CreatedAt: doc.CreatedAt}, nil
}

// Run claims the document and executes the generation stages. A lost lock
// or an already-claimed document is a duplicate dispatch and is skipped
// without error. Run never returns a generation failure; those are recorded
// on the document itself.
func (p *Pipeline) Run(ctx context.Context, docID string) error {
	acquired, err := p.locker.Acquire(ctx, lockName, []string{docID}, p.lockTTL)
	if err != nil {
		return fmt.Errorf("acquire task lock: %w", err)
	}
	if !acquired {
		p.logger.Info().Str("document_id", docID).Msg("pipeline: lock held elsewhere, skipping duplicate dispatch")
		return nil
	}
	defer p.releaseLock(docID)

	doc, err := p.repo.MarkProcessing(ctx, docID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			p.logger.Info().Str("document_id", docID).Msg("pipeline: document already claimed, skipping")
			return nil
		}
		return fmt.Errorf("mark processing: %w", err)
	}

	p.process(ctx, doc)
	return nil
}

// RunClaimed executes the generation stages for a document a worker has
// already transitioned to processing via the queue claim.
func (p *Pipeline) RunClaimed(ctx context.Context, doc *domain.Document) error {
	acquired, err := p.locker.Acquire(ctx, lockName, []string{doc.ID}, p.lockTTL)
	if err != nil {
		return fmt.Errorf("acquire task lock: %w", err)
	}
	if !acquired {
		p.logger.Info().Str("document_id", doc.ID).Msg("pipeline: lock held elsewhere, skipping claimed document")
		return nil
	}
	defer p.releaseLock(doc.ID)

	p.process(ctx, doc)
	return nil
}

// GetStatus returns the owner's view of one document.
func (p *Pipeline) GetStatus(ctx context.Context, id, ownerID string) (*domain.Document, error) {
	return p.repo.GetByID(ctx, id, ownerID)
}

// List returns the owner's documents, newest first.
func (p *Pipeline) List(ctx context.Context, ownerID string, limit, offset int) ([]domain.Document, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return p.repo.List(ctx, ownerID, limit, offset)
}

// process runs stages 4-8 and records the terminal outcome. Failures are
// classified once at this boundary and written via MarkError.
func (p *Pipeline) process(ctx context.Context, doc *domain.Document) {
	sess := metrics.NewSession(p.metrics)

	err := p.generate(ctx, doc, sess)
	if err == nil {
		sess.Success()
		p.logger.Info().Str("document_id", doc.ID).Msg("pipeline: generation complete")
		return
	}

	code := domain.ClassifyError(err)
	sess.Failure(code)
	p.logger.Error().Err(err).Str("document_id", doc.ID).Str("error_code", code).Msg("pipeline: generation failed")

	// The terminal write must survive a canceled run context.
	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if merr := p.repo.MarkError(mctx, doc.ID, err.Error(), code); merr != nil {
		p.logger.Error().Err(merr).Str("document_id", doc.ID).Msg("pipeline: failed to record error state")
	}
}

func (p *Pipeline) generate(ctx context.Context, doc *domain.Document, sess *metrics.Session) error {
	// Stage 4: optional enhancement on an in-memory copy. Per-field failures
	// fall back inside the orchestrator; this stage never fails a document.
	timer := sess.BeginStage("enhance")
	ectx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	snapshot := p.enhancer.Apply(ectx, doc.Snapshot, sess)
	cancel()
	timer.End()

	// Stage 5: render, persisted immediately so the artifact can be
	// re-produced without re-enhancing.
	timer = sess.BeginStage("render")
	rctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	content, err := p.renderer.Render(rctx, snapshot)
	cancel()
	timer.End()
	if err != nil {
		return domain.NewStageError(domain.CodeRender, err)
	}
	if err := p.repo.SaveRenderedContent(ctx, doc.ID, content); err != nil {
		return fmt.Errorf("save rendered content: %w", err)
	}

	// Stage 6: produce, the only retried stage.
	timer = sess.BeginStage("produce")
	var artifact []byte
	err = retry.Do(
		func() error {
			pctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
			defer cancel()
			out, perr := p.rasterizer.Produce(pctx, content)
			if perr != nil {
				sess.ProduceAttempt("failure")
				return perr
			}
			sess.ProduceAttempt("success")
			artifact = out
			return nil
		},
		retry.Attempts(uint(p.produceAttempts)),
		retry.Delay(p.produceDelay),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	timer.End()
	if err != nil {
		return domain.NewStageError(domain.CodeProduce, err)
	}
	sess.ArtifactSize(len(artifact))

	// Stage 7: upload and build the artifact metadata.
	timer = sess.BeginStage("upload")
	uctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()
	key := fmt.Sprintf("documents/%s/%s.pdf", doc.OwnerID, doc.ID)
	storedKey, err := p.store.Upload(uctx, key, artifact, "application/pdf")
	if err != nil {
		sess.UploadFailure()
		timer.End()
		return domain.NewStageError(domain.CodeUpload, err)
	}
	url, err := p.store.RetrievalURL(uctx, storedKey)
	if err != nil {
		sess.UploadFailure()
		timer.End()
		return domain.NewStageError(domain.CodeUpload, err)
	}
	timer.End()

	// Stage 8: terminal complete transition, atomic with the artifact.
	meta := &domain.Artifact{
		StorageKey:   storedKey,
		RetrievalURL: url,
		UploadedAt:   p.now(),
		Size:         int64(len(artifact)),
	}
	if err := p.repo.Complete(ctx, doc.ID, meta, p.now()); err != nil {
		return fmt.Errorf("complete document: %w", err)
	}
	return nil
}

func (p *Pipeline) releaseLock(docID string) {
	rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.locker.Release(rctx, lockName, []string{docID}); err != nil {
		p.logger.Warn().Err(err).Str("document_id", docID).Msg("pipeline: lock release failed, ttl will expire it")
	}
}
