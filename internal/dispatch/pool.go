// Package dispatch hands accepted documents to background runners. The
// in-process pool covers single-binary deployments; multi-process
// deployments rely on workers claiming documents straight from the store.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"server/internal/infra"
)

// Runner executes the generation stages for one document.
type Runner interface {
	Run(ctx context.Context, docID string) error
}

// Dispatcher enqueues a document for background generation.
type Dispatcher interface {
	Dispatch(ctx context.Context, docID string) error
}

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("dispatch: dispatcher closed")

// PoolDispatcher feeds document ids through a channel into a fixed pool of
// runner goroutines. Each run gets its own bounded context; a slow document
// never stalls the accept path beyond the queue buffer.
type PoolDispatcher struct {
	runner     Runner
	logger     infra.Logger
	jobs       chan string
	runTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPoolDispatcher starts workers goroutines draining the queue.
// runTimeout bounds a single document run end to end.
func NewPoolDispatcher(runner Runner, workers int, runTimeout time.Duration, logger infra.Logger) *PoolDispatcher {
	if workers < 1 {
		workers = 1
	}
	if runTimeout <= 0 {
		runTimeout = 10 * time.Minute
	}
	d := &PoolDispatcher{
		runner:     runner,
		logger:     logger,
		jobs:       make(chan string, workers*4),
		runTimeout: runTimeout,
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}
	return d
}

// Dispatch enqueues the document. It blocks only while the queue buffer is
// full and honors ctx cancellation while waiting.
func (d *PoolDispatcher) Dispatch(ctx context.Context, docID string) error {
	// The read lock spans the send so Close cannot close the channel under
	// an in-flight enqueue.
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.jobs <- docID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and waits for in-flight runs to finish.
func (d *PoolDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *PoolDispatcher) work() {
	defer d.wg.Done()
	for docID := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), d.runTimeout)
		if err := d.runner.Run(ctx, docID); err != nil {
			d.logger.Error().Err(err).Str("document_id", docID).Msg("dispatch: run failed")
		}
		cancel()
	}
}

var _ Dispatcher = (*PoolDispatcher)(nil)
