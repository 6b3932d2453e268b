package dispatch

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingRunner struct {
	mu   sync.Mutex
	runs []string
	slow time.Duration
	done chan struct{}
}

func newRecordingRunner(expect int) *recordingRunner {
	return &recordingRunner{done: make(chan struct{}, expect)}
}

func (r *recordingRunner) Run(_ context.Context, docID string) error {
	if r.slow > 0 {
		time.Sleep(r.slow)
	}
	r.mu.Lock()
	r.runs = append(r.runs, docID)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *recordingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func waitFor(t *testing.T, done chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for run %d of %d", i+1, n)
		}
	}
}

func TestDispatchRunsDocument(t *testing.T) {
	runner := newRecordingRunner(1)
	d := NewPoolDispatcher(runner, 2, time.Minute, zerolog.New(io.Discard))
	defer d.Close()

	if err := d.Dispatch(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	waitFor(t, runner.done, 1)

	if runner.count() != 1 {
		t.Fatalf("runs = %d, want 1", runner.count())
	}
}

func TestCloseDrainsQueuedWork(t *testing.T) {
	const jobs = 8
	runner := newRecordingRunner(jobs)
	runner.slow = 10 * time.Millisecond
	d := NewPoolDispatcher(runner, 2, time.Minute, zerolog.New(io.Discard))

	for i := 0; i < jobs; i++ {
		if err := d.Dispatch(context.Background(), "doc"); err != nil {
			t.Fatalf("Dispatch() %d error: %v", i, err)
		}
	}
	d.Close()

	if runner.count() != jobs {
		t.Fatalf("runs after Close = %d, want %d", runner.count(), jobs)
	}
}

func TestDispatchAfterCloseFails(t *testing.T) {
	runner := newRecordingRunner(1)
	d := NewPoolDispatcher(runner, 1, time.Minute, zerolog.New(io.Discard))
	d.Close()

	if err := d.Dispatch(context.Background(), "doc-1"); err != ErrClosed {
		t.Fatalf("Dispatch() after Close error = %v, want ErrClosed", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	d := NewPoolDispatcher(newRecordingRunner(1), 1, time.Minute, zerolog.New(io.Discard))
	d.Close()
	d.Close()
}

func TestDispatchHonorsContextWhenQueueFull(t *testing.T) {
	runner := newRecordingRunner(64)
	runner.slow = time.Second
	d := NewPoolDispatcher(runner, 1, time.Minute, zerolog.New(io.Discard))
	defer d.Close()

	// Fill the single worker plus the queue buffer.
	deadline := time.Now().Add(2 * time.Second)
	filled := false
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		err := d.Dispatch(ctx, "doc")
		cancel()
		if err != nil {
			filled = true
			break
		}
	}
	if !filled {
		t.Fatal("queue never filled; Dispatch should eventually block and time out")
	}
}
