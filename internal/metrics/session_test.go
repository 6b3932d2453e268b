package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSessionTerminalOutcomeOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	s := NewSession(m)
	s.Success()
	s.Success()
	s.Failure("upload_error")

	if got := testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("complete")); got != 1 {
		t.Fatalf("complete total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("error")); got != 0 {
		t.Fatalf("error total = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.GenerationsInProgress); got != 0 {
		t.Fatalf("in progress = %v, want 0", got)
	}
}

func TestSessionFailureRecordsCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	s := NewSession(m)
	s.Failure("produce_error")

	if got := testutil.ToFloat64(m.GenerationFailures.WithLabelValues("produce_error")); got != 1 {
		t.Fatalf("failure counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("error")); got != 1 {
		t.Fatalf("error total = %v, want 1", got)
	}
}

func TestNilSessionIsSafe(t *testing.T) {
	var s *Session
	timer := s.BeginStage("render")
	timer.End()
	s.Success()
	s.Failure("unknown")
	s.ProduceAttempt("success")
	s.ArtifactSize(100)
	s.UploadFailure()
	s.Enhancement("summary", time.Millisecond, false)
}

func TestStageTimerObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	s := NewSession(m)
	s.BeginStage("render").End()
	s.Success()

	count := testutil.CollectAndCount(m.StageDuration)
	// render + total series.
	if count != 2 {
		t.Fatalf("stage duration series = %d, want 2", count)
	}
}
