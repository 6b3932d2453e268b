package metrics

import "time"

// Session records the timings and the single terminal outcome of one
// document generation run. It is purely observational: no pipeline decision
// ever depends on it. A nil *Session is safe to use everywhere so tests can
// run the pipeline without wiring metrics.
type Session struct {
	m     *Metrics
	start time.Time
	done  bool
}

// NewSession opens a recording session for one document run. Collectors
// carry no per-document labels, so the session needs no identity.
func NewSession(m *Metrics) *Session {
	if m == nil {
		return nil
	}
	m.GenerationsInProgress.Inc()
	return &Session{m: m, start: time.Now()}
}

// StageTimer measures one stage. End must be called exactly once.
type StageTimer struct {
	m     *Metrics
	stage string
	start time.Time
}

// BeginStage starts timing the named stage.
func (s *Session) BeginStage(stage string) *StageTimer {
	if s == nil {
		return nil
	}
	return &StageTimer{m: s.m, stage: stage, start: time.Now()}
}

// End records the stage duration.
func (t *StageTimer) End() {
	if t == nil {
		return
	}
	t.m.StageDuration.WithLabelValues(t.stage).Observe(time.Since(t.start).Seconds())
}

// Success records the complete outcome. Later calls to Success or Failure
// are ignored; a run has exactly one terminal outcome.
func (s *Session) Success() {
	if s == nil || s.done {
		return
	}
	s.done = true
	s.m.StageDuration.WithLabelValues("total").Observe(time.Since(s.start).Seconds())
	s.m.GenerationsTotal.WithLabelValues("complete").Inc()
	s.m.GenerationsInProgress.Dec()
}

// Failure records the error outcome with its taxonomy code.
func (s *Session) Failure(errorCode string) {
	if s == nil || s.done {
		return
	}
	s.done = true
	s.m.StageDuration.WithLabelValues("total").Observe(time.Since(s.start).Seconds())
	s.m.GenerationFailures.WithLabelValues(errorCode).Inc()
	s.m.GenerationsTotal.WithLabelValues("error").Inc()
	s.m.GenerationsInProgress.Dec()
}

// ProduceAttempt records one rasterization attempt.
func (s *Session) ProduceAttempt(result string) {
	if s == nil {
		return
	}
	s.m.ProduceAttempts.WithLabelValues(result).Inc()
}

// ArtifactSize records the produced artifact size.
func (s *Session) ArtifactSize(bytes int) {
	if s == nil {
		return
	}
	s.m.ArtifactSizeBytes.Observe(float64(bytes))
}

// UploadFailure counts a storage upload failure.
func (s *Session) UploadFailure() {
	if s == nil {
		return
	}
	s.m.UploadFailures.Inc()
}

// Enhancement records one per-section enhancement attempt.
func (s *Session) Enhancement(section string, d time.Duration, ok bool) {
	if s == nil {
		return
	}
	s.m.EnhancementDuration.WithLabelValues(section).Observe(d.Seconds())
	if !ok {
		s.m.EnhancementFailures.WithLabelValues(section).Inc()
	}
}
