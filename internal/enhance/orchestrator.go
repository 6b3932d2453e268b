package enhance

import (
	"context"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/metrics"
)

// Orchestrator applies the per-section enhancement toggles to a draft
// snapshot. Every per-field failure is recovered locally by keeping the
// original value; a single field's failure never aborts the document.
type Orchestrator struct {
	enhancer TextEnhancer
	logger   infra.Logger
}

// NewOrchestrator builds an orchestrator around the given enhancer. Pass a
// NoopEnhancer when no text-generation collaborator is configured.
func NewOrchestrator(enhancer TextEnhancer, logger infra.Logger) *Orchestrator {
	return &Orchestrator{enhancer: enhancer, logger: logger}
}

// Apply returns an enhanced deep copy of snapshot. The input is never
// mutated; the result holds the same structural entries in the same order,
// with only text fields rewritten. When the enhancer is unavailable the
// copy is returned untouched.
func (o *Orchestrator) Apply(ctx context.Context, snapshot *domain.Draft, sess *metrics.Session) *domain.Draft {
	enhanced := snapshot.Clone()
	opts := snapshot.Enhancement
	if !opts.Enabled() {
		return enhanced
	}
	if !o.enhancer.Available() {
		o.logger.Warn().Msg("enhance: text enhancer unavailable, keeping original content")
		return enhanced
	}

	base := FieldContext{
		JobDescription:     snapshot.JobDescription,
		CustomInstructions: opts.CustomInstructions,
	}

	if opts.EnhanceSummary && enhanced.Profile.Summary != "" {
		fc := base
		fc.Section = "summary"
		start := time.Now()
		out, err := o.enhancer.Rewrite(ctx, enhanced.Profile.Summary, fc)
		sess.Enhancement("summary", time.Since(start), err == nil)
		if err != nil {
			o.logger.Error().Err(err).Msg("enhance: summary rewrite failed, keeping original")
		} else {
			enhanced.Profile.Summary = out
		}
	}

	if opts.EnhanceExperience {
		for i := range enhanced.Experience {
			exp := &enhanced.Experience[i]
			if len(exp.Achievements) == 0 {
				continue
			}
			fc := base
			fc.Section = "experience"
			fc.Position = exp.Position
			fc.Company = exp.Company
			start := time.Now()
			out, err := o.enhancer.RewriteList(ctx, exp.Achievements, fc)
			ok := err == nil && len(out) == len(exp.Achievements)
			sess.Enhancement("experience", time.Since(start), ok)
			if !ok {
				o.logger.Error().Err(err).Int("entry", i).Msg("enhance: achievements rewrite failed, keeping original")
				continue
			}
			exp.Achievements = out
		}
	}

	if opts.EnhanceProjects {
		for i := range enhanced.Projects {
			proj := &enhanced.Projects[i]
			if proj.Description == "" {
				continue
			}
			fc := base
			fc.Section = "projects"
			fc.ProjectName = proj.Name
			fc.Technologies = proj.Technologies
			start := time.Now()
			out, err := o.enhancer.Rewrite(ctx, proj.Description, fc)
			sess.Enhancement("projects", time.Since(start), err == nil)
			if err != nil {
				o.logger.Error().Err(err).Int("entry", i).Msg("enhance: project rewrite failed, keeping original")
				continue
			}
			proj.Description = out
		}
	}

	return enhanced
}
