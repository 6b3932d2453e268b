// Package enhance implements the optional AI text-rewriting stage. The
// enhancer only rewrites existing text; it never creates or removes
// structural entries, and every failure falls back to the original content.
package enhance

import "context"

// FieldContext carries the surrounding draft information a rewrite prompt
// can use for tailoring.
type FieldContext struct {
	Section            string
	Position           string
	Company            string
	ProjectName        string
	Technologies       []string
	JobDescription     string
	CustomInstructions string
}

// TextEnhancer is the capability-checked collaborator for text rewriting.
// Implementations must be safe to call even when Available reports false;
// callers hold one reference and never nil-check.
type TextEnhancer interface {
	// Rewrite returns an improved version of text, or an error. Callers fall
	// back to the original on any error.
	Rewrite(ctx context.Context, text string, fc FieldContext) (string, error)
	// RewriteList rewrites a list of bullets. The result must have exactly
	// len(items) entries; implementations truncate surplus output and fail
	// on deficit rather than synthesizing entries.
	RewriteList(ctx context.Context, items []string, fc FieldContext) ([]string, error)
	// Available reports whether the underlying text-generation collaborator
	// is configured and reachable.
	Available() bool
}

// NoopEnhancer is the always-safe stand-in used when no text-generation
// collaborator is configured. It reports unavailable and echoes input.
type NoopEnhancer struct{}

func (NoopEnhancer) Rewrite(_ context.Context, text string, _ FieldContext) (string, error) {
	return text, nil
}

func (NoopEnhancer) RewriteList(_ context.Context, items []string, _ FieldContext) ([]string, error) {
	return items, nil
}

func (NoopEnhancer) Available() bool { return false }

var _ TextEnhancer = NoopEnhancer{}
