package enhance

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

type fakeEnhancer struct {
	available  bool
	rewriteErr error
	listOut    []string
	listErr    error
	prefix     string
}

func (f *fakeEnhancer) Rewrite(_ context.Context, text string, _ FieldContext) (string, error) {
	if f.rewriteErr != nil {
		return "", f.rewriteErr
	}
	return f.prefix + text, nil
}

func (f *fakeEnhancer) RewriteList(_ context.Context, items []string, _ FieldContext) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.listOut != nil {
		return f.listOut, nil
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = f.prefix + item
	}
	return out, nil
}

func (f *fakeEnhancer) Available() bool { return f.available }

func testDraft() *domain.Draft {
	return &domain.Draft{
		Profile: domain.Profile{
			FullName: "Ada Lovelace",
			Summary:  "Engineer with systems background.",
		},
		Experience: []domain.ExperienceEntry{{
			Company:      "Analytical Engines",
			Position:     "Lead Engineer",
			Achievements: []string{"Built the first compiler", "Cut compute cost by half"},
		}},
		Projects: []domain.ProjectEntry{{
			Name:        "difference-engine",
			Description: "Mechanical computation prototype.",
		}},
		Enhancement: domain.EnhancementOptions{
			EnhanceSummary:    true,
			EnhanceExperience: true,
			EnhanceProjects:   true,
		},
	}
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestApplyUnavailableKeepsOriginal(t *testing.T) {
	draft := testDraft()
	o := NewOrchestrator(&fakeEnhancer{available: false, prefix: "X "}, testLogger())

	enhanced := o.Apply(context.Background(), draft, nil)

	if !reflect.DeepEqual(enhanced, draft) {
		t.Fatalf("Apply() with unavailable enhancer changed the draft:\n got %+v\nwant %+v", enhanced, draft)
	}
}

func TestApplyDisabledTogglesSkipAll(t *testing.T) {
	draft := testDraft()
	draft.Enhancement = domain.EnhancementOptions{}
	o := NewOrchestrator(&fakeEnhancer{available: true, prefix: "X "}, testLogger())

	enhanced := o.Apply(context.Background(), draft, nil)

	if enhanced.Profile.Summary != draft.Profile.Summary {
		t.Fatalf("summary changed with all toggles off: %q", enhanced.Profile.Summary)
	}
}

func TestApplyRewritesToggledSections(t *testing.T) {
	draft := testDraft()
	o := NewOrchestrator(&fakeEnhancer{available: true, prefix: "Improved: "}, testLogger())

	enhanced := o.Apply(context.Background(), draft, nil)

	if !strings.HasPrefix(enhanced.Profile.Summary, "Improved: ") {
		t.Fatalf("summary not rewritten: %q", enhanced.Profile.Summary)
	}
	if !strings.HasPrefix(enhanced.Experience[0].Achievements[0], "Improved: ") {
		t.Fatalf("achievement not rewritten: %q", enhanced.Experience[0].Achievements[0])
	}
	if !strings.HasPrefix(enhanced.Projects[0].Description, "Improved: ") {
		t.Fatalf("project description not rewritten: %q", enhanced.Projects[0].Description)
	}

	// Input snapshot must never be mutated.
	if strings.HasPrefix(draft.Profile.Summary, "Improved: ") {
		t.Fatal("Apply() mutated the input snapshot")
	}
}

func TestApplyFieldFailureFallsBack(t *testing.T) {
	draft := testDraft()
	o := NewOrchestrator(&fakeEnhancer{
		available:  true,
		rewriteErr: errors.New("model timeout"),
		listOut:    []string{"only one bullet"},
	}, testLogger())

	enhanced := o.Apply(context.Background(), draft, nil)

	if enhanced.Profile.Summary != draft.Profile.Summary {
		t.Fatalf("summary = %q, want original on failure", enhanced.Profile.Summary)
	}
	if !reflect.DeepEqual(enhanced.Experience[0].Achievements, draft.Experience[0].Achievements) {
		t.Fatalf("achievements = %v, want original on wrong count", enhanced.Experience[0].Achievements)
	}
	if enhanced.Projects[0].Description != draft.Projects[0].Description {
		t.Fatalf("project description = %q, want original on failure", enhanced.Projects[0].Description)
	}
}

func TestApplyPreservesListLength(t *testing.T) {
	tests := []struct {
		name    string
		listOut []string
		want    []string
	}{
		{
			name:    "exact count",
			listOut: []string{"a", "b"},
			want:    []string{"a", "b"},
		},
		{
			name:    "deficit falls back",
			listOut: []string{"a"},
			want:    []string{"Built the first compiler", "Cut compute cost by half"},
		},
		{
			name:    "surplus falls back",
			listOut: []string{"a", "b", "c"},
			want:    []string{"Built the first compiler", "Cut compute cost by half"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			draft := testDraft()
			o := NewOrchestrator(&fakeEnhancer{available: true, listOut: tc.listOut}, testLogger())
			enhanced := o.Apply(context.Background(), draft, nil)
			got := enhanced.Experience[0].Achievements
			if len(got) != 2 {
				t.Fatalf("achievement count = %d, want 2", len(got))
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("achievements = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseBullets(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "dash prefixes",
			in:   "- first\n- second\n",
			want: []string{"first", "second"},
		},
		{
			name: "mixed prefixes and blanks",
			in:   "• one\n\n* two\n> three",
			want: []string{"one", "two", "three"},
		},
		{
			name: "plain lines",
			in:   "alpha\nbeta",
			want: []string{"alpha", "beta"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseBullets(tc.in); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("parseBullets() = %v, want %v", got, tc.want)
			}
		})
	}
}
