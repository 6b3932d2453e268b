package enhance

import (
	"context"
	"fmt"
	"strings"

	"server/internal/providers/textgen"
)

const (
	summaryMaxTokens = 300
	bulletsMaxTokens = 500
)

// GeminiEnhancer rewrites text through the textgen client.
type GeminiEnhancer struct {
	client *textgen.Client
}

// NewGeminiEnhancer wraps an already constructed textgen client.
func NewGeminiEnhancer(client *textgen.Client) *GeminiEnhancer {
	return &GeminiEnhancer{client: client}
}

// Available reports whether the remote model is configured.
func (e *GeminiEnhancer) Available() bool {
	return e.client != nil && e.client.Configured()
}

// Rewrite enhances a single text field.
func (e *GeminiEnhancer) Rewrite(ctx context.Context, text string, fc FieldContext) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	prompt := buildTextPrompt(text, fc)
	out, err := e.client.Complete(ctx, prompt, summaryMaxTokens)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("enhance: empty completion")
	}
	return out, nil
}

// RewriteList enhances a bullet list, preserving its length exactly. Surplus
// bullets from the model are truncated; a deficit is an error so the caller
// keeps the original list.
func (e *GeminiEnhancer) RewriteList(ctx context.Context, items []string, fc FieldContext) ([]string, error) {
	if len(items) == 0 {
		return items, nil
	}
	prompt := buildListPrompt(items, fc)
	out, err := e.client.Complete(ctx, prompt, bulletsMaxTokens)
	if err != nil {
		return nil, err
	}
	bullets := parseBullets(out)
	if len(bullets) < len(items) {
		return nil, fmt.Errorf("enhance: expected %d bullets, got %d", len(items), len(bullets))
	}
	return bullets[:len(items)], nil
}

func buildTextPrompt(original string, fc FieldContext) string {
	var b strings.Builder
	switch fc.Section {
	case "projects":
		b.WriteString("You are a professional resume writer. Enhance the following project description to highlight impact and technical depth.\n\n")
		if fc.ProjectName != "" {
			fmt.Fprintf(&b, "Project Name: %s\n", fc.ProjectName)
		}
		if len(fc.Technologies) > 0 {
			fmt.Fprintf(&b, "Technologies: %s\n", strings.Join(fc.Technologies, ", "))
		}
		b.WriteString("\nOriginal Description:\n")
	default:
		b.WriteString("You are a professional resume writer. Enhance the following professional summary to make it more impactful.\n\nOriginal Summary:\n")
	}
	b.WriteString(original)
	b.WriteString("\n")

	appendTailoring(&b, fc)
	b.WriteString("\nRequirements:\n- Keep a similar length (2-4 sentences)\n- Use action verbs and quantifiable achievements\n- Only enhance the text, do not add new claims\n\nEnhanced text:")
	return b.String()
}

func buildListPrompt(items []string, fc FieldContext) string {
	var b strings.Builder
	b.WriteString("You are a professional resume writer. Enhance the following achievement bullets for a resume.\n\n")
	if fc.Position != "" {
		fmt.Fprintf(&b, "Position: %s\n", fc.Position)
	}
	if fc.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n", fc.Company)
	}
	b.WriteString("\nOriginal Achievements:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item)
	}

	appendTailoring(&b, fc)
	fmt.Fprintf(&b, "\nRequirements:\n- Return EXACTLY %d bullet points\n- Use strong action verbs\n- Keep each bullet concise\n- Only enhance existing achievements, do not invent new ones\n\nEnhanced achievements (one per line, starting with '-'):", len(items))
	return b.String()
}

func appendTailoring(b *strings.Builder, fc FieldContext) {
	if jd := strings.TrimSpace(fc.JobDescription); jd != "" {
		if len(jd) > 500 {
			jd = jd[:500]
		}
		fmt.Fprintf(b, "\nTarget Job Description:\n%s\nTailor the text to align with this job description.\n", jd)
	}
	if ci := strings.TrimSpace(fc.CustomInstructions); ci != "" {
		fmt.Fprintf(b, "\nAdditional Instructions:\n%s\n", ci)
	}
}

// parseBullets extracts bullet lines from a model completion, stripping
// common list prefixes.
func parseBullets(text string) []string {
	var bullets []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, prefix := range []string{"- ", "• ", "* ", "→ ", "> "} {
			if strings.HasPrefix(line, prefix) {
				line = strings.TrimSpace(strings.TrimPrefix(line, prefix))
				break
			}
		}
		if line != "" {
			bullets = append(bullets, line)
		}
	}
	return bullets
}

var _ TextEnhancer = (*GeminiEnhancer)(nil)
