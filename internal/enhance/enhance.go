// Package enhance asks a text model to rewrite prompt templates.
package enhance

import (
	"context"
	"fmt"
	"strings"

	"github.com/celestiaorg/vidbatch/internal/errs"
)

// Generator produces text for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Suggester rewrites {{field}} templates into richer video prompts
type Suggester struct {
	gen Generator
}

// NewSuggester creates a Suggester on top of a text generator
func NewSuggester(gen Generator) *Suggester {
	return &Suggester{gen: gen}
}

// Suggest returns an improved template that keeps the {{field}} placeholders
func (s *Suggester) Suggest(ctx context.Context, template string, fields []string) (string, error) {
	return s.SuggestWithContext(ctx, template, fields, "")
}

// SuggestWithContext is Suggest with extra guidance for the model
func (s *Suggester) SuggestWithContext(ctx context.Context, template string, fields []string, extra string) (string, error) {
	if strings.TrimSpace(template) == "" {
		return "", errs.Validation("template is required")
	}
	if len(fields) == 0 {
		return "", errs.Validation("fields are required")
	}

	out, err := s.gen.Generate(ctx, buildInstruction(template, fields, extra))
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", &errs.ExternalAPIError{Message: "text model returned an empty suggestion", Transient: true}
	}
	return out, nil
}

func buildInstruction(template string, fields []string, extra string) string {
	placeholders := make([]string, len(fields))
	for i, f := range fields {
		placeholders[i] = "{{" + f + "}}"
	}

	var b strings.Builder
	b.WriteString("You are an expert at writing prompts for video generation.\n\n")
	fmt.Fprintf(&b, "Current prompt template:\n%s\n\n", template)
	fmt.Fprintf(&b, "Available data fields: %s\n", strings.Join(placeholders, ", "))
	if extra = strings.TrimSpace(extra); extra != "" {
		fmt.Fprintf(&b, "Additional context: %s\n", extra)
	}
	b.WriteString("\nImprove the template so that it:\n")
	b.WriteString("1. Uses every data field naturally\n")
	b.WriteString("2. Describes the video in clear, concrete detail\n")
	b.WriteString("3. Keeps the {{field}} placeholders exactly as written\n")
	b.WriteString("\nReturn only the improved template, without explanations or comments.")
	return b.String()
}
