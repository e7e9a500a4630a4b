// Package llm provides the inference boundary of the triage engine: a thin
// client over OpenAI-compatible or Anthropic endpoints, response parsing,
// and a deterministic rule-based fallback. Callers never observe an error
// from this boundary; every operation degrades to the fallback.
package llm

import (
	"context"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
)

// Client defines the raw completion interface over a remote model.
// Use this interface for dependency injection to enable mocking in tests.
type Client interface {
	// Complete generates a completion for the prompt.
	Complete(ctx context.Context, systemMessage, prompt string) (string, error)

	// Model returns the configured model name.
	Model() string
}

// Service is the incident-analysis contract the rest of the engine
// consumes. Implementations must be total: on timeout, transport failure or
// unparseable output they return the deterministic fallback result, never
// an error.
type Service interface {
	// Analyze classifies an incident description, using training cases as
	// few-shot examples and knowledge entries as grounding context.
	Analyze(ctx context.Context, description string, training []*models.TrainingCase, knowledge []*models.KnowledgeEntry) *models.IncidentAnalysis

	// Validate reports whether the text looks like a genuine incident
	// report rather than noise. Defaults to true when the remote call fails.
	Validate(ctx context.Context, description string) bool

	// DescribeImage produces a text description of an attached screenshot.
	DescribeImage(ctx context.Context, image []byte) string
}
