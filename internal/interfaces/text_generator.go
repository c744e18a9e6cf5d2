package interfaces

import (
	"context"
)

// GenerateOptions controls a single generation request
type GenerateOptions struct {
	// Search enables provider-side web search grounding
	Search bool
}

// TextGenerator issues generation requests.
// An empty string with a nil error means the provider completed without usable text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	Provider() string
}

// Generation is the outcome of a report request after retries.
// Degraded is set when Text is a stand-in for a failed or empty generation.
type Generation struct {
	Text     string
	Degraded bool
}

// ReportGenerator produces section reports. It never fails outright: exhausted
// retries come back as a degraded Generation.
type ReportGenerator interface {
	GenerateReport(ctx context.Context, prompt string, opts GenerateOptions) Generation
	Provider() string
}
