package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/equitylens/internal/interfaces"
)

// PlaceholderPrefix starts every placeholder text. Report callers get the degraded
// flag from GenerateReport; only plain-text callers such as the localized-name
// lookup fall back to IsPlaceholder.
const PlaceholderPrefix = "⚠️ "

// Placeholder texts returned instead of errors
const (
	EmptyResponseText = PlaceholderPrefix + "API 回覆為空或被安全過濾。"
	RequestFailedText = PlaceholderPrefix + "API 請求失敗。"
)

// Default retry constants for generation calls
const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = 5 * time.Second
)

// RetryPolicy is a bounded retry with a fixed delay between attempts.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int

	// Delay is the fixed wait between attempts
	Delay time.Duration
}

// NewDefaultRetryPolicy returns 2 retries (3 attempts) with a 5s delay.
func NewDefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		Delay:      DefaultRetryDelay,
	}
}

// IsPlaceholder reports whether text looks like placeholder output. Model text may
// start with the same emoji, so prefer Generation.Degraded where it is available.
func IsPlaceholder(text string) bool {
	return strings.HasPrefix(text, strings.TrimSpace(PlaceholderPrefix))
}

// ErrorText builds the placeholder for a generation that exhausted its retries.
func ErrorText(err error) string {
	if err == nil {
		return RequestFailedText
	}
	return PlaceholderPrefix + "API 錯誤: " + err.Error()
}

// IsRateLimitError checks if an error is a provider rate limit error.
// Matches 429 status codes and RESOURCE_EXHAUSTED errors.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(strings.ToLower(errStr), "rate limit")
}

var apiKeyPattern = regexp.MustCompile(`(?i)(key=)[A-Za-z0-9_\-]+`)

// RetryingGenerator applies the retry policy to a TextGenerator and never returns an error:
// failures become degraded placeholder text.
type RetryingGenerator struct {
	generator interfaces.TextGenerator
	policy    RetryPolicy
	logger    arbor.ILogger
}

// NewRetryingGenerator wraps generator with policy
func NewRetryingGenerator(generator interfaces.TextGenerator, policy RetryPolicy, logger arbor.ILogger) *RetryingGenerator {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	return &RetryingGenerator{
		generator: generator,
		policy:    policy,
		logger:    logger,
	}
}

// Provider reports the wrapped provider
func (g *RetryingGenerator) Provider() string {
	return g.generator.Provider()
}

// Generate returns the text of GenerateReport. The error is always nil.
func (g *RetryingGenerator) Generate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	return g.GenerateReport(ctx, prompt, opts).Text, nil
}

// GenerateReport returns generated text, EmptyResponseText for a completed call without
// text, or ErrorText after the last failed attempt. The last two are marked Degraded.
func (g *RetryingGenerator) GenerateReport(ctx context.Context, prompt string, opts interfaces.GenerateOptions) interfaces.Generation {
	var lastErr error

	for attempt := 0; attempt <= g.policy.MaxRetries; attempt++ {
		text, err := g.generator.Generate(ctx, prompt, opts)
		if err == nil {
			if strings.TrimSpace(text) == "" {
				g.logger.Warn().
					Str("provider", g.generator.Provider()).
					Bool("search", opts.Search).
					Msg("Generation returned no text")
				return interfaces.Generation{Text: EmptyResponseText, Degraded: true}
			}
			return interfaces.Generation{Text: text}
		}

		lastErr = err
		if attempt == g.policy.MaxRetries {
			break
		}

		g.logger.Warn().
			Int("attempt", attempt+1).
			Int("max_attempts", g.policy.MaxRetries+1).
			Dur("backoff", g.policy.Delay).
			Bool("rate_limited", IsRateLimitError(err)).
			Err(err).
			Msg("Retrying generation call")

		select {
		case <-ctx.Done():
			return g.failed(fmt.Errorf("%w (after %d attempts)", ctx.Err(), attempt+1))
		case <-time.After(g.policy.Delay):
		}
	}

	return g.failed(lastErr)
}

func (g *RetryingGenerator) failed(err error) interfaces.Generation {
	g.logger.Error().
		Str("provider", g.generator.Provider()).
		Int("attempts", g.policy.MaxRetries+1).
		Err(err).
		Msg("Generation failed, returning placeholder")
	return interfaces.Generation{Text: ErrorText(redact(err)), Degraded: true}
}

type redactedError struct{ msg string }

func (e redactedError) Error() string { return e.msg }

// redact strips API keys that some transports echo back in error messages
func redact(err error) error {
	if err == nil {
		return nil
	}
	return redactedError{msg: apiKeyPattern.ReplaceAllString(err.Error(), "${1}***")}
}
