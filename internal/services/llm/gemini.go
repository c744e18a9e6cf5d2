// Package llm provides text generation backed by Gemini or Claude, plus the retry
// and placeholder policy applied to every generation call.
package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/interfaces"
)

const providerGemini = "gemini"

// GeminiGenerator issues single generate calls through the genai SDK.
// With GenerateOptions.Search set the GoogleSearch tool is attached for grounding.
type GeminiGenerator struct {
	config *common.GeminiConfig
	logger arbor.ILogger

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiGenerator creates a generator; the client is created lazily on first use.
func NewGeminiGenerator(config *common.GeminiConfig, logger arbor.ILogger) *GeminiGenerator {
	return &GeminiGenerator{
		config: config,
		logger: logger,
	}
}

func (g *GeminiGenerator) Provider() string {
	return providerGemini
}

func (g *GeminiGenerator) getClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}
	if g.config.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	g.client = client
	return client, nil
}

// Generate performs one request. It returns ("", nil) when the response carries no text.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, common.Duration(g.config.Timeout, 3*time.Minute))
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.config.Temperature),
		MaxOutputTokens: int32(g.config.MaxOutputTokens),
	}
	if opts.Search {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(
		ctx,
		g.config.Model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		config,
	)
	if err != nil {
		return "", fmt.Errorf("Gemini API call failed: %w", err)
	}

	text := ""
	if resp != nil && len(resp.Candidates) > 0 {
		text = resp.Text()
	}

	g.logger.Debug().
		Str("model", g.config.Model).
		Bool("search", opts.Search).
		Int("chars", len(text)).
		Dur("duration", time.Since(start)).
		Msg("Gemini generation completed")

	return text, nil
}
