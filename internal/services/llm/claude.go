package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/interfaces"
)

const providerClaude = "claude"

// ClaudeGenerator issues single message calls through the Anthropic SDK.
// Search grounding is not available; requests asking for it run without it.
type ClaudeGenerator struct {
	config *common.ClaudeConfig
	client anthropic.Client
	logger arbor.ILogger
}

// NewClaudeGenerator creates a generator for the configured model
func NewClaudeGenerator(config *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeGenerator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("claude api key is not configured")
	}
	return &ClaudeGenerator{
		config: config,
		client: anthropic.NewClient(option.WithAPIKey(config.APIKey)),
		logger: logger,
	}, nil
}

func (g *ClaudeGenerator) Provider() string {
	return providerClaude
}

// Generate performs one request. It returns ("", nil) when the response carries no text.
func (g *ClaudeGenerator) Generate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	if opts.Search {
		g.logger.Debug().Str("model", g.config.Model).Msg("Search grounding not supported by Claude provider, continuing without")
	}

	ctx, cancel := context.WithTimeout(ctx, common.Duration(g.config.Timeout, 3*time.Minute))
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.config.Model),
		MaxTokens: int64(g.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if g.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(g.config.Temperature))
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return text.String(), nil
}
