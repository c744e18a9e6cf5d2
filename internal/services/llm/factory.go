package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/interfaces"
)

// NewGenerator creates the configured provider wrapped in the retry policy from [llm]
func NewGenerator(config *common.Config, logger arbor.ILogger) (*RetryingGenerator, error) {
	var generator interfaces.TextGenerator

	switch config.LLM.Provider {
	case common.LLMProviderGemini, "":
		generator = NewGeminiGenerator(&config.Gemini, logger)
		if config.Gemini.APIKey == "" {
			logger.Warn().Msg("Gemini API key not set, generation calls will return placeholder text")
		}
	case common.LLMProviderClaude:
		claude, err := NewClaudeGenerator(&config.Claude, logger)
		if err != nil {
			return nil, err
		}
		generator = claude
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.LLM.Provider)
	}

	policy := RetryPolicy{
		MaxRetries: config.LLM.MaxRetries,
		Delay:      common.Duration(config.LLM.RetryDelay, DefaultRetryDelay),
	}

	logger.Info().
		Str("provider", generator.Provider()).
		Int("max_retries", policy.MaxRetries).
		Dur("retry_delay", policy.Delay).
		Msg("Text generator initialized")

	return NewRetryingGenerator(generator, policy, logger), nil
}
