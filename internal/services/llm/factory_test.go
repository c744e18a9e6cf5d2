package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/interfaces"
)

func TestNewGenerator_Gemini(t *testing.T) {
	config := common.NewDefaultConfig()
	config.LLM.MaxRetries = 1
	config.LLM.RetryDelay = "250ms"

	generator, err := NewGenerator(config, arbor.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, "gemini", generator.Provider())
	assert.Equal(t, 1, generator.policy.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, generator.policy.Delay)
}

func TestNewGenerator_Claude(t *testing.T) {
	config := common.NewDefaultConfig()
	config.LLM.Provider = common.LLMProviderClaude

	_, err := NewGenerator(config, arbor.NewLogger())
	assert.Error(t, err, "missing API key")

	config.Claude.APIKey = "sk-test"
	generator, err := NewGenerator(config, arbor.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, "claude", generator.Provider())
}

func TestNewGenerator_Unknown(t *testing.T) {
	config := common.NewDefaultConfig()
	config.LLM.Provider = "openai"

	_, err := NewGenerator(config, arbor.NewLogger())
	assert.Error(t, err)
}

func TestGeminiGenerator_RequiresAPIKey(t *testing.T) {
	generator := NewGeminiGenerator(&common.GeminiConfig{Model: "gemini-3-flash-preview"}, arbor.NewLogger())

	_, err := generator.Generate(context.Background(), "prompt", interfaces.GenerateOptions{})
	assert.Error(t, err)
}
