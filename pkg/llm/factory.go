package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// Provider names accepted by NewClientFromProvider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// NewClientFromProvider creates an LLM client for the named provider.
// Returns the Client interface to enable dependency injection of mocks.
func NewClientFromProvider(provider string, cfg *Config, logger *zap.Logger) (Client, error) {
	switch provider {
	case ProviderOpenAI, "":
		return NewOpenAIClient(cfg, logger)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
