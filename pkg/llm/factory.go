package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// Providers understood by NewClient.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// NewClient creates the configured inference client. Returns an error for
// unknown providers; callers that want a fallback-only service pass a nil
// client to NewService instead.
func NewClient(provider string, cfg *ClientConfig, logger *zap.Logger) (Client, error) {
	switch provider {
	case ProviderOpenAI, "":
		return NewOpenAIClient(cfg, logger)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown inference provider %q", provider)
	}
}
