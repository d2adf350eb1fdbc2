package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/config"
)

// NewProvider constructs the provider selected by the AI configuration.
func NewProvider(cfg *config.AIConfig, logger *zap.Logger) (Provider, error) {
	pc := &ProviderConfig{
		Endpoint: cfg.BaseURL,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIProvider(pc, logger)
	case config.ProviderAnthropic:
		return NewAnthropicProvider(pc, logger)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
