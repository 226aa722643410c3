package providers

import (
	"fmt"

	"github.com/caretforge/caretforge/internal/agent"
	"github.com/caretforge/caretforge/internal/config"
)

// FromConfig builds the provider adapter for one config entry.
func FromConfig(name string, cfg config.ProviderConfig) (agent.Provider, error) {
	switch cfg.Type {
	case config.TypeOpenAI:
		return NewAzureOpenAIProvider(AzureOpenAIConfig{
			Endpoint:     cfg.Endpoint,
			APIKey:       cfg.APIKey,
			APIVersion:   cfg.APIVersion,
			DefaultModel: cfg.Model,
		})

	case config.TypeAnthropic:
		return NewAnthropicProvider(AnthropicConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.Endpoint,
			DefaultModel: cfg.Model,
		})

	case config.TypeResponses:
		return NewResponsesProvider(ResponsesConfig{
			Endpoint:     cfg.Endpoint,
			APIKey:       cfg.APIKey,
			DefaultModel: cfg.Model,
		})

	case config.TypeAssistants:
		return NewAssistantsProvider(AssistantsConfig{
			Endpoint:    cfg.Endpoint,
			APIVersion:  cfg.APIVersion,
			AssistantID: cfg.AssistantID,
			APIKey:      cfg.APIKey,
			UseAzureCLI: cfg.AuthMode == config.AuthAzureCLI,
		})

	default:
		return nil, fmt.Errorf("provider %q: unknown type %q", name, cfg.Type)
	}
}
