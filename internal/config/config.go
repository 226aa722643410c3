// Package config loads, validates, and renders CaretForge configuration.
package config

import (
	"fmt"
	"sort"
	"strings"
)

// Provider types understood by the provider registry.
const (
	TypeOpenAI     = "openai"
	TypeAnthropic  = "anthropic"
	TypeResponses  = "responses"
	TypeAssistants = "assistants"
)

// Auth modes for providers that support more than one credential source.
const (
	AuthAPIKey   = "api-key"
	AuthAzureCLI = "azure-cli"
)

// Config is the root configuration object.
type Config struct {
	DefaultProvider string                    `json:"defaultProvider"`
	Providers       map[string]ProviderConfig `json:"providers"`
	Telemetry       bool                      `json:"telemetry,omitempty"`
}

// ProviderConfig describes one named provider entry.
type ProviderConfig struct {
	Type        string `json:"type" jsonschema:"enum=openai,enum=anthropic,enum=responses,enum=assistants"`
	Endpoint    string `json:"endpoint,omitempty"`
	APIKey      string `json:"apiKey,omitempty"`
	APIVersion  string `json:"apiVersion,omitempty"`
	Model       string `json:"model,omitempty"`
	AssistantID string `json:"assistantId,omitempty"`
	AuthMode    string `json:"authMode,omitempty" jsonschema:"enum=api-key,enum=azure-cli"`
}

var validTypes = map[string]bool{
	TypeOpenAI:     true,
	TypeAnthropic:  true,
	TypeResponses:  true,
	TypeAssistants: true,
}

// Validate checks semantic constraints the JSON schema cannot express.
func (c *Config) Validate() error {
	var issues []string

	if len(c.Providers) == 0 {
		issues = append(issues, "providers: at least one provider is required")
	}
	if c.DefaultProvider != "" {
		if _, ok := c.Providers[c.DefaultProvider]; !ok {
			issues = append(issues, fmt.Sprintf("defaultProvider: %q is not a configured provider", c.DefaultProvider))
		}
	}

	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := c.Providers[name]
		if !validTypes[p.Type] {
			issues = append(issues, fmt.Sprintf("providers.%s.type: unknown type %q", name, p.Type))
			continue
		}
		if p.AuthMode != "" && p.AuthMode != AuthAPIKey && p.AuthMode != AuthAzureCLI {
			issues = append(issues, fmt.Sprintf("providers.%s.authMode: unknown mode %q", name, p.AuthMode))
		}
		switch p.Type {
		case TypeOpenAI, TypeResponses:
			if p.Endpoint == "" {
				issues = append(issues, fmt.Sprintf("providers.%s.endpoint: required for type %s", name, p.Type))
			}
		case TypeAssistants:
			if p.Endpoint == "" {
				issues = append(issues, fmt.Sprintf("providers.%s.endpoint: required for type %s", name, p.Type))
			}
			if p.AssistantID == "" {
				issues = append(issues, fmt.Sprintf("providers.%s.assistantId: required for type %s", name, p.Type))
			}
		case TypeAnthropic:
			if p.APIKey == "" {
				issues = append(issues, fmt.Sprintf("providers.%s.apiKey: required for type %s", name, p.Type))
			}
		}
		if p.APIKey == "" && p.AuthMode != AuthAzureCLI && p.Type != TypeAnthropic {
			issues = append(issues, fmt.Sprintf("providers.%s: apiKey or authMode azure-cli is required", name))
		}
	}

	if len(issues) > 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(issues, "\n  "))
	}
	return nil
}

// ResolveProvider returns the named provider entry, or the default one when
// name is empty.
func (c *Config) ResolveProvider(name string) (string, ProviderConfig, error) {
	if name == "" {
		name = c.DefaultProvider
	}
	if name == "" {
		if len(c.Providers) == 1 {
			for n, p := range c.Providers {
				return n, p, nil
			}
		}
		return "", ProviderConfig{}, fmt.Errorf("no provider selected and no defaultProvider configured")
	}
	p, ok := c.Providers[name]
	if !ok {
		return "", ProviderConfig{}, fmt.Errorf("provider %q is not configured", name)
	}
	return name, p, nil
}

// Default returns the starter configuration written by `config init`.
func Default() *Config {
	return &Config{
		DefaultProvider: "openai",
		Providers: map[string]ProviderConfig{
			"openai": {
				Type:       TypeOpenAI,
				Endpoint:   "https://your-resource.openai.azure.com",
				APIKey:     "${AZURE_OPENAI_API_KEY}",
				APIVersion: "2024-06-01",
				Model:      "gpt-4o",
			},
			"anthropic": {
				Type:   TypeAnthropic,
				APIKey: "${ANTHROPIC_API_KEY}",
				Model:  "claude-sonnet-4-20250514",
			},
		},
	}
}
