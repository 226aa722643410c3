package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromValidFile(t *testing.T) {
	t.Setenv("AZURE_OPENAI_API_KEY", "")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "")
	path := writeConfig(t, `{
		// default provider for this machine
		"defaultProvider": "work",
		"providers": {
			"work": {
				"type": "openai",
				"endpoint": "https://example.openai.azure.com",
				"apiKey": "sk-test-1234567890",
				"apiVersion": "2024-06-01",
				"model": "gpt-4o",
			},
		},
	}`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultProvider != "work" {
		t.Errorf("DefaultProvider = %q", cfg.DefaultProvider)
	}
	p := cfg.Providers["work"]
	if p.Type != TypeOpenAI || p.Model != "gpt-4o" {
		t.Errorf("unexpected provider: %+v", p)
	}
}

func TestLoadFromExpandsEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("TEST_CF_KEY", "sk-from-env-12345")
	path := writeConfig(t, `{
		"defaultProvider": "p",
		"providers": {
			"p": {"type": "anthropic", "apiKey": "${TEST_CF_KEY}", "model": "claude-sonnet-4-20250514"}
		}
	}`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Providers["p"].APIKey; got != "sk-from-env-12345" {
		t.Errorf("APIKey = %q", got)
	}
}

func TestLoadFromYAML(t *testing.T) {
	t.Setenv("AZURE_OPENAI_API_KEY", "")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `defaultProvider: work
providers:
  work:
    type: openai
    endpoint: https://example.openai.azure.com
    apiKey: sk-test-1234567890
    model: gpt-4o
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	p := cfg.Providers["work"]
	if p.Type != TypeOpenAI || p.Endpoint != "https://example.openai.azure.com" || p.Model != "gpt-4o" {
		t.Errorf("unexpected provider: %+v", p)
	}
}

func TestLoadFromRejectsUnknownType(t *testing.T) {
	path := writeConfig(t, `{
		"defaultProvider": "p",
		"providers": {"p": {"type": "carrier-pigeon", "apiKey": "x"}}
	}`)
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected schema or validation error for unknown type")
	}
}

func TestValidateMissingDefault(t *testing.T) {
	cfg := &Config{
		DefaultProvider: "nope",
		Providers: map[string]ProviderConfig{
			"p": {Type: TypeAnthropic, APIKey: "k-12345678"},
		},
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "defaultProvider") {
		t.Fatalf("expected defaultProvider issue, got %v", err)
	}
}

func TestValidateAssistantsRequiresAssistantID(t *testing.T) {
	cfg := &Config{
		Providers: map[string]ProviderConfig{
			"a": {Type: TypeAssistants, Endpoint: "https://x", AuthMode: AuthAzureCLI},
		},
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "assistantId") {
		t.Fatalf("expected assistantId issue, got %v", err)
	}
}

func TestResolveProvider(t *testing.T) {
	cfg := &Config{
		DefaultProvider: "a",
		Providers: map[string]ProviderConfig{
			"a": {Type: TypeAnthropic, APIKey: "k"},
			"b": {Type: TypeOpenAI, Endpoint: "https://x", APIKey: "k"},
		},
	}

	name, _, err := cfg.ResolveProvider("")
	if err != nil || name != "a" {
		t.Fatalf("default resolution: name=%q err=%v", name, err)
	}
	name, p, err := cfg.ResolveProvider("b")
	if err != nil || name != "b" || p.Type != TypeOpenAI {
		t.Fatalf("explicit resolution: name=%q p=%+v err=%v", name, p, err)
	}
	if _, _, err := cfg.ResolveProvider("missing"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key-override-1")
	path := writeConfig(t, `{
		"defaultProvider": "p",
		"providers": {"p": {"type": "anthropic", "apiKey": "file-key-000000"}}
	}`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Providers["p"].APIKey; got != "env-key-override-1" {
		t.Errorf("APIKey = %q, want env override", got)
	}
}

func TestRedact(t *testing.T) {
	cases := []struct{ in, want string }{
		{"sk-abcdef123456", "sk-a****56"},
		{"12345678", "1234****78"},
		{"short", "******"},
		{"", "******"},
	}
	for _, tc := range cases {
		if got := Redact(tc.in); got != tc.want {
			t.Errorf("Redact(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRedactedMasksSecretKeys(t *testing.T) {
	cfg := &Config{
		DefaultProvider: "p",
		Providers: map[string]ProviderConfig{
			"p": {Type: TypeAnthropic, APIKey: "sk-very-secret-value", Model: "claude-sonnet-4-20250514"},
		},
	}
	raw, err := cfg.Redacted()
	if err != nil {
		t.Fatal(err)
	}
	providers := raw["providers"].(map[string]any)
	p := providers["p"].(map[string]any)
	if p["apiKey"] != "sk-v****ue" {
		t.Errorf("apiKey = %v, want masked", p["apiKey"])
	}
	if p["model"] != "claude-sonnet-4-20250514" {
		t.Errorf("model must not be masked, got %v", p["model"])
	}
}

func TestJSONSchemaReflects(t *testing.T) {
	data, err := JSONSchema()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"defaultProvider", "providers", "anthropic"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("schema missing %q", want)
		}
	}
}
