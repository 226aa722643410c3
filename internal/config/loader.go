package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"
)

// Path returns the platform config file location. config.json is the default;
// an existing config.yaml or config.yml at the same location is used instead.
func Path() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	dir := filepath.Join(base, "caretforge")
	for _, name := range []string{"config.yaml", "config.yml"} {
		alt := filepath.Join(dir, name)
		if _, err := os.Stat(alt); err == nil {
			return alt, nil
		}
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config file, applies environment overrides, and validates
// the result against the schema. A missing file yields an empty config with
// only environment-derived entries; callers decide whether that is fatal.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit path, for tests and --config overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{Providers: map[string]ProviderConfig{}}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := decodeConfig(path, []byte(expanded), cfg); err != nil {
			return nil, err
		}
		if cfg.Providers == nil {
			cfg.Providers = map[string]ProviderConfig{}
		}
	case os.IsNotExist(err):
		// fall through to env-only config
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeConfig parses the expanded file contents by extension, validates the
// raw value against the schema, then fills cfg. json5 tolerates comments and
// trailing commas in hand-edited files; yaml files are decoded to a plain
// value and routed through the same schema and struct tags via JSON.
func decodeConfig(path string, expanded []byte, cfg *Config) error {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		var raw any
		if err := yaml.Unmarshal(expanded, &raw); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		// Re-decode through JSON so the schema validator sees canonical
		// JSON-shaped values and the struct's json tags apply.
		bridged, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		var value any
		if err := json.Unmarshal(bridged, &value); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if err := validateValue(value); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := json.Unmarshal(bridged, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		var raw any
		if err := json5.Unmarshal(expanded, &raw); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if err := validateValue(raw); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := json5.Unmarshal(expanded, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return nil
}

// applyEnvOverrides maps known environment variables onto config paths.
// Environment values win over file values; CLI flags win over both and are
// applied by the command layer.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CARETFORGE_PROVIDER"); v != "" {
		cfg.DefaultProvider = v
	}
	if v := os.Getenv("CARETFORGE_TELEMETRY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Telemetry = b
		}
	}

	azureKey := os.Getenv("AZURE_OPENAI_API_KEY")
	azureEndpoint := os.Getenv("AZURE_OPENAI_ENDPOINT")
	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	for name, p := range cfg.Providers {
		switch p.Type {
		case TypeOpenAI, TypeResponses, TypeAssistants:
			if azureKey != "" {
				p.APIKey = azureKey
			}
			if azureEndpoint != "" {
				p.Endpoint = azureEndpoint
			}
		case TypeAnthropic:
			if anthropicKey != "" {
				p.APIKey = anthropicKey
			}
		}
		cfg.Providers[name] = p
	}
	if v := os.Getenv("CARETFORGE_MODEL"); v != "" {
		if name, p, err := cfg.ResolveProvider(""); err == nil {
			p.Model = v
			cfg.Providers[name] = p
		}
	}
}

// Init writes the starter config to the platform location. It refuses to
// overwrite an existing file.
func Init(withSecrets bool) (string, error) {
	path, err := Path()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	cfg := Default()
	if withSecrets {
		// Bake current credentials into the file instead of ${VAR} references.
		for name, p := range cfg.Providers {
			cfg.Providers[name] = ProviderConfig{
				Type:        p.Type,
				Endpoint:    p.Endpoint,
				APIKey:      os.ExpandEnv(p.APIKey),
				APIVersion:  p.APIVersion,
				Model:       p.Model,
				AssistantID: p.AssistantID,
				AuthMode:    p.AuthMode,
			}
		}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
