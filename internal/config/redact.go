package config

import (
	"encoding/json"
	"regexp"
)

// secretKeyPattern matches config keys whose values must never be shown
// verbatim.
var secretKeyPattern = regexp.MustCompile(`(?i)apikey|secret|password|token|credential|key$`)

// Redact masks a secret for display: first 4 characters, "****", last 2 for
// values of at least 8 characters, a fixed mask otherwise.
func Redact(value string) string {
	if len(value) < 8 {
		return "******"
	}
	return value[:4] + "****" + value[len(value)-2:]
}

// Redacted returns a deep copy of the config with every secret-keyed string
// masked, suitable for `config show`.
func (c *Config) Redacted() (map[string]any, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	redactValue(raw)
	return raw, nil
}

func redactValue(node any) {
	switch typed := node.(type) {
	case map[string]any:
		for key, val := range typed {
			if s, ok := val.(string); ok && s != "" && secretKeyPattern.MatchString(key) {
				typed[key] = Redact(s)
				continue
			}
			redactValue(val)
		}
	case []any:
		for _, val := range typed {
			redactValue(val)
		}
	}
}
