package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"
	"time"
)

const (
	azTokenResource = "https://cognitiveservices.azure.com"
	// Tokens are cached for an hour minus a safety margin so a token is
	// never used within a minute of expiring.
	azTokenTTL    = time.Hour
	azTokenMargin = time.Minute
)

// azTokenSource acquires bearer tokens by spawning the Azure CLI and caches
// them in memory. Safe for concurrent use.
type azTokenSource struct {
	mu      sync.Mutex
	token   string
	expires time.Time
}

func newAzTokenSource() *azTokenSource {
	return &azTokenSource{}
}

// Token returns a cached token or fetches a fresh one. A fetch failure is
// not retried; the caller's request fails and the next request fetches again.
func (s *azTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.expires) {
		return s.token, nil
	}

	cmd := exec.CommandContext(ctx, "az", "account", "get-access-token", "--resource", azTokenResource, "--output", "json")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("az account get-access-token: %w", err)
	}

	var parsed struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(output, &parsed); err != nil {
		return "", fmt.Errorf("parse az token output: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("az returned an empty access token")
	}

	s.token = parsed.AccessToken
	s.expires = time.Now().Add(azTokenTTL - azTokenMargin)
	return s.token, nil
}
