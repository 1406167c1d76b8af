package config

import (
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/paritylens/paritylens/internal/logging"
)

const (
	// KeyringService is the service name in the OS keychain:
	// macOS Keychain Access, Windows Credential Manager, or the
	// Linux Secret Service (needs libsecret).
	KeyringService = "ParityLens"

	// KeyringAPIKeyItem is the keychain item for the OpenAI API key.
	KeyringAPIKeyItem = "openai-api-key"

	// KeyringGitHubTokenItem is the keychain item for the GitHub token.
	KeyringGitHubTokenItem = "github-token"
)

// KeyringManager stores credentials in the OS keychain.
type KeyringManager struct{}

// NewKeyringManager creates a keyring manager.
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{}
}

// SaveAPIKey stores the OpenAI API key in the OS keychain.
func (km *KeyringManager) SaveAPIKey(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("api key cannot be empty")
	}
	if err := keyring.Set(KeyringService, KeyringAPIKeyItem, apiKey); err != nil {
		return fmt.Errorf("save to OS keychain: %w", err)
	}
	logging.Info("api key saved to keychain", "service", KeyringService)
	return nil
}

// GetAPIKey retrieves the OpenAI API key. A missing entry is not an error;
// it returns ("", nil) so callers can fall through to the next source.
func (km *KeyringManager) GetAPIKey() (string, error) {
	apiKey, err := keyring.Get(KeyringService, KeyringAPIKeyItem)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read from OS keychain: %w", err)
	}
	return apiKey, nil
}

// DeleteAPIKey removes the OpenAI API key from the keychain.
func (km *KeyringManager) DeleteAPIKey() error {
	err := keyring.Delete(KeyringService, KeyringAPIKeyItem)
	if err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("delete from OS keychain: %w", err)
	}
	return nil
}

// SaveGitHubToken stores the GitHub token in the OS keychain.
func (km *KeyringManager) SaveGitHubToken(token string) error {
	if token == "" {
		return fmt.Errorf("github token cannot be empty")
	}
	if err := keyring.Set(KeyringService, KeyringGitHubTokenItem, token); err != nil {
		return fmt.Errorf("save to OS keychain: %w", err)
	}
	logging.Info("github token saved to keychain", "service", KeyringService)
	return nil
}

// GetGitHubToken retrieves the GitHub token, ("", nil) when absent.
func (km *KeyringManager) GetGitHubToken() (string, error) {
	token, err := keyring.Get(KeyringService, KeyringGitHubTokenItem)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read from OS keychain: %w", err)
	}
	return token, nil
}

// DeleteGitHubToken removes the GitHub token from the keychain.
func (km *KeyringManager) DeleteGitHubToken() error {
	err := keyring.Delete(KeyringService, KeyringGitHubTokenItem)
	if err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("delete from OS keychain: %w", err)
	}
	return nil
}

// IsAvailable probes whether an OS keychain backend exists. Headless Linux
// boxes and most CI runners have none, so callers must be able to skip the
// keychain without failing.
func (km *KeyringManager) IsAvailable() bool {
	const probe = "availability-probe"
	if err := keyring.Set(KeyringService, probe, "ok"); err != nil {
		return false
	}
	keyring.Delete(KeyringService, probe)
	return true
}

// KeySource describes where a secret was resolved from, for
// `plens configure --status` output.
type KeySource struct {
	Source string
	Masked string
	Secure bool
}

// MaskAPIKey hides the middle of a key so status output never leaks it.
func MaskAPIKey(key string) string {
	if len(key) < 12 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}
