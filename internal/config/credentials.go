package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/paritylens/paritylens/internal/errors"
)

// CredentialManager resolves secrets through a priority chain:
// environment variable, OS keychain, credentials file, interactive prompt.
type CredentialManager struct {
	keyring    *KeyringManager
	configPath string
}

// Credentials is the on-disk fallback for machines without a keychain.
type Credentials struct {
	OpenAIAPIKey string `yaml:"openai_api_key"`
	GitHubToken  string `yaml:"github_token"`
}

// NewCredentialManager creates a credential manager backed by the OS
// keychain and ~/.config/paritylens/credentials.yaml.
func NewCredentialManager() *CredentialManager {
	homeDir, _ := os.UserHomeDir()
	return &CredentialManager{
		keyring:    NewKeyringManager(),
		configPath: filepath.Join(homeDir, ".config", "paritylens", "credentials.yaml"),
	}
}

// GetOpenAIAPIKey walks the priority chain for the narrative key. When no
// source has it and stdin is a terminal, the user is prompted once.
func (cm *CredentialManager) GetOpenAIAPIKey() (string, error) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key, nil
	}

	if cm.keyring.IsAvailable() {
		if key, err := cm.keyring.GetAPIKey(); err == nil && key != "" {
			return key, nil
		}
	}

	if creds, err := cm.loadCredentialsFile(); err == nil && creds.OpenAIAPIKey != "" {
		return creds.OpenAIAPIKey, nil
	}

	if isInteractive() {
		fmt.Fprintln(os.Stderr, "\n⚠️  OpenAI API key not found.")
		fmt.Fprintln(os.Stderr, "   Create one at: https://platform.openai.com/api-keys")
		fmt.Fprintln(os.Stderr)
		return cm.promptForAPIKey()
	}

	return "", errors.ConfigErrorf(
		"OPENAI_API_KEY not found. Set it via:\n"+
			"  1. Environment variable: export OPENAI_API_KEY=sk-...\n"+
			"  2. Run: plens configure (to set up keychain)\n"+
			"  3. Credentials file: %s", cm.configPath)
}

// GetGitHubToken walks the chain for the fetch token. The token is optional
// because the source repository is public, so a fully empty chain returns
// ("", nil) and the fetcher runs unauthenticated at the lower rate limit.
func (cm *CredentialManager) GetGitHubToken() (string, error) {
	if tok := githubTokenFromEnv(); tok != "" {
		return tok, nil
	}

	if cm.keyring.IsAvailable() {
		if tok, err := cm.keyring.GetGitHubToken(); err == nil && tok != "" {
			return tok, nil
		}
	}

	if creds, err := cm.loadCredentialsFile(); err == nil && creds.GitHubToken != "" {
		return creds.GitHubToken, nil
	}

	return "", nil
}

// SaveCredentials persists non-empty secrets, keychain first, credentials
// file only when no keychain backend exists.
func (cm *CredentialManager) SaveCredentials(apiKey, githubToken string) error {
	if cm.keyring.IsAvailable() {
		if apiKey != "" {
			if err := cm.keyring.SaveAPIKey(apiKey); err != nil {
				return err
			}
		}
		if githubToken != "" {
			if err := cm.keyring.SaveGitHubToken(githubToken); err != nil {
				return err
			}
		}
		return nil
	}

	creds, err := cm.loadCredentialsFile()
	if err != nil {
		creds = &Credentials{}
	}
	if apiKey != "" {
		creds.OpenAIAPIKey = apiKey
	}
	if githubToken != "" {
		creds.GitHubToken = githubToken
	}
	return cm.saveCredentialsFile(creds)
}

// DescribeOpenAIKey reports where the key would be resolved from, for
// `plens configure --status`.
func (cm *CredentialManager) DescribeOpenAIKey() KeySource {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return KeySource{Source: "environment", Masked: MaskAPIKey(key), Secure: true}
	}
	if cm.keyring.IsAvailable() {
		if key, err := cm.keyring.GetAPIKey(); err == nil && key != "" {
			return KeySource{Source: "keychain", Masked: MaskAPIKey(key), Secure: true}
		}
	}
	if creds, err := cm.loadCredentialsFile(); err == nil && creds.OpenAIAPIKey != "" {
		return KeySource{Source: cm.configPath, Masked: MaskAPIKey(creds.OpenAIAPIKey), Secure: false}
	}
	return KeySource{Source: "not set"}
}

func (cm *CredentialManager) loadCredentialsFile() (*Credentials, error) {
	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return nil, err
	}
	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, errors.ConfigErrorf("parse %s: %v", cm.configPath, err)
	}
	return &creds, nil
}

func (cm *CredentialManager) saveCredentialsFile(creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(cm.configPath), 0700); err != nil {
		return errors.ConfigErrorf("create credentials dir: %v", err)
	}
	data, err := yaml.Marshal(creds)
	if err != nil {
		return errors.ConfigErrorf("encode credentials: %v", err)
	}
	// Secrets on disk stay owner-readable only.
	if err := os.WriteFile(cm.configPath, data, 0600); err != nil {
		return errors.ConfigErrorf("write %s: %v", cm.configPath, err)
	}
	fmt.Fprintf(os.Stderr, "Credentials saved to %s\n", cm.configPath)
	return nil
}

// promptForAPIKey reads a key from the terminal and offers to store it.
func (cm *CredentialManager) promptForAPIKey() (string, error) {
	fmt.Fprint(os.Stderr, "Enter your OpenAI API key: ")
	key, err := readSecurely()
	if err != nil {
		return "", errors.ConfigErrorf("read API key: %v", err)
	}

	key = strings.TrimSpace(key)
	if !strings.HasPrefix(key, "sk-") {
		return "", errors.ValidationError("invalid API key format (should start with sk-)")
	}

	fmt.Fprint(os.Stderr, "Save this key for future runs? [Y/n]: ")
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer == "" || answer == "y" || answer == "yes" {
		if err := cm.SaveCredentials(key, ""); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save key: %v\n", err)
		}
	}

	return key, nil
}

// readSecurely reads without echo when stdin is a terminal, and falls back
// to a plain line read for piped input.
func readSecurely() (string, error) {
	fd := int(syscall.Stdin)
	if term.IsTerminal(fd) {
		bytes, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(bytes), nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("no input")
}

func isInteractive() bool {
	return term.IsTerminal(int(syscall.Stdin))
}
