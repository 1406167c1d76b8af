package config

import "testing"

// Keychain tests need a real OS backend; headless CI boxes skip them.

func TestKeyringRoundTrip(t *testing.T) {
	km := NewKeyringManager()
	if !km.IsAvailable() {
		t.Skip("no OS keychain available")
	}
	defer km.DeleteAPIKey()

	const key = "sk-test-roundtrip-123456"
	if err := km.SaveAPIKey(key); err != nil {
		t.Fatalf("SaveAPIKey: %v", err)
	}
	got, err := km.GetAPIKey()
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if got != key {
		t.Errorf("got %q, want %q", got, key)
	}
}

func TestKeyringMissingKeyIsNotAnError(t *testing.T) {
	km := NewKeyringManager()
	if !km.IsAvailable() {
		t.Skip("no OS keychain available")
	}
	km.DeleteAPIKey()

	got, err := km.GetAPIKey()
	if err != nil {
		t.Fatalf("GetAPIKey on missing entry: %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestKeyringRejectsEmptyValues(t *testing.T) {
	km := NewKeyringManager()
	if err := km.SaveAPIKey(""); err == nil {
		t.Error("SaveAPIKey accepted empty key")
	}
	if err := km.SaveGitHubToken(""); err == nil {
		t.Error("SaveGitHubToken accepted empty token")
	}
}
