package config

import "testing"

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.Provider.APIKey = "sk-server-key"
	cfg.Redis.Password = "hunter2"
	cfg.Access.CodeHashes = []string{"0d107d09f5bbe40cade3de5c71e9e9b7"}

	out := cfg.Redacted()

	if out.Provider.APIKey != RedactedValue {
		t.Errorf("Provider.APIKey = %q, want redacted", out.Provider.APIKey)
	}
	if out.Redis.Password != RedactedValue {
		t.Errorf("Redis.Password = %q, want redacted", out.Redis.Password)
	}
	if out.Session.Secret != RedactedValue {
		t.Errorf("Session.Secret = %q, want redacted", out.Session.Secret)
	}
	if len(out.Access.CodeHashes) != 1 || out.Access.CodeHashes[0] != RedactedValue {
		t.Errorf("Access.CodeHashes = %v, want one redacted entry", out.Access.CodeHashes)
	}

	if cfg.Provider.APIKey != "sk-server-key" {
		t.Error("Redacted must not modify the original")
	}
	if cfg.Access.CodeHashes[0] != "0d107d09f5bbe40cade3de5c71e9e9b7" {
		t.Error("Redacted must not modify the original hashes")
	}

	out.Redis.SingleHost[0] = "changed"
	if cfg.Redis.SingleHost[0] == "changed" {
		t.Error("Redacted must copy slices")
	}
}

func TestRedactedEmptySecretsStayEmpty(t *testing.T) {
	cfg := Default()
	cfg.Redis.Password = ""

	if got := cfg.Redacted().Redis.Password; got != "" {
		t.Errorf("Redis.Password = %q, want empty", got)
	}
}
