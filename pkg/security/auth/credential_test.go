package auth

import (
	"net/http"
	"testing"
)

func TestParseBearer(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"empty", "", ""},
		{"plain bearer", "Bearer sk-abc", "sk-abc"},
		{"surrounding whitespace", "  Bearer sk-abc  ", "sk-abc"},
		{"repeated scheme", "Bearer Bearer sk-abc", "sk-abc"},
		{"scheme in the middle", "sk-Bearer abc", "sk-abc"},
		{"no scheme", "sk-abc", "sk-abc"},
		{"scheme only", "Bearer ", ""},
		{"lowercase scheme kept", "bearer sk-abc", "bearer sk-abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseBearer(tt.header); got != tt.want {
				t.Errorf("ParseBearer(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestAuthorizationToken(t *testing.T) {
	h := http.Header{}
	h.Set("authorization", "Bearer ak-code")

	if got := AuthorizationToken(h); got != "ak-code" {
		t.Errorf("AuthorizationToken() = %q, want %q", got, "ak-code")
	}
	if got := AuthorizationToken(http.Header{}); got != "" {
		t.Errorf("AuthorizationToken(empty) = %q, want empty", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		prefix   string
		wantKind CredentialKind
		wantCode string
	}{
		{"empty token", "", "ak-", NoCredential, ""},
		{"access code", "ak-secret", "ak-", SharedAccessCode, "secret"},
		{"prefix only", "ak-", "ak-", SharedAccessCode, ""},
		{"provider key", "sk-real-provider-key", "ak-", ProviderKey, ""},
		{"custom prefix", "sk-ACCESSCODE-abc123", "sk-", SharedAccessCode, "ACCESSCODE-abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.token, tt.prefix)
			if c.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", c.Kind, tt.wantKind)
			}
			if c.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", c.Code, tt.wantCode)
			}
		})
	}
}

func TestClassify_ExactlyOneKind(t *testing.T) {
	for _, token := range []string{"", "ak-x", "sk-x", "x", "ak"} {
		c := Classify(token, "ak-")
		isCode := c.Kind == SharedAccessCode
		isKey := c.ProviderToken() != ""
		if isCode && isKey {
			t.Errorf("token %q classified as both access code and provider key", token)
		}
		if token != "" && !isCode && !isKey {
			t.Errorf("non-empty token %q has no classification", token)
		}
	}
}

func TestHashCode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "d41d8cd98f00b204e9800998ecf8427e"},
		{"abc", "900150983cd24fb0d6963f7d28e17f72"},
	}

	for _, tt := range tests {
		if got := HashCode(tt.in); got != tt.want {
			t.Errorf("HashCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewServerConfig(t *testing.T) {
	cfg := NewServerConfig(nil, "", "ak-", false)
	if cfg.NeedCode {
		t.Error("NeedCode should be false without hashes")
	}

	cfg = NewServerConfig([]string{HashCode("a"), HashCode("a")}, "sk-server", "ak-", true)
	if !cfg.NeedCode {
		t.Error("NeedCode should be true with hashes")
	}
	if len(cfg.Codes) != 1 {
		t.Errorf("expected deduplicated allow-list, got %d entries", len(cfg.Codes))
	}
	if _, ok := cfg.Codes["a"]; ok {
		t.Error("allow-list must not contain plaintext codes")
	}
}
