package logging

import (
	"regexp"
	"strings"
)

// Redactor masks credentials in log fields.
type Redactor struct {
	patterns []*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Pattern names.
const (
	PatternAPIKey      = "api_key"
	PatternAccessCode  = "access_code"
	PatternBearerToken = "bearer_token"
)

// NewRedactor creates a Redactor. codePrefix is the access-code prefix;
// tokens starting with it are masked as well.
func NewRedactor(codePrefix string) *Redactor {
	r := &Redactor{}

	// Bearer first so the scheme survives and the token is masked once.
	r.add(PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer ***")
	r.add(PatternAPIKey, `sk-[a-zA-Z0-9\-_]+`, "sk-***")
	if codePrefix != "" && codePrefix != "sk-" {
		r.add(PatternAccessCode, regexp.QuoteMeta(codePrefix)+`[^\s"',]+`, codePrefix+"***")
	}

	return r
}

func (r *Redactor) add(name, expr, replacement string) {
	r.patterns = append(r.patterns, &redactPattern{
		name:        name,
		regex:       regexp.MustCompile(expr),
		replacement: replacement,
	})
}

// RedactString masks every credential found in value.
func (r *Redactor) RedactString(value string) string {
	if r == nil || value == "" {
		return value
	}

	redacted := value
	for _, pattern := range r.patterns {
		redacted = pattern.regex.ReplaceAllString(redacted, pattern.replacement)
	}

	return redacted
}

// isSensitiveKey checks if a key name indicates a secret.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)

	sensitiveKeys := []string{
		"password", "passwd", "secret", "token",
		"api_key", "apikey", "authorization", "cookie",
	}

	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}

	return false
}

// RedactAPIKey redacts an API key, keeping only a prefix.
func RedactAPIKey(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	if len(apiKey) <= 4 {
		return "***"
	}

	// Keep first 4 characters for identification
	return apiKey[:4] + "***"
}
