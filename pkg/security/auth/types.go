package auth

// CredentialKind classifies the bearer token carried by a request.
type CredentialKind int

const (
	// NoCredential means the request carried no token at all.
	NoCredential CredentialKind = iota
	// SharedAccessCode is a token starting with the configured access-code prefix.
	SharedAccessCode
	// ProviderKey is any other non-empty token, passed through to the provider.
	ProviderKey
)

// String returns the kind's name as used in logs and metrics.
func (k CredentialKind) String() string {
	switch k {
	case SharedAccessCode:
		return "access_code"
	case ProviderKey:
		return "provider_key"
	default:
		return "none"
	}
}

// Credential is a classified bearer token.
type Credential struct {
	Kind CredentialKind

	// Token is the bearer value with the scheme removed.
	Token string

	// Code is the access code with its prefix stripped. Empty unless Kind
	// is SharedAccessCode.
	Code string
}

// ProviderToken returns the caller-supplied provider key, or "" when the
// request did not carry one.
func (c Credential) ProviderToken() string {
	if c.Kind == ProviderKey {
		return c.Token
	}
	return ""
}

// ServerConfig is the process-wide admission configuration. It is built once
// at startup and must not be modified afterwards.
type ServerConfig struct {
	// NeedCode requires an access code (or a provider key) on every request.
	NeedCode bool

	// Codes is the allow-list of MD5 hex digests of valid access codes.
	Codes map[string]struct{}

	// APIKey is the server's own provider key, injected for callers
	// admitted without one. May be empty.
	APIKey string

	// CodePrefix marks a token as an access code.
	CodePrefix string

	// DisableGPT4 restricts the gpt-4 model family.
	DisableGPT4 bool
}

// NewServerConfig builds a ServerConfig from a list of digests. NeedCode is
// derived from the list being non-empty.
func NewServerConfig(hashes []string, apiKey, prefix string, disableGPT4 bool) ServerConfig {
	codes := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		codes[h] = struct{}{}
	}
	return ServerConfig{
		NeedCode:    len(codes) > 0,
		Codes:       codes,
		APIKey:      apiKey,
		CodePrefix:  prefix,
		DisableGPT4: disableGPT4,
	}
}

// Path names the admission branch taken for a request.
type Path string

const (
	// PathDenied means the request was rejected.
	PathDenied Path = "denied"
	// PathServerKey means the server's provider key was injected.
	PathServerKey Path = "server_key"
	// PathNoKey means the request was admitted but forwarded without any
	// credential because the server holds no provider key.
	PathNoKey Path = "no_key"
	// PathCallerKey means the caller's own provider key was kept.
	PathCallerKey Path = "caller_key"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool

	// Reason is set on deny: "empty access code" or "wrong access code".
	Reason string

	Path       Path
	Credential Credential

	// ClientIP is the best-effort caller address used for audit logging.
	ClientIP string

	// AdminUser is the cached administrative value read during the check,
	// recorded for audit only. Empty when absent or unavailable.
	AdminUser string
}
