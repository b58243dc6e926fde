package auth

import (
	"crypto/md5" // #nosec G501 - digest format of the configured allow-list
	"encoding/hex"
	"net/http"
	"strings"
)

// AuthorizationHeader is the header carrying the bearer credential.
const AuthorizationHeader = "Authorization"

// AuthorizationToken returns the bearer token from h with the scheme removed.
func AuthorizationToken(h http.Header) string {
	return ParseBearer(h.Get(AuthorizationHeader))
}

// ParseBearer trims the header value, removes every occurrence of "Bearer "
// and trims again. An absent header yields "".
func ParseBearer(header string) string {
	token := strings.TrimSpace(header)
	token = strings.ReplaceAll(token, "Bearer ", "")
	return strings.TrimSpace(token)
}

// Classify sorts a token into one of the three credential kinds.
func Classify(token, prefix string) Credential {
	switch {
	case token == "":
		return Credential{Kind: NoCredential}
	case prefix != "" && strings.HasPrefix(token, prefix):
		return Credential{Kind: SharedAccessCode, Token: token, Code: token[len(prefix):]}
	default:
		return Credential{Kind: ProviderKey, Token: token}
	}
}

// HashCode returns the MD5 hex digest of code, the form stored in the
// allow-list. The empty code hashes like any other string.
func HashCode(code string) string {
	sum := md5.Sum([]byte(code)) // #nosec G401
	return hex.EncodeToString(sum[:])
}
