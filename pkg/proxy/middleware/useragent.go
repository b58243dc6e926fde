package middleware

import (
	"context"
	"net/http"
	"strings"
)

// Client families recognised from the User-Agent header.
const (
	ClientOpenAIPython = "openai-python"
	ClientOpenAINode   = "openai-node"
	ClientOpenAIGo     = "openai-go"
	ClientCurl         = "curl"
	ClientPython       = "python"
	ClientNode         = "nodejs"
	ClientGo           = "go-http-client"
	ClientBrowser      = "browser"
	ClientOther        = "other"
	ClientUnknown      = "unknown"
)

// UserAgent is the parsed form of a request's User-Agent header.
type UserAgent struct {
	Raw    string
	Client string
}

// ParseUserAgent classifies a User-Agent string into a client family.
func ParseUserAgent(raw string) UserAgent {
	return UserAgent{Raw: raw, Client: classifyClient(raw)}
}

func classifyClient(raw string) string {
	ua := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case ua == "":
		return ClientUnknown
	case strings.Contains(ua, "openai/python"), strings.Contains(ua, "openai-python"):
		return ClientOpenAIPython
	case strings.Contains(ua, "openai/js"), strings.Contains(ua, "openai-node"):
		return ClientOpenAINode
	case strings.Contains(ua, "openai-go"):
		return ClientOpenAIGo
	case strings.HasPrefix(ua, "curl/"):
		return ClientCurl
	case strings.Contains(ua, "python-requests"), strings.Contains(ua, "aiohttp"),
		strings.Contains(ua, "httpx"), strings.HasPrefix(ua, "python"):
		return ClientPython
	case strings.Contains(ua, "node-fetch"), strings.Contains(ua, "axios"),
		strings.HasPrefix(ua, "node"), strings.Contains(ua, "undici"):
		return ClientNode
	case strings.HasPrefix(ua, "go-http-client"):
		return ClientGo
	case strings.HasPrefix(ua, "mozilla/"):
		return ClientBrowser
	default:
		return ClientOther
	}
}

// UserAgentMiddleware parses the User-Agent header once and stores the
// result on the request context.
func UserAgentMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := ParseUserAgent(r.UserAgent())
		ctx := context.WithValue(r.Context(), UserAgentKey, ua)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserAgent returns the parsed user agent stored by UserAgentMiddleware.
func GetUserAgent(ctx context.Context) (UserAgent, bool) {
	ua, ok := ctx.Value(UserAgentKey).(UserAgent)
	return ua, ok
}
