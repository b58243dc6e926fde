// Package providers forwards admitted requests to the OpenAI-compatible
// upstream.
//
// OpenAIClient owns a pooled HTTP transport with bounded dial, TLS handshake
// and response-header waits. Each forward additionally runs under the
// configured per-forward deadline (OPENAI_TIMEOUT), released when the caller
// closes the response body, so streamed completions are bounded end to end.
//
// Only Authorization, Content-Type, Accept and X-Request-ID are copied to
// the upstream request; OpenAI-Organization is added when configured.
//
// Upstream status codes are not interpreted: a 4xx or 5xx from the provider
// is returned to the caller as a normal response. Errors are reserved for
// transport failures:
//
//	resp, err := client.Do(ctx, http.MethodPost, "v1/chat/completions", "", r.Header, r.Body)
//	var terr *providers.TimeoutError
//	if errors.As(err, &terr) {
//	    // deadline exceeded
//	}
//
// The client tracks passive health from forwarded traffic; after three
// consecutive failures HealthCheck reports the upstream as failing.
package providers
