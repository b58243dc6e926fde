/*
Package auth implements the admission decision for proxied requests.

A request carries at most one bearer token in its Authorization header. The
token is classified as a shared access code (it starts with the configured
prefix), a caller-supplied provider key (any other non-empty value), or no
credential at all.

Access codes are checked against an allow-list of MD5 digests; plaintext
codes are never stored. A provider key is never verified here and always
bypasses the code check.

# Basic Usage

	cfg := auth.NewServerConfig(hashes, serverKey, "ak-", false)
	authorizer := auth.NewAuthorizer(cfg, kv, collector)

	d := authorizer.Authorize(ctx, r)
	if !d.Allowed {
		auth.WriteDenied(w, http.StatusUnauthorized, d.Reason)
		return
	}
	// r.Header now carries the credential to forward upstream.

# Header Rewriting

When a request is admitted without a provider key, the Authorization
header is replaced with the server's own key. If the server has no key the
header is removed and the upstream call is expected to fail its own
authentication.
*/
package auth
