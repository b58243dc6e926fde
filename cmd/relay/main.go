// Relay is an authenticating reverse proxy in front of the OpenAI API.
//
// Callers present either their own provider key or a shared access code as a
// bearer token. Access codes are checked against an allow-list of digests and
// swapped for the server's provider key before the request is forwarded.
// Sessions live in Redis; health and metrics are served on a separate
// management listener.
//
// Usage:
//
//	# Start with environment configuration only
//	relay run
//
//	# Start with a configuration file
//	relay run --config /etc/relay/config.yaml
//
//	# Check a configuration file
//	relay config validate --config config.yaml
//
//	# Produce the digest of an access code for access.code_hashes
//	relay hash-code my-secret-code
//
//	# Count stored sessions
//	relay sessions count
//
//	# Serve HTTPS locally with a throwaway certificate
//	relay certs generate --host localhost
//	TLS_CERT_FILE=certs/tls.crt TLS_KEY_FILE=certs/tls.key relay run
package main

func main() {
	Execute()
}
