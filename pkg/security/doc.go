/*
Package security groups the relay's admission and transport security.

  - auth decides whether a request may reach the upstream: a caller's own
    provider key, or a shared access code swapped for the server key.
  - tls serves HTTPS on the listeners and reloads renewed certificates.
  - secrets resolves ${secret:name} references in credential settings.
*/
package security
