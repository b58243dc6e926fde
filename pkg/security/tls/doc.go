/*
Package tls serves HTTPS on the relay listeners.

NewServerConfig turns a listener's config.TLSConfig into a crypto/tls
configuration whose certificate comes from a CertificateReloader:

	tlsConfig, reloader, err := tls.NewServerConfig(cfg.Public.TLS)
	if err != nil {
		return err
	}
	defer reloader.Close()

	if cfg.Public.TLS.Watch {
		if err := reloader.Watch(); err != nil {
			return err
		}
	}
	ln = cryptotls.NewListener(ln, tlsConfig)

With Watch the reloader follows the certificate directory through fsnotify
and swaps in renewed certificates without a restart. A certificate that
fails to load or has expired is rejected and the previous one stays in use.

GenerateSelfSigned produces a throwaway certificate for local testing.
*/
package tls
