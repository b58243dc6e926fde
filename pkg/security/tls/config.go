package tls

import (
	"crypto/tls"
	"fmt"

	"nextgate-hq/relay/pkg/config"
)

// NewServerConfig builds the server-side TLS configuration for a listener.
// Certificates are served through the returned reloader, which the caller
// must Close when the listener stops.
func NewServerConfig(cfg config.TLSConfig) (*tls.Config, *CertificateReloader, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, nil, fmt.Errorf("cert_file and key_file are required")
	}

	reloader, err := NewCertificateReloader(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, nil, err
	}

	minVersion, err := ParseVersion(cfg.MinVersion)
	if err != nil {
		return nil, nil, err
	}

	// #nosec G402 - MinVersion is validated (TLS 1.0/1.1 rejected)
	tlsConfig := &tls.Config{
		MinVersion:     minVersion,
		GetCertificate: reloader.GetCertificateFunc(),
		NextProtos:     []string{"http/1.1"},
	}
	return tlsConfig, reloader, nil
}

// ParseVersion converts "1.2" or "1.3" to a tls version constant. An empty
// string means TLS 1.2.
func ParseVersion(v string) (uint16, error) {
	switch v {
	case "1.2", "":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported TLS version %q", v)
	}
}

// VersionName renders a tls version constant the way it is configured.
func VersionName(v uint16) string {
	switch v {
	case tls.VersionTLS12:
		return "1.2"
	case tls.VersionTLS13:
		return "1.3"
	default:
		return fmt.Sprintf("0x%04x", v)
	}
}
