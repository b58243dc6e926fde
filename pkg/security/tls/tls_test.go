package tls

import (
	"bytes"
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nextgate-hq/relay/pkg/config"
)

func writePair(t *testing.T, dir string, hosts []string, ttl time.Duration) (certFile, keyFile string) {
	t.Helper()
	certPEM, keyPEM, err := GenerateSelfSigned(hosts, ttl)
	if err != nil {
		t.Fatalf("GenerateSelfSigned: %v", err)
	}
	certFile = filepath.Join(dir, "tls.crt")
	keyFile = filepath.Join(dir, "tls.key")
	if err := os.WriteFile(certFile, certPEM, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		t.Fatal(err)
	}
	return certFile, keyFile
}

func TestGenerateSelfSigned(t *testing.T) {
	dir := t.TempDir()
	certFile, _ := writePair(t, dir, []string{"relay.local", "127.0.0.1"}, 90*24*time.Hour)

	cert, err := ReadCertificateFile(certFile)
	if err != nil {
		t.Fatalf("ReadCertificateFile: %v", err)
	}
	if err := ValidateX509Certificate(cert); err != nil {
		t.Errorf("fresh certificate invalid: %v", err)
	}

	info := ExtractCertificateInfo(cert)
	if len(info.DNSNames) != 1 || info.DNSNames[0] != "relay.local" {
		t.Errorf("DNSNames = %v", info.DNSNames)
	}
	if len(info.IPAddresses) != 1 || info.IPAddresses[0] != "127.0.0.1" {
		t.Errorf("IPAddresses = %v", info.IPAddresses)
	}

	if days, warning := CheckCertificateExpiration(cert); days < 88 || warning != "" {
		t.Errorf("expiration = %d days, warning %q", days, warning)
	}

	if _, _, err := GenerateSelfSigned(nil, time.Hour); err == nil {
		t.Error("expected error without hosts")
	}
}

func TestCheckCertificateExpiration_Soon(t *testing.T) {
	dir := t.TempDir()
	certFile, _ := writePair(t, dir, []string{"relay.local"}, 5*24*time.Hour)

	cert, err := ReadCertificateFile(certFile)
	if err != nil {
		t.Fatal(err)
	}
	if _, warning := CheckCertificateExpiration(cert); warning == "" {
		t.Error("expected expiry warning")
	}
}

func TestValidateCertificate(t *testing.T) {
	if err := ValidateCertificate(nil); err == nil {
		t.Error("nil certificate should fail")
	}
	if err := ValidateCertificate(&tls.Certificate{}); err == nil {
		t.Error("empty chain should fail")
	}
}

func TestReadCertificateFile_NoCertificate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pem")
	if err := os.WriteFile(path, []byte("not pem"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadCertificateFile(path); err == nil {
		t.Error("expected error")
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    uint16
		name    string
		wantErr bool
	}{
		{"", tls.VersionTLS12, "1.2", false},
		{"1.2", tls.VersionTLS12, "1.2", false},
		{"1.3", tls.VersionTLS13, "1.3", false},
		{"1.1", 0, "", true},
	}
	for _, tt := range tests {
		got, err := ParseVersion(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseVersion(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseVersion(%q) = %x, want %x", tt.in, got, tt.want)
		}
		if !tt.wantErr && VersionName(got) != tt.name {
			t.Errorf("VersionName(%x) = %q", got, VersionName(got))
		}
	}
}

func TestNewServerConfig(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writePair(t, dir, []string{"localhost"}, time.Hour)

	cfg, reloader, err := NewServerConfig(config.TLSConfig{
		CertFile:   certFile,
		KeyFile:    keyFile,
		MinVersion: "1.3",
	})
	if err != nil {
		t.Fatalf("NewServerConfig: %v", err)
	}
	defer reloader.Close()

	if cfg.MinVersion != tls.VersionTLS13 {
		t.Errorf("MinVersion = %x", cfg.MinVersion)
	}
	cert, err := cfg.GetCertificate(&tls.ClientHelloInfo{})
	if err != nil || cert == nil {
		t.Fatalf("GetCertificate = %v, %v", cert, err)
	}

	if _, _, err := NewServerConfig(config.TLSConfig{CertFile: certFile}); err == nil {
		t.Error("expected error without key file")
	}
	if _, _, err := NewServerConfig(config.TLSConfig{CertFile: certFile, KeyFile: filepath.Join(dir, "missing.key")}); err == nil {
		t.Error("expected error for missing key file")
	}
}

func TestCertificateReloader_Watch(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writePair(t, dir, []string{"localhost"}, time.Hour)

	r, err := NewCertificateReloader(certFile, keyFile)
	if err != nil {
		t.Fatalf("NewCertificateReloader: %v", err)
	}
	defer r.Close()

	if err := r.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if err := r.Watch(); err == nil {
		t.Error("second Watch should fail")
	}

	before := r.GetCertificate().Certificate[0]
	writePair(t, dir, []string{"localhost"}, time.Hour)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !bytes.Equal(r.GetCertificate().Certificate[0], before) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("certificate was not reloaded after files changed")
}

func TestCertificateReloader_KeepsCertificateOnBadReload(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writePair(t, dir, []string{"localhost"}, time.Hour)

	r, err := NewCertificateReloader(certFile, keyFile)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	before := r.GetCertificate()
	if err := os.WriteFile(certFile, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if r.GetCertificate() != before {
		t.Error("failed reload replaced the certificate")
	}
}

func TestCertificateReloader_CloseWithoutWatch(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writePair(t, dir, []string{"localhost"}, time.Hour)

	r, err := NewCertificateReloader(certFile, keyFile)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestCertificateReloader_CheckExpiration(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writePair(t, dir, []string{"localhost"}, 2*time.Second)

	r, err := NewCertificateReloader(certFile, keyFile)
	if err != nil {
		t.Fatalf("NewCertificateReloader: %v", err)
	}
	defer r.Close()

	if err := r.CheckExpiration(); err != nil {
		t.Fatalf("CheckExpiration on a valid certificate: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for r.CheckExpiration() == nil {
		if time.Now().After(deadline) {
			t.Fatal("expired certificate never reported")
		}
		time.Sleep(100 * time.Millisecond)
	}
}
