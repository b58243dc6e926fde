package server

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nextgate-hq/relay/pkg/config"
	reltls "nextgate-hq/relay/pkg/security/tls"
)

func TestListener_TLS(t *testing.T) {
	dir := t.TempDir()
	certPEM, keyPEM, err := reltls.GenerateSelfSigned([]string{"127.0.0.1"}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	certFile, keyFile := filepath.Join(dir, "tls.crt"), filepath.Join(dir, "tls.key")
	if err := os.WriteFile(certFile, certPEM, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := config.ListenerConfig{
		Hostname:        "127.0.0.1",
		ResponseTimeout: 5 * time.Second,
		TLS:             config.TLSConfig{CertFile: certFile, KeyFile: keyFile, MinVersion: "1.2", Watch: true},
	}
	l := NewListener("tls", cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			http.Error(w, "plaintext", http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, "secure")
	}), false)

	if l.Scheme() != "https" {
		t.Errorf("Scheme() = %q, want https", l.Scheme())
	}
	if err := l.CheckCertificate(context.Background()); err != nil {
		t.Errorf("CheckCertificate() before Bind = %v, want nil", err)
	}
	if err := l.Bind(); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if err := l.CheckCertificate(context.Background()); err != nil {
		t.Errorf("CheckCertificate() = %v", err)
	}
	go func() { _ = l.Serve() }()
	waitForState(t, l, StateServing)

	client := &http.Client{
		Timeout: 5 * time.Second,
		// #nosec G402 - self-signed test certificate
		Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
	}
	resp, err := client.Get("https://" + l.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "secure" {
		t.Errorf("response = %d %q", resp.StatusCode, body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestListener_TLSBadCertificate(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "tls.crt")
	if err := os.WriteFile(certFile, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}

	l := NewListener("tls", config.ListenerConfig{
		Hostname: "127.0.0.1",
		TLS:      config.TLSConfig{CertFile: certFile, KeyFile: certFile},
	}, http.NotFoundHandler(), false)

	if err := l.Bind(); err == nil {
		t.Fatal("Bind() error = nil, want certificate error")
	}
	if l.Addr() != nil {
		t.Error("socket opened despite certificate error")
	}
}

func TestListener_PlainScheme(t *testing.T) {
	l := NewListener("plain", config.ListenerConfig{Hostname: "127.0.0.1"}, http.NotFoundHandler(), false)
	if l.Scheme() != "http" {
		t.Errorf("Scheme() = %q, want http", l.Scheme())
	}
	if err := l.CheckCertificate(context.Background()); err != nil {
		t.Errorf("CheckCertificate() on plain listener = %v", err)
	}
}
