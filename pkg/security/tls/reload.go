package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events produced when a cert and key are
// replaced together.
const reloadDelay = 100 * time.Millisecond

// CertificateReloader serves a certificate loaded from disk and, once
// watching, reloads it whenever the cert or key file changes. A reload that
// fails keeps the previous certificate.
type CertificateReloader struct {
	certFile string
	keyFile  string

	mu   sync.RWMutex
	cert *tls.Certificate

	watcher *fsnotify.Watcher
	done    chan struct{}
	stopped chan struct{}
	closed  sync.Once
}

// NewCertificateReloader loads the initial certificate.
func NewCertificateReloader(certFile, keyFile string) (*CertificateReloader, error) {
	r := &CertificateReloader{
		certFile: filepath.Clean(certFile),
		keyFile:  filepath.Clean(keyFile),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	r.logCertificateInfo()
	return r, nil
}

// Watch starts reloading on file changes. The parent directories are watched
// rather than the files so that atomic replacements (rename over, symlink
// swaps) are seen.
func (r *CertificateReloader) Watch() error {
	if r.watcher != nil {
		return fmt.Errorf("certificate reloader already watching")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	dirs := map[string]struct{}{
		filepath.Dir(r.certFile): {},
		filepath.Dir(r.keyFile):  {},
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	r.watcher = w
	r.done = make(chan struct{})
	r.stopped = make(chan struct{})
	go r.loop()

	slog.Info("watching certificate files", "cert_file", r.certFile, "key_file", r.keyFile)
	return nil
}

func (r *CertificateReloader) loop() {
	defer close(r.stopped)

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-r.done:
			return

		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !r.relevant(event) {
				continue
			}
			slog.Debug("certificate file event", "path", event.Name, "op", event.Op.String())
			timer.Reset(reloadDelay)

		case <-timer.C:
			if err := r.Reload(); err != nil {
				slog.Error("failed to reload certificate",
					"error", err,
					"cert_file", r.certFile,
					"key_file", r.keyFile,
				)
				continue
			}
			slog.Info("certificate reloaded", "cert_file", r.certFile)
			r.logCertificateInfo()

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("certificate watcher error", "error", err)
		}
	}
}

// relevant reports whether event may have changed the cert or key. Entries
// starting with ".." cover the atomic symlink swap used by mounted secrets.
func (r *CertificateReloader) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(event.Name)
	if name == r.certFile || name == r.keyFile {
		return true
	}
	base := filepath.Base(name)
	return len(base) > 2 && base[:2] == ".."
}

// Reload loads the certificate and key from disk.
func (r *CertificateReloader) Reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load certificate: %w", err)
	}
	if err := ValidateCertificate(&cert); err != nil {
		return fmt.Errorf("certificate validation failed: %w", err)
	}

	r.mu.Lock()
	r.cert = &cert
	r.mu.Unlock()
	return nil
}

// GetCertificate returns the current certificate.
func (r *CertificateReloader) GetCertificate() *tls.Certificate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert
}

// GetCertificateFunc returns a function compatible with tls.Config.GetCertificate.
func (r *CertificateReloader) GetCertificateFunc() func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
		return r.GetCertificate(), nil
	}
}

// Close stops watching. It is safe to call on a reloader that never watched.
func (r *CertificateReloader) Close() error {
	var err error
	r.closed.Do(func() {
		if r.watcher == nil {
			return
		}
		close(r.done)
		err = r.watcher.Close()
		<-r.stopped
	})
	return err
}

// CheckExpiration logs a warning when the served certificate is within 30
// days of expiry and returns an error once it is no longer valid. Run it
// on a schedule: a certificate that is never replaced is otherwise only
// checked at load.
func (r *CertificateReloader) CheckExpiration() error {
	x509Cert, err := r.leaf()
	if err != nil {
		return err
	}
	if err := ValidateX509Certificate(x509Cert); err != nil {
		slog.Error("served certificate invalid",
			"cert_file", r.certFile,
			"subject", x509Cert.Subject.CommonName,
			"error", err,
		)
		return err
	}
	if days, warning := CheckCertificateExpiration(x509Cert); warning != "" {
		slog.Warn("certificate expiring soon",
			"cert_file", r.certFile,
			"subject", x509Cert.Subject.CommonName,
			"expires_in_days", days,
			"expires_at", x509Cert.NotAfter.Format(time.RFC3339),
		)
	}
	return nil
}

func (r *CertificateReloader) leaf() (*x509.Certificate, error) {
	cert := r.GetCertificate()
	if cert == nil || len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("no certificate loaded from %s", r.certFile)
	}
	return x509.ParseCertificate(cert.Certificate[0])
}

func (r *CertificateReloader) logCertificateInfo() {
	cert := r.GetCertificate()
	if cert == nil || len(cert.Certificate) == 0 {
		return
	}

	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return
	}

	days, warning := CheckCertificateExpiration(x509Cert)
	if warning != "" {
		slog.Warn("certificate expiring soon",
			"subject", x509Cert.Subject.CommonName,
			"expires_in_days", days,
			"expires_at", x509Cert.NotAfter.Format(time.RFC3339),
		)
		return
	}
	slog.Info("certificate loaded",
		"subject", x509Cert.Subject.CommonName,
		"issuer", x509Cert.Issuer.CommonName,
		"expires_in_days", days,
		"expires_at", x509Cert.NotAfter.Format(time.RFC3339),
	)
}
