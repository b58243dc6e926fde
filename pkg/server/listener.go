package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"

	"golang.org/x/net/netutil"

	"nextgate-hq/relay/pkg/config"
	reltls "nextgate-hq/relay/pkg/security/tls"
)

// State is a listener lifecycle state.
type State int32

const (
	StateStarting State = iota
	StateServing
	StateDraining
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateServing:
		return "serving"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// BindError reports a listener that could not bind its address. It is
// fatal at startup.
type BindError struct {
	Listener string
	Addr     string
	Err      error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("%s listener: bind %s: %v", e.Listener, e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// Listener owns one http.Server and its socket.
type Listener struct {
	name  string
	cfg   config.ListenerConfig
	srv   *http.Server
	ln    net.Listener
	certs atomic.Pointer[reltls.CertificateReloader]
	state atomic.Int32
}

// NewListener creates a listener for handler. The response timeout bounds
// reading the request and idle keep-alive; when boundWrites is set it also
// bounds writing the response.
func NewListener(name string, cfg config.ListenerConfig, handler http.Handler, boundWrites bool) *Listener {
	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       cfg.ResponseTimeout,
		ReadHeaderTimeout: cfg.ResponseTimeout,
		IdleTimeout:       cfg.ResponseTimeout,
		ErrorLog:          slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
	}
	if boundWrites {
		srv.WriteTimeout = cfg.ResponseTimeout
	}
	return &Listener{name: name, cfg: cfg, srv: srv}
}

// Name returns the listener name.
func (l *Listener) Name() string {
	return l.name
}

// State returns the current lifecycle state.
func (l *Listener) State() State {
	return State(l.state.Load())
}

// Addr returns the bound address, or nil before Bind.
func (l *Listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Scheme returns "https" when the listener terminates TLS, else "http".
func (l *Listener) Scheme() string {
	if l.cfg.TLS.Enabled() {
		return "https"
	}
	return "http"
}

// Bind opens the socket. Accepted connections are capped at the configured
// backlog. With TLS configured the certificate is loaded here, so a bad
// certificate fails startup like a busy port does.
func (l *Listener) Bind() error {
	var tlsConfig *tls.Config
	if l.cfg.TLS.Enabled() {
		cfg, certs, err := reltls.NewServerConfig(l.cfg.TLS)
		if err != nil {
			return fmt.Errorf("%s listener: tls: %w", l.name, err)
		}
		if l.cfg.TLS.Watch {
			if err := certs.Watch(); err != nil {
				_ = certs.Close()
				return fmt.Errorf("%s listener: tls: %w", l.name, err)
			}
		}
		tlsConfig = cfg
		l.certs.Store(certs)
	}

	addr := l.cfg.Address()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		l.closeCerts()
		return &BindError{Listener: l.name, Addr: addr, Err: err}
	}
	if l.cfg.Backlog > 0 {
		ln = netutil.LimitListener(ln, l.cfg.Backlog)
	}
	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
	}
	l.ln = ln
	return nil
}

func (l *Listener) closeCerts() {
	certs := l.certs.Load()
	if certs == nil {
		return
	}
	if err := certs.Close(); err != nil {
		slog.Warn("certificate watcher close failed", "listener", l.name, "error", err)
	}
}

// CheckCertificate checks the served certificate for expiry. It is a no-op
// for plain listeners and before Bind.
func (l *Listener) CheckCertificate(ctx context.Context) error {
	certs := l.certs.Load()
	if certs == nil {
		return nil
	}
	if err := certs.CheckExpiration(); err != nil {
		return fmt.Errorf("%s listener: %w", l.name, err)
	}
	return nil
}

// Serve accepts connections until Shutdown. It returns nil after a clean
// shutdown.
func (l *Listener) Serve() error {
	if l.ln == nil {
		return fmt.Errorf("%s listener: Serve called before Bind", l.name)
	}
	if !l.state.CompareAndSwap(int32(StateStarting), int32(StateServing)) {
		if s := l.State(); s == StateDraining || s == StateStopped {
			// Shut down before it started serving.
			return nil
		}
		return fmt.Errorf("%s listener: cannot serve in state %s", l.name, l.State())
	}

	slog.Info("listener serving",
		"listener", l.name,
		"address", l.ln.Addr().String(),
		"scheme", l.Scheme(),
		"backlog", l.cfg.Backlog,
	)

	err := l.srv.Serve(l.ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	l.state.Store(int32(StateStopped))
	return fmt.Errorf("%s listener: %w", l.name, err)
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (l *Listener) Shutdown(ctx context.Context) error {
	prev := State(l.state.Swap(int32(StateDraining)))
	slog.Info("listener draining", "listener", l.name)

	err := l.srv.Shutdown(ctx)
	if prev == StateStarting && l.ln != nil {
		// Never served, so http.Server does not track the socket.
		_ = l.ln.Close()
	}
	l.state.Store(int32(StateStopped))
	l.closeCerts()

	if err != nil {
		_ = l.srv.Close()
		return fmt.Errorf("%s listener shutdown: %w", l.name, err)
	}
	slog.Info("listener stopped", "listener", l.name)
	return nil
}
