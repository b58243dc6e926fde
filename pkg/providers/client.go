package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"nextgate-hq/relay/pkg/config"
	"nextgate-hq/relay/pkg/telemetry/tracing"
)

// Headers copied from the inbound request to the upstream request. Anything
// else (cookies, client hints, forwarding headers) stays at the gateway.
var forwardHeaders = []string{
	"Authorization",
	"Content-Type",
	"Accept",
	"X-Request-ID",
}

// Recorder receives upstream call outcomes. Implemented by the metrics
// collector.
type Recorder interface {
	RecordUpstream(outcome string, status int, d time.Duration)
}

// Upstream call outcomes passed to Recorder.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// Option configures an OpenAIClient.
type Option func(*OpenAIClient)

// WithRecorder attaches an upstream outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(c *OpenAIClient) { c.recorder = r }
}

// WithHTTPClient replaces the HTTP client. Intended for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *OpenAIClient) { c.client = hc }
}

// OpenAIClient forwards requests to an OpenAI-compatible upstream.
//
// It does not retry: request bodies are streamed through once and chat
// completions are not idempotent.
type OpenAIClient struct {
	base     *url.URL
	name     string
	orgID    string
	timeout  time.Duration
	client   *http.Client
	recorder Recorder
	health   *healthTracker
}

// NewOpenAIClient builds a client for cfg. The transport bounds dialing,
// TLS handshakes and the wait for response headers; the whole forward,
// including the streamed body, is bounded by cfg.Timeout.
func NewOpenAIClient(cfg config.ProviderConfig, opts ...Option) (*OpenAIClient, error) {
	base, err := url.Parse(cfg.UpstreamURL())
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}

	headerTimeout := cfg.Timeout
	if headerTimeout <= 0 || headerTimeout > 2*time.Minute {
		headerTimeout = 2 * time.Minute
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: headerTimeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}

	c := &OpenAIClient{
		base:    base,
		name:    base.Host,
		orgID:   cfg.OrgID,
		timeout: cfg.Timeout,
		client: &http.Client{
			Transport: transport,
			// Redirects are relayed to the caller, not followed.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		health: newHealthTracker(base.Host),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the upstream host.
func (c *OpenAIClient) Name() string {
	return c.name
}

// Target returns the absolute upstream URL for subpath and raw query.
func (c *OpenAIClient) Target(subpath, rawQuery string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(subpath, "/")
	u.RawPath = ""
	u.RawQuery = rawQuery
	return u.String()
}

// Do forwards one request. The returned response body must be closed; closing
// it releases the forward deadline. Responses of any status are returned as
// is; only transport failures produce an error.
func (c *OpenAIClient) Do(ctx context.Context, method, subpath, rawQuery string, header http.Header, body io.Reader) (*http.Response, error) {
	ctx, span := tracing.StartUpstream(ctx, c.name, method, subpath)
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	release := func() {
		cancel()
		span.End()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Target(subpath, rawQuery), body)
	if err != nil {
		tracing.SetError(span, err)
		release()
		return nil, &ProviderError{Provider: c.name, Message: "failed to create request", Cause: err}
	}
	for _, h := range forwardHeaders {
		if v := header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}
	if c.orgID != "" {
		req.Header.Set("OpenAI-Organization", c.orgID)
	}
	tracing.Inject(ctx, req.Header)

	slog.DebugContext(ctx, "forwarding request to provider",
		"provider", c.name,
		"method", method,
		"subpath", subpath,
	)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
		tracing.SetError(span, err)
		release()
		c.health.update(false, err)
		if timedOut {
			c.record(OutcomeTimeout, 0, start)
			return nil, &TimeoutError{Provider: c.name, Timeout: c.timeout}
		}
		c.record(OutcomeError, 0, start)
		return nil, &ProviderError{Provider: c.name, Message: "request failed", Cause: err}
	}

	tracing.SetHTTPStatus(span, resp.StatusCode)
	c.health.update(resp.StatusCode < 500, fmt.Errorf("status %d", resp.StatusCode))
	c.record(OutcomeOK, resp.StatusCode, start)
	resp.Body = &releaseOnClose{ReadCloser: resp.Body, release: release}
	return resp, nil
}

// Close releases idle upstream connections.
func (c *OpenAIClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *OpenAIClient) record(outcome string, status int, start time.Time) {
	if c.recorder != nil {
		c.recorder.RecordUpstream(outcome, status, time.Since(start))
	}
}

// releaseOnClose ends the forward (deadline and span) when the caller is
// done with the body.
type releaseOnClose struct {
	io.ReadCloser
	release func()
	once    sync.Once
}

func (b *releaseOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}
