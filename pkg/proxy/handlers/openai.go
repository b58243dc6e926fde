package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"nextgate-hq/relay/pkg/providers"
	"nextgate-hq/relay/pkg/proxy/middleware"
	"nextgate-hq/relay/pkg/proxy/types"
	"nextgate-hq/relay/pkg/security/auth"
)

// MountPath is the URL prefix the OpenAI proxy is served under.
const MountPath = "/api/openai"

// restrictedModelPrefix is the model family blocked when DisableGPT4 is set.
const restrictedModelPrefix = "gpt-4"

// maxModelListSize bounds the model list body read into memory for
// filtering.
const maxModelListSize = 8 << 20

// allowedPaths are the upstream sub-paths callers may reach.
var allowedPaths = map[string]struct{}{
	"/":                              {},
	"v1/chat/completions":            {},
	"v1/models":                      {},
	"dashboard/billing/usage":        {},
	"dashboard/billing/subscription": {},
}

// UpstreamRequestIDHeader carries the provider's own request id. The
// caller's X-Request-ID is never replaced by it.
const UpstreamRequestIDHeader = "X-Upstream-Request-Id"

// Headers not relayed from the upstream response. WWW-Authenticate would
// make browsers show a login prompt.
var droppedResponseHeaders = map[string]struct{}{
	"Www-Authenticate":  {},
	"X-Request-Id":      {},
	"Connection":        {},
	"Keep-Alive":        {},
	"Transfer-Encoding": {},
	"Upgrade":           {},
	"Trailer":           {},
}

// Forwarder sends an admitted request upstream.
type Forwarder interface {
	Do(ctx context.Context, method, subpath, rawQuery string, header http.Header, body io.Reader) (*http.Response, error)
}

// OpenAIHandler proxies /api/openai/* to the upstream provider after the
// path allow-list and admission checks.
type OpenAIHandler struct {
	upstream   Forwarder
	authorizer *auth.Authorizer
	admitted   http.Handler
}

// NewOpenAIHandler creates an OpenAIHandler.
func NewOpenAIHandler(upstream Forwarder, authorizer *auth.Authorizer) *OpenAIHandler {
	h := &OpenAIHandler{upstream: upstream, authorizer: authorizer}
	h.admitted = authorizer.Middleware(http.HandlerFunc(h.serveAdmitted))
	return h
}

// Subpath returns the upstream path for a request path under MountPath.
// An empty remainder maps to "/".
func Subpath(path string) string {
	sub := strings.TrimPrefix(path, MountPath)
	sub = strings.TrimPrefix(sub, "/")
	if sub == "" {
		return "/"
	}
	return sub
}

// IsAllowedPath reports whether subpath may be forwarded.
func IsAllowedPath(subpath string) bool {
	_, ok := allowedPaths[subpath]
	return ok
}

// ServeHTTP implements http.Handler.
func (h *OpenAIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		types.WriteJSON(w, http.StatusOK, map[string]string{"body": "OK"})
		return
	}

	ctx := r.Context()
	subpath := Subpath(r.URL.Path)

	if !IsAllowedPath(subpath) {
		slog.InfoContext(ctx, "forbidden upstream path", "subpath", subpath)
		auth.WriteDenied(w, http.StatusForbidden, "you are not allowed to request "+subpath)
		return
	}

	h.admitted.ServeHTTP(w, r)
}

// serveAdmitted handles a request the authorizer has permitted.
func (h *OpenAIHandler) serveAdmitted(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subpath := Subpath(r.URL.Path)
	decision, _ := auth.DecisionFrom(ctx)

	cfg := h.authorizer.Config()
	var body io.Reader = r.Body
	if cfg.DisableGPT4 && r.Method == http.MethodPost && r.Body != nil && r.Body != http.NoBody {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				types.WriteJSON(w, http.StatusRequestEntityTooLarge, types.NewRequestTooLargeError(
					fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit),
				))
				return
			}
			slog.WarnContext(ctx, "failed to read request body", "subpath", subpath, "error", err)
			types.WriteIndentedJSON(w, http.StatusBadRequest, types.NewErrorResponse(
				"failed to read request body", types.ErrorTypeInvalidRequest, "",
			))
			return
		}
		if model := gjson.GetBytes(raw, "model").String(); strings.HasPrefix(model, restrictedModelPrefix) {
			slog.InfoContext(ctx, "restricted model requested", "model", model)
			auth.WriteDenied(w, http.StatusForbidden, "you are not allowed to use gpt-4 model")
			return
		}
		body = bytes.NewReader(raw)
	} else if r.Method == http.MethodGet || r.Method == http.MethodHead {
		body = nil
	}

	h.forward(ctx, w, r, subpath, body, cfg.DisableGPT4, decision.Path)
}

func (h *OpenAIHandler) forward(ctx context.Context, w http.ResponseWriter, r *http.Request, subpath string, body io.Reader, disableGPT4 bool, path auth.Path) {
	start := time.Now()

	resp, err := h.upstream.Do(ctx, r.Method, subpath, r.URL.RawQuery, r.Header, body)
	if err != nil {
		h.upstreamFailure(ctx, w, subpath, err)
		return
	}
	defer resp.Body.Close()

	if disableGPT4 && subpath == "v1/models" && resp.StatusCode == http.StatusOK {
		h.writeModelList(ctx, w, resp, subpath)
		return
	}

	copyResponseHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	n, err := streamBody(w, resp.Body)
	if err != nil && ctx.Err() == nil {
		slog.WarnContext(ctx, "upstream stream interrupted",
			"subpath", subpath,
			"bytes", n,
			"error", err,
		)
	}

	slog.DebugContext(ctx, "upstream response relayed",
		"subpath", subpath,
		"client", clientFamily(ctx),
		"admission", string(path),
		"status", resp.StatusCode,
		"bytes", n,
		"latency_ms", time.Since(start).Milliseconds(),
	)
}

// writeModelList relays the model list with restricted models removed.
// Every other top-level field and the upstream status are preserved.
func (h *OpenAIHandler) writeModelList(ctx context.Context, w http.ResponseWriter, resp *http.Response, subpath string) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxModelListSize))
	if err != nil {
		h.upstreamFailure(ctx, w, subpath, fmt.Errorf("read model list: %w", err))
		return
	}

	filtered, err := FilterModels(raw, restrictedModelPrefix)
	if err != nil {
		h.upstreamFailure(ctx, w, subpath, &providers.ParseError{Provider: upstreamHost(resp), Cause: err})
		return
	}

	copyResponseHeaders(w.Header(), resp.Header)
	w.Header().Del("Content-Length")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(filtered)
}

// FilterModels removes entries of the model list's data array whose id
// starts with prefix.
func FilterModels(raw []byte, prefix string) ([]byte, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("model list is not valid JSON")
	}
	data := gjson.GetBytes(raw, "data")
	if !data.IsArray() {
		return raw, nil
	}

	kept := make([]string, 0, len(data.Array()))
	data.ForEach(func(_, model gjson.Result) bool {
		if !strings.HasPrefix(model.Get("id").String(), prefix) {
			kept = append(kept, model.Raw)
		}
		return true
	})

	out, err := sjson.SetRawBytes(raw, "data", []byte("["+strings.Join(kept, ",")+"]"))
	if err != nil {
		return nil, fmt.Errorf("rewrite model list: %w", err)
	}
	return out, nil
}

func (h *OpenAIHandler) upstreamFailure(ctx context.Context, w http.ResponseWriter, subpath string, err error) {
	slog.ErrorContext(ctx, "upstream request failed",
		"request_id", middleware.GetRequestID(ctx),
		"subpath", subpath,
		"client", clientFamily(ctx),
		"error", err,
	)
	types.WriteIndentedJSON(w, http.StatusBadGateway, types.NewUpstreamError(err.Error()))
}

func copyResponseHeaders(dst, src http.Header) {
	for k, vv := range src {
		if _, drop := droppedResponseHeaders[http.CanonicalHeaderKey(k)]; drop {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
	if id := src.Get("X-Request-Id"); id != "" {
		dst.Set(UpstreamRequestIDHeader, id)
	}
	dst.Set("X-Accel-Buffering", "no")
}

// streamBody copies src to w, flushing after every chunk so server-sent
// events reach the caller as they arrive.
func streamBody(w http.ResponseWriter, src io.Reader) (int64, error) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	var total int64
	for {
		n, err := src.Read(buf)
		if n > 0 {
			written, werr := w.Write(buf[:n])
			total += int64(written)
			if werr != nil {
				return total, werr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

func upstreamHost(resp *http.Response) string {
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.Host
	}
	return "upstream"
}

func clientFamily(ctx context.Context) string {
	if ua, ok := middleware.GetUserAgent(ctx); ok {
		return ua.Client
	}
	return middleware.ClientUnknown
}
