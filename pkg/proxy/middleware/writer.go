package middleware

import (
	"net/http"
)

// responseWriter wraps http.ResponseWriter to capture the status code and
// byte count, and to run a hook once, just before the headers are sent.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	bytes       int64
	written     bool
	beforeWrite func(http.Header)
}

// newResponseWriter creates a new response writer wrapper. before may be nil.
func newResponseWriter(w http.ResponseWriter, before func(http.Header)) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		beforeWrite:    before,
	}
}

// finalize runs the hook if the headers have not been sent yet.
func (rw *responseWriter) finalize() {
	if rw.written {
		return
	}
	rw.written = true
	if rw.beforeWrite != nil {
		rw.beforeWrite(rw.ResponseWriter.Header())
	}
}

// WriteHeader captures the status code before writing. Informational 1xx
// codes pass straight through and leave the final status pending.
func (rw *responseWriter) WriteHeader(code int) {
	if code < http.StatusOK && code != http.StatusSwitchingProtocols {
		rw.ResponseWriter.WriteHeader(code)
		return
	}
	if rw.written {
		return
	}
	rw.finalize()
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Write ensures WriteHeader is called if not already done.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

// Flush sends buffered data to the client, writing headers first if needed.
func (rw *responseWriter) Flush() {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
