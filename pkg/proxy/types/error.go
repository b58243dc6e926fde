package types

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON error envelope returned for gateway-side
// failures. It follows the OpenAI shape so SDK clients surface the message.
type ErrorResponse struct {
	// Error contains the error details.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type categorizes the error.
	Type string `json:"type"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`
}

// Error type constants.
const (
	// ErrorTypeInvalidRequest indicates a client-side error (400, 413).
	ErrorTypeInvalidRequest = "invalid_request_error"

	// ErrorTypeServerError indicates an internal server error (500).
	ErrorTypeServerError = "server_error"

	// ErrorTypeUpstream indicates the upstream provider could not be reached
	// or returned something unusable (502).
	ErrorTypeUpstream = "upstream_error"
)

// Error code constants.
const (
	// CodeRequestTooLarge indicates the request payload is too large.
	CodeRequestTooLarge = "request_too_large"

	// CodeInternalError indicates an internal server error.
	CodeInternalError = "internal_error"
)

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(message, errorType, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Code:    code,
		},
	}
}

// NewServerError creates an error response for internal server errors (500).
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, CodeInternalError)
}

// NewUpstreamError creates an error response for forwarding failures (502).
func NewUpstreamError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeUpstream, "")
}

// NewRequestTooLargeError creates an error response for oversized bodies (413).
func NewRequestTooLargeError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInvalidRequest, CodeRequestTooLarge)
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteIndentedJSON is WriteJSON with two-space indentation.
func WriteIndentedJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
