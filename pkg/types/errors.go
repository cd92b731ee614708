// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ErrorKind classifies a transport, extraction, or backend fault.
type ErrorKind string

const (
	ErrTimeout            ErrorKind = "timeout"
	ErrConnection         ErrorKind = "connection"
	ErrHTTPStatus         ErrorKind = "http_status"
	ErrParse              ErrorKind = "parse"
	ErrBackendUnavailable ErrorKind = "backend_unavailable"
	ErrUnsupportedModel   ErrorKind = "unsupported_model"
)

// StructuredError is the error-as-data payload returned by the feed client
// and embedded in PaperContext. It deliberately does not implement the error
// interface: callers inspect it, they do not propagate it.
type StructuredError struct {
	// IsError is always true; it keeps the serialized payload self-describing.
	IsError bool `json:"error" yaml:"error"`

	Type    ErrorKind `json:"type" yaml:"type"`
	Message string    `json:"message" yaml:"message"`
	Details string    `json:"details,omitempty" yaml:"details,omitempty"`

	// StatusCode is set for http_status faults.
	StatusCode int `json:"status_code,omitempty" yaml:"status_code,omitempty"`

	cause error
}

// NewStructuredError builds a payload of the given kind. cause may be nil.
func NewStructuredError(kind ErrorKind, message string, cause error) *StructuredError {
	se := &StructuredError{
		IsError: true,
		Type:    kind,
		Message: message,
		cause:   cause,
	}
	if cause != nil {
		se.Details = cause.Error()
	}
	return se
}

// Cause returns the lower-level fault the payload was derived from, if any.
func (e *StructuredError) Cause() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Map returns the payload as a plain mapping, the shape handed to callers of
// the retrieval facade.
func (e *StructuredError) Map() map[string]any {
	if e == nil {
		return nil
	}
	m := map[string]any{
		"error":   true,
		"type":    string(e.Type),
		"message": e.Message,
	}
	if e.Details != "" {
		m["details"] = e.Details
	}
	if e.StatusCode != 0 {
		m["status_code"] = e.StatusCode
	}
	return m
}
