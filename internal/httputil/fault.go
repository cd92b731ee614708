// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// Fault classifies a transport error returned by an HTTP client into a
// timeout or connection payload. subject names the remote side in the
// message (e.g. "request to arXiv"). The original error is kept as cause.
func Fault(err error, subject string) *types.StructuredError {
	if IsTimeout(err) {
		return types.NewStructuredError(types.ErrTimeout, subject+" timed out", err)
	}
	return types.NewStructuredError(types.ErrConnection, "could not complete "+subject, err)
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// StatusFault describes a non-success HTTP status.
func StatusFault(code int, subject string) *types.StructuredError {
	se := types.NewStructuredError(types.ErrHTTPStatus,
		fmt.Sprintf("%s returned HTTP %d", subject, code), nil)
	se.StatusCode = code
	se.Details = http.StatusText(code)
	return se
}

// ParseFault describes a malformed response body or document.
func ParseFault(err error, subject string) *types.StructuredError {
	return types.NewStructuredError(types.ErrParse, "could not parse "+subject, err)
}
