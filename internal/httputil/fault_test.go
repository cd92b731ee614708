// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

type timeoutErr struct{ msg string }

func (e timeoutErr) Error() string { return e.msg }
func (e timeoutErr) Timeout() bool { return true }
func (e timeoutErr) Temporary() bool { return false }

func TestFault(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want types.ErrorKind
	}{
		{"net timeout", timeoutErr{"i/o timeout"}, types.ErrTimeout},
		{"wrapped url timeout", &url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{"timed out"}}, types.ErrTimeout},
		{"deadline exceeded", fmt.Errorf("doing request: %w", context.DeadlineExceeded), types.ErrTimeout},
		{"connection refused", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("connection refused")}, types.ErrConnection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := Fault(tt.err, "request to arXiv")
			assert.True(t, se.IsError)
			assert.Equal(t, tt.want, se.Type)
			assert.Equal(t, tt.err.Error(), se.Details)
			assert.Equal(t, tt.err, se.Cause())
		})
	}
}

func TestFaultTimeoutMessage(t *testing.T) {
	se := Fault(timeoutErr{"read timed out"}, "request to arXiv")
	assert.Equal(t, "request to arXiv timed out", se.Message)
}

func TestStatusFault(t *testing.T) {
	se := StatusFault(http.StatusServiceUnavailable, "arXiv API")
	assert.Equal(t, types.ErrHTTPStatus, se.Type)
	assert.Equal(t, 503, se.StatusCode)
	assert.Contains(t, se.Message, "HTTP 503")
	assert.Nil(t, se.Cause())

	m := se.Map()
	assert.Equal(t, true, m["error"])
	assert.Equal(t, "http_status", m["type"])
	assert.Equal(t, 503, m["status_code"])
}

func TestParseFault(t *testing.T) {
	cause := errors.New("XML syntax error on line 1")
	se := ParseFault(cause, "arXiv response")
	assert.Equal(t, types.ErrParse, se.Type)
	assert.Equal(t, "could not parse arXiv response", se.Message)
	assert.ErrorIs(t, se.Cause(), cause)
}
