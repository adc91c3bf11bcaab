// Package testutil provides common helpers for handler and middleware tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"givepool/internal/platform/middleware"
)

// NewJSONRequest creates an HTTP request with a JSON-marshaled body.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithCaller stamps an authenticated caller onto the request context, the way
// the auth middleware does for a valid bearer token.
func WithCaller(req *http.Request, callerID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyCallerID, callerID)
	return req.WithContext(ctx)
}

// DiscardLogger returns a logger that drops everything, for components that
// require one.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
