package slogx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/issuer/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "test", Format: "json", Level: "debug", Output: &buf})

	var seen string
	h := slogx.HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slogx.FromContext(r.Context()).Info("inside")
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	seen = rec.Header().Get(slogx.RequestIDHeader)
	require.True(t, strings.HasPrefix(seen, "req_"))

	// Two lines: the handler's and the access line. Both carry the id.
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		require.Equal(t, seen, entry["req_id"])
	}

	var access map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &access))
	require.Equal(t, float64(http.StatusTeapot), access["status"])
}

func TestHTTPMiddlewareKeepsCallerRequestID(t *testing.T) {
	h := slogx.HTTPMiddleware(slogx.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(slogx.RequestIDHeader, "upstream-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "upstream-123", rec.Header().Get(slogx.RequestIDHeader))
}

func TestHTTPMiddlewareAccessLineCarriesRequestAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "test", Format: "json", Output: &buf})

	h := slogx.HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := slogx.With(r.Context(), "caller", "0xabc")
		_ = slogx.With(ctx, "delegation_id", "dlg_1")
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/credentials/issue", nil))

	var access map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &access))
	require.Equal(t, "http_request", access["msg"])
	require.Equal(t, "ERROR", access["level"])
	require.Equal(t, "0xabc", access["caller"])
	require.Equal(t, "dlg_1", access["delegation_id"])
	require.Equal(t, float64(http.StatusInternalServerError), access["status"])
	require.Equal(t, float64(len("boom\n")), access["bytes"])
}

func TestWithOutsideRequest(t *testing.T) {
	ctx := slogx.With(context.Background(), "k", "v")
	require.NotNil(t, slogx.FromContext(ctx))
}

func TestNewRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "test", Format: "json", Output: &buf})

	logger.Info("delegation received",
		"permission_context", "0xdeadbeef",
		"Signature", "0xabc",
		slog.Group("req", "authorization", "Bearer abc"),
		"delegation_id", "dlg_1",
	)

	out := buf.String()
	require.NotContains(t, out, "0xdeadbeef")
	require.NotContains(t, out, "0xabc")
	require.NotContains(t, out, "Bearer abc")
	require.Contains(t, out, "dlg_1")
	require.Equal(t, 3, strings.Count(out, "[REDACTED]"))
}
