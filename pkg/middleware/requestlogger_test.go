package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/electroshop/backend/pkg/logger"
)

// echoHandler logs one line through the request-scoped logger.
func echoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("handled")
		w.WriteHeader(http.StatusOK)
	}
}

func runRequestLogger(t *testing.T, mutate func(*http.Request)) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	base := logger.NewWithWriter("backend", "info", &buf)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	if mutate != nil {
		mutate(req)
	}
	RequestLogger(base)(echoHandler()).ServeHTTP(httptest.NewRecorder(), req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out), "expected one JSON log line")
	return out
}

func TestRequestLogger_StoresLoggerInContext(t *testing.T) {
	var got *slog.Logger
	h := RequestLogger(slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = logger.FromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, got)
	assert.NotEqual(t, slog.Default(), got, "handler should see the enriched logger, not the default")
}

func TestRequestLogger_CorrelationID(t *testing.T) {
	out := runRequestLogger(t, func(r *http.Request) {
		ctx := logger.WithCorrelationID(r.Context(), "req-55aa")
		*r = *r.WithContext(ctx)
	})

	assert.Equal(t, "req-55aa", out["correlation_id"])
}

func TestRequestLogger_UserIDFromHeader(t *testing.T) {
	out := runRequestLogger(t, func(r *http.Request) {
		r.Header.Set("X-User-ID", "7")
	})

	assert.Equal(t, "7", out["user_id"])
}

func TestRequestLogger_NoUserID(t *testing.T) {
	out := runRequestLogger(t, nil)

	_, present := out["user_id"]
	assert.False(t, present, "user_id should be absent without a header")
}

func TestRequestLogger_TraceFields(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	out := runRequestLogger(t, func(r *http.Request) {
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		})
		*r = *r.WithContext(trace.ContextWithSpanContext(context.Background(), sc))
	})

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", out["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", out["span_id"])
}
