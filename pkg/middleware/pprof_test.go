package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pprofRouter(cidrs []string) http.Handler {
	r := chi.NewRouter()
	RegisterPprof(r, cidrs, discardLogger())
	return r
}

func requestFrom(remoteAddr, path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	return req
}

func TestRegisterPprof_LoopbackAllowed(t *testing.T) {
	router := pprofRouter([]string{"127.0.0.1/32"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestFrom("127.0.0.1:52100", "/debug/pprof/"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "profiles")
}

func TestRegisterPprof_ExternalBlocked(t *testing.T) {
	router := pprofRouter([]string{"127.0.0.1/32"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestFrom("198.51.100.20:52100", "/debug/pprof/"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "access restricted")
}

func TestIPAllowlist_RangeMatch(t *testing.T) {
	h := IPAllowlist([]string{"10.0.0.0/8"}, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("10.42.7.1:9000", "/debug/pprof/"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("11.0.0.1:9000", "/debug/pprof/"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestIPAllowlist_InvalidCIDRSkipped(t *testing.T) {
	h := IPAllowlist([]string{"not-a-cidr", "127.0.0.1/32"}, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("127.0.0.1:9000", "/debug/pprof/"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIPAllowlist_EmptyListBlocksEverything(t *testing.T) {
	h := IPAllowlist(nil, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("127.0.0.1:9000", "/debug/pprof/"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestIPAllowlist_UnparseableRemoteAddr(t *testing.T) {
	h := IPAllowlist([]string{"0.0.0.0/0"}, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("garbage", "/debug/pprof/"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
