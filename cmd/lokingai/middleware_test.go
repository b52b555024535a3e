package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BaSui01/lokingai/config"
	"github.com/BaSui01/lokingai/internal/ctxkeys"
	"github.com/BaSui01/lokingai/testutil"
	"github.com/BaSui01/lokingai/types"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("ok"))
})

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders()(okHandler)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "1; mode=block", w.Header().Get("X-XSS-Protection"))
	assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
}

func TestChain_OuterMiddlewareRunsFirst(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	Chain(okHandler, mark("a"), mark("b"), mark("c")).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ctxkeys.RequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "client-id")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, "client-id", seen)
	assert.Equal(t, "client-id", w.Header().Get("X-Request-ID"))
}

func TestRecovery_WritesEnvelope(t *testing.T) {
	handler := Recovery(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/text/summarizer", nil))

	env := testutil.AssertEnvelopeError(t, w, http.StatusInternalServerError, string(types.ErrInternalError))
	assert.Equal(t, "internal server error", env.Detail)
}

func TestBodyLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var received string
	handler := BodyLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		received = string(b)
	}))

	body := `{"text":"` + strings.Repeat("x", maxLoggedBody) + `"}`
	handler.ServeHTTP(httptest.NewRecorder(), testutil.JSONRequest(http.MethodPost, "/text/summarizer", body))

	assert.Equal(t, body, received, "downstream reads the whole body")
	entries := logs.FilterMessage("request body").All()
	require.Len(t, entries, 1)
	assert.Equal(t, true, entries[0].ContextMap()["truncated"])
}

func TestRequestLogger_IncludesIdentifiers(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := RequestLogger(zap.New(core))(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/text/summarizer", nil)
	ctx := ctxkeys.WithRequestID(req.Context(), "req-1")
	ctx = ctxkeys.WithTraceID(ctx, "4bf92f3577b34da6a3ce929d0e0e4736")
	handler.ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
}

func TestBodyLogger_SkipsWhenNotDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := BodyLogger(zap.New(core))(okHandler)

	handler.ServeHTTP(httptest.NewRecorder(), testutil.JSONRequest(http.MethodPost, "/text/summarizer", `{"text":"x"}`))
	assert.Zero(t, logs.Len())
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/text/summarizer", http.StatusOK, "/text/summarizer"},
		{"/image/classify", http.StatusBadRequest, "/image/classify"},
		{"/text/123456", http.StatusMethodNotAllowed, "/text/:id"},
		{"/random/probe/path", http.StatusNotFound, "unmatched"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePath(tt.path, tt.status), tt.path)
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		{"wildcard", []string{"*"}, "https://a.example", http.MethodGet, "*", http.StatusOK},
		{"listed origin", []string{"https://a.example"}, "https://a.example", http.MethodGet, "https://a.example", http.StatusOK},
		{"unlisted origin", []string{"https://a.example"}, "https://b.example", http.MethodGet, "", http.StatusOK},
		{"preflight", []string{"https://a.example"}, "https://a.example", http.MethodOptions, "https://a.example", http.StatusNoContent},
		{"no origins configured preflight", nil, "https://a.example", http.MethodOptions, "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/text/", nil)
			r.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			CORS(tt.allowed)(okHandler).ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := RateLimiter(ctx, 1, 1, zap.NewNop())(okHandler)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/text/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/text/", nil))
	testutil.AssertEnvelopeError(t, w, http.StatusTooManyRequests, string(types.ErrRateLimited))

	other := httptest.NewRequest(http.MethodGet, "/text/", nil)
	other.RemoteAddr = "198.51.100.7:4000"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, other)
	assert.Equal(t, http.StatusOK, w.Code, "limits are per client ip")
}

func TestAPIKeyAuth(t *testing.T) {
	handler := APIKeyAuth([]string{"secret-key"}, skipAuthPaths, zap.NewNop())(okHandler)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/text/", nil))
	testutil.AssertEnvelopeError(t, w, http.StatusUnauthorized, string(types.ErrUnauthorized))

	r := httptest.NewRequest(http.MethodGet, "/text/", nil)
	r.Header.Set("X-API-Key", "secret-key")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code, "health is exempt")
}

func TestAPIKeyAuth_DisabledWithoutKeys(t *testing.T) {
	w := httptest.NewRecorder()
	APIKeyAuth(nil, nil, zap.NewNop())(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/text/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func signToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJWTAuth(t *testing.T) {
	cfg := config.JWTConfig{Secret: "s3cret", Issuer: "lokingai", Audience: "api"}
	var subject string
	handler := JWTAuth(cfg, skipAuthPaths, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ = ctxkeys.Subject(r.Context())
	}))

	valid := jwt.RegisteredClaims{
		Subject:   "user-42",
		Issuer:    "lokingai",
		Audience:  jwt.ClaimStrings{"api"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	wrongIssuer := valid
	wrongIssuer.Issuer = "someone-else"

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantDetail string
	}{
		{"valid", "Bearer " + signToken(t, "s3cret", valid), http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, "missing or malformed Authorization header"},
		{"wrong secret", "Bearer " + signToken(t, "other", valid), http.StatusUnauthorized, "invalid token"},
		{"expired", "Bearer " + signToken(t, "s3cret", expired), http.StatusUnauthorized, "token expired"},
		{"wrong issuer", "Bearer " + signToken(t, "s3cret", wrongIssuer), http.StatusUnauthorized, "invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject = ""
			r := httptest.NewRequest(http.MethodPost, "/text/summarizer", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, http.StatusOK, w.Code)
				assert.Equal(t, "user-42", subject)
				return
			}
			env := testutil.AssertEnvelopeError(t, w, tt.wantStatus, string(types.ErrUnauthorized))
			assert.Equal(t, tt.wantDetail, env.Detail)
		})
	}
}

func TestJWTAuth_DisabledWithoutSecret(t *testing.T) {
	w := httptest.NewRecorder()
	JWTAuth(config.JWTConfig{}, nil, zap.NewNop())(okHandler).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/text/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
