package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-fiscal/internal/logger"
)

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Error.Code
}

func TestRequestSizeLimit(t *testing.T) {
	router := chi.NewRouter()
	router.Use(RequestSizeLimit(64))
	router.Post("/echo", func(w http.ResponseWriter, r *http.Request) {
		if _, err := bytes.NewBuffer(nil).ReadFrom(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name          string
		size          int
		contentLength int64
		wantCode      int
	}{
		{"within limit", 64, 64, http.StatusOK},
		{"declared too large", 128, 128, http.StatusRequestEntityTooLarge},
		{"undeclared too large", 128, -1, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", tt.size)))
			req.ContentLength = tt.contentLength
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Equal(t, "64", rr.Header().Get("X-Max-Request-Size"))
		})
	}
}

func TestRequestSizeLimit_ErrorBody(t *testing.T) {
	router := chi.NewRouter()
	router.Use(RequestSizeLimit(8))
	router.Post("/", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, "REQUEST_TOO_LARGE", errorCode(t, rr))
}

func TestRateLimit(t *testing.T) {
	router := chi.NewRouter()
	router.Use(RateLimit(10, 5))
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {})

	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rr.Code, "request %d", i+1)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errorCode(t, rr))
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
}

func TestRateLimit_Disabled(t *testing.T) {
	for _, rps := range []int32{0, -1} {
		router := chi.NewRouter()
		router.Use(RateLimit(rps, 1))
		router.Get("/", func(w http.ResponseWriter, r *http.Request) {})

		for i := 0; i < 20; i++ {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, http.StatusOK, rr.Code)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		environment string
		wantHSTS    bool
	}{
		{"dev", false},
		{"prod", true},
		{"staging", true},
	}
	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			router := chi.NewRouter()
			router.Use(SecurityHeaders(tt.environment))
			router.Get("/", func(w http.ResponseWriter, r *http.Request) {})

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
			assert.Equal(t, tt.wantHSTS, rr.Header().Get("Strict-Transport-Security") != "")
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := logger.New(&buf, slog.LevelInfo, "prod")

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(RequestLogger(base))
	router.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		assert.NotSame(t, base, logger.ContextRequestLogger(r.Context()))
		logger.ContextWithLogAttrs(r.Context(), slog.String("operation", "nfe.status"))
		w.WriteHeader(http.StatusAccepted)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Request completed", line["msg"])
	assert.Equal(t, "/ping", line["path"])
	assert.Equal(t, float64(http.StatusAccepted), line["status"])
	assert.Equal(t, "nfe.status", line["operation"])
	assert.NotEmpty(t, line["request_id"])
}
