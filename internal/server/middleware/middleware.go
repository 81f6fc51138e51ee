// Package middleware holds the HTTP middleware of the gateway API.
package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/sirosfoundation/go-fiscal/internal/logger"
	"github.com/sirosfoundation/go-fiscal/internal/server/respond"
	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

// RequestLogger attaches a request scoped logger to the context and logs
// one line per request when it completes, including the attributes
// recorded with logger.ContextWithLogAttrs.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := base.With(
				slog.String("request_id", chimw.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path))
			ctx := logger.ContextWithLogger(r.Context(), reqLogger)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []any{
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			}
			for _, a := range logger.ContextLogAttrs(ctx) {
				attrs = append(attrs, a)
			}
			reqLogger.Info("Request completed", attrs...)
		})
	}
}

// RequestSizeLimit rejects request bodies larger than maxBytes.
//
// Requests declaring a larger Content-Length are refused immediately; other
// bodies are wrapped with http.MaxBytesReader so handlers fail while
// reading. Every response carries an X-Max-Request-Size header.
func RequestSizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Max-Request-Size", strconv.FormatInt(maxBytes, 10))

			if r.ContentLength > maxBytes {
				respond.Error(w, r, fiscalerr.Newf(fiscalerr.KindRequestTooLarge,
					"request body size (%d bytes) exceeds maximum allowed size (%d bytes)", r.ContentLength, maxBytes), false)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders adds security-related headers to all responses
func SecurityHeaders(environment string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			w.Header().Set("Cache-Control", "no-store")

			if environment == "prod" || environment == "staging" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit limits requests per second across all clients. If
// requestsPerSecond <= 0, rate limiting is disabled.
func RateLimit(requestsPerSecond int32, burst int32) func(http.Handler) http.Handler {
	if requestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	if burst <= 0 {
		burst = requestsPerSecond
	}

	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				logger.ContextRequestLogger(r.Context()).Warn("Rate limit exceeded",
					slog.String("remote_addr", r.RemoteAddr))
				logger.ContextWithLogAttrs(r.Context(), slog.String("remote_addr", r.RemoteAddr))

				w.Header().Set("Retry-After", "1")
				respond.Error(w, r, fiscalerr.New(fiscalerr.KindRateLimit,
					"too many requests, please try again later"), false)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
