package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"

	"github.com/showseat/boxoffice/internal/auth"
	"github.com/showseat/boxoffice/internal/domain"
	"github.com/showseat/boxoffice/internal/idempotency"
	"github.com/showseat/boxoffice/internal/observability"
	"github.com/showseat/boxoffice/internal/ratelimit"
)

type ctxKey int

const claimsKey ctxKey = iota

func claimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

// Authenticate parses a Bearer token when present and stores the claims
// in the request context. It never rejects: route groups that need a
// user wrap RequireUser on top.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				claims, err := auth.ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
				if err == nil {
					r = r.WithContext(context.WithValue(r.Context(), claimsKey, claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := claimsFrom(r.Context()); !ok {
			writeError(w, domain.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r.Context())
		if !ok {
			writeError(w, domain.ErrUnauthorized)
			return
		}
		if !claims.IsAdmin {
			writeError(w, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func Logging(logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			observability.RequestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status()), r.Method).Inc()
			logger.WithFields(map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("request")
		})
	}
}

func Tracing(next http.Handler) http.Handler {
	tracer := otel.Tracer("boxoffice/http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimit throttles by authenticated user id, falling back to the
// client address for anonymous traffic.
func RateLimit(limiter *ratelimit.RateLimiter, rate int, period time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			key := r.RemoteAddr
			if i := strings.LastIndex(key, ":"); i > 0 {
				key = key[:i]
			}
			if claims, ok := claimsFrom(r.Context()); ok {
				key = strconv.FormatInt(claims.UserID, 10)
			}
			if !limiter.Allow(r.Context(), r.URL.Path+":"+key, rate, period) {
				observability.RateLimitExceeded.Inc()
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"detail": "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Idempotent replays a stored response when the client repeats a POST
// with the same Idempotency-Key. Requests without the header pass
// through untouched.
func Idempotent(store *idempotency.Idempotency) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if store == nil || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if claims, ok := claimsFrom(r.Context()); ok {
				key = strconv.FormatInt(claims.UserID, 10) + ":" + key
			}
			if stored, err := store.Get(r.Context(), key); err == nil && stored != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(stored.Status)
				w.Write(stored.Body)
				return
			}

			rec := &bufferingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status < http.StatusInternalServerError {
				store.Set(r.Context(), key, idempotency.Response{Status: rec.status, Body: rec.buf})
			}
		})
	}
}

type bufferingWriter struct {
	http.ResponseWriter
	status int
	buf    []byte
}

func (b *bufferingWriter) WriteHeader(status int) {
	b.status = status
	b.ResponseWriter.WriteHeader(status)
}

func (b *bufferingWriter) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return b.ResponseWriter.Write(p)
}
