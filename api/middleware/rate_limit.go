package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/tradedesk-backend/api/responses"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

// windowLimiter is satisfied by the redis client. Scopes are namespaced by
// the client, so callers pass only the caller-specific part.
type windowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit caps requests per caller in a fixed window. Authenticated
// callers are counted by user id, anonymous ones by client IP. A redis
// failure lets the request through.
func RateLimit(limiter windowLimiter, limit int, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || limit <= 0 || window <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			scope := "api:ip:" + clientIP(r)
			if uid := UserIDFromContext(ctx); uid != "" {
				scope = "api:user:" + uid
			}

			allowed, count, err := limiter.FixedWindowAllow(ctx, scope, int64(limit), window)
			if err != nil {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "rate_limit.unavailable")
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				writeRateLimited(ctx, logg, w, window, map[string]any{"scope": scope, "attempts": count, "limit": limit})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthRateLimitPolicy throttles one auth endpoint by client IP and by the
// email in the request body.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

// AuthRateLimit guards login and register against credential stuffing.
// Unlike RateLimit it fails closed: with redis down the endpoint answers 503.
func AuthRateLimit(policy AuthRateLimitPolicy, limiter windowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			check := func(kind, value string, limit int) bool {
				if limit <= 0 || value == "" {
					return true
				}
				scope := "auth:" + policy.name + ":" + kind + ":" + value
				allowed, count, err := limiter.FixedWindowAllow(ctx, scope, int64(limit), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting unavailable"))
					return false
				}
				if !allowed {
					writeRateLimited(ctx, logg, w, policy.window, map[string]any{
						"policy":   policy.name,
						"scope":    kind,
						"key":      value,
						"attempts": count,
						"limit":    limit,
					})
					return false
				}
				return true
			}

			if !check("ip", clientIP(r), policy.ipLimit) {
				return
			}

			if policy.emailLimit > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeBadRequest, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				// Emails are hashed so raw addresses never land in redis or logs.
				if email := extractEmail(body); email != "" && !check("email", hashValue(email), policy.emailLimit) {
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, window time.Duration, fields map[string]any) {
	if logg != nil {
		fields["window_seconds"] = int(window.Seconds())
		logg.Warn(logg.WithFields(ctx, fields), "rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}

// clientIP prefers the first X-Forwarded-For hop since the API runs behind a
// load balancer.
func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func extractEmail(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
