package httpx

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/issuer/pkg/ratelimit"
	"github.com/aussiebroadwan/issuer/pkg/slogx"
)

// KeyExtractor returns the rate-limit identity for a request, or "" when
// none can be derived.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor extracts the client IP address from the request.
// It handles X-Forwarded-For and X-Real-IP headers for proxied requests.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// IdentityKeyExtractor keys authenticated callers by wallet address and
// everyone else by IP: "address:0x…" or "ip:203.0.113.1".
func IdentityKeyExtractor(r *http.Request) string {
	if addr, ok := CallerAddress(r.Context()); ok {
		return "address:" + addr
	}
	if ip := IPKeyExtractor(r); ip != "" {
		return "ip:" + ip
	}
	return ""
}

// RateLimitBody is the 429 response.
type RateLimitBody struct {
	Error            string    `json:"error"`
	ErrorDescription string    `json:"error_description"`
	ResetAt          time.Time `json:"reset_at"`
}

// RateLimitMiddleware counts each request against policy p. It sets the
// X-RateLimit-* headers on every response and rejects with 429 once the
// window is spent. Backend failures let the request through.
func RateLimitMiddleware(l *ratelimit.Limiter, p ratelimit.Policy, keyFn KeyExtractor) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			identity := keyFn(r)
			if identity == "" {
				log.Warn("rate limit: unable to extract key, allowing request", "policy", p.Name)
				next.ServeHTTP(w, r)
				return
			}

			res := l.Check(ctx, p, identity)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				retryAfter := max(int(math.Ceil(time.Until(res.ResetAt).Seconds())), 1)
				h.Set("Retry-After", strconv.Itoa(retryAfter))

				log.Warn("rate limit exceeded",
					"key", identity,
					"policy", p.Name,
					"endpoint", r.URL.Path,
					"retry_after", retryAfter,
				)

				WriteJSON(w, http.StatusTooManyRequests, RateLimitBody{
					Error:            "rate_limit_exceeded",
					ErrorDescription: "Too many requests. Please try again later.",
					ResetAt:          res.ResetAt.UTC(),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits by client IP only. Used on unauthenticated routes.
func RateLimitByIP(l *ratelimit.Limiter, p ratelimit.Policy) Middleware {
	return RateLimitMiddleware(l, p, func(r *http.Request) string {
		if ip := IPKeyExtractor(r); ip != "" {
			return "ip:" + ip
		}
		return ""
	})
}

// RateLimitByCaller limits by wallet address, falling back to IP. Place it
// after AuthnMiddleware.
func RateLimitByCaller(l *ratelimit.Limiter, p ratelimit.Policy) Middleware {
	return RateLimitMiddleware(l, p, IdentityKeyExtractor)
}
