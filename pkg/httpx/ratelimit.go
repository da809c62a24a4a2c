package httpx

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/medmigrate/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
	// TrustProxyHeaders keys clients by X-Forwarded-For / X-Real-IP. Only set
	// it behind a reverse proxy that overwrites those headers; otherwise a
	// client can pick a fresh key per request.
	TrustProxyHeaders bool
}

// Limits groups the profiles the router applies to its endpoints.
type Limits struct {
	// Strict guards /login and /register against brute force and enumeration.
	Strict RateLimitConfig
	// Lenient applies to protected resource reads.
	Lenient RateLimitConfig
	// Public applies to probes, docs and the index.
	Public RateLimitConfig
}

// DefaultLimits returns the production profiles.
func DefaultLimits() Limits {
	return Limits{
		Strict:  RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5},
		Lenient: RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100},
		Public:  RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
	}
}

// LimitsFromEnv returns DefaultLimits overridden by RATELIMIT_{STRICT,LENIENT,PUBLIC}_*.
// RATELIMIT_TRUST_PROXY_HEADERS=true applies to every profile.
func LimitsFromEnv() Limits {
	l := DefaultLimits()
	l.Strict = ParseRateLimitFromEnv("STRICT", l.Strict)
	l.Lenient = ParseRateLimitFromEnv("LENIENT", l.Lenient)
	l.Public = ParseRateLimitFromEnv("PUBLIC", l.Public)

	if trust, err := strconv.ParseBool(os.Getenv("RATELIMIT_TRUST_PROXY_HEADERS")); err == nil && trust {
		l.Strict.TrustProxyHeaders = true
		l.Lenient.TrustProxyHeaders = true
		l.Public.TrustProxyHeaders = true
	}
	return l
}

// ParseRateLimitFromEnv reads RATELIMIT_{prefix}_REQUESTS, _WINDOW_SEC and
// _BURST. Missing, malformed or non-positive values keep the default.
func ParseRateLimitFromEnv(prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_REQUESTS"); ok {
		config.RequestsPerWindow = n
	}
	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_WINDOW_SEC"); ok {
		config.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_BURST"); ok {
		config.Burst = n
	}

	return config
}

func positiveEnvInt(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// KeyExtractor groups requests for rate limiting (IP, subject, username...).
type KeyExtractor func(*http.Request) string

// IPKeyExtractor extracts the client IP address from the connection. Proxy
// headers are ignored.
func IPKeyExtractor(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// ProxyIPKeyExtractor prefers X-Forwarded-For, then X-Real-IP, then the
// connection address. Use only behind a trusted reverse proxy.
func ProxyIPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return IPKeyExtractor(r)
}

// ClientIPKeyExtractor picks the IP extractor for config.
func ClientIPKeyExtractor(config RateLimitConfig) KeyExtractor {
	if config.TrustProxyHeaders {
		return ProxyIPKeyExtractor
	}
	return IPKeyExtractor
}

// SubjectKeyExtractor extracts the authenticated subject from the request
// context. Returns empty string before AuthnMiddleware has run.
func SubjectKeyExtractor(r *http.Request) string {
	sub, _ := SubjectFromContext(r.Context())
	return sub
}

// FormFieldKeyExtractor extracts a key from a form field, URL query or body.
func FormFieldKeyExtractor(fieldName string) KeyExtractor {
	return func(r *http.Request) string {
		if err := ParseForm(r); err != nil {
			return ""
		}
		return r.Form.Get(fieldName)
	}
}

// CompositeKeyExtractor joins the non-empty keys of several extractors, e.g.
// "192.168.1.1:alice" for IP + username.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, extractor := range extractors {
			if key := extractor(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// rateLimiter keeps one token bucket per key.
type rateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

func (rl *rateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	actual, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	rl.maybeCleanup()
	return actual.(*rate.Limiter)
}

// maybeCleanup drops idle buckets (full of tokens) at most every 5 minutes so
// ephemeral keys do not accumulate.
func (rl *rateLimiter) maybeCleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastCleanup) < 5*time.Minute {
		return
	}
	rl.lastCleanup = time.Now()

	rl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(rl.burst) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// RateLimitMiddleware creates a rate limiting middleware with the given configuration.
func RateLimitMiddleware(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	rl := &rateLimiter{
		rate:        rate.Limit(float64(config.RequestsPerWindow) / config.Window.Seconds()),
		burst:       config.Burst,
		lastCleanup: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := keyExtractor(r)
			if key == "" {
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			limiter := rl.getLimiter(key)
			if limiter.Allow() {
				next.ServeHTTP(w, r)
				return
			}

			// Peek at when the next token lands without consuming it.
			reservation := limiter.Reserve()
			retryAfter := max(int(reservation.Delay().Seconds()), 1)
			reservation.Cancel()

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Window", config.Window.String())

			log.Warn("rate limit exceeded",
				"endpoint", r.URL.Path,
				"retry_after", retryAfter,
			)

			WriteJSON(w, http.StatusTooManyRequests, ErrorBody{
				Error:            "rate_limit_exceeded",
				ErrorDescription: "Too many requests. Please try again later.",
			})
		})
	}
}

// RateLimitByIP creates a rate limiter that limits by IP address only.
func RateLimitByIP(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, ClientIPKeyExtractor(config))
}

// RateLimitBySubject creates a rate limiter keyed by authenticated subject
// and IP. Falls back to IP alone if no subject is present.
func RateLimitBySubject(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, CompositeKeyExtractor(":",
		SubjectKeyExtractor,
		ClientIPKeyExtractor(config),
	))
}

// RateLimitByIPAndFormField limits by IP + form field, e.g. login attempts
// per IP and username.
func RateLimitByIPAndFormField(config RateLimitConfig, fieldName string) Middleware {
	return RateLimitMiddleware(config, CompositeKeyExtractor(":",
		ClientIPKeyExtractor(config),
		FormFieldKeyExtractor(fieldName),
	))
}
