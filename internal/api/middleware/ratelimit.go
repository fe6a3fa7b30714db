package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/smartcommute/smartcommute/internal/api/models"
)

// RateLimitConfig is a fixed-window request budget per client IP.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

var (
	// ReadRateLimit applies to the status and stop listing endpoints.
	ReadRateLimit = RateLimitConfig{RequestLimit: 60, WindowLength: time.Minute}

	// CheckRateLimit applies to forced checks, each of which spends a
	// directions request.
	CheckRateLimit = RateLimitConfig{RequestLimit: 6, WindowLength: time.Minute}
)

// RateLimitByIP limits requests per client IP. Run chi's RealIP first when
// the API sits behind a proxy.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(math.Ceil(cfg.WindowLength.Seconds())))

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			problem := models.NewTooManyRequests(GetRequestID(r.Context()), "rate limit exceeded, try again later")
			problem.Instance = r.URL.Path

			// httprate does not expose the window reset, so use its length.
			w.Header().Set("Retry-After", retryAfter)
			problem.Write(w)
		}),
	)
}
