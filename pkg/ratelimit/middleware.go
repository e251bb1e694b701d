package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/fredrickBO/TwendeBus/internal/shared/utils/response"
	"github.com/fredrickBO/TwendeBus/pkg/logger"

	"github.com/gin-gonic/gin"
)

// rule assigns a bucket to route templates matching any of its fragments
type rule struct {
	bucket    Bucket
	prefixes  []string
	fragments []string
	suffixes  []string
}

func (r rule) matches(path string) bool {
	for _, p := range r.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	for _, f := range r.fragments {
		if strings.Contains(path, f) {
			return true
		}
	}
	for _, s := range r.suffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

// First match wins
var rules = []rule{
	{bucket: BucketInternal, prefixes: []string{"/health", "/ping"}, suffixes: []string{"/status"}},
	{bucket: BucketAdmin, fragments: []string{"/admin/"}},
	{bucket: BucketAuth, fragments: []string{"/auth/"}},
	{bucket: BucketPayment, fragments: []string{"/pay/mpesa", "/topup/mpesa"}},
	{bucket: BucketSeats, fragments: []string{"/hold", "/from-holds", "/cancel", "/pay/wallet"}, suffixes: []string{"/bookings"}},
	{bucket: BucketAccount, fragments: []string{"/bookings", "/wallet", "/notifications", "/users/me", "/cancellations"}},
	{bucket: BucketBrowse, fragments: []string{"/routes", "/trips", "/swagger"}},
}

// bucketFor maps a route template to its bucket. Unmatched routes share the
// default budget.
func bucketFor(path string) Bucket {
	for _, r := range rules {
		if r.matches(path) {
			return r.bucket
		}
	}
	return BucketDefault
}

// exemptRoute reports routes that are never throttled. The M-Pesa callback
// retries on anything but 200, so a 429 there only makes more traffic.
func exemptRoute(path string) bool {
	return strings.HasSuffix(path, "/payments/mpesa/callback")
}

// Middleware throttles requests per client IP. Redis failures let the
// request through.
func Middleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" || exemptRoute(path) {
			c.Next()
			return
		}

		ip := c.ClientIP()
		decision, err := limiter.Allow(c.Request.Context(), ip, bucketFor(path))
		if err != nil {
			logger.GetDefault().Warn("rate limiter unavailable",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			logger.GetDefault().LogRateLimitExceeded(c.Request.Context(), ip, path)
			response.RespondJSON(c, "error", http.StatusTooManyRequests, "Too many requests, slow down", nil,
				map[string]interface{}{"limit": decision.Limit, "reset_at": decision.ResetAt.Unix()})
			c.Abort()
			return
		}
		c.Next()
	}
}
