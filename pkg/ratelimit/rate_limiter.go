package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/shared/config"
	"github.com/fredrickBO/TwendeBus/internal/shared/constants"

	"github.com/redis/go-redis/v9"
)

// Bucket groups routes that share a request budget
type Bucket string

const (
	BucketDefault  Bucket = "default"
	BucketBrowse   Bucket = "browse"
	BucketAuth     Bucket = "auth"
	BucketAccount  Bucket = "account"
	BucketSeats    Bucket = "seats"
	BucketPayment  Bucket = "payment"
	BucketAdmin    Bucket = "admin"
	BucketInternal Bucket = "internal"
)

// Limits is the per-window request budget for each bucket
type Limits struct {
	Window  time.Duration
	Default int
	Buckets map[Bucket]int
	Exempt  []string
}

// LimitsFromConfig maps the env-driven settings onto buckets
func LimitsFromConfig(cfg config.RateLimitConfig) Limits {
	return Limits{
		Window:  cfg.WindowDuration,
		Default: cfg.DefaultRequests,
		Buckets: map[Bucket]int{
			BucketBrowse:   cfg.PublicRequests,
			BucketAuth:     cfg.AuthRequests,
			BucketAccount:  cfg.BookingRequests,
			BucketSeats:    cfg.BookingCriticalRequests,
			BucketPayment:  cfg.PaymentRequests,
			BucketAdmin:    cfg.AdminRequests,
			BucketInternal: cfg.HealthRequests,
		},
		Exempt: cfg.WhitelistedIPs,
	}
}

func (l Limits) budget(b Bucket) int {
	if n, ok := l.Buckets[b]; ok && n > 0 {
		return n
	}
	return l.Default
}

func (l Limits) exempt(ip string) bool {
	for _, e := range l.Exempt {
		if e == ip {
			return true
		}
	}
	return false
}

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// fixedWindow increments the counter for the current window and returns the
// new count. The key expires with the window.
var fixedWindow = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// RateLimiter counts requests per client and bucket in Redis
type RateLimiter struct {
	client redis.Scripter
	limits Limits
	now    func() time.Time
}

func NewRateLimiter(client redis.Scripter, limits Limits) *RateLimiter {
	if limits.Window <= 0 {
		limits.Window = time.Minute
	}
	return &RateLimiter{client: client, limits: limits, now: time.Now}
}

// Allow records one request from subject against bucket
func (r *RateLimiter) Allow(ctx context.Context, subject string, bucket Bucket) (Decision, error) {
	limit := r.limits.budget(bucket)
	windowStart := r.now().Truncate(r.limits.Window)
	decision := Decision{Allowed: true, Limit: limit, Remaining: limit, ResetAt: windowStart.Add(r.limits.Window)}

	if limit <= 0 || r.limits.exempt(subject) {
		return decision, nil
	}

	key := constants.BuildRateLimitKey(subject, fmt.Sprintf("%s:%d", bucket, windowStart.Unix()))
	count, err := fixedWindow.Run(ctx, r.client, []string{key}, r.limits.Window.Milliseconds()).Int()
	if err != nil {
		return decision, fmt.Errorf("rate limit check: %w", err)
	}

	decision.Allowed = count <= limit
	decision.Remaining = max(limit-count, 0)
	return decision, nil
}
