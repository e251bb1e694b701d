package constants

import (
	"fmt"
	"time"
)

// Redis Cache Configuration
// Pattern: twendebus:{module}:{operation}:{identifier}

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_STATIC_LONG      = 24 * time.Hour   // route catalogue
	TTL_REALTIME_SHORT   = 30 * time.Second // seat maps
	TTL_TOKEN_SAFETY_GAP = 60 * time.Second // refresh gateway tokens this long before they expire
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "twendebus"
)

// ================== ROUTES & TRIPS ==================

const (
	CACHE_KEY_ROUTES_LIST = CACHE_PREFIX + ":routes:list"
	CACHE_KEY_SEAT_MAP    = CACHE_PREFIX + ":seats:map:uuid:" // + trip-id
)

const (
	TTL_ROUTES_LIST = TTL_STATIC_LONG
	TTL_SEAT_MAP    = TTL_REALTIME_SHORT
)

// ================== ANALYTICS ==================

const (
	CACHE_KEY_ANALYTICS_DASHBOARD = CACHE_PREFIX + ":analytics:dashboard"
	CACHE_KEY_ANALYTICS_DAILY     = CACHE_PREFIX + ":analytics:daily" // + :days
)

const (
	TTL_ANALYTICS_DASHBOARD = time.Minute
	TTL_ANALYTICS_DAILY     = 5 * time.Minute
)

// ================== PAYMENTS ==================

const (
	CACHE_KEY_MPESA_TOKEN = CACHE_PREFIX + ":payments:mpesa:token" // + :shortcode
)

// ================== MIDDLEWARE ==================

const (
	CACHE_KEY_RATE_LIMIT  = CACHE_PREFIX + ":ratelimit"   // + :ip:type
	CACHE_KEY_IDEMPOTENCY = CACHE_PREFIX + ":idempotency" // + :user:key
)

// ================== KEY BUILDERS ==================

func BuildSeatMapKey(tripID string) string {
	return CACHE_KEY_SEAT_MAP + tripID
}

func BuildDailyStatsKey(days int) string {
	return fmt.Sprintf("%s:%d", CACHE_KEY_ANALYTICS_DAILY, days)
}

func BuildMpesaTokenKey(shortCode string) string {
	return fmt.Sprintf("%s:%s", CACHE_KEY_MPESA_TOKEN, shortCode)
}

func BuildRateLimitKey(clientIP, limitType string) string {
	return fmt.Sprintf("%s:%s:%s", CACHE_KEY_RATE_LIMIT, clientIP, limitType)
}

func BuildIdempotencyKey(scope, key string) string {
	return fmt.Sprintf("%s:%s:%s", CACHE_KEY_IDEMPOTENCY, scope, key)
}
