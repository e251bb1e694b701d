package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/shared/constants"
	"github.com/fredrickBO/TwendeBus/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const idempotencyHeader = "Idempotency-Key"

// cachedResponse is a stored reply for a replayed request
type cachedResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
}

type capturingWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyStore is the slice of the Redis API the middleware needs
type IdempotencyStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

const (
	// Marker held under the key while the first request is being handled
	idempotencyInFlight = "in-flight"

	// A reservation outlives any sane request but not a crashed process
	idempotencyLockTTL = time.Minute
)

// Idempotency replays the first response for a repeated Idempotency-Key.
// Keys are scoped per caller so one user cannot read another's reply.
// Server errors are not cached, so they can be retried. Without Redis the
// header is ignored.
func Idempotency(client *redis.Client, ttl time.Duration) gin.HandlerFunc {
	if client == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return IdempotencyWithStore(client, ttl)
}

// IdempotencyWithStore is Idempotency over any store. The key is reserved
// with SETNX before the handler runs, so of two concurrent requests with the
// same key only one reaches the handler; the other gets 409 until the first
// response is stored.
func IdempotencyWithStore(store IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		scope := c.GetString(ctxUserID)
		if scope == "" {
			scope = "anonymous"
		}
		cacheKey := constants.BuildIdempotencyKey(scope, c.Request.Method+":"+c.FullPath()+":"+key)
		ctx := c.Request.Context()

		reserved, err := store.SetNX(ctx, cacheKey, idempotencyInFlight, idempotencyLockTTL).Result()
		if err != nil {
			// Redis trouble must not take the API down with it
			c.Next()
			return
		}
		if !reserved {
			cached, err := getCachedResponse(ctx, store, cacheKey)
			if err == nil && cached != nil {
				c.Header("Idempotent-Replay", "true")
				c.Data(cached.StatusCode, "application/json; charset=utf-8", cached.Body)
				c.Abort()
				return
			}
			response.RespondJSON(c, "error", http.StatusConflict, "A request with this Idempotency-Key is still being processed", nil, nil)
			c.Abort()
			return
		}

		w := &capturingWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w

		c.Next()

		// The request context may be gone by now
		storeCtx := context.WithoutCancel(ctx)
		if status := w.Status(); status >= 200 && status < 500 {
			_ = setCachedResponse(storeCtx, store, cacheKey, &cachedResponse{
				StatusCode: status,
				Body:       w.body.Bytes(),
			}, ttl)
			return
		}
		_ = store.Del(storeCtx, cacheKey).Err()
	}
}

func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch || method == http.MethodDelete
}

// getCachedResponse returns nil without error while the key only holds the
// in-flight marker.
func getCachedResponse(ctx context.Context, store IdempotencyStore, key string) (*cachedResponse, error) {
	data, err := store.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	if string(data) == idempotencyInFlight {
		return nil, nil
	}

	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

func setCachedResponse(ctx context.Context, store IdempotencyStore, key string, resp *cachedResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return store.Set(ctx, key, data, ttl).Err()
}
