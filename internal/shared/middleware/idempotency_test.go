package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore keeps keys in a map, ignoring expiry
type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}}
}

func asString(v interface{}) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return redis.NewBoolResult(false, m.err)
	}
	if _, ok := m.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = asString(value)
	return redis.NewBoolResult(true, nil)
}

func (m *memoryStore) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryStore) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = asString(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func idempotentEngine(store IdempotencyStore, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(IdempotencyWithStore(store, time.Hour))
	engine.POST("/bookings", handler)
	return engine
}

func postWithKey(engine *gin.Engine, key string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
	req.Header.Set(idempotencyHeader, key)
	engine.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_ConcurrentDuplicateIsRejected(t *testing.T) {
	var calls int32
	entered := make(chan struct{})
	release := make(chan struct{})
	engine := idempotentEngine(newMemoryStore(), func(c *gin.Context) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			close(entered)
			<-release
		}
		c.JSON(http.StatusCreated, gin.H{"booking": n})
	})

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- postWithKey(engine, "k-1") }()
	<-entered

	// Same key while the first request is still running
	dup := postWithKey(engine, "k-1")
	assert.Equal(t, http.StatusConflict, dup.Code)

	close(release)
	rec := <-first
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"booking":1}`, rec.Body.String())

	replay := postWithKey(engine, "k-1")
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replay"))
	assert.JSONEq(t, `{"booking":1}`, replay.Body.String())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// A different key is a different request
	assert.JSONEq(t, `{"booking":2}`, postWithKey(engine, "k-2").Body.String())
}

func TestIdempotency_ServerErrorReleasesKey(t *testing.T) {
	var calls int
	engine := idempotentEngine(newMemoryStore(), func(c *gin.Context) {
		calls++
		if calls == 1 {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	assert.Equal(t, http.StatusInternalServerError, postWithKey(engine, "k").Code)
	assert.Equal(t, http.StatusOK, postWithKey(engine, "k").Code)
	assert.Equal(t, "true", postWithKey(engine, "k").Header().Get("Idempotent-Replay"))
	assert.Equal(t, 2, calls)
}

func TestIdempotency_StoreDownFailsOpen(t *testing.T) {
	store := newMemoryStore()
	store.err = fmt.Errorf("connection refused")
	var calls int
	engine := idempotentEngine(store, func(c *gin.Context) {
		calls++
		c.Status(http.StatusNoContent)
	})

	postWithKey(engine, "k")
	postWithKey(engine, "k")
	assert.Equal(t, 2, calls)
}
