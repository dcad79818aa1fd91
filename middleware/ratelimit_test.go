package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCounters runs the window script in memory: INCR plus a TTL set whenever
// the key has none.
type fakeCounters struct {
	mu      sync.Mutex
	counts  map[string]int64
	expires map[string]time.Time
	down    bool
	now     func() time.Time
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{
		counts:  map[string]int64{},
		expires: map[string]time.Time{},
		now:     time.Now,
	}
}

func (f *fakeCounters) expire(key string) {
	if at, ok := f.expires[key]; ok && !f.now().Before(at) {
		delete(f.counts, key)
		delete(f.expires, key)
	}
}

func (f *fakeCounters) run(keys []string, args []interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return redis.NewCmdResult(nil, errors.New("connection refused"))
	}
	key := keys[0]
	f.expire(key)
	f.counts[key]++
	if _, ok := f.expires[key]; !ok {
		f.expires[key] = f.now().Add(time.Duration(args[0].(int64)) * time.Millisecond)
	}
	return redis.NewCmdResult(f.counts[key], nil)
}

func (f *fakeCounters) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.run(keys, args)
}

func (f *fakeCounters) EvalSha(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.run(keys, args)
}

func (f *fakeCounters) EvalRO(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.run(keys, args)
}

func (f *fakeCounters) EvalShaRO(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.run(keys, args)
}

func (f *fakeCounters) ScriptExists(_ context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (f *fakeCounters) ScriptLoad(_ context.Context, _ string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}

func (f *fakeCounters) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	f.expire(key)
	n, ok := f.counts[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(strconv.FormatInt(n, 10), nil)
}

func newLoginRouter(store CounterStore, limit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/admin/login", FailedLoginLimit(store, limit, time.Minute), func(c *gin.Context) {
		if c.Query("password") == "ok" {
			c.Status(http.StatusOK)
			return
		}
		c.Status(http.StatusUnauthorized)
	})
	return r
}

func login(r http.Handler, ip, password string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/login?password="+password, nil)
	req.RemoteAddr = ip + ":40000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestFailedLoginLimitBlocksAfterLimit(t *testing.T) {
	store := newFakeCounters()
	r := newLoginRouter(store, 10)

	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusUnauthorized, login(r, "10.0.0.1", "bad"), "attempt %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, login(r, "10.0.0.1", "bad"))
	assert.Equal(t, http.StatusTooManyRequests, login(r, "10.0.0.1", "ok"), "blocked IPs cannot log in either")
	assert.Equal(t, http.StatusUnauthorized, login(r, "10.0.0.2", "bad"), "other IPs are unaffected")
}

func TestFailedLoginLimitIgnoresSuccessfulLogins(t *testing.T) {
	store := newFakeCounters()
	r := newLoginRouter(store, 10)

	for i := 0; i < 9; i++ {
		require.Equal(t, http.StatusUnauthorized, login(r, "10.0.0.1", "bad"))
	}
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, login(r, "10.0.0.1", "ok"))
	}
	assert.Equal(t, http.StatusUnauthorized, login(r, "10.0.0.1", "bad"))
	assert.Equal(t, http.StatusTooManyRequests, login(r, "10.0.0.1", "bad"))
}

func TestFailedLoginLimitWindowExpires(t *testing.T) {
	store := newFakeCounters()
	r := newLoginRouter(store, 2)

	login(r, "10.0.0.1", "bad")
	login(r, "10.0.0.1", "bad")
	require.Equal(t, http.StatusTooManyRequests, login(r, "10.0.0.1", "bad"))

	store.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.Equal(t, http.StatusUnauthorized, login(r, "10.0.0.1", "bad"))
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeCounters()
	r := gin.New()
	r.Use(RateLimitMiddleware(store, 3, time.Minute))
	r.GET("/api/profiles", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "10.0.0.1:40000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 3; i++ {
		w := get("/api/profiles")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, strconv.Itoa(2-i), w.Header().Get("X-RateLimit-Remaining"))
	}
	w := get("/api/profiles")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get("/health").Code)
	}

	store.mu.Lock()
	_, hasTTL := store.expires["ratelimit:10.0.0.1:/api/profiles"]
	store.mu.Unlock()
	assert.True(t, hasTTL)
}

func TestRateLimitFailsOpenWhenRedisIsDown(t *testing.T) {
	store := newFakeCounters()
	store.down = true
	r := newLoginRouter(store, 1)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, login(r, "10.0.0.1", "bad"))
	}
}

func TestWindowCounterSetsTTLOnRedis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	ctx := context.Background()
	key := "ratelimit:test:" + time.Now().Format(time.RFC3339Nano)
	defer rdb.Del(ctx, key)

	// A counter left without a TTL gets one on the next increment.
	require.NoError(t, rdb.Set(ctx, key, 5, 0).Err())
	n, err := incrWindow(ctx, rdb, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	ttl, err := rdb.PTTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}
