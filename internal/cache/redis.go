package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

const (
	keyPrefix = "cache:"
	genPrefix = "cachegen:"
)

// RedisCache stores entries as JSON with a retention expiry. Calls run through a
// circuit breaker so a failing Redis costs one fast error instead of a timeout per request.
type RedisCache struct {
	rdb       redis.UniversalClient
	retention time.Duration
	breaker   *gobreaker.CircuitBreaker
	now       func() time.Time
}

// StateObserver is notified on breaker transitions; telemetry.Metrics satisfies it.
type StateObserver interface {
	RecordCircuitBreakerState(service, state string)
}

func NewRedisCache(rdb redis.UniversalClient, retention time.Duration, observer StateObserver) *RedisCache {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ListingCache",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			if observer != nil {
				observer.RecordCircuitBreakerState(name, to.String())
			}
		},
	})

	return &RedisCache{
		rdb:       rdb,
		retention: retention,
		breaker:   breaker,
		now:       time.Now,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		raw, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return raw, err
	})
	if err != nil {
		return Entry{}, false, c.wrap(err)
	}
	if res == nil {
		return Entry{}, false, nil
	}

	var e Entry
	if err := json.Unmarshal(res.([]byte), &e); err != nil {
		// A corrupt entry is treated as a miss and dropped.
		_ = c.Invalidate(ctx, key)
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (c *RedisCache) Put(ctx context.Context, key string, value any) error {
	e, err := newEntry(value, c.now())
	if err != nil {
		return err
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.rdb.Set(ctx, keyPrefix+key, raw, c.retention).Err()
	})
	return c.wrap(err)
}

func (c *RedisCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = keyPrefix + k
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.rdb.Del(ctx, prefixed...).Err()
	})
	return c.wrap(err)
}

func (c *RedisCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		iter := c.rdb.Scan(ctx, 0, keyPrefix+prefix+"*", 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, nil
		}
		return nil, c.rdb.Del(ctx, keys...).Err()
	})
	return c.wrap(err)
}

func (c *RedisCache) Generation(ctx context.Context, name string) (int64, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		n, err := c.rdb.Get(ctx, genPrefix+name).Int64()
		if errors.Is(err, redis.Nil) {
			return int64(0), nil
		}
		return n, err
	})
	if err != nil {
		return 0, c.wrap(err)
	}
	return res.(int64), nil
}

// Bump is atomic across server instances.
func (c *RedisCache) Bump(ctx context.Context, name string) (int64, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.rdb.Incr(ctx, genPrefix+name).Result()
	})
	if err != nil {
		return 0, c.wrap(err)
	}
	return res.(int64), nil
}

func (c *RedisCache) wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
