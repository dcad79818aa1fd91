// Package cache holds listing snapshots with explicit staleness.
//
// An Entry is fresh while younger than the caller's TTL and stale afterwards;
// stale entries are kept until the cache's retention elapses so callers can
// serve them when the canonical store is unreachable.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrUnavailable is returned when the backing store is down or the breaker is open.
var ErrUnavailable = errors.New("cache unavailable")

type Entry struct {
	Value    json.RawMessage `json:"value"`
	StoredAt time.Time       `json:"storedAt"`
}

// Fresh reports whether the entry is younger than ttl at now.
func (e Entry) Fresh(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.StoredAt) < ttl
}

// Decode unmarshals the cached value into v.
func (e Entry) Decode(v any) error {
	return json.Unmarshal(e.Value, v)
}

type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context, keys ...string) error
	InvalidatePrefix(ctx context.Context, prefix string) error

	// Generation returns the counter for name, zero if it was never bumped.
	// Counters are not touched by Invalidate or InvalidatePrefix.
	Generation(ctx context.Context, name string) (int64, error)
	// Bump increments the counter for name and returns the new value.
	Bump(ctx context.Context, name string) (int64, error)
}

func newEntry(value any, now time.Time) (Entry, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Value: raw, StoredAt: now.UTC()}, nil
}
