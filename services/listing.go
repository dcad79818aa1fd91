package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"listings-cms/internal/cache"
	"listings-cms/internal/logger"
	"listings-cms/internal/store"
	"listings-cms/models"
)

// ErrNothingToUpdate is returned when an update payload carries no known fields.
var ErrNothingToUpdate = errors.New("no fields to update")

// CacheStatus describes where a list response came from. It is sent as X-Cache.
type CacheStatus string

const (
	CacheHit   CacheStatus = "HIT"
	CacheMiss  CacheStatus = "MISS"
	CacheStale CacheStatus = "STALE"
)

// CacheObserver receives one call per list lookup. telemetry.Metrics satisfies it.
type CacheObserver interface {
	RecordCacheLookup(resource, outcome string)
}

// ListingOptions configures a ListingService.
type ListingOptions struct {
	Cache    cache.Cache
	TTL      time.Duration
	StaleTTL time.Duration
	Observer CacheObserver
}

// ListingService implements the CRUD contract for one listing resource on
// top of a repository, with list snapshots kept in a cache.
type ListingService[T any] struct {
	name     string
	repo     store.Repository[T]
	cache    cache.Cache
	ttl      time.Duration
	staleTTL time.Duration
	observer CacheObserver
	now      func() time.Time
}

// NewListingService builds the service for the collection name. A nil cache disables caching.
func NewListingService[T any](name string, repo store.Repository[T], opts ListingOptions) *ListingService[T] {
	staleTTL := opts.StaleTTL
	if staleTTL < opts.TTL {
		staleTTL = opts.TTL
	}
	return &ListingService[T]{
		name:     name,
		repo:     repo,
		cache:    opts.Cache,
		ttl:      opts.TTL,
		staleTTL: staleTTL,
		observer: opts.Observer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ListingService[T]) Name() string {
	return s.name
}

// List returns documents newest first. filter holds equality matches on
// stored field names and may be nil.
//
// Snapshots are keyed by the resource's cache generation, read before the
// store query. A write that lands while the query runs bumps the generation,
// so the older result is stored under a key no later List reads.
func (s *ListingService[T]) List(ctx context.Context, filter map[string]string) ([]T, CacheStatus, error) {
	gen, useCache := s.generation(ctx)
	key := s.listKey(gen, filter)
	log := logger.With("resource", s.name, "cache_key", key)

	var (
		entry    cache.Entry
		hasEntry bool
	)
	if useCache {
		e, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Warn("listing cache read failed", "error", err)
		}
		if ok {
			entry, hasEntry = e, true
			if e.Fresh(s.ttl, s.now()) {
				var docs []T
				if err := e.Decode(&docs); err == nil {
					s.observe(CacheHit)
					return nonNil(docs), CacheHit, nil
				}
				log.Warn("discarding undecodable cache entry")
				hasEntry = false
			}
		}
	}

	docs, err := s.repo.List(ctx, toBSON(filter))
	if err != nil {
		if hasEntry && entry.Fresh(s.staleTTL, s.now()) {
			var stale []T
			if decErr := entry.Decode(&stale); decErr == nil {
				log.Warn("serving stale listing snapshot", "error", err, "stored_at", entry.StoredAt)
				s.observe(CacheStale)
				return nonNil(stale), CacheStale, nil
			}
		}
		return nil, "", fmt.Errorf("list %s: %w", s.name, err)
	}

	if useCache {
		if err := s.cache.Put(ctx, key, docs); err != nil {
			log.Warn("listing cache write failed", "error", err)
		}
	}
	s.observe(CacheMiss)
	return nonNil(docs), CacheMiss, nil
}

// Warm refreshes the unfiltered list snapshot from the store.
func (s *ListingService[T]) Warm(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	gen, err := s.cache.Generation(ctx, s.name)
	if err != nil {
		return fmt.Errorf("warm %s: %w", s.name, err)
	}
	docs, err := s.repo.List(ctx, nil)
	if err != nil {
		return fmt.Errorf("warm %s: %w", s.name, err)
	}
	return s.cache.Put(ctx, s.listKey(gen, nil), docs)
}

// All reads straight from the store, bypassing the cache.
func (s *ListingService[T]) All(ctx context.Context) ([]T, error) {
	return s.repo.List(ctx, nil)
}

func (s *ListingService[T]) Get(ctx context.Context, id string) (*T, error) {
	return s.repo.Get(ctx, id)
}

func (s *ListingService[T]) Create(ctx context.Context, cmd models.CreateCommand[T]) (*T, error) {
	doc := cmd.Entity(models.NewDocument(s.now()))
	if err := s.repo.Insert(ctx, &doc); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return &doc, nil
}

func (s *ListingService[T]) Update(ctx context.Context, id string, cmd models.UpdateCommand) (*T, error) {
	if _, err := store.ParseID(id); err != nil {
		return nil, err
	}
	set := cmd.Changes()
	if len(set) == 0 {
		return nil, ErrNothingToUpdate
	}
	doc, err := s.repo.Update(ctx, id, set)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return doc, nil
}

func (s *ListingService[T]) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// generation reports the current cache generation, or false when the cache
// is disabled or unreachable.
func (s *ListingService[T]) generation(ctx context.Context) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.Generation(ctx, s.name)
	if err != nil {
		logger.Warn("listing cache generation read failed", "resource", s.name, "error", err)
		return 0, false
	}
	return gen, true
}

func (s *ListingService[T]) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Bump(ctx, s.name); err != nil {
		logger.Warn("listing cache generation bump failed", "resource", s.name, "error", err)
	}
	if err := s.cache.InvalidatePrefix(ctx, s.keyPrefix()); err != nil {
		logger.Warn("listing cache invalidation failed", "resource", s.name, "error", err)
	}
}

func (s *ListingService[T]) observe(status CacheStatus) {
	if s.observer != nil {
		s.observer.RecordCacheLookup(s.name, strings.ToLower(string(status)))
	}
}

func (s *ListingService[T]) keyPrefix() string {
	return "listing:" + s.name + ":"
}

// listKey is stable for a given filter regardless of map order.
func (s *ListingService[T]) listKey(gen int64, filter map[string]string) string {
	prefix := s.keyPrefix() + strconv.FormatInt(gen, 10) + ":"
	if len(filter) == 0 {
		return prefix + "all"
	}
	parts := make([]string, 0, len(filter))
	for k, v := range filter {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return prefix + strings.Join(parts, "&")
}

func toBSON(filter map[string]string) bson.M {
	m := bson.M{}
	for k, v := range filter {
		m[k] = v
	}
	return m
}

func nonNil[T any](docs []T) []T {
	if docs == nil {
		return []T{}
	}
	return docs
}
