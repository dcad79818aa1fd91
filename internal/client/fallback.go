package client

import (
	"context"
	"net/url"
	"sync"

	"listings-cms/internal/cache"
	"listings-cms/internal/logger"
	"listings-cms/models"
)

// FallbackLister lists a resource and keeps the last good copy of each query
// so a failed fetch can still return data. The set of cached queries is
// stored in the cache too, so a persistent cache works across processes.
type FallbackLister[T models.Identifiable] struct {
	resource *Resource[T]
	cache    cache.Cache

	mu sync.Mutex
}

func NewFallbackLister[T models.Identifiable](resource *Resource[T], c cache.Cache) *FallbackLister[T] {
	return &FallbackLister[T]{resource: resource, cache: c}
}

// List fetches from the API. On failure it returns the cached copy with
// stale set, or an empty slice and the error when nothing is cached.
func (f *FallbackLister[T]) List(ctx context.Context, query url.Values) (items []T, stale bool, err error) {
	key := f.key(query)

	docs, fetchErr := f.resource.GetAll(ctx, query)
	if fetchErr == nil {
		if err := f.cache.Put(ctx, key, docs); err != nil {
			logger.Warn("failed to cache listing", "key", key, "error", err)
		} else {
			f.remember(ctx, key)
		}
		return docs, false, nil
	}

	cached, ok := f.load(ctx, key)
	if !ok {
		return []T{}, false, fetchErr
	}
	logger.Warn("serving cached listing", "key", key, "error", fetchErr)
	return cached, true, nil
}

// Delete removes the item remotely and from every cached copy. The cached
// copies are updated even when the remote call fails; its error is still returned.
func (f *FallbackLister[T]) Delete(ctx context.Context, id string) error {
	remoteErr := f.resource.Delete(ctx, id)
	if remoteErr != nil {
		logger.Warn("remote delete failed, removing from cached listings", "path", f.resource.Path(), "id", id, "error", remoteErr)
	}

	for _, key := range f.cachedKeys(ctx) {
		cached, ok := f.load(ctx, key)
		if !ok {
			continue
		}
		kept := make([]T, 0, len(cached))
		for _, item := range cached {
			if item.Key() != id {
				kept = append(kept, item)
			}
		}
		if len(kept) == len(cached) {
			continue
		}
		if err := f.cache.Put(ctx, key, kept); err != nil {
			logger.Warn("failed to update cached listing", "key", key, "error", err)
		}
	}
	return remoteErr
}

func (f *FallbackLister[T]) load(ctx context.Context, key string) ([]T, bool) {
	entry, ok, err := f.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var docs []T
	if err := entry.Decode(&docs); err != nil {
		return nil, false
	}
	if docs == nil {
		docs = []T{}
	}
	return docs, true
}

func (f *FallbackLister[T]) remember(ctx context.Context, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := f.cachedKeys(ctx)
	for _, k := range keys {
		if k == key {
			return
		}
	}
	if err := f.cache.Put(ctx, f.indexKey(), append(keys, key)); err != nil {
		logger.Warn("failed to record cached listing key", "key", key, "error", err)
	}
}

func (f *FallbackLister[T]) cachedKeys(ctx context.Context) []string {
	entry, ok, err := f.cache.Get(ctx, f.indexKey())
	if err != nil || !ok {
		return nil
	}
	var keys []string
	if err := entry.Decode(&keys); err != nil {
		return nil
	}
	return keys
}

func (f *FallbackLister[T]) key(query url.Values) string {
	return "client:" + f.resource.Path() + "?" + query.Encode()
}

func (f *FallbackLister[T]) indexKey() string {
	return "client:" + f.resource.Path() + "#keys"
}
