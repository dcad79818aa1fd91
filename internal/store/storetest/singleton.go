package storetest

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"listings-cms/internal/store"
)

// MemorySingleton mirrors store.Singleton: defaults apply only on insert.
type MemorySingleton[T any] struct {
	mu  sync.Mutex
	doc bson.M
	err error
}

func NewMemorySingleton[T any]() *MemorySingleton[T] {
	return &MemorySingleton[T]{}
}

func (s *MemorySingleton[T]) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Exists reports whether the document has been created.
func (s *MemorySingleton[T]) Exists() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc != nil
}

func (s *MemorySingleton[T]) Load(_ context.Context, defaults bson.M) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.insertIfAbsent(defaults, nil)
	return decode[T](s.doc)
}

func (s *MemorySingleton[T]) Save(_ context.Context, set, defaults bson.M) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.insertIfAbsent(defaults, set)
	for k, v := range set {
		s.doc[k] = v
	}
	return decode[T](s.doc)
}

func (s *MemorySingleton[T]) insertIfAbsent(defaults, set bson.M) {
	if s.doc != nil {
		return
	}
	s.doc = bson.M{"_id": store.SingletonKey}
	for k, v := range defaults {
		if _, overridden := set[k]; !overridden {
			s.doc[k] = v
		}
	}
}
