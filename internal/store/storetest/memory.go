// Package storetest provides an in-memory store.Repository for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"listings-cms/internal/store"
)

// MemoryRepository keeps documents as BSON maps so partial updates behave
// like a $set against a real collection.
type MemoryRepository[T any] struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]bson.M
	err  error

	// Calls counts repository calls by operation name.
	Calls map[string]int
}

func NewMemoryRepository[T any]() *MemoryRepository[T] {
	return &MemoryRepository[T]{
		docs:  make(map[primitive.ObjectID]bson.M),
		Calls: make(map[string]int),
	}
}

// FailWith makes every subsequent call return err; nil restores normal operation.
func (r *MemoryRepository[T]) FailWith(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *MemoryRepository[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}

func (r *MemoryRepository[T]) List(_ context.Context, filter bson.M) ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls["find"]++
	if r.err != nil {
		return nil, r.err
	}

	matched := make([]bson.M, 0, len(r.docs))
	for _, m := range r.docs {
		if matches(m, filter) {
			matched = append(matched, m)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		ci, cj := createdAt(matched[i]), createdAt(matched[j])
		if ci != cj {
			return ci > cj
		}
		return objectID(matched[i]).Hex() > objectID(matched[j]).Hex()
	})

	out := make([]T, 0, len(matched))
	for _, m := range matched {
		doc, err := decode[T](m)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, nil
}

func (r *MemoryRepository[T]) Get(_ context.Context, id string) (*T, error) {
	oid, err := store.ParseID(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls["find_one"]++
	if r.err != nil {
		return nil, r.err
	}

	m, ok := r.docs[oid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return decode[T](m)
}

func (r *MemoryRepository[T]) Insert(_ context.Context, doc *T) error {
	m, err := encode(doc)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls["insert"]++
	if r.err != nil {
		return r.err
	}

	oid := objectID(m)
	if oid.IsZero() {
		return fmt.Errorf("document has no _id")
	}
	if _, exists := r.docs[oid]; exists {
		return fmt.Errorf("duplicate _id %s", oid.Hex())
	}
	r.docs[oid] = m
	return nil
}

func (r *MemoryRepository[T]) Update(_ context.Context, id string, set bson.M) (*T, error) {
	oid, err := store.ParseID(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls["update"]++
	if r.err != nil {
		return nil, r.err
	}

	m, ok := r.docs[oid]
	if !ok {
		return nil, store.ErrNotFound
	}
	for k, v := range set {
		m[k] = v
	}
	m["updatedAt"] = time.Now().UTC()

	// Round-trip so stored values have the same types as inserted ones.
	doc, err := decode[T](m)
	if err != nil {
		return nil, err
	}
	normalized, err := encode(doc)
	if err != nil {
		return nil, err
	}
	r.docs[oid] = normalized
	return doc, nil
}

func (r *MemoryRepository[T]) Delete(_ context.Context, id string) error {
	oid, err := store.ParseID(id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls["delete"]++
	if r.err != nil {
		return r.err
	}

	if _, ok := r.docs[oid]; !ok {
		return store.ErrNotFound
	}
	delete(r.docs, oid)
	return nil
}

func encode(doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func decode[T any](m bson.M) (*T, error) {
	raw, err := bson.Marshal(m)
	if err != nil {
		return nil, err
	}
	var doc T
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func matches(m, filter bson.M) bool {
	for k, v := range filter {
		if m[k] != v {
			return false
		}
	}
	return true
}

func createdAt(m bson.M) int64 {
	if dt, ok := m["createdAt"].(primitive.DateTime); ok {
		return int64(dt)
	}
	return 0
}

func objectID(m bson.M) primitive.ObjectID {
	oid, _ := m["_id"].(primitive.ObjectID)
	return oid
}
