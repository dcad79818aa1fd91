package client

import (
	"context"
	"net/http"
	"net/url"
)

// Resource is the CRUD surface of one listing collection.
type Resource[T any] struct {
	c    *Client
	path string
}

func newResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{c: c, path: path}
}

func (r *Resource[T]) Path() string {
	return r.path
}

// GetAll lists the collection newest first. query may be nil.
func (r *Resource[T]) GetAll(ctx context.Context, query url.Values) ([]T, error) {
	path := r.path
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var docs []T
	if err := r.c.doJSON(ctx, http.MethodGet, path, nil, &docs); err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []T{}
	}
	return docs, nil
}

func (r *Resource[T]) GetByID(ctx context.Context, id string) (*T, error) {
	var doc T
	if err := r.c.doJSON(ctx, http.MethodGet, r.itemPath(id), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Create posts payload, typically one of the models.Create*Request types.
func (r *Resource[T]) Create(ctx context.Context, payload any) (*T, error) {
	var doc T
	if err := r.c.doJSON(ctx, http.MethodPost, r.path, payload, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Update sends a partial update; fields absent from payload are left unchanged.
func (r *Resource[T]) Update(ctx context.Context, id string, payload any) (*T, error) {
	var doc T
	if err := r.c.doJSON(ctx, http.MethodPut, r.itemPath(id), payload, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.c.doJSON(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
}

func (r *Resource[T]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}
