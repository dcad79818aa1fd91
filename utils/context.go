package utils

import (
	"context"
	"time"
)

// Budget is how long one class of operation may run before its context is cancelled.
type Budget time.Duration

const (
	// DefaultTimeout covers a single Mongo or Redis round trip on a request path.
	DefaultTimeout Budget = Budget(10 * time.Second)
	// LongTimeout covers video uploads, exports and audit chain verification.
	LongTimeout Budget = Budget(2 * time.Minute)
	// ShortTimeout covers readiness checks.
	ShortTimeout Budget = Budget(2 * time.Second)
)

// Context derives a child of parent that is cancelled after b. A parent
// deadline that is already sooner still wins.
func (b Budget) Context(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, time.Duration(b))
}

func WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return DefaultTimeout.Context(parent)
}

func WithLongTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return LongTimeout.Context(parent)
}

func WithShortTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return ShortTimeout.Context(parent)
}
