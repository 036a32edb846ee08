// Package cache provides the in-memory TTL store that sits in front of
// LLM extraction calls, with bounded size and frequency based eviction.
package cache

import "context"

// Cloner is implemented by values that can be stored in a Store.
// Clone must return a copy that shares no mutable state with the receiver.
type Cloner[V any] interface {
	Clone() V
}

// ComputeFunc produces a value on a cache miss.
type ComputeFunc[V any] func(ctx context.Context) (V, error)

// Reader defines the interface for reading cache entries
type Reader[V any] interface {
	// Get returns a copy of the value stored under key.
	// Returns false if the key is missing, expired or the cache is disabled.
	Get(key string) (V, bool)
}

// Writer defines the interface for writing cache entries
type Writer[V any] interface {
	// Set stores a copy of value under key, evicting one entry if full
	Set(key string, value V)
	// Invalidate removes key and reports whether it was present
	Invalidate(key string) bool
}

// ReadWriter combines both cache operations
type ReadWriter[V any] interface {
	Reader[V]
	Writer[V]
}

// Admin is the value-agnostic surface used by the HTTP admin routes,
// the janitor and the metrics collector.
type Admin interface {
	Stats() Stats
	Info() Info
	CleanupExpired() int
	Clear() int
}
