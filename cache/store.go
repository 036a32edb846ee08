package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrInvalidTTL is returned by New when an enabled cache has a non-positive TTL
	ErrInvalidTTL = errors.New("cache ttl must be positive")
	// ErrInvalidMaxSize is returned by New when an enabled cache has a non-positive size limit
	ErrInvalidMaxSize = errors.New("cache max size must be positive")
)

// Options configures a Store. They are fixed for the lifetime of the store.
type Options struct {
	TTL     time.Duration
	Enabled bool
	MaxSize int

	Logger zerolog.Logger
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

type entry[V any] struct {
	value       V
	createdAt   time.Time
	accessCount int
	seq         uint64
}

// Store is a TTL cache with a fixed capacity. When full, inserting a new key
// evicts the entry with the lowest access count, oldest first on ties.
// It is safe for concurrent use.
type Store[V Cloner[V]] struct {
	ttl     time.Duration
	enabled bool
	maxSize int
	log     zerolog.Logger
	now     func() time.Time

	mu        sync.Mutex
	entries   map[string]*entry[V]
	seq       uint64
	hits      int64
	misses    int64
	evictions int64
	cleanups  int64
}

// New creates a Store from opts.
func New[V Cloner[V]](opts Options) (*Store[V], error) {
	if opts.Enabled {
		if opts.TTL <= 0 {
			return nil, ErrInvalidTTL
		}
		if opts.MaxSize <= 0 {
			return nil, ErrInvalidMaxSize
		}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Store[V]{
		ttl:     opts.TTL,
		enabled: opts.Enabled,
		maxSize: opts.MaxSize,
		log:     opts.Logger.With().Str("component", "cache").Logger(),
		now:     now,
		entries: make(map[string]*entry[V]),
	}
	s.log.Info().
		Dur("ttl", opts.TTL).
		Bool("enabled", opts.Enabled).
		Int("max_size", opts.MaxSize).
		Msg("cache initialized")
	return s, nil
}

// Enabled reports whether the store caches anything at all.
func (s *Store[V]) Enabled() bool { return s.enabled }

// TTL returns the configured time to live.
func (s *Store[V]) TTL() time.Duration { return s.ttl }

// MaxSize returns the configured capacity.
func (s *Store[V]) MaxSize() int { return s.maxSize }

func (s *Store[V]) expired(e *entry[V], now time.Time) bool {
	return now.Sub(e.createdAt) > s.ttl
}

// Get returns a copy of the live value stored under key. Expired entries
// are removed on the way out and count as misses.
func (s *Store[V]) Get(key string) (V, bool) {
	var zero V
	if !s.enabled {
		return zero, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		s.misses++
		s.log.Debug().Str("key", ShortKey(key)).Msg("cache miss")
		return zero, false
	}

	now := s.now()
	if s.expired(e, now) {
		delete(s.entries, key)
		s.misses++
		s.log.Debug().Str("key", ShortKey(key)).Msg("cache entry expired")
		return zero, false
	}

	e.accessCount++
	s.hits++
	s.log.Info().
		Str("key", ShortKey(key)).
		Int("age_seconds", int(now.Sub(e.createdAt)/time.Second)).
		Msg("cache hit")
	return e.value.Clone(), true
}

// Set stores a copy of value under key. Overwriting resets the timestamp
// and access count.
func (s *Store[V]) Set(key string, value V) {
	if !s.enabled {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxSize {
		s.evictLocked()
		if len(s.entries) >= s.maxSize {
			panic("cache: store still at capacity after eviction")
		}
	}

	s.seq++
	s.entries[key] = &entry[V]{
		value:       value.Clone(),
		createdAt:   s.now(),
		accessCount: 1,
		seq:         s.seq,
	}
	s.log.Info().Str("key", ShortKey(key)).Int("size", len(s.entries)).Msg("cached value")
}

// Invalidate removes key. It returns false when the key was absent or the
// cache is disabled.
func (s *Store[V]) Invalidate(key string) bool {
	if !s.enabled {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	s.log.Info().Str("key", ShortKey(key)).Msg("invalidated cache entry")
	return true
}

// CleanupExpired removes every expired entry and returns how many were removed.
func (s *Store[V]) CleanupExpired() int {
	if !s.enabled {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if s.expired(e, now) {
			delete(s.entries, key)
			removed++
		}
	}
	if removed > 0 {
		s.cleanups++
		s.log.Info().Int("removed", removed).Msg("cleaned up expired cache entries")
	}
	return removed
}

// Clear drops all entries, even when the cache is disabled.
func (s *Store[V]) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	clear(s.entries)
	s.log.Info().Int("removed", n).Msg("cleared all cache entries")
	return n
}

// GetOrCompute returns the cached value for key, or calls compute and caches
// its result. The lock is not held while compute runs, so concurrent misses
// on the same key each call compute and the last Set wins. Errors from
// compute are returned as is and never cached.
func (s *Store[V]) GetOrCompute(ctx context.Context, key string, compute ComputeFunc[V]) (V, error) {
	if v, ok := s.Get(key); ok {
		return v, nil
	}

	v, err := compute(ctx)
	if err != nil {
		var zero V
		return zero, err
	}

	s.Set(key, v)
	return v, nil
}

// evictLocked removes the entry with the fewest accesses, breaking ties by
// creation time and then insertion order. Caller holds s.mu.
func (s *Store[V]) evictLocked() {
	var (
		victim string
		best   *entry[V]
	)
	for key, e := range s.entries {
		if best == nil || evictsBefore(e, best) {
			victim, best = key, e
		}
	}
	if best == nil {
		return
	}

	delete(s.entries, victim)
	s.evictions++
	s.log.Debug().Str("key", ShortKey(victim)).Msg("evicted cache entry")
}

func evictsBefore[V any](a, b *entry[V]) bool {
	if a.accessCount != b.accessCount {
		return a.accessCount < b.accessCount
	}
	if !a.createdAt.Equal(b.createdAt) {
		return a.createdAt.Before(b.createdAt)
	}
	return a.seq < b.seq
}
