package cache

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

// Stats is a point-in-time snapshot of the store counters.
type Stats struct {
	Enabled     bool    `json:"enabled"`
	TTL         int     `json:"ttl"`
	MaxSize     int     `json:"max_size"`
	CurrentSize int     `json:"current_size"`
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	HitRate     float64 `json:"hit_rate"`
	Evictions   int64   `json:"evictions"`
	Cleanups    int64   `json:"cleanups"`
}

// EntryInfo describes a single cached entry without exposing its value.
type EntryInfo struct {
	Key              string `json:"key"`
	AgeSeconds       int    `json:"age_seconds"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
	AccessCount      int    `json:"access_count"`
	DataSize         int    `json:"data_size"`
}

// Info is Stats plus per-entry details, youngest entry first.
type Info struct {
	Stats   Stats       `json:"stats"`
	Entries []EntryInfo `json:"entries"`
}

// Stats returns the current counters.
func (s *Store[V]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

func (s *Store[V]) statsLocked() Stats {
	return Stats{
		Enabled:     s.enabled,
		TTL:         int(s.ttl / time.Second),
		MaxSize:     s.maxSize,
		CurrentSize: len(s.entries),
		Hits:        s.hits,
		Misses:      s.misses,
		HitRate:     hitRate(s.hits, s.misses),
		Evictions:   s.evictions,
		Cleanups:    s.cleanups,
	}
}

// Info returns the current counters and a description of every entry,
// including expired ones that have not been cleaned up yet.
func (s *Store[V]) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	ttl := int(s.ttl / time.Second)
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	// Youngest first; seq breaks ties between entries created at the same instant.
	sort.Slice(keys, func(i, j int) bool {
		a, b := s.entries[keys[i]], s.entries[keys[j]]
		if !a.createdAt.Equal(b.createdAt) {
			return a.createdAt.After(b.createdAt)
		}
		return a.seq > b.seq
	})

	entries := make([]EntryInfo, 0, len(keys))
	for _, key := range keys {
		e := s.entries[key]
		age := int(now.Sub(e.createdAt) / time.Second)
		entries = append(entries, EntryInfo{
			Key:              ShortKey(key),
			AgeSeconds:       age,
			ExpiresInSeconds: max(0, ttl-age),
			AccessCount:      e.accessCount,
			DataSize:         dataSize(e.value),
		})
	}

	return Info{Stats: s.statsLocked(), Entries: entries}
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return math.Round(float64(hits)/float64(total)*1000) / 1000
}

// dataSize approximates the footprint of v by its JSON encoding.
func dataSize(v any) int {
	b, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(b)
}
