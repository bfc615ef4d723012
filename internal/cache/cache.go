/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a bounded in-memory LRU cache with TTL expiration
// and optional durable snapshots. Capacity and size rejections are non-fatal:
// callers always get a success or no-op, never an error, because a cache miss
// must not break the primary search flow.
package cache

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMaxEntries applies when Options.MaxEntries is unset.
const DefaultMaxEntries = 128

// Options configures a cache instance.
type Options struct {
	MaxEntries   int
	TTL          time.Duration // 0 = entries never expire
	MaxSizeBytes int64         // 0 = unbounded
	Persistent   bool          // snapshot to the Store after every Set
	StorageKey   string        // durable key for the snapshot blob
}

// Stats is a point-in-time counter snapshot.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Size      int    `json:"size"`
	SizeBytes int64  `json:"size_bytes"`
}

type entry[V any] struct {
	value          V
	createdAt      time.Time
	lastAccessedAt time.Time
	size           int64
}

// Cache is a bounded LRU store. All operations take the one mutex; Set's
// eviction loop reads and mutates the entry map, the access order, and the
// size accounting together, so they form a single critical section.
type Cache[V any] struct {
	mu      sync.Mutex
	opts    Options
	logger  zerolog.Logger
	store   Store
	entries map[string]*entry[V]
	order   []string // access order, least recently used first
	total   int64

	hits      uint64
	misses    uint64
	evictions uint64

	now func() time.Time
}

// New creates a cache. store may be nil when persistence is disabled.
func New[V any](opts Options, logger zerolog.Logger, store Store) *Cache[V] {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	return &Cache[V]{
		opts:    opts,
		logger:  logger.With().Str("component", "cache").Logger(),
		store:   store,
		entries: make(map[string]*entry[V]),
		now:     time.Now,
	}
}

// Get returns the cached value for key. An entry older than the TTL is
// removed eagerly and counted as a miss, not a hit.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}

	if c.expired(e) {
		c.removeLocked(key)
		c.misses++
		return zero, false
	}

	e.lastAccessedAt = c.now()
	c.moveToTailLocked(key)
	c.hits++
	return e.value, true
}

// Set stores a value, estimating its size from its JSON encoding.
func (c *Cache[V]) Set(key string, value V) {
	var size int64
	if data, err := json.Marshal(value); err == nil {
		size = int64(len(data))
	}
	c.SetSized(key, value, size)
}

// SetSized stores a value with an explicit size. An entry larger than
// MaxSizeBytes is rejected outright rather than evicting everything else.
func (c *Cache[V]) SetSized(key string, value V, size int64) {
	if c.opts.MaxSizeBytes > 0 && size > c.opts.MaxSizeBytes {
		c.logger.Warn().Str("key", key).Int64("size", size).
			Int64("max_size", c.opts.MaxSizeBytes).Msg("cache entry exceeds size limit, not stored")
		return
	}

	c.mu.Lock()

	if _, ok := c.entries[key]; ok {
		c.removeLocked(key)
	}

	// Evict LRU entries until the new entry fits. The iteration cap and the
	// progress check guard against bookkeeping bugs turning this into an
	// infinite loop.
	maxIterations := len(c.entries) + 1
	for i := 0; c.overCapacityLocked(size) && len(c.entries) > 0; i++ {
		if i >= maxIterations {
			c.logger.Error().Str("key", key).Msg("eviction loop hit iteration cap")
			break
		}
		prevCount := len(c.entries)
		prevTotal := c.total
		c.removeLocked(c.order[0])
		c.evictions++
		if len(c.entries) == prevCount && c.total == prevTotal {
			c.logger.Error().Str("key", key).Msg("eviction made no progress, aborting")
			break
		}
	}

	ts := c.now()
	c.entries[key] = &entry[V]{value: value, createdAt: ts, lastAccessedAt: ts, size: size}
	c.order = append(c.order, key)
	c.total += size

	var snapshot []byte
	if c.persistent() {
		snapshot = c.encodeSnapshotLocked()
	}
	c.mu.Unlock()

	if snapshot != nil {
		// Fire-and-forget: persistence must never block or fail the caller.
		go c.writeSnapshot(snapshot)
	}
}

// Delete removes a key, reporting whether it was present.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	c.removeLocked(key)
	return true
}

// Clear drops every entry. Counters are kept.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry[V])
	c.order = c.order[:0]
	c.total = 0
}

// CleanExpired removes every entry older than the TTL and returns the count
// removed. No-op when the TTL is unbounded.
func (c *Cache[V]) CleanExpired() int {
	if c.opts.TTL <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var stale []string
	for key, e := range c.entries {
		if c.expired(e) {
			stale = append(stale, key)
		}
	}
	for _, key := range stale {
		c.removeLocked(key)
	}
	return len(stale)
}

// Stats returns current counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
		SizeBytes: c.total,
	}
}

func (c *Cache[V]) persistent() bool {
	return c.opts.Persistent && c.store != nil && c.opts.StorageKey != ""
}

func (c *Cache[V]) expired(e *entry[V]) bool {
	return c.opts.TTL > 0 && c.now().Sub(e.createdAt) > c.opts.TTL
}

func (c *Cache[V]) overCapacityLocked(incoming int64) bool {
	if len(c.entries) >= c.opts.MaxEntries {
		return true
	}
	return c.opts.MaxSizeBytes > 0 && c.total+incoming > c.opts.MaxSizeBytes
}

func (c *Cache[V]) removeLocked(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	c.total -= e.size
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cache[V]) moveToTailLocked(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, key)
			return
		}
	}
}
