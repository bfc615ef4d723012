/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Store is the durable key-value collaborator used for optional snapshots.
// Implementations must tolerate concurrent calls.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

// maxSnapshotBytes is the hard ceiling for a single persisted blob. A
// snapshot above it is skipped with a warning rather than failing the Set.
const maxSnapshotBytes = 5 << 20

const storeTimeout = 5 * time.Second

// persistedEntry is the durable form of one cache entry. Timestamp and
// Accessed are unix milliseconds.
type persistedEntry struct {
	Value     json.RawMessage `json:"value"`
	Timestamp int64           `json:"timestamp"`
	Accessed  int64           `json:"accessed,omitempty"`
	Size      int64           `json:"size"`
}

// persistedPair serializes as a [key, entry] array element.
type persistedPair struct {
	Key   string
	Entry persistedEntry
}

func (p persistedPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Key, p.Entry})
}

// decodePair validates one persisted [key, entry] pair. Malformed pairs are
// reported as errors so the loader can drop them individually instead of
// losing the whole snapshot.
func decodePair(raw json.RawMessage) (persistedPair, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return persistedPair{}, fmt.Errorf("pair is not an array: %w", err)
	}
	if len(parts) != 2 {
		return persistedPair{}, fmt.Errorf("pair has %d elements, want 2", len(parts))
	}

	var p persistedPair
	if err := json.Unmarshal(parts[0], &p.Key); err != nil {
		return persistedPair{}, fmt.Errorf("pair key is not a string: %w", err)
	}
	if err := json.Unmarshal(parts[1], &p.Entry); err != nil {
		return persistedPair{}, fmt.Errorf("pair entry malformed: %w", err)
	}
	if p.Key == "" {
		return persistedPair{}, fmt.Errorf("pair key is empty")
	}
	if p.Entry.Timestamp <= 0 {
		return persistedPair{}, fmt.Errorf("pair entry timestamp missing")
	}
	if p.Entry.Size < 0 {
		return persistedPair{}, fmt.Errorf("pair entry size negative")
	}
	return p, nil
}

// encodeSnapshotLocked serializes the cache as an array of [key, entry]
// pairs in LRU order, filtered to non-expired entries and truncated to
// MaxEntries. Returns nil when the blob exceeds the size ceiling. Caller
// holds the mutex.
func (c *Cache[V]) encodeSnapshotLocked() []byte {
	pairs := make([]persistedPair, 0, len(c.order))
	for _, key := range c.order {
		if len(pairs) >= c.opts.MaxEntries {
			break
		}
		e, ok := c.entries[key]
		if !ok || c.expired(e) {
			continue
		}
		value, err := json.Marshal(e.value)
		if err != nil {
			c.logger.Debug().Err(err).Str("key", key).Msg("skipping unserializable cache entry")
			continue
		}
		pairs = append(pairs, persistedPair{
			Key: key,
			Entry: persistedEntry{
				Value:     value,
				Timestamp: e.createdAt.UnixMilli(),
				Accessed:  e.lastAccessedAt.UnixMilli(),
				Size:      e.size,
			},
		})
	}

	data, err := json.Marshal(pairs)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to serialize cache snapshot")
		return nil
	}
	if len(data) > maxSnapshotBytes {
		c.logger.Warn().Int("bytes", len(data)).Msg("cache snapshot exceeds size ceiling, skipping save")
		return nil
	}
	return data
}

// writeSnapshot stores a serialized snapshot. Failures are logged, never
// propagated.
func (c *Cache[V]) writeSnapshot(data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := c.store.Put(ctx, c.opts.StorageKey, data); err != nil {
		c.logger.Warn().Err(err).Str("storage_key", c.opts.StorageKey).Msg("cache snapshot write failed")
	}
}

// Load restores entries from the durable store. Malformed or expired pairs
// are dropped silently; corrupt persisted state degrades to a smaller cache,
// it never fails the caller. Returns the number of entries restored.
func (c *Cache[V]) Load(ctx context.Context) int {
	if !c.persistent() {
		return 0
	}

	data, ok, err := c.store.Get(ctx, c.opts.StorageKey)
	if err != nil {
		c.logger.Warn().Err(err).Msg("cache snapshot read failed")
		return 0
	}
	if !ok {
		return 0
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		c.logger.Warn().Err(err).Msg("cache snapshot corrupt, starting empty")
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	loaded := 0
	dropped := 0
	for _, item := range raw {
		if len(c.entries) >= c.opts.MaxEntries {
			break
		}
		p, err := decodePair(item)
		if err != nil {
			dropped++
			continue
		}

		created := time.UnixMilli(p.Entry.Timestamp)
		if c.opts.TTL > 0 && c.now().Sub(created) > c.opts.TTL {
			dropped++
			continue
		}

		var value V
		if err := json.Unmarshal(p.Entry.Value, &value); err != nil {
			dropped++
			continue
		}
		if _, exists := c.entries[p.Key]; exists {
			continue
		}

		accessed := created
		if p.Entry.Accessed > 0 {
			accessed = time.UnixMilli(p.Entry.Accessed)
		}
		c.entries[p.Key] = &entry[V]{value: value, createdAt: created, lastAccessedAt: accessed, size: p.Entry.Size}
		c.order = append(c.order, p.Key)
		c.total += p.Entry.Size
		loaded++
	}

	if loaded > 0 || dropped > 0 {
		c.logger.Debug().Int("loaded", loaded).Int("dropped", dropped).Msg("cache snapshot restored")
	}
	return loaded
}
