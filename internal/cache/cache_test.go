/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package cache

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (f *fakeClock) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func newTestCache(opts Options, store Store) (*Cache[string], *fakeClock) {
	c := New[string](opts, zerolog.Nop(), store)
	clock := newFakeClock()
	c.now = func() time.Time { return clock.now }
	return c, clock
}

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	return data, ok, nil
}

func keysOf(c *Cache[string]) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func TestGetMissAndHit(t *testing.T) {
	c, _ := newTestCache(Options{MaxEntries: 4}, nil)

	if _, ok := c.Get("absent"); ok {
		t.Fatal("Get on empty cache returned a value")
	}

	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("Get(k) = %q, %v, want v, true", got, ok)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Size != 1 {
		t.Errorf("stats = %+v, want 1 hit, 1 miss, size 1", stats)
	}
}

func TestLRUEviction(t *testing.T) {
	c, _ := newTestCache(Options{MaxEntries: 2}, nil)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")

	if _, ok := c.Get("a"); ok {
		t.Error("a should have been evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("b should survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should survive")
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("evictions = %d, want 1", got)
	}
}

func TestGetRefreshesRecency(t *testing.T) {
	c, _ := newTestCache(Options{MaxEntries: 2}, nil)

	c.Set("a", "1")
	c.Set("b", "2")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing before refresh test")
	}

	// a was just touched, so inserting c must evict b.
	c.Set("c", "3")
	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted after a's recency refresh")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should survive")
	}
}

func TestSetRepositionsExistingKey(t *testing.T) {
	c, _ := newTestCache(Options{MaxEntries: 2}, nil)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("a", "1b") // rewrite moves a to most-recently-used
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	got, ok := c.Get("a")
	if !ok || got != "1b" {
		t.Errorf("Get(a) = %q, %v, want updated value", got, ok)
	}
}

func TestTTLExpiry(t *testing.T) {
	c, clock := newTestCache(Options{MaxEntries: 4, TTL: 100 * time.Millisecond}, nil)

	c.Set("k", "v")
	clock.advance(150 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry returned from Get")
	}

	stats := c.Stats()
	if stats.Misses != 1 || stats.Hits != 0 {
		t.Errorf("stats = %+v, expiry must count as a miss", stats)
	}
	if stats.Size != 0 {
		t.Errorf("expired entry not removed eagerly, size = %d", stats.Size)
	}
}

func TestCleanExpired(t *testing.T) {
	c, clock := newTestCache(Options{MaxEntries: 8, TTL: time.Minute}, nil)

	c.Set("old1", "x")
	c.Set("old2", "x")
	clock.advance(2 * time.Minute)
	c.Set("fresh", "x")

	if removed := c.CleanExpired(); removed != 2 {
		t.Fatalf("CleanExpired() = %d, want 2", removed)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("fresh entry should survive CleanExpired")
	}
}

func TestCleanExpiredWithoutTTL(t *testing.T) {
	c, clock := newTestCache(Options{MaxEntries: 4}, nil)
	c.Set("k", "v")
	clock.advance(24 * time.Hour)

	if removed := c.CleanExpired(); removed != 0 {
		t.Fatalf("CleanExpired() = %d, want 0 with unbounded TTL", removed)
	}
}

func TestOversizedEntryRejected(t *testing.T) {
	c, _ := newTestCache(Options{MaxEntries: 4, MaxSizeBytes: 10}, nil)

	c.Set("small", "ok")
	c.SetSized("huge", "xxxxxxxxxxxxxxxx", 100)

	if _, ok := c.Get("huge"); ok {
		t.Error("oversized entry should have been rejected")
	}
	if _, ok := c.Get("small"); !ok {
		t.Error("rejection must not disturb existing entries")
	}
}

func TestSizeBasedEviction(t *testing.T) {
	c, _ := newTestCache(Options{MaxEntries: 10, MaxSizeBytes: 10}, nil)

	c.SetSized("a", "x", 4)
	c.SetSized("b", "x", 4)
	c.SetSized("c", "x", 4) // 12 > 10, evicts a

	if _, ok := c.Get("a"); ok {
		t.Error("a should have been evicted on size pressure")
	}
	if got := c.Stats().SizeBytes; got != 8 {
		t.Errorf("total size = %d, want 8", got)
	}
}

func TestDeleteAndClear(t *testing.T) {
	c, _ := newTestCache(Options{MaxEntries: 4}, nil)

	c.Set("a", "1")
	c.Set("b", "2")

	if !c.Delete("a") {
		t.Error("Delete(a) = false, want true")
	}
	if c.Delete("a") {
		t.Error("Delete(a) twice = true, want false")
	}

	c.Clear()
	if stats := c.Stats(); stats.Size != 0 || stats.SizeBytes != 0 {
		t.Errorf("stats after Clear = %+v, want empty", stats)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := newMemStore()
	opts := Options{MaxEntries: 4, TTL: time.Hour, Persistent: true, StorageKey: "bragi:test:snapshot"}

	c, _ := newTestCache(opts, store)
	c.Set("a", "alpha")
	c.Set("b", "beta")

	c.mu.Lock()
	data := c.encodeSnapshotLocked()
	c.mu.Unlock()
	if data == nil {
		t.Fatal("snapshot encoding failed")
	}
	c.writeSnapshot(data)

	restored, _ := newTestCache(opts, store)
	if loaded := restored.Load(context.Background()); loaded != 2 {
		t.Fatalf("Load() = %d, want 2", loaded)
	}

	got, ok := restored.Get("a")
	if !ok || got != "alpha" {
		t.Errorf("restored Get(a) = %q, %v", got, ok)
	}
	if !reflect.DeepEqual(keysOf(restored), []string{"b", "a"}) {
		// a was just read, so it moved to the tail.
		t.Errorf("restored order = %v", keysOf(restored))
	}
}

func TestLoadDropsMalformedPairs(t *testing.T) {
	store := newMemStore()
	opts := Options{MaxEntries: 8, Persistent: true, StorageKey: "k"}

	good := `["good", {"value": "v", "timestamp": 1700000000000, "size": 3}]`
	blob := `[` + good +
		`, "not a pair"` +
		`, [42, {"value": "v", "timestamp": 1700000000000, "size": 1}]` +
		`, ["no-timestamp", {"value": "v", "size": 1}]` +
		`, ["neg-size", {"value": "v", "timestamp": 1700000000000, "size": -1}]` +
		`]`
	if err := store.Put(context.Background(), "k", []byte(blob)); err != nil {
		t.Fatal(err)
	}

	c, _ := newTestCache(opts, store)
	if loaded := c.Load(context.Background()); loaded != 1 {
		t.Fatalf("Load() = %d, want only the valid pair", loaded)
	}
	if _, ok := c.Get("good"); !ok {
		t.Error("valid pair missing after load")
	}
}

func TestLoadDropsExpiredPairs(t *testing.T) {
	store := newMemStore()
	opts := Options{MaxEntries: 8, TTL: time.Minute, Persistent: true, StorageKey: "k"}

	c, clock := newTestCache(opts, store)
	stale := clock.now.Add(-2 * time.Minute).UnixMilli()
	fresh := clock.now.Add(-10 * time.Second).UnixMilli()
	blob := `[["stale", {"value": "v", "timestamp": ` + jsonInt(stale) + `, "size": 1}],` +
		`["fresh", {"value": "v", "timestamp": ` + jsonInt(fresh) + `, "size": 1}]]`
	if err := store.Put(context.Background(), "k", []byte(blob)); err != nil {
		t.Fatal(err)
	}

	if loaded := c.Load(context.Background()); loaded != 1 {
		t.Fatalf("Load() = %d, want 1", loaded)
	}
	if _, ok := c.Get("stale"); ok {
		t.Error("expired pair restored")
	}
}

func TestLoadCorruptBlob(t *testing.T) {
	store := newMemStore()
	opts := Options{MaxEntries: 8, Persistent: true, StorageKey: "k"}
	if err := store.Put(context.Background(), "k", []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	c, _ := newTestCache(opts, store)
	if loaded := c.Load(context.Background()); loaded != 0 {
		t.Fatalf("Load() = %d, want 0 for corrupt blob", loaded)
	}

	// The cache stays usable.
	c.Set("k2", "v")
	if _, ok := c.Get("k2"); !ok {
		t.Error("cache unusable after corrupt load")
	}
}

func TestSnapshotSkipsExpiredEntries(t *testing.T) {
	store := newMemStore()
	opts := Options{MaxEntries: 8, TTL: time.Minute, Persistent: true, StorageKey: "k"}

	c, clock := newTestCache(opts, store)
	c.Set("old", "v")
	clock.advance(2 * time.Minute)
	c.Set("new", "v")

	c.mu.Lock()
	data := c.encodeSnapshotLocked()
	c.mu.Unlock()

	var pairs []json.RawMessage
	if err := json.Unmarshal(data, &pairs); err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 1 {
		t.Fatalf("snapshot has %d pairs, want only the fresh one", len(pairs))
	}
}

func jsonInt(v int64) string {
	data, _ := json.Marshal(v)
	return string(data)
}
