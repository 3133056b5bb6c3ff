package rate

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const memoryShards = 32

type memoryEntry struct {
	count int64
	start time.Time
}

type memoryShard struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

// MemoryStore is a sharded in-process CounterStore. Windows are tracked
// per key from the first hit; a hit after the window has fully elapsed
// starts a fresh one.
type MemoryStore struct {
	shards [memoryShards]memoryShard
	now    func() time.Time
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithNow(time.Now)
}

// NewMemoryStoreWithNow builds a store on a caller-supplied clock so
// window boundaries can be driven deterministically.
func NewMemoryStoreWithNow(now func() time.Time) *MemoryStore {
	s := &MemoryStore{now: now}
	for i := range s.shards {
		s.shards[i].entries = make(map[string]*memoryEntry)
	}
	return s
}

// Incr implements CounterStore.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	shard := s.shard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	now := s.now()
	entry, ok := shard.entries[key]
	if !ok || now.Sub(entry.start) >= window {
		shard.entries[key] = &memoryEntry{count: 1, start: now}
		return 1, 0, nil
	}

	entry.count++
	return entry.count, now.Sub(entry.start), nil
}

// Reset implements CounterStore.
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	shard := s.shard(key)
	shard.mu.Lock()
	delete(shard.entries, key)
	shard.mu.Unlock()
	return nil
}

func (s *MemoryStore) shard(key string) *memoryShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &s.shards[h.Sum32()%memoryShards]
}
