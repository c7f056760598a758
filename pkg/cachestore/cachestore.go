// Package cachestore implements the pipeline's shared parsed-content
// cache: a Store interface, a concurrency-safe in-memory default
// implementation, and a rueidis-backed alternative. Grounded on the
// teacher's pkg/redis/client.go (rueidis command building, JSON
// helpers) and internal/redis/cache.go (TTL-per-category key naming).
package cachestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/iyulab/fileflux/pkg/model"
)

// Store caches a parsed document's ParsedContent keyed by a caller-
// supplied cache key (typically {path, mtime, strategy, max_chunk_size,
// overlap} per §4.8 "parsed-content cache").
type Store interface {
	Get(ctx context.Context, key string) (model.ParsedContent, bool, error)
	Set(ctx context.Context, key string, content model.ParsedContent, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close()
}

// Key builds the canonical cache key from the components named in the
// pipeline's cache contract.
func Key(path string, mtime time.Time, strategy string, maxChunkSize, overlapSize int) string {
	raw := fmt.Sprintf("%s|%d|%s|%d|%d", path, mtime.UnixNano(), strategy, maxChunkSize, overlapSize)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// DefaultTTL matches the teacher's DocumentCacheTTL category.
const DefaultTTL = 6 * time.Hour

type memoryEntry struct {
	content model.ParsedContent
	expires time.Time
}

// MemoryStore is the default Store: an in-process, mutex-protected
// map. Entries past their TTL are evicted lazily on Get.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, key string) (model.ParsedContent, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return model.ParsedContent{}, false, nil
	}
	if !entry.expires.IsZero() && time.Now().After(entry.expires) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return model.ParsedContent{}, false, nil
	}
	return entry.content, true, nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, key string, content model.ParsedContent, ttl time.Duration) error {
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = memoryEntry{content: content, expires: expires}
	m.mu.Unlock()
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Close implements Store. MemoryStore holds no external resources.
func (m *MemoryStore) Close() {}

// Len reports the number of (possibly expired) entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Evict removes every expired entry and returns the count evicted,
// used by MemoryGuard's GC trigger.
func (m *MemoryStore) Evict() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	evicted := 0
	for k, e := range m.entries {
		if !e.expires.IsZero() && now.After(e.expires) {
			delete(m.entries, k)
			evicted++
		}
	}
	return evicted
}

func marshalContent(content model.ParsedContent) ([]byte, error) {
	return sonic.Marshal(content)
}

func unmarshalContent(data []byte) (model.ParsedContent, error) {
	var content model.ParsedContent
	if err := sonic.Unmarshal(data, &content); err != nil {
		return model.ParsedContent{}, err
	}
	return content, nil
}
