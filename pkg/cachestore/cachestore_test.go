package cachestore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyulab/fileflux/pkg/cachestore"
	"github.com/iyulab/fileflux/pkg/model"
)

func TestKey_IsDeterministicAndSensitiveToInputs(t *testing.T) {
	mtime := time.Unix(1700000000, 0)
	a := cachestore.Key("doc.md", mtime, "Auto", 1024, 100)
	b := cachestore.Key("doc.md", mtime, "Auto", 1024, 100)
	assert.Equal(t, a, b)

	c := cachestore.Key("doc.md", mtime, "Auto", 2048, 100)
	assert.NotEqual(t, a, c)
}

func TestMemoryStore_SetGetDelete(t *testing.T) {
	store := cachestore.NewMemoryStore()
	ctx := context.Background()
	content := model.ParsedContent{StructuredText: "hello"}

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", content, time.Hour))
	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", got.StructuredText)

	require.NoError(t, store.Delete(ctx, "k"))
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_EntryExpiresAfterTTL(t *testing.T) {
	store := cachestore.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", model.ParsedContent{}, time.Nanosecond))
	time.Sleep(time.Millisecond)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "entry past its TTL should be evicted lazily on Get")
}

func TestMemoryStore_ZeroTTLNeverExpires(t *testing.T) {
	store := cachestore.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", model.ParsedContent{}, 0))
	time.Sleep(time.Millisecond)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_Evict(t *testing.T) {
	store := cachestore.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "expired", model.ParsedContent{}, time.Nanosecond))
	require.NoError(t, store.Set(ctx, "fresh", model.ParsedContent{}, time.Hour))
	time.Sleep(time.Millisecond)

	evicted := store.Evict()
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryGuard_CheckTriggersEvictionWhenThresholdIsZero(t *testing.T) {
	calls := 0
	guard := cachestore.NewMemoryGuard(0, time.Second, func() int {
		calls++
		return 5
	})

	var gotHeap uint64
	var gotEvicted int
	guard.OnTrigger(func(heapBytes uint64, evicted int) {
		gotHeap = heapBytes
		gotEvicted = evicted
	})

	guard.Check()

	assert.Equal(t, 1, calls)
	assert.Equal(t, 5, gotEvicted)
	assert.Greater(t, gotHeap, uint64(0))
}

func TestMemoryGuard_CheckDoesNothingBelowThreshold(t *testing.T) {
	calls := 0
	guard := cachestore.NewMemoryGuard(^uint64(0), time.Second, func() int {
		calls++
		return 0
	})
	guard.Check()
	assert.Equal(t, 0, calls)
}

func TestMemoryGuard_StopIsIdempotent(t *testing.T) {
	guard := cachestore.NewMemoryGuard(^uint64(0), time.Millisecond, func() int { return 0 })
	guard.Start()
	guard.Stop()
	assert.NotPanics(t, func() { guard.Stop() })
}
