package blobstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	*MemoryStore
	mu   sync.Mutex
	gets int
}

func (c *countingStore) Get(ctx context.Context, name string) ([]byte, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.MemoryStore.Get(ctx, name)
}

func TestCachingStore_Get(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	require.NoError(t, inner.MemoryStore.Put(ctx, "a", []byte("alpha")))

	s := NewCachingStore(inner, 1<<20)

	data, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))

	data, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))
	assert.Equal(t, 1, inner.gets)

	st := s.Stats()
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
	assert.Equal(t, int64(1), st.Entries)

	// Mutating a returned blob does not affect the cache.
	data[0] = 'X'
	data, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))
}

func TestCachingStore_Invalidation(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	s := NewCachingStore(inner, 1<<20)

	require.NoError(t, s.Put(ctx, "a", []byte("one")))
	require.NoError(t, s.Put(ctx, "a", []byte("two")))
	data, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
	assert.Equal(t, 0, inner.gets)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	names, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestCachingStore_Clear(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	s := NewCachingStore(inner, 1<<20)
	require.NoError(t, s.Put(ctx, "a", []byte("one")))

	s.Clear()
	_, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.gets)
}
