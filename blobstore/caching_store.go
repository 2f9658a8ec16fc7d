package blobstore

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/coocood/freecache"
	"golang.org/x/sync/singleflight"
)

// CachingStore wraps a BlobStore and caches whole blobs read through it.
//
// Blobs larger than the cache's entry limit (1/1024 of its size) are
// served from the inner store every time. Concurrent misses for the same
// name share one inner read.
type CachingStore struct {
	inner BlobStore
	cache *freecache.Cache
	group singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Entries int64
}

// NewCachingStore creates a new CachingStore holding up to sizeBytes of
// blob data. freecache enforces a minimum of 512KB.
func NewCachingStore(inner BlobStore, sizeBytes int) *CachingStore {
	return &CachingStore{
		inner: inner,
		cache: freecache.NewCache(sizeBytes),
	}
}

// Put writes through to the inner store and invalidates the cached copy.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Del([]byte(name))
	if err := s.inner.Put(ctx, name, data); err != nil {
		return err
	}
	// A cache that cannot hold the blob is not an error.
	_ = s.cache.Set([]byte(name), data, 0)
	return nil
}

// Get serves name from the cache, reading through on a miss.
func (s *CachingStore) Get(ctx context.Context, name string) ([]byte, error) {
	if data, err := s.cache.Get([]byte(name)); err == nil {
		s.hits.Add(1)
		return data, nil
	} else if !errors.Is(err, freecache.ErrNotFound) {
		return nil, err
	}
	s.misses.Add(1)

	v, err, _ := s.group.Do(name, func() (any, error) {
		data, err := s.inner.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		_ = s.cache.Set([]byte(name), data, 0)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	data := v.([]byte)
	// Callers sharing a flight must not share the slice.
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Delete removes name from the cache and the inner store.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Del([]byte(name))
	return s.inner.Delete(ctx, name)
}

// List is passed through to the inner store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Stats returns the hit and miss counters.
func (s *CachingStore) Stats() CacheStats {
	return CacheStats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Entries: s.cache.EntryCount(),
	}
}

// Clear drops every cached blob.
func (s *CachingStore) Clear() {
	s.cache.Clear()
}
