package resource

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_ReadersShare(t *testing.T) {
	g := NewGuard("idx")
	require.NoError(t, g.TryRLock())
	require.NoError(t, g.TryRLock())

	err := g.TryLock()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCollision)

	var ce *CollisionError
	require.True(t, errors.As(err, &ce))
	assert.True(t, ce.Write)
	assert.Equal(t, "idx", ce.Resource)

	g.RUnlock()
	g.RUnlock()
	require.NoError(t, g.TryLock())
}

func TestGuard_WriterExcludesAll(t *testing.T) {
	var g Guard
	require.NoError(t, g.TryLock())
	assert.ErrorIs(t, g.TryRLock(), ErrCollision)
	assert.ErrorIs(t, g.TryLock(), ErrCollision)
	g.Unlock()
	require.NoError(t, g.TryRLock())
	g.RUnlock()
}

func TestGuard_ReadWriteHelpers(t *testing.T) {
	var g Guard
	err := g.Write(func() error {
		return g.Read(func() error { return nil })
	})
	assert.ErrorIs(t, err, ErrCollision)

	sentinel := errors.New("boom")
	assert.ErrorIs(t, g.Read(func() error { return sentinel }), sentinel)
	require.NoError(t, g.TryLock())
	g.Unlock()
}

func TestGuard_NeverBlocks(t *testing.T) {
	var g Guard
	require.NoError(t, g.TryLock())

	var wg sync.WaitGroup
	var collisions sync.Map
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := g.TryRLock(); err != nil {
				collisions.Store(i, true)
			}
		}(i)
	}
	wg.Wait()

	n := 0
	collisions.Range(func(_, _ any) bool { n++; return true })
	assert.Equal(t, 16, n)
	g.Unlock()
}

func TestGuard_UnlockPanics(t *testing.T) {
	var g Guard
	assert.Panics(t, func() { g.Unlock() })
	assert.Panics(t, func() { g.RUnlock() })
}
