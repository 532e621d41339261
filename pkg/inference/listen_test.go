package inference

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSweep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	kept := f.completed(t, "price", priceModel())
	dropped := f.completed(t, "price", priceModel())
	for _, id := range []string{kept.ID, dropped.ID} {
		_, err := f.service.Deploy(ctx, id)
		require.NoError(t, err)
	}
	require.Equal(t, 2, f.cache.Len())

	// another process undeploys, this cache is not told
	_, err := f.store.SetDeployed(ctx, dropped.ID, false)
	require.NoError(t, err)
	listener := NewCacheListener(f.store, f.cache, time.Hour)
	assert.Equal(t, []string{dropped.ID}, listener.Sweep(ctx))
	_, ok := f.cache.Peek(kept.ID)
	assert.True(t, ok)

	_, err = f.store.Delete(ctx, kept.ID, false)
	require.NoError(t, err)
	assert.Equal(t, []string{kept.ID}, listener.Sweep(ctx))
	assert.Zero(t, f.cache.Len())
	assert.Empty(t, listener.Sweep(ctx))
	listener.Close()
}

func TestCacheListenerLoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	j := f.completed(t, "price", priceModel())
	_, err := f.service.Deploy(ctx, j.ID)
	require.NoError(t, err)
	_, err = f.store.SetDeployed(ctx, j.ID, false)
	require.NoError(t, err)

	listener := NewCacheListener(f.store, f.cache, 5*time.Millisecond)
	listener.Start()
	assert.Eventually(t, func() bool { return f.cache.Len() == 0 }, time.Second, 5*time.Millisecond)
	listener.Close()
	listener.Close()
}
