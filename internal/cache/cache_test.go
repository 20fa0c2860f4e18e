package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_GetSet(t *testing.T) {
	c := NewMemoryCache[int64]()
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "balance:1", 500, time.Minute))

	value, err := c.Get(ctx, "balance:1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), value)
}

func TestMemoryCache_Expiration(t *testing.T) {
	c := NewMemoryCache[string]()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 10*time.Millisecond))

	value, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	time.Sleep(20 * time.Millisecond)

	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemoryCache[int64]()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// Deleting an absent key is a no-op.
	require.NoError(t, c.Delete(ctx, "k"))
}

func TestGetWithFetch(t *testing.T) {
	c := NewMemoryCache[int64]()
	ctx := context.Background()

	var fetches int
	fetch := func(ctx context.Context) (int64, error) {
		fetches++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		value, err := GetWithFetch(ctx, c, "k", time.Minute, fetch)
		require.NoError(t, err)
		assert.Equal(t, int64(42), value)
	}
	assert.Equal(t, 1, fetches, "repeat reads hit the cache")
}

func TestGetWithFetch_ErrorNotCached(t *testing.T) {
	c := NewMemoryCache[int64]()
	ctx := context.Background()

	var fetches int
	fetch := func(ctx context.Context) (int64, error) {
		fetches++
		if fetches == 1 {
			return 0, fmt.Errorf("remote unavailable")
		}
		return 7, nil
	}

	_, err := GetWithFetch(ctx, c, "k", time.Minute, fetch)
	require.Error(t, err)

	value, err := GetWithFetch(ctx, c, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, int64(7), value)
	assert.Equal(t, 2, fetches)
}
