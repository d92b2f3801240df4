package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_Expiry(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := newCache[string, int](time.Minute, func() time.Time { return now })

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.sweep()
	assert.Equal(t, 0, c.Len())
}

func TestCache_Delete(t *testing.T) {
	c := New[string, string](time.Minute)
	defer c.Stop()

	c.Set("k", "v")
	c.Delete("k")
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_GetOrLoad(t *testing.T) {
	c := New[string, int](time.Minute)
	defer c.Stop()
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad(ctx, "k", load)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, err := c.GetOrLoad(ctx, "missing", func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestCache_StopIsIdempotent(t *testing.T) {
	c := New[int, int](time.Millisecond)
	c.Stop()
	c.Stop()
}
