package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClient_SetGet(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k1", []byte("v1"), time.Minute))

	val, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)

	_, err = c.Get(ctx, "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_Expiry(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "short", []byte("v"), time.Millisecond))

	time.Sleep(5 * time.Millisecond)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_DeleteByPrefix(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "proj:p1:a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "proj:p1:b", []byte("2"), time.Minute))
	require.NoError(t, c.Set(ctx, "proj:p2:a", []byte("3"), time.Minute))

	require.NoError(t, c.DeleteByPrefix(ctx, "proj:p1"))

	_, err := c.Get(ctx, "proj:p1:a")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "proj:p2:a")
	assert.NoError(t, err)
}

func TestMemoryClient_EvictsAtCapacity(t *testing.T) {
	c := NewMemoryClient(2)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Hour))

	// "a" expires first, so it is the one evicted to make room.
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestMemoryClient_CloseIsIdempotent(t *testing.T) {
	c := NewMemoryClient(10)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestRequestDigest(t *testing.T) {
	image := []byte{0xff, 0xd8, 0xff, 0xe0}
	embedding := []float32{0.1, 0.2, 0.3}

	assert.Equal(t,
		RequestDigest(image, nil, "parede concluída"),
		RequestDigest(image, nil, "parede concluída"),
		"same content must map to the same digest")

	assert.NotEqual(t,
		RequestDigest(image, nil, "parede concluída"),
		RequestDigest(image, nil, "laje em construção"),
		"description is part of the fingerprint")

	assert.NotEqual(t,
		RequestDigest(nil, embedding, "parede"),
		RequestDigest(nil, []float32{0.1, 0.2, 0.4}, "parede"),
		"embedding is part of the fingerprint when no image is present")

	assert.Empty(t, RequestDigest(nil, nil, ""), "empty requests must not be cacheable")
}

func TestAnalysisRequestKey(t *testing.T) {
	key := AnalysisRequestKey("p1", "abc123")
	assert.Equal(t, "proj:p1:analysis:abc123", key)
}
