package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "reviews:42", ReviewsKey(42))
	assert.Equal(t, "reviews:all", ReviewsAllKey)
	assert.Equal(t, "naturants:top", TopNaturantsKey)
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	var got []string
	hit, err := GetJSON(ctx, m, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, SetJSON(ctx, m, "k", []string{"a", "b"}, time.Minute))
	hit, err = GetJSON(ctx, m, "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestMemory_Expiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Second))
	assert.True(t, m.Has("k"))

	now = now.Add(time.Second)
	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemory_DeleteMatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()
	for _, k := range []string{"reviews:all", "reviews:1", "reviews:2", "naturants:top"} {
		require.NoError(t, m.Set(ctx, k, []byte("x"), 0))
	}

	require.NoError(t, m.DeleteMatch(ctx, "reviews:*"))
	assert.False(t, m.Has("reviews:all"))
	assert.False(t, m.Has("reviews:1"))
	assert.True(t, m.Has("naturants:top"))
}

func TestNoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New(nil)
	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}
