package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGetTake(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(16, time.Hour)

	require.NoError(t, s.Set(ctx, "selection:abc", []byte(`["alice"]`), time.Minute))

	v, ok, err := s.Get(ctx, "selection:abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["alice"]`, string(v))

	v, ok, err = s.Take(ctx, "selection:abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["alice"]`, string(v))

	_, ok, err = s.Take(ctx, "selection:abc")
	require.NoError(t, err)
	assert.False(t, ok, "second take must miss")
}

func TestMemoryStore_PerKeyTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(16, time.Hour)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "revoked:1", []byte("1"), 10*time.Second))

	ok, err := s.Exists(ctx, "revoked:1")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(10 * time.Second)
	ok, err = s.Exists(ctx, "revoked:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_CopiesValue(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(4, time.Hour)

	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", buf, time.Minute))
	buf[0] = 'x'

	v, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(v))
}

func TestMemoryStore_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2, time.Hour)

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, s.Set(ctx, "c", []byte("3"), time.Minute))

	ok, _ := s.Exists(ctx, "a")
	assert.False(t, ok)
	ok, _ = s.Exists(ctx, "c")
	assert.True(t, ok)
}
