package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetSetRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(v))
}

func TestMemoryStore_SetWithTTLExpires(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_IncrWithExpire(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	n, err := s.IncrWithExpire(ctx, "counter", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.IncrWithExpire(ctx, "counter", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMemoryStore_AddToRecentSetTrimsAndOrdersOldestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, m := range []string{"a", "b", "c"} {
		_, err := s.AddToRecentSet(ctx, "recent:example.com", m, 2)
		require.NoError(t, err)
	}

	members, err := s.RecentMembers(ctx, "recent:example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, members)
}

func TestMemoryStore_ScanKeysMatchesGlobPattern(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "velocity:ip:1.2.3.4:h", []byte("1"), time.Hour))
	require.NoError(t, s.Set(ctx, "velocity:domain:example.com:h", []byte("1"), time.Hour))
	require.NoError(t, s.Set(ctx, "other:key", []byte("1"), time.Hour))

	keys, err := s.ScanKeys(ctx, "velocity:ip:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"velocity:ip:1.2.3.4:h"}, keys)
}

func TestMemoryStore_TTLReportsRemainingAndAbsence(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "no-ttl", []byte("v"), 0))
	_, ok, err := s.TTL(ctx, "no-ttl")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "with-ttl", []byte("v"), time.Minute))
	ttl, ok, err := s.TTL(ctx, "with-ttl")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Greater(t, ttl, time.Duration(0))

	_, ok, err = s.TTL(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_DeleteReportsExistence(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))

	existed, err := s.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestMemoryStore_PushPopJobFIFO(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.PushJob(ctx, "queue", []byte("job-1")))

	payload, ok, err := s.PopJob(ctx, "queue", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "job-1", string(payload))
}

func TestMemoryStore_PopJobTimesOutWhenEmpty(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, ok, err := s.PopJob(ctx, "empty-queue", 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}
