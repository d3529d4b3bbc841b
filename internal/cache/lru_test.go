package cache_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/cache"
	"courier/internal/domain"
)

func key(n int) domain.SessionKey {
	return domain.SessionKey{UserID: domain.UserID(fmt.Sprintf("user-%d", n)), DeviceID: 1}
}

func session(n int) *domain.Session {
	return &domain.Session{PeerUserID: domain.UserID(fmt.Sprintf("user-%d", n)), PeerDeviceID: 1}
}

func TestLRU_EvictsOldestAtCapacity(t *testing.T) {
	c := cache.NewLRU(3)
	for i := 1; i <= 3; i++ {
		c.Put(key(i), session(i))
	}
	require.Equal(t, 3, c.Len())

	c.Put(key(4), session(4))

	assert.Equal(t, 3, c.Len())
	_, ok := c.Get(key(1))
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = c.Get(key(2))
	assert.True(t, ok)
}

func TestLRU_GetMovesToFront(t *testing.T) {
	c := cache.NewLRU(3)
	for i := 1; i <= 3; i++ {
		c.Put(key(i), session(i))
	}

	// Reading 1 makes 2 the eviction candidate.
	_, ok := c.Get(key(1))
	require.True(t, ok)
	c.Put(key(4), session(4))

	_, ok = c.Get(key(2))
	assert.False(t, ok)
	_, ok = c.Get(key(1))
	assert.True(t, ok)
}

func TestLRU_TouchMovesToFront(t *testing.T) {
	c := cache.NewLRU(2)
	c.Put(key(1), session(1))
	c.Put(key(2), session(2))

	c.Touch(key(1))
	c.Put(key(3), session(3))

	_, ok := c.Get(key(2))
	assert.False(t, ok)
	_, ok = c.Get(key(1))
	assert.True(t, ok)
}

func TestLRU_PutReplacesWithoutEvicting(t *testing.T) {
	c := cache.NewLRU(2)
	c.Put(key(1), session(1))
	c.Put(key(2), session(2))

	replacement := session(1)
	replacement.CreatedUTC = 99
	c.Put(key(1), replacement)

	assert.Equal(t, 2, c.Len())
	got, ok := c.Get(key(1))
	require.True(t, ok)
	assert.Equal(t, int64(99), got.CreatedUTC)
}

func TestLRU_KeysOrderedMostRecentFirst(t *testing.T) {
	c := cache.NewLRU(3)
	for i := 1; i <= 3; i++ {
		c.Put(key(i), session(i))
	}
	c.Touch(key(1))

	assert.Equal(t, []domain.SessionKey{key(1), key(3), key(2)}, c.Keys())
}

func TestLRU_RemoveAndClear(t *testing.T) {
	c := cache.NewLRU(3)
	c.Put(key(1), session(1))
	c.Put(key(2), session(2))

	c.Remove(key(1))
	assert.Equal(t, 1, c.Len())
	// Removing a missing key is a no-op.
	c.Remove(key(1))

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(key(2))
	assert.False(t, ok)
}
