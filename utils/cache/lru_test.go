package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRUCache(t *testing.T) {
	c := NewLRUCache[int, int](10)
	cache := c.(*LRUCache[int, int])
	for i := 0; i < 10; i++ {
		cache.Put(i, i)
	}
	for i := 0; i < 10; i++ {
		value, ok := cache.Get(i)
		assert.True(t, ok)
		assert.Equal(t, i, value)
	}

	assert.Equal(t, 10, cache.length)
	assert.Equal(t, cache.listHead, cache.listHead.prev.next)

	for i := 0; i < 10; i++ {
		assert.True(t, cache.Remove(i))
	}
	assert.Equal(t, 0, cache.length)
	assert.Nil(t, cache.listHead)
}

func TestLRUVictimOrder(t *testing.T) {
	c := NewLRUCache[int, string](4)
	c.Put(1, "a")
	c.Put(2, "b")
	c.Put(3, "c")

	// 1 is the coldest entry
	k, v, ok := c.Victim(func(int, string) bool { return true })
	assert.True(t, ok)
	assert.Equal(t, 1, k)
	assert.Equal(t, "a", v)

	// touching 2 makes 3 the next victim
	c.Get(2)
	k, _, ok = c.Victim(func(int, string) bool { return true })
	assert.True(t, ok)
	assert.Equal(t, 3, k)
}

func TestLRUVictimVeto(t *testing.T) {
	c := NewLRUCache[int, string](4)
	c.Put(1, "pinned")
	c.Put(2, "pinned")

	_, _, ok := c.Victim(func(int, string) bool { return false })
	assert.False(t, ok)
	assert.Equal(t, 2, c.Size())

	k, _, ok := c.Victim(func(k int, _ string) bool { return k == 2 })
	assert.True(t, ok)
	assert.Equal(t, 2, k)
	assert.Equal(t, 1, c.Size())
}
