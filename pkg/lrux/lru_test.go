package lrux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvictOrder(t *testing.T) {
	l := New(4)

	l.Touch(0)
	l.Touch(1)
	l.Touch(2)
	for id := 0; id < 3; id++ {
		l.SetEvictable(id, true)
	}

	// 0 is the least recently touched
	id, ok := l.Evict()
	require.True(t, ok)
	assert.Equal(t, 0, id)

	id, ok = l.Evict()
	require.True(t, ok)
	assert.Equal(t, 1, id)

	id, ok = l.Evict()
	require.True(t, ok)
	assert.Equal(t, 2, id)

	_, ok = l.Evict()
	assert.False(t, ok)
}

func TestTouchRefreshesRecency(t *testing.T) {
	l := New(4)

	l.Touch(0)
	l.Touch(1)
	l.Touch(0) // 1 becomes the LRU
	l.SetEvictable(0, true)
	l.SetEvictable(1, true)

	id, ok := l.Evict()
	require.True(t, ok)
	assert.Equal(t, 1, id)
}

func TestPinnedSlotIsSkipped(t *testing.T) {
	l := New(4)

	l.Touch(0)
	l.Touch(1)
	l.SetEvictable(0, false)
	l.SetEvictable(1, true)

	id, ok := l.Evict()
	require.True(t, ok)
	assert.Equal(t, 1, id)

	// only the pinned slot is left
	_, ok = l.Evict()
	assert.False(t, ok)

	// unpin it and it becomes the victim
	l.SetEvictable(0, true)
	id, ok = l.Evict()
	require.True(t, ok)
	assert.Equal(t, 0, id)
}

func TestEvictRemovesFromTracking(t *testing.T) {
	l := New(2)

	l.Touch(0)
	l.SetEvictable(0, true)

	id, ok := l.Evict()
	require.True(t, ok)
	assert.Equal(t, 0, id)
	assert.Equal(t, 0, l.Size())

	// a fresh Touch re-registers the slot as non-evictable
	l.Touch(0)
	_, ok = l.Evict()
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	l := New(4)

	l.Touch(0)
	l.Touch(1)
	l.SetEvictable(0, true)
	l.SetEvictable(1, true)
	assert.Equal(t, 2, l.Size())

	l.Remove(0)
	assert.Equal(t, 1, l.Size())

	id, ok := l.Evict()
	require.True(t, ok)
	assert.Equal(t, 1, id)
}

func TestSetEvictableUnknownSlot(t *testing.T) {
	l := New(2)

	// never touched: ignored
	l.SetEvictable(1, true)
	assert.Equal(t, 0, l.Size())

	// out of range ids are ignored too
	l.Touch(-1)
	l.Touch(99)
	l.SetEvictable(99, true)
	_, ok := l.Evict()
	assert.False(t, ok)
}
