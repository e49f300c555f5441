// Package lrux implements least-recently-used replacement for a fixed
// number of slots. It tracks recency and evictable state for slot IDs
// [0..capacity); a slot is only returned as a victim while evictable.
package lrux

import "container/list"

type LRU struct {
	order     *list.List // front = most recently touched
	elems     []*list.Element
	evictable []bool
	size      int // number of evictable slots
}

func New(capacity int) *LRU {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRU{
		order:     list.New(),
		elems:     make([]*list.Element, capacity),
		evictable: make([]bool, capacity),
	}
}

func (l *LRU) Capacity() int { return len(l.elems) }

// Touch marks slot as most recently accessed.
func (l *LRU) Touch(id int) {
	if id < 0 || id >= len(l.elems) {
		return
	}
	if e := l.elems[id]; e != nil {
		l.order.MoveToFront(e)
		return
	}
	l.elems[id] = l.order.PushFront(id)
}

// SetEvictable marks whether slot can be evicted (e.g., pin==0).
func (l *LRU) SetEvictable(id int, evictable bool) {
	if id < 0 || id >= len(l.elems) {
		return
	}
	if l.elems[id] == nil {
		// Ignore unknown slot.
		return
	}

	if l.evictable[id] == evictable {
		return
	}
	l.evictable[id] = evictable
	if evictable {
		l.size++
	} else {
		l.size--
	}
}

// Evict returns the least recently used evictable slot and removes it
// from tracking.
func (l *LRU) Evict() (id int, ok bool) {
	if l.size == 0 {
		return -1, false
	}
	for e := l.order.Back(); e != nil; e = e.Prev() {
		id := e.Value.(int)
		if !l.evictable[id] {
			continue
		}
		l.order.Remove(e)
		l.elems[id] = nil
		l.evictable[id] = false
		l.size--
		return id, true
	}
	return -1, false
}

// Remove removes slot from tracking regardless of recency.
func (l *LRU) Remove(id int) {
	if id < 0 || id >= len(l.elems) {
		return
	}
	e := l.elems[id]
	if e == nil {
		return
	}
	l.order.Remove(e)
	l.elems[id] = nil
	if l.evictable[id] {
		l.evictable[id] = false
		l.size--
	}
}

func (l *LRU) Size() int { return l.size }
