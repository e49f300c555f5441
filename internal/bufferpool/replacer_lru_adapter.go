package bufferpool

import "github.com/petreldb/petrel/pkg/lrux"

// Replacer tracks frame recency and evictability for the pool. The
// policy behind it is least-recently-used.
type Replacer interface {
	RecordAccess(frameID int)
	SetEvictable(frameID int, evictable bool)
	Evict() (frameID int, ok bool)
	Remove(frameID int)
	Size() int
}

type lruAdapter struct {
	l *lrux.LRU
}

func newLRUAdapter(capacity int) Replacer {
	return &lruAdapter{l: lrux.New(capacity)}
}

func (a *lruAdapter) RecordAccess(frameID int) {
	a.l.Touch(frameID)
}

func (a *lruAdapter) SetEvictable(frameID int, e bool) {
	a.l.SetEvictable(frameID, e)
}

func (a *lruAdapter) Evict() (int, bool) {
	return a.l.Evict()
}

func (a *lruAdapter) Remove(frameID int) {
	a.l.Remove(frameID)
}

func (a *lruAdapter) Size() int {
	return a.l.Size()
}
