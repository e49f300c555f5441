package bufferpool

import (
	"errors"
	"sync"

	"github.com/petreldb/petrel/internal/storage"
)

var (
	DefaultCapacity = 128

	ErrPoolExhausted = errors.New("bufferpool: all frames pinned at capacity")
	ErrPagePinned    = errors.New("bufferpool: page is pinned")
)

// PageTag uniquely identifies a page in the shared pool.
type PageTag struct {
	Rel    string // FileSet key
	PageID storage.PageID
}

// Frame is a pool-owned slot holding one resident page plus its
// metadata. Callers only ever see borrowed PageHandles, never frames.
type Frame struct {
	Tag   PageTag
	FS    storage.FileSet
	Page  *storage.Page
	Dirty bool
	Pin   int32
}

// Pool is the single process-wide page cache shared by every relation.
// It is constructed explicitly on database open and torn down with
// Close (FlushAll); relation-scoped views are handed to the heap and
// index layers.
type Pool struct {
	sm *storage.StorageManager

	mu       sync.Mutex
	frames   []*Frame        // len == capacity, nil == free slot
	table    map[PageTag]int // tag -> frame index
	repl     Replacer
	nextPage map[string]storage.PageID // per-relation allocator, monotonic
}

func NewPool(sm *storage.StorageManager, capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Pool{
		sm:       sm,
		frames:   make([]*Frame, capacity),
		table:    make(map[PageTag]int),
		repl:     newLRUAdapter(capacity),
		nextPage: make(map[string]storage.PageID),
	}
}

func (p *Pool) handleFor(idx int, mode AccessMode) *PageHandle {
	f := p.frames[idx]
	return &PageHandle{
		pool: p,
		tag:  f.Tag,
		idx:  idx,
		page: f.Page,
		mode: mode,
	}
}

// FetchPage pins the page (fs, pageID) and returns a handle. Resident
// pages are shared: concurrent handles to one PageID all pin the same
// frame. At capacity with every frame pinned it fails with
// ErrPoolExhausted instead of blocking.
func (p *Pool) FetchPage(fs storage.FileSet, pageID storage.PageID, mode AccessMode) (*PageHandle, error) {
	tag := PageTag{Rel: fs.Key(), PageID: pageID}

	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.table[tag]; ok {
		f := p.frames[idx]
		if f == nil {
			// Inconsistent mapping -> cleanup, fall through to load.
			delete(p.table, tag)
		} else {
			wasZero := f.Pin == 0
			f.Pin++
			p.repl.RecordAccess(idx)
			if wasZero {
				p.repl.SetEvictable(idx, false)
			}
			return p.handleFor(idx, mode), nil
		}
	}

	idx, err := p.acquireFrame()
	if err != nil {
		return nil, err
	}

	page, err := p.sm.LoadPage(fs, pageID)
	if err != nil {
		p.surrenderFrame(idx)
		return nil, err
	}

	p.frames[idx] = &Frame{
		Tag:  tag,
		FS:   fs,
		Page: page,
		Pin:  1,
	}
	p.table[tag] = idx
	p.repl.RecordAccess(idx)
	p.repl.SetEvictable(idx, false)

	return p.handleFor(idx, mode), nil
}

// NewPage allocates a fresh monotonic PageID for the relation and
// materializes a zeroed, initialized, pinned frame for it. No disk
// read happens; the frame starts dirty so the new page reaches disk
// even if the caller writes nothing else into it.
func (p *Pool) NewPage(fs storage.FileSet, pt storage.PageType) (*PageHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, err := p.acquireFrame()
	if err != nil {
		return nil, err
	}

	pageID, err := p.allocatePageID(fs)
	if err != nil {
		p.surrenderFrame(idx)
		return nil, err
	}
	tag := PageTag{Rel: fs.Key(), PageID: pageID}

	page, err := storage.NewPage(make([]byte, storage.PageSize), pageID, pt)
	if err != nil {
		p.surrenderFrame(idx)
		return nil, err
	}

	p.frames[idx] = &Frame{
		Tag:   tag,
		FS:    fs,
		Page:  page,
		Dirty: true,
		Pin:   1,
	}
	p.table[tag] = idx
	p.repl.RecordAccess(idx)
	p.repl.SetEvictable(idx, false)

	return p.handleFor(idx, ModeWrite), nil
}

// allocatePageID hands out the next PageID for a relation. The counter
// is seeded from the on-disk page count the first time a relation
// allocates, then only ever grows.
func (p *Pool) allocatePageID(fs storage.FileSet) (storage.PageID, error) {
	key := fs.Key()
	next, ok := p.nextPage[key]
	if !ok {
		count, err := p.sm.CountPages(fs)
		if err != nil {
			return 0, err
		}
		next = count
	}
	p.nextPage[key] = next + 1
	return next, nil
}

// acquireFrame returns the index of a usable empty frame slot: a free
// one if any, otherwise the LRU victim among unpinned frames (flushed
// first if dirty). Caller holds p.mu.
func (p *Pool) acquireFrame() (int, error) {
	for i, f := range p.frames {
		if f == nil {
			return i, nil
		}
	}

	victimIdx, ok := p.repl.Evict()
	if !ok {
		return -1, ErrPoolExhausted
	}
	victim := p.frames[victimIdx]
	if victim == nil || victim.Pin != 0 {
		// The replacer must never return nil/pinned victims.
		return -1, ErrPoolExhausted
	}

	if victim.Dirty {
		if err := p.sm.SavePage(victim.FS, victim.Page); err != nil {
			// Put the victim back as evictable so a later fetch can retry.
			p.repl.RecordAccess(victimIdx)
			p.repl.SetEvictable(victimIdx, true)
			return -1, err
		}
		victim.Dirty = false
	}

	delete(p.table, victim.Tag)
	p.frames[victimIdx] = nil
	return victimIdx, nil
}

// surrenderFrame returns an acquired-but-unused frame slot to the free
// list. Caller holds p.mu.
func (p *Pool) surrenderFrame(idx int) {
	p.frames[idx] = nil
}

func (p *Pool) release(h *PageHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.table[h.tag]
	if !ok {
		return nil
	}
	f := p.frames[idx]
	if f == nil {
		return nil
	}
	if f.Pin > 0 {
		f.Pin--
		if f.Pin == 0 {
			p.repl.SetEvictable(idx, true)
		}
	}
	return nil
}

func (p *Pool) markDirty(h *PageHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.table[h.tag]
	if !ok {
		return
	}
	if f := p.frames[idx]; f != nil {
		f.Dirty = true
	}
}

// FlushPage writes one dirty resident page back to the store and
// clears its dirty flag. Unknown or clean pages are a no-op.
func (p *Pool) FlushPage(fs storage.FileSet, pageID storage.PageID) error {
	tag := PageTag{Rel: fs.Key(), PageID: pageID}

	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.table[tag]
	if !ok {
		return nil
	}
	f := p.frames[idx]
	if f == nil || !f.Dirty {
		return nil
	}
	if err := p.sm.SavePage(f.FS, f.Page); err != nil {
		return err
	}
	f.Dirty = false
	return nil
}

// FlushAll writes every dirty frame in the pool.
func (p *Pool) FlushAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushLocked(func(*Frame) bool { return true })
}

// FlushRelation writes the dirty frames of a single relation.
func (p *Pool) FlushRelation(fs storage.FileSet) error {
	key := fs.Key()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushLocked(func(f *Frame) bool { return f.Tag.Rel == key })
}

func (p *Pool) flushLocked(want func(*Frame) bool) error {
	for _, f := range p.frames {
		if f == nil || !f.Dirty || !want(f) {
			continue
		}
		if err := p.sm.SavePage(f.FS, f.Page); err != nil {
			return err
		}
		f.Dirty = false
	}
	return nil
}

// DropRelation flushes and forgets every resident page of a relation.
// Must be called before deleting the underlying files; fails with
// ErrPagePinned if any page is still held.
func (p *Pool) DropRelation(fs storage.FileSet) error {
	key := fs.Key()

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, f := range p.frames {
		if f != nil && f.Tag.Rel == key && f.Pin != 0 {
			return ErrPagePinned
		}
	}

	for i, f := range p.frames {
		if f == nil || f.Tag.Rel != key {
			continue
		}
		if f.Dirty {
			if err := p.sm.SavePage(f.FS, f.Page); err != nil {
				return err
			}
		}
		delete(p.table, f.Tag)
		p.frames[i] = nil
		p.repl.Remove(i)
	}
	delete(p.nextPage, key)
	return nil
}

// Close flushes everything. The pool must not be used afterwards.
func (p *Pool) Close() error {
	return p.FlushAll()
}
