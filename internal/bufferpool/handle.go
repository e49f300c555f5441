package bufferpool

import (
	"errors"

	"github.com/petreldb/petrel/internal/storage"
)

var ErrReadOnlyPage = errors.New("bufferpool: cannot mark a read-mode handle dirty")

type AccessMode uint8

const (
	ModeRead AccessMode = iota + 1
	ModeWrite
)

// PageHandle is borrowed, scoped access to a pinned frame. The caller
// owns neither the frame nor the page bytes; it must Release on every
// exit path (or go through WithPage, which guarantees it). A handle is
// not safe for concurrent use.
type PageHandle struct {
	pool     *Pool
	tag      PageTag
	idx      int
	page     *storage.Page
	mode     AccessMode
	released bool
}

func (h *PageHandle) Page() *storage.Page    { return h.page }
func (h *PageHandle) PageID() storage.PageID { return h.tag.PageID }
func (h *PageHandle) Mode() AccessMode       { return h.mode }

// MarkDirty records that the frame's bytes changed and must be flushed
// before the frame is reused. Only write-mode handles may mutate.
func (h *PageHandle) MarkDirty() error {
	if h.mode != ModeWrite {
		return ErrReadOnlyPage
	}
	if h.released {
		return nil
	}
	h.pool.markDirty(h)
	return nil
}

// Release drops the pin. Idempotent: releasing twice is a no-op, so a
// deferred Release is always safe alongside an explicit one.
func (h *PageHandle) Release() error {
	if h.released {
		return nil
	}
	h.released = true
	return h.pool.release(h)
}
