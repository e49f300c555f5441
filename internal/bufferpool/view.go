package bufferpool

import "github.com/petreldb/petrel/internal/storage"

// Manager is the relation-scoped surface the heap and index layers
// consume: page access without caring which FileSet or pool sits
// underneath.
type Manager interface {
	FetchPage(pageID storage.PageID, mode AccessMode) (*PageHandle, error)
	NewPage(pt storage.PageType) (*PageHandle, error)
	WithPage(pageID storage.PageID, mode AccessMode, fn func(*storage.Page) error) error
	FlushPage(pageID storage.PageID) error
	FlushAll() error
}

var _ Manager = (*RelationView)(nil)

// RelationView binds the shared Pool to a specific FileSet.
type RelationView struct {
	pool *Pool
	fs   storage.FileSet
}

// View returns a relation-scoped Manager backed by the shared pool.
func (p *Pool) View(fs storage.FileSet) *RelationView {
	return &RelationView{pool: p, fs: fs}
}

func (v *RelationView) FileSet() storage.FileSet { return v.fs }

func (v *RelationView) FetchPage(pageID storage.PageID, mode AccessMode) (*PageHandle, error) {
	return v.pool.FetchPage(v.fs, pageID, mode)
}

func (v *RelationView) NewPage(pt storage.PageType) (*PageHandle, error) {
	return v.pool.NewPage(v.fs, pt)
}

// WithPage runs fn against a pinned page and releases the pin on every
// exit path. For write-mode access the frame is marked dirty when fn
// succeeds.
func (v *RelationView) WithPage(pageID storage.PageID, mode AccessMode, fn func(*storage.Page) error) error {
	h, err := v.FetchPage(pageID, mode)
	if err != nil {
		return err
	}
	defer h.Release()

	if err := fn(h.Page()); err != nil {
		return err
	}
	if mode == ModeWrite {
		return h.MarkDirty()
	}
	return nil
}

func (v *RelationView) FlushPage(pageID storage.PageID) error {
	return v.pool.FlushPage(v.fs, pageID)
}

// FlushAll flushes dirty pages for THIS relation only.
func (v *RelationView) FlushAll() error {
	return v.pool.FlushRelation(v.fs)
}

// Drop flushes and evicts every resident page of the relation.
func (v *RelationView) Drop() error {
	return v.pool.DropRelation(v.fs)
}
