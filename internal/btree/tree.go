package btree

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/afero"

	"github.com/petreldb/petrel/internal/bufferpool"
	"github.com/petreldb/petrel/internal/storage"
)

var (
	ErrDuplicateKey = errors.New("btree: duplicate key")
	ErrKeyNotFound  = errors.New("btree: key not found")
)

// Tree is a disk-backed B+Tree over (int64 key, uint64 value) pairs.
// Every node is one page obtained through the buffer pool; the tree
// never reads page-store bytes directly. Leaves chain rightward for
// range scans; internal nodes route by child-minimum separators.
//
// Single writer assumed. Insert is not atomic across a multi-page
// split: a failure mid-propagation surfaces the error and leaves the
// pages as they were at failure (a WAL would be the real fix and is
// out of scope).
type Tree struct {
	bp bufferpool.Manager

	root   storage.PageID
	height int

	metaFS   afero.Fs
	metaPath string
}

// Open loads an existing tree from its meta sidecar or bootstraps a
// fresh one whose root is a single empty leaf.
func Open(bp bufferpool.Manager, fs storage.FileSet) (*Tree, error) {
	t := &Tree{bp: bp}
	t.metaFS, t.metaPath, _ = metaPathForFileSet(fs)

	m, found, err := t.loadMeta()
	if err != nil {
		return nil, fmt.Errorf("btree: load meta: %w", err)
	}
	if found {
		t.root = m.Root
		t.height = m.Height
		return t, nil
	}

	h, err := bp.NewPage(storage.PageBTreeLeaf)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	t.root = h.PageID()
	t.height = 1
	if err := t.saveMeta(); err != nil {
		return nil, err
	}
	slog.Debug("btree.open.bootstrap", "root", t.root)
	return t, nil
}

// Root returns the current root PageID.
func (t *Tree) Root() storage.PageID { return t.root }

// Height returns the current tree height (1 = root is a leaf).
func (t *Tree) Height() int { return t.height }

// Close persists the tree shape. Page durability is the buffer pool's
// job (flush-on-evict / flush-on-close).
func (t *Tree) Close() error {
	return t.saveMeta()
}

// Search descends from the root to the leaf whose range contains key.
// A node's pin is dropped once its child is fetched.
func (t *Tree) Search(key KeyType) (ValueType, error) {
	h, err := t.bp.FetchPage(t.root, bufferpool.ModeRead)
	if err != nil {
		return 0, err
	}

	for h.Page().Type() == storage.PageBTreeInternal {
		in := InternalNode{Page: h.Page()}
		child, err := in.findChild(key)
		if err != nil {
			_ = h.Release()
			return 0, err
		}
		ch, err := t.bp.FetchPage(child, bufferpool.ModeRead)
		if err != nil {
			_ = h.Release()
			return 0, err
		}
		_ = h.Release()
		h = ch
	}
	defer h.Release()

	leaf := LeafNode{Page: h.Page()}
	val, found, err := leaf.find(key)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrKeyNotFound
	}
	return val, nil
}

// promotion is a separator + right-child pair handed up to the parent
// after a split.
type promotion struct {
	key   KeyType
	child storage.PageID
}

// Insert adds (key, value) in sorted position, splitting on the way
// back up as needed. Duplicate keys are rejected, not overwritten.
func (t *Tree) Insert(key KeyType, value ValueType) error {
	pr, err := t.insertInto(t.root, key, value)
	if err != nil {
		return err
	}
	if pr == nil {
		return nil
	}

	// Root split: a new internal root references the old root and the
	// freshly promoted right child. Height grows by one.
	leftMin, err := t.minKeyOf(t.root)
	if err != nil {
		return err
	}

	h, err := t.bp.NewPage(storage.PageBTreeInternal)
	if err != nil {
		return err
	}
	defer h.Release()

	in := InternalNode{Page: h.Page()}
	err = in.writeAll([]internalEntry{
		{key: leftMin, child: t.root},
		{key: pr.key, child: pr.child},
	})
	if err != nil {
		return err
	}
	if err := h.MarkDirty(); err != nil {
		return err
	}

	t.root = h.PageID()
	t.height++
	slog.Debug("btree.root.split", "newRoot", t.root, "height", t.height, "separator", pr.key)
	return t.saveMeta()
}

// insertInto recursively inserts below pageID. The page stays pinned
// for the whole call, so a parent is still held while its child splits
// and hands a separator back up.
func (t *Tree) insertInto(pageID storage.PageID, key KeyType, value ValueType) (*promotion, error) {
	h, err := t.bp.FetchPage(pageID, bufferpool.ModeWrite)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	if h.Page().Type() == storage.PageBTreeLeaf {
		return t.leafInsert(h, key, value)
	}

	in := InternalNode{Page: h.Page()}
	child, err := in.findChild(key)
	if err != nil {
		return nil, err
	}

	pr, err := t.insertInto(child, key, value)
	if err != nil || pr == nil {
		return nil, err
	}

	// Child split: place the promoted separator next to its branch.
	entries, err := in.entries()
	if err != nil {
		return nil, err
	}
	pos := len(entries)
	for i, e := range entries {
		if pr.key < e.key {
			pos = i
			break
		}
	}
	entries = slices.Insert(entries, pos, internalEntry{key: pr.key, child: pr.child})

	if len(entries) <= maxInternalEntries() {
		if err := in.writeAll(entries); err != nil {
			return nil, err
		}
		return nil, h.MarkDirty()
	}

	// Internal split: median key promotes; the right node keeps it as
	// its own first (minimum) entry.
	nh, err := t.bp.NewPage(storage.PageBTreeInternal)
	if err != nil {
		return nil, err
	}
	defer nh.Release()

	mid := (len(entries) + 1) / 2
	left, right := entries[:mid], entries[mid:]

	if err := in.writeAll(left); err != nil {
		return nil, err
	}
	rn := InternalNode{Page: nh.Page()}
	if err := rn.writeAll(right); err != nil {
		return nil, err
	}
	if err := h.MarkDirty(); err != nil {
		return nil, err
	}
	if err := nh.MarkDirty(); err != nil {
		return nil, err
	}

	slog.Debug("btree.internal.split",
		"page", pageID,
		"newPage", nh.PageID(),
		"separator", right[0].key,
	)
	return &promotion{key: right[0].key, child: nh.PageID()}, nil
}

// leafInsert inserts into a pinned leaf, splitting it when full. The
// left half keeps ceil(n/2) entries; the right leaf's first key is the
// promoted separator, so every left key < separator <= every right key.
func (t *Tree) leafInsert(h *bufferpool.PageHandle, key KeyType, value ValueType) (*promotion, error) {
	leaf := LeafNode{Page: h.Page()}
	entries, err := leaf.entries()
	if err != nil {
		return nil, err
	}

	pos := lowerBound(entries, key)
	if pos < len(entries) && entries[pos].key == key {
		return nil, ErrDuplicateKey
	}
	entries = slices.Insert(entries, pos, leafEntry{key: key, val: value})

	if len(entries) <= maxLeafEntries() {
		if err := leaf.writeAll(entries); err != nil {
			return nil, err
		}
		return nil, h.MarkDirty()
	}

	nh, err := t.bp.NewPage(storage.PageBTreeLeaf)
	if err != nil {
		return nil, err
	}
	defer nh.Release()

	mid := (len(entries) + 1) / 2
	left, right := entries[:mid], entries[mid:]

	// Relink the sibling chain: old -> new -> old's former sibling.
	newLeaf := LeafNode{Page: nh.Page()}
	newLeaf.Page.SetSibling(leaf.Page.Sibling())
	if err := newLeaf.writeAll(right); err != nil {
		return nil, err
	}
	if err := leaf.writeAll(left); err != nil {
		return nil, err
	}
	leaf.Page.SetSibling(nh.PageID())

	if err := h.MarkDirty(); err != nil {
		return nil, err
	}
	if err := nh.MarkDirty(); err != nil {
		return nil, err
	}

	slog.Debug("btree.leaf.split",
		"page", h.PageID(),
		"newPage", nh.PageID(),
		"separator", right[0].key,
	)
	return &promotion{key: right[0].key, child: nh.PageID()}, nil
}

// Delete removes key from its leaf. Nodes are allowed to underflow;
// there is no merge or rebalance on delete.
func (t *Tree) Delete(key KeyType) error {
	h, err := t.bp.FetchPage(t.root, bufferpool.ModeWrite)
	if err != nil {
		return err
	}

	for h.Page().Type() == storage.PageBTreeInternal {
		in := InternalNode{Page: h.Page()}
		child, err := in.findChild(key)
		if err != nil {
			_ = h.Release()
			return err
		}
		ch, err := t.bp.FetchPage(child, bufferpool.ModeWrite)
		if err != nil {
			_ = h.Release()
			return err
		}
		_ = h.Release()
		h = ch
	}
	defer h.Release()

	leaf := LeafNode{Page: h.Page()}
	entries, err := leaf.entries()
	if err != nil {
		return err
	}
	pos := lowerBound(entries, key)
	if pos >= len(entries) || entries[pos].key != key {
		return ErrKeyNotFound
	}
	entries = slices.Delete(entries, pos, pos+1)

	if err := leaf.writeAll(entries); err != nil {
		return err
	}
	return h.MarkDirty()
}

// minKeyOf reads the smallest key currently under pageID (entry 0 of
// the node; for internal nodes that entry's key is the subtree min by
// construction).
func (t *Tree) minKeyOf(pageID storage.PageID) (KeyType, error) {
	h, err := t.bp.FetchPage(pageID, bufferpool.ModeRead)
	if err != nil {
		return 0, err
	}
	defer h.Release()

	switch h.Page().Type() {
	case storage.PageBTreeLeaf:
		leaf := LeafNode{Page: h.Page()}
		if leaf.NumKeys() == 0 {
			return 0, errors.New("btree: min of empty leaf")
		}
		k, _, err := leaf.EntryAt(0)
		return k, err
	default:
		in := InternalNode{Page: h.Page()}
		k, _, err := in.EntryAt(0)
		return k, err
	}
}
