package btree

import (
	"errors"

	"github.com/petreldb/petrel/internal/storage"
)

// InternalNode is a thin wrapper around a page used as an internal
// B+Tree node. Each entry encodes (minKey, childPageID), kept in
// ascending minKey order.
//
// Semantics: entry i's key is the smallest key reachable in child i's
// subtree. Routing a search key K picks the last entry whose minKey is
// <= K; keys below the first entry's minKey also route to child 0, so
// the leftmost key never actually partitions anything. This is the
// classic B+Tree separator scheme with separators stored as the
// right-hand child's minimum: every key left of a separator is
// strictly smaller than it, every key at or right of it is >= it.
type InternalNode struct {
	Page *storage.Page
}

func (n *InternalNode) NumKeys() int { return n.Page.NumSlots() }

func (n *InternalNode) EntryAt(i int) (KeyType, storage.PageID, error) {
	data, err := n.Page.ReadTuple(i)
	if err != nil {
		return 0, 0, err
	}
	key, child := DecodeInternalEntry(data)
	return key, child, nil
}

type internalEntry struct {
	key   KeyType
	child storage.PageID
}

func (n *InternalNode) entries() ([]internalEntry, error) {
	num := n.NumKeys()
	out := make([]internalEntry, 0, num)
	for i := 0; i < num; i++ {
		k, c, err := n.EntryAt(i)
		if err != nil {
			return nil, err
		}
		out = append(out, internalEntry{key: k, child: c})
	}
	return out, nil
}

// writeAll rewrites the whole node in place with the given sorted run.
func (n *InternalNode) writeAll(entries []internalEntry) error {
	n.Page.Reset(storage.PageBTreeInternal)
	for _, e := range entries {
		if _, err := n.Page.InsertTuple(EncodeInternalEntry(e.key, e.child)); err != nil {
			return err
		}
	}
	return nil
}

// findChild returns the branch whose key range contains key: the last
// entry with minKey <= key, defaulting to the leftmost child.
func (n *InternalNode) findChild(key KeyType) (storage.PageID, error) {
	entries, err := n.entries()
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, errors.New("btree: internal node has no entries")
	}

	// binary search: first index with minKey > key
	lo, hi := 0, len(entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if entries[mid].key <= key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return entries[0].child, nil
	}
	return entries[lo-1].child, nil
}
