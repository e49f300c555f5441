package btree

import (
	"github.com/petreldb/petrel/internal/storage"
)

// LeafNode is a thin wrapper around a page holding (key, value) leaf
// entries in sorted physical slot order. Leaves chain to their right
// sibling through the page header for range scans.
type LeafNode struct {
	Page *storage.Page
}

func (n *LeafNode) NumKeys() int { return n.Page.NumSlots() }

func (n *LeafNode) EntryAt(i int) (KeyType, ValueType, error) {
	data, err := n.Page.ReadTuple(i)
	if err != nil {
		return 0, 0, err
	}
	key, val := DecodeLeafEntry(data)
	return key, val, nil
}

type leafEntry struct {
	key KeyType
	val ValueType
}

// entries reads the whole node. Slot order is key order by
// construction (writeAll only ever writes sorted runs).
func (n *LeafNode) entries() ([]leafEntry, error) {
	num := n.NumKeys()
	out := make([]leafEntry, 0, num)
	for i := 0; i < num; i++ {
		k, v, err := n.EntryAt(i)
		if err != nil {
			return nil, err
		}
		out = append(out, leafEntry{key: k, val: v})
	}
	return out, nil
}

// writeAll rewrites the whole leaf in place with the given sorted run.
// The sibling link survives the rewrite. Node slots are not external
// locators, so renumbering here is fine.
func (n *LeafNode) writeAll(entries []leafEntry) error {
	sib := n.Page.Sibling()
	n.Page.Reset(storage.PageBTreeLeaf)
	n.Page.SetSibling(sib)

	for _, e := range entries {
		if _, err := n.Page.InsertTuple(EncodeLeafEntry(e.key, e.val)); err != nil {
			return err
		}
	}
	return nil
}

// lowerBound returns the first index whose key is >= target.
func lowerBound(entries []leafEntry, target KeyType) int {
	lo, hi := 0, len(entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if entries[mid].key < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// find returns (value, true) on an exact key match.
func (n *LeafNode) find(key KeyType) (ValueType, bool, error) {
	entries, err := n.entries()
	if err != nil {
		return 0, false, err
	}
	i := lowerBound(entries, key)
	if i < len(entries) && entries[i].key == key {
		return entries[i].val, true, nil
	}
	return 0, false, nil
}
