package btree

import (
	"github.com/petreldb/petrel/internal/bufferpool"
	"github.com/petreldb/petrel/internal/storage"
)

// Cursor lazily yields (key, value) pairs in ascending key order by
// walking the leaf sibling chain. It buffers one leaf at a time and
// holds no pin between Next calls. A cursor is finite and not
// restartable: re-scanning means descending from the root again.
//
//	cur, err := tree.RangeScan(low, high)
//	for cur.Next() {
//	    _ = cur.Key()
//	    _ = cur.Value()
//	}
//	err = cur.Err()
type Cursor struct {
	bp      bufferpool.Manager
	high    KeyType
	entries []leafEntry
	idx     int
	sibling storage.PageID // next leaf to load, 0 = none
	cur     leafEntry
	done    bool
	err     error
}

// RangeScan positions a cursor on the first key >= low; iteration
// stops after the last key <= high.
func (t *Tree) RangeScan(low, high KeyType) (*Cursor, error) {
	c := &Cursor{bp: t.bp, high: high, done: low > high}
	if c.done {
		return c, nil
	}

	h, err := t.bp.FetchPage(t.root, bufferpool.ModeRead)
	if err != nil {
		return nil, err
	}

	for h.Page().Type() == storage.PageBTreeInternal {
		in := InternalNode{Page: h.Page()}
		child, err := in.findChild(low)
		if err != nil {
			_ = h.Release()
			return nil, err
		}
		ch, err := t.bp.FetchPage(child, bufferpool.ModeRead)
		if err != nil {
			_ = h.Release()
			return nil, err
		}
		_ = h.Release()
		h = ch
	}

	leaf := LeafNode{Page: h.Page()}
	c.entries, err = leaf.entries()
	c.sibling = leaf.Page.Sibling()
	_ = h.Release()
	if err != nil {
		return nil, err
	}

	c.idx = lowerBound(c.entries, low)
	return c, nil
}

// Next advances the cursor. It returns false once the range is
// exhausted or an error occurred (see Err).
func (c *Cursor) Next() bool {
	for !c.done {
		if c.idx < len(c.entries) {
			e := c.entries[c.idx]
			c.idx++
			if e.key > c.high {
				c.done = true
				return false
			}
			c.cur = e
			return true
		}

		if c.sibling == 0 {
			c.done = true
			return false
		}
		if !c.loadLeaf(c.sibling) {
			return false
		}
	}
	return false
}

func (c *Cursor) loadLeaf(pageID storage.PageID) bool {
	h, err := c.bp.FetchPage(pageID, bufferpool.ModeRead)
	if err != nil {
		c.err = err
		c.done = true
		return false
	}
	leaf := LeafNode{Page: h.Page()}
	entries, err := leaf.entries()
	sibling := leaf.Page.Sibling()
	_ = h.Release()
	if err != nil {
		c.err = err
		c.done = true
		return false
	}

	c.entries = entries
	c.sibling = sibling
	c.idx = 0
	return true
}

func (c *Cursor) Key() KeyType     { return c.cur.key }
func (c *Cursor) Value() ValueType { return c.cur.val }

// Err reports the first page-access error hit during iteration.
func (c *Cursor) Err() error { return c.err }
