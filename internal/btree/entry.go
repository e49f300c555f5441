package btree

import (
	"github.com/petreldb/petrel/internal/storage"
	"github.com/petreldb/petrel/pkg/bx"
)

// KeyType is the key type supported by this B+Tree.
type KeyType = int64

// ValueType is the fixed-width payload stored next to each key. Wide
// enough for a packed row locator (heap.TID) or any small integer.
type ValueType = uint64

const (
	// LeafEntrySize is the fixed size of one leaf entry:
	// 8 bytes key + 8 bytes value.
	LeafEntrySize = 8 + 8

	// InternalEntrySize is 8 bytes key + 4 bytes child PageID.
	InternalEntrySize = 8 + 4
)

// EncodeLeafEntry encodes (key, value).
// Layout: [key int64 LE][value uint64 LE]
func EncodeLeafEntry(key KeyType, value ValueType) []byte {
	buf := make([]byte, LeafEntrySize)
	bx.PutU64(buf[0:8], uint64(key))
	bx.PutU64(buf[8:16], value)
	return buf
}

func DecodeLeafEntry(b []byte) (KeyType, ValueType) {
	if len(b) < LeafEntrySize {
		// The page layer guarantees tuple length.
		return 0, 0
	}
	return KeyType(bx.U64(b[0:8])), bx.U64(b[8:16])
}

// EncodeInternalEntry encodes (minKey, childPageID).
// Layout: [key int64 LE][child uint32 LE]
func EncodeInternalEntry(key KeyType, child storage.PageID) []byte {
	buf := make([]byte, InternalEntrySize)
	bx.PutU64(buf[0:8], uint64(key))
	bx.PutU32(buf[8:12], child)
	return buf
}

func DecodeInternalEntry(b []byte) (KeyType, storage.PageID) {
	if len(b) < InternalEntrySize {
		return 0, 0
	}
	return KeyType(bx.U64(b[0:8])), bx.U32(b[8:12])
}
