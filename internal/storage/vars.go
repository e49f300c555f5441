package storage

const (
	OneKB = 1 << 10
	OneMB = 1 << 20
	OneGB = 1 << 30

	// PageSize is the fixed block size, identical for every relation.
	PageSize = 1 << 13 // 8,192

	// SegmentSize caps a single backing file; pages beyond it spill
	// into Base.1, Base.2, ...
	SegmentSize       = 1 << 30
	MaxPagePerSegment = SegmentSize / PageSize

	// On-disk page header: type (1) + slot count (2, LE) +
	// free-space pointer (2, LE) + sibling PageID (4, LE, 0 = none).
	HeaderSize = 9

	// Slot directory entry: offset (2, LE) + length (2, LE).
	// Length 0 marks a tombstoned slot.
	SlotSize = 4

	// MaxTupleLen is the largest payload that fits an empty page
	// together with its slot entry. Anything larger is fatal for the
	// tuple; there is no overflow chaining.
	MaxTupleLen = PageSize - HeaderSize - SlotSize
)

const (
	FileMode0644 = 0o644
	FileMode0755 = 0o755
)

// PageID is the logical position of a page inside a relation's
// segment chain. IDs are handed out monotonically and stay stable for
// the page's lifetime.
type PageID = uint32

type PageType uint8

const (
	PageSlotted PageType = iota + 1 // heap table page
	PageBTreeInternal
	PageBTreeLeaf
)

func (t PageType) String() string {
	switch t {
	case PageSlotted:
		return "slotted"
	case PageBTreeInternal:
		return "btree_internal"
	case PageBTreeLeaf:
		return "btree_leaf"
	default:
		return "unknown"
	}
}
