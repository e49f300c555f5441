package btree

import "github.com/petreldb/petrel/internal/storage"

// maxEntriesPerPage returns how many fixed-size entries fit into one
// slotted page: each entry costs one slot plus its payload.
func maxEntriesPerPage(entrySize int) int {
	if entrySize <= 0 {
		return 0
	}
	free := storage.PageSize - storage.HeaderSize
	return free / (storage.SlotSize + entrySize)
}

func maxLeafEntries() int     { return maxEntriesPerPage(LeafEntrySize) }
func maxInternalEntries() int { return maxEntriesPerPage(InternalEntrySize) }
