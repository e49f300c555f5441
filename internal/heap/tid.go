package heap

import "github.com/petreldb/petrel/internal/storage"

// TID (tuple ID) is a row locator inside a heap file: the page's
// logical ID plus the slot index within that page. Slot indices are
// stable across deletes and compaction, so a TID stays valid for the
// life of the row.
type TID struct {
	PageID storage.PageID
	Slot   uint16
}

// Pack squeezes a TID into a uint64 so it can live as a B+Tree value.
func (id TID) Pack() uint64 {
	return uint64(id.PageID)<<16 | uint64(id.Slot)
}

func UnpackTID(v uint64) TID {
	return TID{
		PageID: storage.PageID(v >> 16),
		Slot:   uint16(v & 0xffff),
	}
}
