package heap

import (
	"errors"
	"log/slog"

	"github.com/petreldb/petrel/internal/bufferpool"
	"github.com/petreldb/petrel/internal/record"
	"github.com/petreldb/petrel/internal/storage"
)

// Table is a heap file: rows appended into slotted pages, addressed by
// TID, with no ordering. All page access goes through the relation's
// buffer pool view.
type Table struct {
	Name      string
	Schema    record.Schema
	BP        bufferpool.Manager
	PageCount uint32
}

func NewTable(name string, schema record.Schema, bp bufferpool.Manager, pageCount uint32) *Table {
	return &Table{
		Name:      name,
		Schema:    schema,
		BP:        bp,
		PageCount: pageCount,
	}
}

// Insert appends a row: last page first, fresh page when it is full.
func (t *Table) Insert(values []any) (TID, error) {
	if t.PageCount > 0 {
		pageID := t.PageCount - 1
		h, err := t.BP.FetchPage(pageID, bufferpool.ModeWrite)
		if err != nil {
			return TID{}, err
		}

		hp := HeapPage{Page: h.Page(), Schema: t.Schema}
		slot, err := hp.InsertRow(values)
		if err == nil {
			if err := h.MarkDirty(); err != nil {
				_ = h.Release()
				return TID{}, err
			}
			_ = h.Release()
			return TID{PageID: pageID, Slot: uint16(slot)}, nil
		}
		_ = h.Release()
		if !errors.Is(err, storage.ErrPageFull) {
			return TID{}, err
		}
		// fall through: current last page is full
	}

	h, err := t.BP.NewPage(storage.PageSlotted)
	if err != nil {
		return TID{}, err
	}
	defer h.Release()

	hp := HeapPage{Page: h.Page(), Schema: t.Schema}
	slot, err := hp.InsertRow(values)
	if err != nil {
		return TID{}, err
	}
	if err := h.MarkDirty(); err != nil {
		return TID{}, err
	}

	t.PageCount = h.PageID() + 1
	slog.Debug("heap.page.allocated", "table", t.Name, "page", h.PageID())
	return TID{PageID: h.PageID(), Slot: uint16(slot)}, nil
}

// Get reads a single row by TID.
func (t *Table) Get(id TID) ([]any, error) {
	var row []any
	err := t.BP.WithPage(id.PageID, bufferpool.ModeRead, func(p *storage.Page) error {
		hp := HeapPage{Page: p, Schema: t.Schema}
		var err error
		row, err = hp.ReadRow(int(id.Slot))
		return err
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Delete tombstones the row's slot. The slot index is never reused, so
// TIDs held elsewhere stay unambiguous.
func (t *Table) Delete(id TID) error {
	return t.BP.WithPage(id.PageID, bufferpool.ModeWrite, func(p *storage.Page) error {
		hp := HeapPage{Page: p, Schema: t.Schema}
		return hp.DeleteRow(int(id.Slot))
	})
}

// Update replaces a row. Rows are immutable once encoded: the old slot
// is tombstoned and the new version inserted as a fresh slot, so the
// caller gets a new TID and must re-point anything referencing the old
// one.
func (t *Table) Update(id TID, values []any) (TID, error) {
	if err := t.Delete(id); err != nil {
		return TID{}, err
	}
	return t.Insert(values)
}

// Scan iterates all live rows in TID order, skipping tombstones.
func (t *Table) Scan(fn func(id TID, row []any) error) error {
	for pageID := uint32(0); pageID < t.PageCount; pageID++ {
		err := t.BP.WithPage(pageID, bufferpool.ModeRead, func(p *storage.Page) error {
			hp := HeapPage{Page: p, Schema: t.Schema}
			for slot := 0; slot < p.NumSlots(); slot++ {
				live, err := p.IsLiveSlot(slot)
				if err != nil {
					return err
				}
				if !live {
					continue
				}
				row, err := hp.ReadRow(slot)
				if err != nil {
					return err
				}
				if err := fn(TID{PageID: pageID, Slot: uint16(slot)}, row); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Compact reclaims tombstoned space on one page. Explicit maintenance:
// slot indices survive, so outstanding TIDs stay valid, but the owner
// decides when it runs.
func (t *Table) Compact(pageID storage.PageID) error {
	return t.BP.WithPage(pageID, bufferpool.ModeWrite, func(p *storage.Page) error {
		return p.Compact()
	})
}

func (t *Table) Flush() error {
	return t.BP.FlushAll()
}
