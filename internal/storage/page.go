package storage

import (
	"errors"

	"github.com/petreldb/petrel/pkg/bx"
)

// Header offsets
const (
	offType    = 0
	offNumSlot = 1
	offUpper   = 3
	offSibling = 5
)

var (
	ErrWrongSize      = errors.New("page: buffer size != PageSize")
	ErrTupleTooLarge  = errors.New("page: tuple can never fit an empty page")
	ErrEmptyTuple     = errors.New("page: empty tuple payload")
	ErrPageFull       = errors.New("page: not enough free space")
	ErrSlotOutOfRange = errors.New("page: slot index out of range")
	ErrSlotTombstoned = errors.New("page: slot is tombstoned")
	ErrPageCorrupted  = errors.New("page: corrupt slot or tuple bounds")
)

type Slot struct {
	Offset uint16
	Length uint16 // 0 == tombstone
}

// +------------------+ 0
// | header (9 bytes) |
// | slot directory   | <-- grows forward, end = lower
// +------------------+
// |    free space    |
// +------------------+ <-- upper (free-space pointer)
// |    tuple data    |     grows backward from PageSize
// +------------------+ 8192
//
// The logical PageID is not part of the block; the buffer pool and the
// page store track it.
type Page struct {
	ID  PageID
	Buf []byte // fixed-size 8KB
}

// NewPage wraps buf and zero-initializes the header for the given type.
func NewPage(buf []byte, id PageID, pt PageType) (*Page, error) {
	if len(buf) != PageSize {
		return nil, ErrWrongSize
	}
	p := &Page{ID: id, Buf: buf}
	p.Reset(pt)
	return p, nil
}

// Reset re-initializes the whole block: zero bytes, fresh header,
// empty slot directory.
func (p *Page) Reset(pt PageType) {
	clear(p.Buf)
	p.Buf[offType] = byte(pt)
	p.setNumSlots(0)
	p.setUpper(PageSize)
	p.SetSibling(0)
}

// ---- low-level header getters/setters ----

func (p *Page) Type() PageType { return PageType(p.Buf[offType]) }

func (p *Page) NumSlots() int {
	return int(bx.U16At(p.Buf, offNumSlot))
}

func (p *Page) setNumSlots(n int) {
	bx.PutU16At(p.Buf, offNumSlot, uint16(n))
}

func (p *Page) upper() uint16 {
	return bx.U16At(p.Buf, offUpper)
}

func (p *Page) setUpper(v int) {
	bx.PutU16At(p.Buf, offUpper, uint16(v%PageSize)) // 8192 wraps to 0, see lowerUpper
}

// Sibling returns the right-sibling PageID for leaf chaining; 0 means
// none.
func (p *Page) Sibling() PageID { return bx.U32At(p.Buf, offSibling) }

func (p *Page) SetSibling(id PageID) { bx.PutU32At(p.Buf, offSibling, id) }

// lowerUpper reports both growth fronts in full-range ints. The stored
// upper is 16-bit, so the empty-page value 8192 is persisted as 0 and
// widened back here (a real data start of 0 is impossible, the header
// occupies it).
func (p *Page) lowerUpper() (int, int) {
	lower := HeaderSize + p.NumSlots()*SlotSize
	upper := int(p.upper())
	if upper == 0 {
		upper = PageSize
	}
	return lower, upper
}

// FreeSpace is the exact byte count available to a new insert before
// InsertTuple fails: the gap between the slot directory end and the
// tuple data start.
func (p *Page) FreeSpace() int {
	lower, upper := p.lowerUpper()
	if upper < lower {
		return 0
	}
	return upper - lower
}

// IsUninitialized reports whether the block is still all-zero (never
// written by a higher layer). A zeroed block decodes as type 0.
func (p *Page) IsUninitialized() bool { return p.Buf[offType] == 0 }

// ---- slots ----

func (p *Page) slotOff(idx int) int {
	return HeaderSize + idx*SlotSize
}

func (p *Page) getSlot(i int) (Slot, error) {
	if i < 0 || i >= p.NumSlots() {
		return Slot{}, ErrSlotOutOfRange
	}
	o := p.slotOff(i)
	return Slot{
		Offset: bx.U16(p.Buf[o+0:]),
		Length: bx.U16(p.Buf[o+2:]),
	}, nil
}

func (p *Page) putSlot(idx int, s Slot) error {
	if idx < 0 || idx > p.NumSlots() {
		// writing the next slot is only allowed via appendSlot
		return ErrSlotOutOfRange
	}
	o := p.slotOff(idx)
	if o+SlotSize > PageSize {
		return ErrPageCorrupted
	}
	bx.PutU16(p.Buf[o+0:], s.Offset)
	bx.PutU16(p.Buf[o+2:], s.Length)
	return nil
}

func (p *Page) appendSlot(off, length uint16) (int, error) {
	i := p.NumSlots()
	if err := p.putSlot(i, Slot{Offset: off, Length: length}); err != nil {
		return -1, err
	}
	p.setNumSlots(i + 1)
	return i, nil
}

// ---- tuples (payload) ----

// InsertTuple appends a new slot entry and writes the payload into the
// data region. The returned slot index is a stable locator: it never
// changes for the life of the tuple, even across Compact.
func (p *Page) InsertTuple(tup []byte) (slot int, err error) {
	if len(tup) == 0 {
		return -1, ErrEmptyTuple
	}
	if len(tup) > MaxTupleLen {
		return -1, ErrTupleTooLarge
	}
	need := len(tup) + SlotSize
	if p.FreeSpace() < need {
		return -1, ErrPageFull
	}

	_, upper := p.lowerUpper()
	u := upper - len(tup)
	copy(p.Buf[u:], tup)
	p.setUpper(u)
	return p.appendSlot(uint16(u), uint16(len(tup)))
}

// ReadTuple returns the payload bytes for slot. The slice aliases the
// page buffer; callers that outlive the pin must copy.
func (p *Page) ReadTuple(slot int) ([]byte, error) {
	s, err := p.getSlot(slot)
	if err != nil {
		return nil, err
	}
	if s.Length == 0 {
		return nil, ErrSlotTombstoned
	}

	start, end := int(s.Offset), int(s.Offset)+int(s.Length)
	_, upper := p.lowerUpper()
	if start < upper || end > PageSize {
		return nil, ErrPageCorrupted
	}
	return p.Buf[start:end], nil
}

// IsLiveSlot reports whether slot holds a readable tuple (not a
// tombstone).
func (p *Page) IsLiveSlot(slot int) (bool, error) {
	s, err := p.getSlot(slot)
	if err != nil {
		return false, err
	}
	return s.Length != 0, nil
}

// DeleteTuple tombstones slot: the entry stays (zero length) so other
// slot indices remain valid locators. Space is reclaimed only by an
// explicit Compact.
func (p *Page) DeleteTuple(slot int) error {
	s, err := p.getSlot(slot)
	if err != nil {
		return err
	}
	if s.Length == 0 {
		return ErrSlotTombstoned
	}
	return p.putSlot(slot, Slot{Offset: 0, Length: 0})
}

// Compact rewrites the tuple data region dropping tombstoned gaps.
// Slot indices are preserved; only offsets are reassigned. This is an
// explicit maintenance call for the page owner, never run implicitly
// by InsertTuple.
func (p *Page) Compact() error {
	n := p.NumSlots()

	type liveEnt struct {
		idx  int
		data []byte
	}
	live := make([]liveEnt, 0, n)
	for i := 0; i < n; i++ {
		s, err := p.getSlot(i)
		if err != nil {
			return err
		}
		if s.Length == 0 {
			continue
		}
		start, end := int(s.Offset), int(s.Offset)+int(s.Length)
		_, upper := p.lowerUpper()
		if start < upper || end > PageSize {
			return ErrPageCorrupted
		}
		// copy out: the region is about to be rewritten in place
		cp := make([]byte, s.Length)
		copy(cp, p.Buf[start:end])
		live = append(live, liveEnt{idx: i, data: cp})
	}

	lower, _ := p.lowerUpper()
	clear(p.Buf[lower:PageSize])

	u := PageSize
	for _, e := range live {
		u -= len(e.data)
		copy(p.Buf[u:], e.data)
		if err := p.putSlot(e.idx, Slot{Offset: uint16(u), Length: uint16(len(e.data))}); err != nil {
			return err
		}
	}
	p.setUpper(u)
	return nil
}
