package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	slot0Data = []byte("data string of slot 0")
	slot1Data = []byte("data string of slot 1")
)

func newTestPage(t *testing.T) *Page {
	t.Helper()

	p, err := NewPage(make([]byte, PageSize), 0, PageSlotted)
	require.NoError(t, err)

	assert.Equal(t, PageSlotted, p.Type())
	assert.Equal(t, 0, p.NumSlots())
	assert.Equal(t, PageSize-HeaderSize, p.FreeSpace())

	return p
}

func TestNewPageWrongSize(t *testing.T) {
	_, err := NewPage(make([]byte, PageSize-1), 0, PageSlotted)
	require.ErrorIs(t, err, ErrWrongSize)
}

func TestInsertReadTuple(t *testing.T) {
	p := newTestPage(t)

	slot, err := p.InsertTuple(slot0Data)
	require.NoError(t, err)
	assert.Equal(t, 0, slot)

	slot, err = p.InsertTuple(slot1Data)
	require.NoError(t, err)
	assert.Equal(t, 1, slot)

	assert.Equal(t, 2, p.NumSlots())
	assert.Equal(t,
		PageSize-HeaderSize-2*SlotSize-len(slot0Data)-len(slot1Data),
		p.FreeSpace())

	got, err := p.ReadTuple(0)
	require.NoError(t, err)
	assert.Equal(t, slot0Data, got)

	got, err = p.ReadTuple(1)
	require.NoError(t, err)
	assert.Equal(t, slot1Data, got)

	// tuple data grows backward from the end of the block
	assert.Equal(t, slot1Data, p.Buf[PageSize-len(slot0Data)-len(slot1Data):PageSize-len(slot0Data)])

	_, err = p.ReadTuple(-1)
	require.ErrorIs(t, err, ErrSlotOutOfRange)
	_, err = p.ReadTuple(2)
	require.ErrorIs(t, err, ErrSlotOutOfRange)
}

func TestInsertEmptyAndOversizeTuple(t *testing.T) {
	p := newTestPage(t)

	_, err := p.InsertTuple(nil)
	require.ErrorIs(t, err, ErrEmptyTuple)

	_, err = p.InsertTuple(make([]byte, MaxTupleLen+1))
	require.ErrorIs(t, err, ErrTupleTooLarge)

	// the exact maximum fits an empty page
	slot, err := p.InsertTuple(make([]byte, MaxTupleLen))
	require.NoError(t, err)
	assert.Equal(t, 0, slot)
	assert.Equal(t, 0, p.FreeSpace())
}

func TestInsertUntilFull(t *testing.T) {
	p := newTestPage(t)
	tup := bytes.Repeat([]byte{0xab}, 100)

	inserted := 0
	for {
		_, err := p.InsertTuple(tup)
		if err != nil {
			require.ErrorIs(t, err, ErrPageFull)
			break
		}
		inserted++
	}

	// each insert consumes payload + one slot entry
	assert.Equal(t, (PageSize-HeaderSize)/(len(tup)+SlotSize), inserted)
	assert.Less(t, p.FreeSpace(), len(tup)+SlotSize)

	// the page stays readable after hitting full
	got, err := p.ReadTuple(inserted - 1)
	require.NoError(t, err)
	assert.Equal(t, tup, got)
}

func TestDeleteTombstonesSlot(t *testing.T) {
	p := newTestPage(t)

	_, err := p.InsertTuple(slot0Data)
	require.NoError(t, err)
	_, err = p.InsertTuple(slot1Data)
	require.NoError(t, err)

	free := p.FreeSpace()
	require.NoError(t, p.DeleteTuple(0))

	// delete reclaims nothing by itself
	assert.Equal(t, free, p.FreeSpace())
	assert.Equal(t, 2, p.NumSlots())

	_, err = p.ReadTuple(0)
	require.ErrorIs(t, err, ErrSlotTombstoned)

	live, err := p.IsLiveSlot(0)
	require.NoError(t, err)
	assert.False(t, live)

	// double delete
	require.ErrorIs(t, p.DeleteTuple(0), ErrSlotTombstoned)

	// surviving slot index is untouched
	got, err := p.ReadTuple(1)
	require.NoError(t, err)
	assert.Equal(t, slot1Data, got)
}

func TestCompactPreservesSlotIndices(t *testing.T) {
	p := newTestPage(t)

	tuples := [][]byte{
		[]byte("first tuple"),
		[]byte("second tuple"),
		[]byte("third tuple"),
		[]byte("fourth tuple"),
	}
	for _, tup := range tuples {
		_, err := p.InsertTuple(tup)
		require.NoError(t, err)
	}

	require.NoError(t, p.DeleteTuple(1))
	require.NoError(t, p.DeleteTuple(3))

	before := p.FreeSpace()
	require.NoError(t, p.Compact())
	after := p.FreeSpace()

	assert.Equal(t, before+len(tuples[1])+len(tuples[3]), after)
	assert.Equal(t, 4, p.NumSlots())

	// live slots keep their indices and contents
	got, err := p.ReadTuple(0)
	require.NoError(t, err)
	assert.Equal(t, tuples[0], got)

	got, err = p.ReadTuple(2)
	require.NoError(t, err)
	assert.Equal(t, tuples[2], got)

	// tombstones stay tombstoned
	_, err = p.ReadTuple(1)
	require.ErrorIs(t, err, ErrSlotTombstoned)
	_, err = p.ReadTuple(3)
	require.ErrorIs(t, err, ErrSlotTombstoned)

	// reclaimed space is insertable again
	slot, err := p.InsertTuple(bytes.Repeat([]byte{0x01}, len(tuples[1])+len(tuples[3])))
	require.NoError(t, err)
	assert.Equal(t, 4, slot)
}

func TestResetClearsEverything(t *testing.T) {
	p := newTestPage(t)

	_, err := p.InsertTuple(slot0Data)
	require.NoError(t, err)
	p.SetSibling(42)

	p.Reset(PageBTreeLeaf)

	assert.Equal(t, PageBTreeLeaf, p.Type())
	assert.Equal(t, 0, p.NumSlots())
	assert.Equal(t, PageID(0), p.Sibling())
	assert.Equal(t, PageSize-HeaderSize, p.FreeSpace())
}

func TestSiblingRoundTrip(t *testing.T) {
	p := newTestPage(t)

	assert.Equal(t, PageID(0), p.Sibling())
	p.SetSibling(0xdeadbeef)
	assert.Equal(t, PageID(0xdeadbeef), p.Sibling())
}

func TestIsUninitialized(t *testing.T) {
	raw := &Page{ID: 7, Buf: make([]byte, PageSize)}
	assert.True(t, raw.IsUninitialized())

	raw.Reset(PageSlotted)
	assert.False(t, raw.IsUninitialized())
}
