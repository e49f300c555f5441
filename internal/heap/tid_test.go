package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTIDPackRoundTrip(t *testing.T) {
	cases := []TID{
		{PageID: 0, Slot: 0},
		{PageID: 1, Slot: 2},
		{PageID: 0xffffffff, Slot: 0xffff},
		{PageID: 12345, Slot: 678},
	}
	for _, tid := range cases {
		assert.Equal(t, tid, UnpackTID(tid.Pack()))
	}
}

func TestTIDPackIsOrderedByPageThenSlot(t *testing.T) {
	a := TID{PageID: 1, Slot: 500}
	b := TID{PageID: 2, Slot: 0}
	assert.Less(t, a.Pack(), b.Pack())
}
