package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userSchema() Schema {
	return Schema{Cols: []Column{
		{Name: "id", Type: ColInteger, Nullable: false},
		{Name: "name", Type: ColText, Nullable: false},
		{Name: "email", Type: ColVarChar, Nullable: true, MaxLen: 32},
		{Name: "balance", Type: ColFloat, Nullable: true},
		{Name: "active", Type: ColBool, Nullable: false},
	}}
}

func TestEncodeDecodeRow(t *testing.T) {
	s := userSchema()
	row := []any{int32(42), "alice", "alice@example.com", 13.5, true}

	data, err := EncodeRow(s, row)
	require.NoError(t, err)

	got, err := DecodeRow(s, data)
	require.NoError(t, err)
	assert.Equal(t, row, got)
}

func TestEncodeDecodeNulls(t *testing.T) {
	s := userSchema()
	row := []any{int32(7), "bob", nil, nil, false}

	data, err := EncodeRow(s, row)
	require.NoError(t, err)

	// null columns contribute zero data bytes:
	// nullmap(1) + int(4) + "bob"(4+3) + bool(1)
	assert.Len(t, data, 1+4+4+3+1)

	got, err := DecodeRow(s, data)
	require.NoError(t, err)
	assert.Nil(t, got[2])
	assert.Nil(t, got[3])
	assert.Equal(t, int32(7), got[0])
	assert.Equal(t, "bob", got[1])
	assert.Equal(t, false, got[4])
}

func TestEncodeNullmapBit(t *testing.T) {
	s := Schema{Cols: []Column{
		{Name: "a", Type: ColInteger, Nullable: true},
		{Name: "b", Type: ColInteger, Nullable: true},
	}}

	data, err := EncodeRow(s, []any{nil, int32(1)})
	require.NoError(t, err)
	assert.Equal(t, byte(0b01), data[0])

	data, err = EncodeRow(s, []any{int32(1), nil})
	require.NoError(t, err)
	assert.Equal(t, byte(0b10), data[0])
}

func TestEncodeRejectsBadRows(t *testing.T) {
	s := userSchema()

	// arity mismatch
	_, err := EncodeRow(s, []any{int32(1), "x"})
	require.ErrorIs(t, err, ErrSchemaMismatch)

	// null in a NOT NULL column
	_, err = EncodeRow(s, []any{nil, "x", nil, nil, true})
	require.ErrorIs(t, err, ErrSchemaMismatch)

	// wrong type
	_, err = EncodeRow(s, []any{"not an int", "x", nil, nil, true})
	require.ErrorIs(t, err, ErrSchemaMismatch)

	// int64 value out of int32 range
	_, err = EncodeRow(s, []any{int64(1) << 40, "x", nil, nil, true})
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestVarCharMaxLen(t *testing.T) {
	s := Schema{Cols: []Column{
		{Name: "code", Type: ColVarChar, Nullable: false, MaxLen: 4},
	}}

	_, err := EncodeRow(s, []any{"abcd"})
	require.NoError(t, err)

	_, err = EncodeRow(s, []any{"abcde"})
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestEncodeAcceptsWiderIntTypes(t *testing.T) {
	s := Schema{Cols: []Column{
		{Name: "n", Type: ColInteger, Nullable: false},
	}}

	data, err := EncodeRow(s, []any{int(12)})
	require.NoError(t, err)
	got, err := DecodeRow(s, data)
	require.NoError(t, err)
	assert.Equal(t, int32(12), got[0])

	data, err = EncodeRow(s, []any{int64(-12)})
	require.NoError(t, err)
	got, err = DecodeRow(s, data)
	require.NoError(t, err)
	assert.Equal(t, int32(-12), got[0])
}

func TestDecodeRejectsCorruptBytes(t *testing.T) {
	s := userSchema()
	row := []any{int32(1), "x", nil, nil, true}

	data, err := EncodeRow(s, row)
	require.NoError(t, err)

	// truncated
	_, err = DecodeRow(s, data[:len(data)-1])
	require.ErrorIs(t, err, ErrCorruptData)

	// trailing garbage
	_, err = DecodeRow(s, append(append([]byte{}, data...), 0x00))
	require.ErrorIs(t, err, ErrCorruptData)

	// bool byte out of domain
	bad := append([]byte{}, data...)
	bad[len(bad)-1] = 2
	_, err = DecodeRow(s, bad)
	require.ErrorIs(t, err, ErrCorruptData)

	// empty buffer can't even hold the nullmap
	_, err = DecodeRow(s, nil)
	require.ErrorIs(t, err, ErrCorruptData)
}

func TestDecodeRejectsNullInNotNullColumn(t *testing.T) {
	s := Schema{Cols: []Column{
		{Name: "n", Type: ColInteger, Nullable: false},
	}}

	// nullmap bit set for a NOT NULL column
	_, err := DecodeRow(s, []byte{0x01})
	require.ErrorIs(t, err, ErrCorruptData)
}

func TestColIndex(t *testing.T) {
	s := userSchema()
	assert.Equal(t, 0, s.ColIndex("id"))
	assert.Equal(t, 4, s.ColIndex("active"))
	assert.Equal(t, -1, s.ColIndex("missing"))
}
